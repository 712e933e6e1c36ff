package domain

import (
	"fmt"
	"strings"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) Active() bool {
	return s != StatusCompleted
}

// Transition validates a forward status move. Completing straight from
// Pending is allowed so admins can close tasks nobody started.
func (s TaskStatus) Transition(to TaskStatus) (TaskStatus, error) {
	switch {
	case s == StatusPending && to == StatusInProgress:
	case s == StatusPending && to == StatusCompleted:
	case s == StatusInProgress && to == StatusCompleted:
	default:
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

// ParseTaskPriority defaults an empty value to Medium.
func ParseTaskPriority(s string) (TaskPriority, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityMedium, nil
	}
	p := TaskPriority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskPriority, s)
	}
	return p, nil
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
