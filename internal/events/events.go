// Package events publishes review task lifecycle changes so that readers of
// derived state, such as workload dashboards, know to refresh.
package events

import (
	"context"
	"time"

	"reviewengine/internal/domain"
)

type Type string

const (
	TaskAssigned  Type = "task.assigned"
	TaskStarted   Type = "task.started"
	TaskCompleted Type = "task.completed"
	TaskUpdated   Type = "task.updated"
	TaskDeleted   Type = "task.deleted"
)

type Event struct {
	Type       Type
	TaskID     int64
	ProductID  string
	ReviewerID string
	Status     domain.TaskStatus
	OccurredAt time.Time
}

// FromTask describes a change to task that happened at occurredAt.
func FromTask(t Type, task domain.ReviewTask, occurredAt time.Time) Event {
	ev := Event{
		Type:       t,
		TaskID:     task.ID,
		ProductID:  task.ProductID,
		Status:     task.Status,
		OccurredAt: occurredAt,
	}
	if task.ReviewerID != nil {
		ev.ReviewerID = *task.ReviewerID
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type noopPublisher struct{}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }
