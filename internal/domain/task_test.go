package domain_test

import (
	"errors"
	"testing"

	"reviewengine/internal/domain"
)

func TestTaskStatusTransition(t *testing.T) {
	cases := []struct {
		from, to domain.TaskStatus
		ok       bool
	}{
		{domain.StatusPending, domain.StatusInProgress, true},
		{domain.StatusPending, domain.StatusCompleted, true},
		{domain.StatusInProgress, domain.StatusCompleted, true},
		{domain.StatusInProgress, domain.StatusPending, false},
		{domain.StatusInProgress, domain.StatusInProgress, false},
		{domain.StatusCompleted, domain.StatusCompleted, false},
		{domain.StatusCompleted, domain.StatusInProgress, false},
		{domain.StatusPending, domain.StatusPending, false},
	}

	for _, tc := range cases {
		got, err := tc.from.Transition(tc.to)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
			}
			if got != tc.to {
				t.Fatalf("%s -> %s: got %s", tc.from, tc.to, got)
			}
			continue
		}
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
		if got != tc.from {
			t.Fatalf("%s -> %s: status changed to %s on rejected transition", tc.from, tc.to, got)
		}
	}
}

func TestValidateExpertisePriority(t *testing.T) {
	for p := -2; p <= 12; p++ {
		err := domain.ValidateExpertisePriority(p)
		inRange := p >= 1 && p <= 10
		if inRange && err != nil {
			t.Fatalf("priority %d: unexpected error %v", p, err)
		}
		if !inRange && !errors.Is(err, domain.ErrInvalidPriority) {
			t.Fatalf("priority %d: expected ErrInvalidPriority, got %v", p, err)
		}
	}
}

func TestParseEnums(t *testing.T) {
	scope, err := domain.ParsePreferenceScope("category")
	if err != nil || scope != domain.ScopeCategory {
		t.Fatalf("ParsePreferenceScope: %v %v", scope, err)
	}
	if _, err := domain.ParsePreferenceScope("team"); !errors.Is(err, domain.ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}

	p, err := domain.ParseTaskPriority("")
	if err != nil || p != domain.PriorityMedium {
		t.Fatalf("empty priority should default to MEDIUM: %v %v", p, err)
	}
	if _, err := domain.ParseTaskPriority("urgent"); !errors.Is(err, domain.ErrInvalidTaskPriority) {
		t.Fatalf("expected ErrInvalidTaskPriority, got %v", err)
	}
}

func TestReviewerCategoryPriority(t *testing.T) {
	r := domain.Reviewer{
		ID: "r1",
		Expertise: []domain.ExpertisePreference{
			{Scope: domain.ScopeProduct, Key: "segmentation", Priority: 1},
			{Scope: domain.ScopeCategory, Key: "segmentation", Priority: 4},
		},
	}

	p, ok := r.CategoryPriority("segmentation")
	if !ok || p != 4 {
		t.Fatalf("expected category priority 4, got %d %v", p, ok)
	}
	if _, ok := r.CategoryPriority("triage"); ok {
		t.Fatalf("unexpected match for triage")
	}
}
