package memory_test

import (
	"context"
	"errors"
	"testing"

	"reviewengine/internal/domain"
	"reviewengine/internal/storage/memory"
)

func TestCreateTaskRejectsSecondActiveTask(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	first, err := store.CreateTask(ctx, domain.ReviewTask{ID: 10, ProductID: "p1", ReviewerID: ptr("r1"), Status: domain.StatusPending, Priority: domain.PriorityMedium})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	_, err = store.CreateTask(ctx, domain.ReviewTask{ID: 11, ProductID: "p1", ReviewerID: ptr("r2"), Status: domain.StatusPending, Priority: domain.PriorityMedium})
	if !errors.Is(err, domain.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}

	first.Status = domain.StatusCompleted
	if _, err := store.UpdateTask(ctx, first, domain.StatusPending); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	if _, err := store.CreateTask(ctx, domain.ReviewTask{ID: 12, ProductID: "p1", ReviewerID: ptr("r2"), Status: domain.StatusPending, Priority: domain.PriorityMedium}); err != nil {
		t.Fatalf("CreateTask after completion: %v", err)
	}

	active, err := store.ListActiveTasks(ctx)
	if err != nil {
		t.Fatalf("ListActiveTasks: %v", err)
	}
	if len(active) != 1 || active[0].ID != 12 {
		t.Fatalf("unexpected active tasks: %+v", active)
	}
}

func TestUpdateTaskRequiresExpectedStatus(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	task, err := store.CreateTask(ctx, domain.ReviewTask{ID: 20, ProductID: "p1", ReviewerID: ptr("r1"), Status: domain.StatusPending, Priority: domain.PriorityMedium})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	completed := task
	completed.Status = domain.StatusCompleted
	if _, err := store.UpdateTask(ctx, completed, domain.StatusPending); err != nil {
		t.Fatalf("UpdateTask complete: %v", err)
	}

	stale := task
	stale.Priority = domain.PriorityHigh
	if _, err := store.UpdateTask(ctx, stale, domain.StatusPending); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for stale write, got %v", err)
	}

	got, err := store.GetTask(ctx, 20)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.Priority != domain.PriorityMedium {
		t.Fatalf("stale write leaked into stored task: %+v", got)
	}

	if _, err := store.UpdateTask(ctx, domain.ReviewTask{ID: 99, Status: domain.StatusPending}, domain.StatusPending); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestUpdateTaskKeepsOneActivePerProduct(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	first, err := store.CreateTask(ctx, domain.ReviewTask{ID: 30, ProductID: "p1", ReviewerID: ptr("r1"), Status: domain.StatusPending, Priority: domain.PriorityMedium})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	first.Status = domain.StatusCompleted
	if _, err := store.UpdateTask(ctx, first, domain.StatusPending); err != nil {
		t.Fatalf("UpdateTask complete: %v", err)
	}
	second, err := store.CreateTask(ctx, domain.ReviewTask{ID: 31, ProductID: "p1", ReviewerID: ptr("r2"), Status: domain.StatusPending, Priority: domain.PriorityMedium})
	if err != nil {
		t.Fatalf("CreateTask second: %v", err)
	}

	reopened := first
	reopened.Status = domain.StatusPending
	if _, err := store.UpdateTask(ctx, reopened, domain.StatusCompleted); !errors.Is(err, domain.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned reopening over an active task, got %v", err)
	}

	if err := store.DeleteTask(ctx, second.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := store.UpdateTask(ctx, reopened, domain.StatusCompleted); err != nil {
		t.Fatalf("UpdateTask reopen on free product: %v", err)
	}

	active, err := store.ListActiveTasks(ctx)
	if err != nil {
		t.Fatalf("ListActiveTasks: %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Fatalf("reopened task missing from active index: %+v", active)
	}
	if _, err := store.CreateTask(ctx, domain.ReviewTask{ID: 32, ProductID: "p1", ReviewerID: ptr("r2"), Status: domain.StatusPending, Priority: domain.PriorityMedium}); !errors.Is(err, domain.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned after reopen, got %v", err)
	}
}

func TestDeleteTaskFreesProduct(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	task, err := store.CreateTask(ctx, domain.ReviewTask{ID: 1, ProductID: "p1", ReviewerID: ptr("r1"), Status: domain.StatusInProgress, Priority: domain.PriorityHigh})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := store.CreateTask(ctx, domain.ReviewTask{ID: 2, ProductID: "p1", ReviewerID: ptr("r2"), Status: domain.StatusPending, Priority: domain.PriorityLow}); err != nil {
		t.Fatalf("CreateTask after delete: %v", err)
	}
}

func TestCreateTaskChecksReferences(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	_, err := store.CreateTask(ctx, domain.ReviewTask{ID: 1, ProductID: "missing", ReviewerID: ptr("r1"), Status: domain.StatusPending})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	_, err = store.CreateTask(ctx, domain.ReviewTask{ID: 1, ProductID: "p1", ReviewerID: ptr("ghost"), Status: domain.StatusPending})
	if !errors.Is(err, domain.ErrReviewerNotFound) {
		t.Fatalf("expected ErrReviewerNotFound, got %v", err)
	}
}

func TestAddPreferenceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	pref := domain.ExpertisePreference{Scope: domain.ScopeCategory, Key: "auto-contouring", Priority: 5}
	created, err := store.AddPreference(ctx, "r1", pref)
	if err != nil || !created {
		t.Fatalf("first AddPreference: created=%v err=%v", created, err)
	}
	if err := store.SetPreferencePriority(ctx, "r1", domain.ScopeCategory, "auto-contouring", 2); err != nil {
		t.Fatalf("SetPreferencePriority: %v", err)
	}
	created, err = store.AddPreference(ctx, "r1", pref)
	if err != nil || created {
		t.Fatalf("second AddPreference: created=%v err=%v", created, err)
	}

	prefs, err := store.ListPreferences(ctx, "r1")
	if err != nil {
		t.Fatalf("ListPreferences: %v", err)
	}
	matches := 0
	for _, p := range prefs {
		if p.Scope == domain.ScopeCategory && p.Key == "auto-contouring" {
			matches++
			if p.Priority != 2 {
				t.Fatalf("priority changed by duplicate add: %d", p.Priority)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("expected exactly one matching preference, got %d", matches)
	}
}

func TestListReviewersByRole(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, ctx)

	if _, err := store.CreateReviewer(ctx, domain.Reviewer{ID: "v1", Name: "Viewer", Email: "v@example.com", Role: domain.RoleViewer}); err != nil {
		t.Fatalf("CreateReviewer: %v", err)
	}

	reviewers, err := store.ListReviewersByRole(ctx, domain.AssignableRoles)
	if err != nil {
		t.Fatalf("ListReviewersByRole: %v", err)
	}
	if len(reviewers) != 2 || reviewers[0].ID != "r1" || reviewers[1].ID != "r2" {
		t.Fatalf("unexpected reviewers: %+v", reviewers)
	}
	if len(reviewers[1].Expertise) != 1 || reviewers[1].Expertise[0].Key != "segmentation" {
		t.Fatalf("expertise not loaded: %+v", reviewers[1].Expertise)
	}

	if _, err := store.CreateReviewer(ctx, domain.Reviewer{ID: "r9", Email: "R1@example.com", Role: domain.RoleReviewer}); !errors.Is(err, domain.ErrReviewerExists) {
		t.Fatalf("expected ErrReviewerExists for duplicate email, got %v", err)
	}
}

func seededStore(t *testing.T, ctx context.Context) *memory.Store {
	t.Helper()
	store := memory.New()

	for _, r := range []domain.Reviewer{
		{ID: "r1", Name: "Alice", Email: "r1@example.com", Role: domain.RoleReviewer},
		{ID: "r2", Name: "Bob", Email: "r2@example.com", Role: domain.RoleAdmin, Expertise: []domain.ExpertisePreference{
			{Scope: domain.ScopeCategory, Key: "segmentation", Priority: 3},
		}},
	} {
		if _, err := store.CreateReviewer(ctx, r); err != nil {
			t.Fatalf("CreateReviewer: %v", err)
		}
	}
	for _, p := range []domain.Product{
		{ID: "p1", Name: "Contour One", CompanyID: "acme", Category: "auto-contouring"},
		{ID: "p2", Name: "Seg Two", CompanyID: "acme", Category: "segmentation"},
	} {
		if _, err := store.UpsertProduct(ctx, p); err != nil {
			t.Fatalf("UpsertProduct: %v", err)
		}
	}
	return store
}

func ptr[T any](v T) *T {
	return &v
}
