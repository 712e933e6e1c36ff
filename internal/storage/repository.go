package storage

import (
	"context"

	"reviewengine/internal/domain"
)

type Repository interface {
	ReviewerRepository
	PreferenceRepository
	CatalogRepository
	TaskRepository

	Health(ctx context.Context) error
}

type ReviewerRepository interface {
	CreateReviewer(ctx context.Context, reviewer domain.Reviewer) (domain.Reviewer, error)
	GetReviewer(ctx context.Context, id string) (domain.Reviewer, error)
	// ListReviewersByRole returns reviewers with their expertise loaded,
	// ordered by creation time then id.
	ListReviewersByRole(ctx context.Context, roles []domain.Role) ([]domain.Reviewer, error)
}

type PreferenceRepository interface {
	// AddPreference inserts the preference unless the (scope, key) pair
	// already exists for the reviewer. It reports whether a row was created.
	AddPreference(ctx context.Context, reviewerID string, pref domain.ExpertisePreference) (bool, error)
	RemovePreference(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string) error
	SetPreferencePriority(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string, priority int) error
	ListPreferences(ctx context.Context, reviewerID string) ([]domain.ExpertisePreference, error)
}

type CatalogRepository interface {
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	// ListProductsByCategory returns products ordered by category in the
	// given order, then by product id.
	ListProductsByCategory(ctx context.Context, categories []string) ([]domain.Product, error)
}

type TaskRepository interface {
	// CreateTask is a conditional insert: it fails with
	// domain.ErrAlreadyAssigned if the product already has an active task.
	CreateTask(ctx context.Context, task domain.ReviewTask) (domain.ReviewTask, error)
	GetTask(ctx context.Context, id int64) (domain.ReviewTask, error)
	// UpdateTask stores task only if the row still has status expected.
	// A row that moved on meanwhile yields domain.ErrInvalidTransition.
	UpdateTask(ctx context.Context, task domain.ReviewTask, expected domain.TaskStatus) (domain.ReviewTask, error)
	DeleteTask(ctx context.Context, id int64) error
	ListTasksByReviewer(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error)
	ListActiveTasks(ctx context.Context) ([]domain.ReviewTask, error)
}
