package service

import (
	"context"
	"log/slog"
	"time"

	"reviewengine/internal/domain"
	"reviewengine/internal/events"
	"reviewengine/internal/idgen"
	"reviewengine/internal/storage"
)

type Service interface {
	InviteReviewer(ctx context.Context, inv Invitation) (domain.Reviewer, error)
	GetReviewer(ctx context.Context, reviewerID string) (domain.Reviewer, error)

	AddPreference(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string) (bool, error)
	RemovePreference(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string) error
	SetPreferencePriority(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string, priority int) error
	ListPreferences(ctx context.Context, reviewerID string) ([]domain.ExpertisePreference, error)

	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	ListProducts(ctx context.Context, categories []string) ([]domain.Product, error)

	Assign(ctx context.Context, req ManualAssignment) (domain.ReviewTask, error)
	ComputeAssignments(ctx context.Context, productIDs []string) (Plan, error)
	PersistAssignments(ctx context.Context, assignments []domain.Assignment, opts TaskOptions) (PersistReport, error)
	AutoDistribute(ctx context.Context, req AutoDistributeRequest) (DistributionReport, error)

	GetTask(ctx context.Context, taskID int64) (domain.ReviewTask, error)
	StartTask(ctx context.Context, taskID int64) (domain.ReviewTask, error)
	CompleteTask(ctx context.Context, taskID int64) (domain.ReviewTask, error)
	UpdatePriority(ctx context.Context, taskID int64, priority domain.TaskPriority) (domain.ReviewTask, error)
	UpdateDeadline(ctx context.Context, taskID int64, deadline *time.Time) (domain.ReviewTask, error)
	DeleteTask(ctx context.Context, taskID int64) error
	ListReviewerTasks(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error)
	WorkloadSummary(ctx context.Context) ([]domain.ReviewerWorkload, error)

	Health(ctx context.Context) error
}

type AssignmentService struct {
	repo            storage.Repository
	ids             idgen.Generator
	publisher       events.Publisher
	logger          *slog.Logger
	now             func() time.Time
	defaultPriority int
}

type Option func(*AssignmentService)

// WithDefaultExpertisePriority sets the priority given to preferences added
// without one. Values outside the valid range are ignored.
func WithDefaultExpertisePriority(priority int) Option {
	return func(s *AssignmentService) {
		if domain.ValidateExpertisePriority(priority) == nil {
			s.defaultPriority = priority
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *AssignmentService) {
		if now != nil {
			s.now = now
		}
	}
}

func New(repo storage.Repository, ids idgen.Generator, publisher events.Publisher, logger *slog.Logger, opts ...Option) *AssignmentService {
	if publisher == nil {
		publisher = events.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AssignmentService{
		repo:            repo,
		ids:             ids,
		publisher:       publisher,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		defaultPriority: domain.DefaultExpertisePriority,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AssignmentService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}

// publish never fails the caller; the write it describes already happened.
func (s *AssignmentService) publish(ctx context.Context, t events.Type, task domain.ReviewTask) {
	if err := s.publisher.Publish(ctx, events.FromTask(t, task, s.now())); err != nil {
		s.logger.WarnContext(ctx, "publish task event failed", "type", t, "task_id", task.ID, "error", err)
	}
}
