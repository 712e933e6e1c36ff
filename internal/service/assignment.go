package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewengine/internal/domain"
	"reviewengine/internal/events"
	"reviewengine/internal/matcher"
)

type ManualAssignment struct {
	ProductID  string
	ReviewerID string
	Priority   domain.TaskPriority
	Deadline   *time.Time
}

// TaskOptions apply to every task created by a batch persist.
type TaskOptions struct {
	Priority domain.TaskPriority
	Deadline *time.Time
}

type AutoDistributeRequest struct {
	Categories []string
	Priority   domain.TaskPriority
	Deadline   *time.Time
}

// Plan is a computed, not yet persisted, distribution. AlreadyAssigned lists
// candidates left out because they already have an active task.
type Plan struct {
	domain.MatchResult
	AlreadyAssigned []string
}

type AssignmentFailure struct {
	Assignment domain.Assignment
	Err        error
}

// PersistReport describes a batch write entry by entry. Skipped entries lost
// a race for their product and are not failures.
type PersistReport struct {
	Created []domain.ReviewTask
	Skipped []domain.Assignment
	Failed  []AssignmentFailure
}

type CategorySummary struct {
	Category        string
	Products        int
	AlreadyAssigned int
	Assigned        int
	Unassignable    int
	Skipped         int
	Failed          int
}

type DistributionReport struct {
	Plan       Plan
	Persist    PersistReport
	Categories []CategorySummary
}

// Assign creates a Pending task for an admin-chosen reviewer. It fails with
// domain.ErrAlreadyAssigned if the product already has an active task.
func (s *AssignmentService) Assign(ctx context.Context, req ManualAssignment) (domain.ReviewTask, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.ReviewerID = strings.TrimSpace(req.ReviewerID)
	if req.ProductID == "" {
		return domain.ReviewTask{}, fmt.Errorf("%w: product is required", domain.ErrValidation)
	}
	if req.ReviewerID == "" {
		return domain.ReviewTask{}, fmt.Errorf("%w: reviewer is required", domain.ErrValidation)
	}
	priority, err := normalizeTaskPriority(req.Priority)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	if _, err := s.repo.GetProduct(ctx, req.ProductID); err != nil {
		return domain.ReviewTask{}, err
	}
	if _, err := s.repo.GetReviewer(ctx, req.ReviewerID); err != nil {
		return domain.ReviewTask{}, err
	}

	task, err := s.createTask(ctx, req.ProductID, req.ReviewerID, TaskOptions{Priority: priority, Deadline: req.Deadline})
	if err != nil {
		return domain.ReviewTask{}, err
	}

	s.logger.InfoContext(ctx, "task assigned manually", "task_id", task.ID, "product_id", task.ProductID, "reviewer_id", req.ReviewerID)
	return task, nil
}

// ComputeAssignments plans a distribution for the given products against
// fresh reviewer and workload snapshots. Nothing is written.
func (s *AssignmentService) ComputeAssignments(ctx context.Context, productIDs []string) (Plan, error) {
	products := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return Plan{}, fmt.Errorf("product %s: %w", id, err)
		}
		products = append(products, product)
	}
	return s.plan(ctx, products)
}

// PersistAssignments writes each assignment independently. Entries whose
// product gained an active task since planning are skipped; any other
// failure is collected and reported through domain.ErrPartialFailure.
func (s *AssignmentService) PersistAssignments(ctx context.Context, assignments []domain.Assignment, opts TaskOptions) (PersistReport, error) {
	priority, err := normalizeTaskPriority(opts.Priority)
	if err != nil {
		return PersistReport{}, err
	}
	opts.Priority = priority

	var report PersistReport
	for _, a := range assignments {
		task, err := s.createTask(ctx, a.ProductID, a.ReviewerID, opts)
		switch {
		case err == nil:
			report.Created = append(report.Created, task)
		case errors.Is(err, domain.ErrAlreadyAssigned):
			s.logger.InfoContext(ctx, "assignment skipped, product already assigned", "product_id", a.ProductID, "reviewer_id", a.ReviewerID)
			report.Skipped = append(report.Skipped, a)
		default:
			s.logger.WarnContext(ctx, "assignment not persisted", "product_id", a.ProductID, "reviewer_id", a.ReviewerID, "error", err)
			report.Failed = append(report.Failed, AssignmentFailure{Assignment: a, Err: err})
		}
	}

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d", domain.ErrPartialFailure, len(report.Failed), len(assignments))
	}
	return report, nil
}

// AutoDistribute assigns every product in the selected categories that has
// no active task. The returned error is domain.ErrPartialFailure when some
// writes failed; the report is complete in that case too.
func (s *AssignmentService) AutoDistribute(ctx context.Context, req AutoDistributeRequest) (DistributionReport, error) {
	categories := normalizeCategories(req.Categories)
	if len(categories) == 0 {
		return DistributionReport{}, domain.ErrNoCategories
	}
	priority, err := normalizeTaskPriority(req.Priority)
	if err != nil {
		return DistributionReport{}, err
	}

	products, err := s.repo.ListProductsByCategory(ctx, categories)
	if err != nil {
		return DistributionReport{}, fmt.Errorf("list products: %w", err)
	}

	plan, err := s.plan(ctx, products)
	if err != nil {
		return DistributionReport{}, err
	}

	persist, persistErr := s.PersistAssignments(ctx, plan.Assignments, TaskOptions{Priority: priority, Deadline: req.Deadline})
	if persistErr != nil && !errors.Is(persistErr, domain.ErrPartialFailure) {
		return DistributionReport{}, persistErr
	}

	report := DistributionReport{
		Plan:       plan,
		Persist:    persist,
		Categories: summarize(categories, products, plan, persist),
	}

	s.logger.InfoContext(ctx, "auto-distribute finished",
		"categories", len(categories),
		"products", len(products),
		"assigned", len(persist.Created),
		"unassignable", len(plan.Unassignable),
		"skipped", len(persist.Skipped)+len(plan.AlreadyAssigned),
		"failed", len(persist.Failed),
	)
	return report, persistErr
}

func (s *AssignmentService) plan(ctx context.Context, products []domain.Product) (Plan, error) {
	active, err := s.repo.ListActiveTasks(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("list active tasks: %w", err)
	}
	reviewers, err := s.repo.ListReviewersByRole(ctx, domain.AssignableRoles)
	if err != nil {
		return Plan{}, fmt.Errorf("list reviewers: %w", err)
	}

	taken := make(map[string]struct{}, len(active))
	for _, task := range active {
		taken[task.ProductID] = struct{}{}
	}

	plan := Plan{AlreadyAssigned: make([]string, 0)}
	candidates := make([]domain.Product, 0, len(products))
	for _, product := range products {
		if _, ok := taken[product.ID]; ok {
			plan.AlreadyAssigned = append(plan.AlreadyAssigned, product.ID)
			continue
		}
		candidates = append(candidates, product)
	}

	workloads := matcher.WorkloadSnapshot(reviewers, active)
	plan.MatchResult = matcher.ComputeAssignments(candidates, reviewers, workloads)
	return plan, nil
}

func (s *AssignmentService) createTask(ctx context.Context, productID, reviewerID string, opts TaskOptions) (domain.ReviewTask, error) {
	now := s.now()
	reviewer := reviewerID
	task, err := s.repo.CreateTask(ctx, domain.ReviewTask{
		ID:         s.ids.NewID(),
		ProductID:  productID,
		ReviewerID: &reviewer,
		Status:     domain.StatusPending,
		Priority:   opts.Priority,
		Deadline:   opts.Deadline,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return domain.ReviewTask{}, err
	}
	s.publish(ctx, events.TaskAssigned, task)
	return task, nil
}

func normalizeTaskPriority(p domain.TaskPriority) (domain.TaskPriority, error) {
	if p == "" {
		return domain.PriorityMedium, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTaskPriority, p)
	}
	return p, nil
}

func summarize(categories []string, products []domain.Product, plan Plan, persist PersistReport) []CategorySummary {
	index := make(map[string]int, len(categories))
	summaries := make([]CategorySummary, len(categories))
	for i, c := range categories {
		index[c] = i
		summaries[i].Category = c
	}

	categoryOf := make(map[string]string, len(products))
	for _, p := range products {
		categoryOf[p.ID] = p.Category
		summaries[index[p.Category]].Products++
	}

	for _, id := range plan.AlreadyAssigned {
		summaries[index[categoryOf[id]]].AlreadyAssigned++
	}
	for _, id := range plan.Unassignable {
		summaries[index[categoryOf[id]]].Unassignable++
	}
	for _, task := range persist.Created {
		summaries[index[categoryOf[task.ProductID]]].Assigned++
	}
	for _, a := range persist.Skipped {
		summaries[index[categoryOf[a.ProductID]]].Skipped++
	}
	for _, f := range persist.Failed {
		summaries[index[categoryOf[f.Assignment.ProductID]]].Failed++
	}
	return summaries
}
