package service

import (
	"context"
	"fmt"
	"time"

	"reviewengine/internal/domain"
	"reviewengine/internal/events"
	"reviewengine/internal/matcher"
)

func (s *AssignmentService) GetTask(ctx context.Context, taskID int64) (domain.ReviewTask, error) {
	return s.repo.GetTask(ctx, taskID)
}

func (s *AssignmentService) StartTask(ctx context.Context, taskID int64) (domain.ReviewTask, error) {
	return s.transition(ctx, taskID, domain.StatusInProgress)
}

// CompleteTask closes Pending or InProgress tasks.
func (s *AssignmentService) CompleteTask(ctx context.Context, taskID int64) (domain.ReviewTask, error) {
	return s.transition(ctx, taskID, domain.StatusCompleted)
}

func (s *AssignmentService) UpdatePriority(ctx context.Context, taskID int64, priority domain.TaskPriority) (domain.ReviewTask, error) {
	if !priority.Valid() {
		return domain.ReviewTask{}, fmt.Errorf("%w: %q", domain.ErrInvalidTaskPriority, priority)
	}
	return s.mutate(ctx, taskID, func(task *domain.ReviewTask) {
		task.Priority = priority
	})
}

// UpdateDeadline sets or, with a nil deadline, clears the task deadline.
func (s *AssignmentService) UpdateDeadline(ctx context.Context, taskID int64, deadline *time.Time) (domain.ReviewTask, error) {
	return s.mutate(ctx, taskID, func(task *domain.ReviewTask) {
		task.Deadline = deadline
	})
}

func (s *AssignmentService) DeleteTask(ctx context.Context, taskID int64) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "task deleted", "task_id", taskID, "product_id", task.ProductID)
	s.publish(ctx, events.TaskDeleted, task)
	return nil
}

func (s *AssignmentService) ListReviewerTasks(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	if _, err := s.repo.GetReviewer(ctx, reviewerID); err != nil {
		return nil, err
	}
	return s.repo.ListTasksByReviewer(ctx, reviewerID)
}

// WorkloadSummary reports active task counts for every assignable reviewer,
// recomputed from the task store on each call.
func (s *AssignmentService) WorkloadSummary(ctx context.Context) ([]domain.ReviewerWorkload, error) {
	reviewers, err := s.repo.ListReviewersByRole(ctx, domain.AssignableRoles)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ListActiveTasks(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := matcher.WorkloadSnapshot(reviewers, active)
	result := make([]domain.ReviewerWorkload, 0, len(reviewers))
	for _, r := range reviewers {
		result = append(result, domain.ReviewerWorkload{
			ReviewerID:  r.ID,
			Name:        r.Name,
			ActiveTasks: snapshot[r.ID],
		})
	}
	return result, nil
}

func (s *AssignmentService) transition(ctx context.Context, taskID int64, to domain.TaskStatus) (domain.ReviewTask, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	status, err := task.Status.Transition(to)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	now := s.now()
	from := task.Status
	task.Status = status
	task.UpdatedAt = now
	switch status {
	case domain.StatusInProgress:
		task.StartedAt = &now
	case domain.StatusCompleted:
		task.CompletedAt = &now
	}

	updated, err := s.repo.UpdateTask(ctx, task, from)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	evType := events.TaskStarted
	if status == domain.StatusCompleted {
		evType = events.TaskCompleted
	}
	s.logger.InfoContext(ctx, "task status changed", "task_id", taskID, "status", status)
	s.publish(ctx, evType, updated)
	return updated, nil
}

// mutate applies fn to a non-completed task and stores the result. The
// write is conditional on the status that was read, so a task completed in
// between is never reopened.
func (s *AssignmentService) mutate(ctx context.Context, taskID int64, fn func(*domain.ReviewTask)) (domain.ReviewTask, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	if !task.Active() {
		return domain.ReviewTask{}, fmt.Errorf("%w: task %d is completed", domain.ErrInvalidTransition, taskID)
	}

	from := task.Status
	fn(&task)
	task.UpdatedAt = s.now()
	updated, err := s.repo.UpdateTask(ctx, task, from)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	s.publish(ctx, events.TaskUpdated, updated)
	return updated, nil
}
