package matcher

import "reviewengine/internal/domain"

// ComputeWorkload counts the reviewer's active tasks.
func ComputeWorkload(reviewerID string, tasks []domain.ReviewTask) int {
	count := 0
	for _, task := range tasks {
		if task.AssignedTo(reviewerID) && task.Active() {
			count++
		}
	}
	return count
}

// WorkloadSnapshot derives the active task count of every reviewer in one
// pass. Reviewers without tasks are present with zero. Tasks assigned to
// reviewers outside the list are ignored.
func WorkloadSnapshot(reviewers []domain.Reviewer, tasks []domain.ReviewTask) map[string]int {
	snapshot := make(map[string]int, len(reviewers))
	for _, reviewer := range reviewers {
		snapshot[reviewer.ID] = 0
	}
	for _, task := range tasks {
		if task.ReviewerID == nil || !task.Active() {
			continue
		}
		if _, ok := snapshot[*task.ReviewerID]; ok {
			snapshot[*task.ReviewerID]++
		}
	}
	return snapshot
}
