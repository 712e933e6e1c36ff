package postgres

import (
	"database/sql"
	"time"

	"reviewengine/internal/domain"

	"github.com/jackc/pgx/v5"
)

const taskColumns = `task_id, product_id, reviewer_id, status, priority, deadline, created_at, updated_at, started_at, completed_at`

func scanTask(row pgx.Row) (domain.ReviewTask, error) {
	var task domain.ReviewTask
	var reviewerID sql.NullString
	var deadline, startedAt, completedAt sql.NullTime

	err := row.Scan(&task.ID, &task.ProductID, &reviewerID, &task.Status, &task.Priority,
		&deadline, &task.CreatedAt, &task.UpdatedAt, &startedAt, &completedAt)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	if reviewerID.Valid {
		task.ReviewerID = &reviewerID.String
	}
	task.Deadline = timePtr(deadline)
	task.StartedAt = timePtr(startedAt)
	task.CompletedAt = timePtr(completedAt)
	return task, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	ts := t.Time
	return &ts
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
