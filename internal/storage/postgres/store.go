package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"reviewengine/internal/config"
	"reviewengine/internal/domain"
	"reviewengine/internal/storage"
	"reviewengine/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Repository = (*Store)(nil)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.applyMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		sqlBytes, err := fs.ReadFile(migrations.Files, entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) CreateReviewer(ctx context.Context, reviewer domain.Reviewer) (domain.Reviewer, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO reviewers (reviewer_id, name, email, role, created_at)
			VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		`, reviewer.ID, reviewer.Name, reviewer.Email, string(reviewer.Role), nullableTime(reviewer.CreatedAt)); err != nil {
			return err
		}

		for _, pref := range reviewer.Expertise {
			if _, err := insertPreference(ctx, tx, reviewer.ID, pref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Reviewer{}, translateError(err)
	}

	return s.GetReviewer(ctx, reviewer.ID)
}

func (s *Store) GetReviewer(ctx context.Context, id string) (domain.Reviewer, error) {
	var reviewer domain.Reviewer
	err := s.pool.QueryRow(ctx, `
		SELECT reviewer_id, name, email, role, created_at
		FROM reviewers
		WHERE reviewer_id = $1
	`, id).Scan(&reviewer.ID, &reviewer.Name, &reviewer.Email, &reviewer.Role, &reviewer.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reviewer{}, domain.ErrReviewerNotFound
		}
		return domain.Reviewer{}, err
	}

	prefs, err := listPreferences(ctx, s.pool, id)
	if err != nil {
		return domain.Reviewer{}, err
	}
	reviewer.Expertise = prefs
	return reviewer, nil
}

func (s *Store) ListReviewersByRole(ctx context.Context, roles []domain.Role) ([]domain.Reviewer, error) {
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, string(role))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT reviewer_id, name, email, role, created_at
		FROM reviewers
		WHERE role = ANY($1)
		ORDER BY created_at, reviewer_id
	`, roleNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviewers []domain.Reviewer
	index := make(map[string]int)
	for rows.Next() {
		var r domain.Reviewer
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Role, &r.CreatedAt); err != nil {
			return nil, err
		}
		index[r.ID] = len(reviewers)
		reviewers = append(reviewers, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(reviewers) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		ids = append(ids, r.ID)
	}

	prefRows, err := s.pool.Query(ctx, `
		SELECT reviewer_id, scope, pref_key, priority
		FROM expertise_preferences
		WHERE reviewer_id = ANY($1)
		ORDER BY reviewer_id, priority, scope, pref_key
	`, ids)
	if err != nil {
		return nil, err
	}
	defer prefRows.Close()

	for prefRows.Next() {
		var reviewerID string
		var pref domain.ExpertisePreference
		if err := prefRows.Scan(&reviewerID, &pref.Scope, &pref.Key, &pref.Priority); err != nil {
			return nil, err
		}
		i := index[reviewerID]
		reviewers[i].Expertise = append(reviewers[i].Expertise, pref)
	}
	if prefRows.Err() != nil {
		return nil, prefRows.Err()
	}

	return reviewers, nil
}

func (s *Store) AddPreference(ctx context.Context, reviewerID string, pref domain.ExpertisePreference) (bool, error) {
	created, err := insertPreference(ctx, s.pool, reviewerID, pref)
	if err != nil {
		return false, translateError(err)
	}
	return created, nil
}

func (s *Store) RemovePreference(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureReviewer(ctx, tx, reviewerID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM expertise_preferences
			WHERE reviewer_id = $1 AND scope = $2 AND pref_key = $3
		`, reviewerID, string(scope), key)
		return err
	})
}

func (s *Store) SetPreferencePriority(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string, priority int) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureReviewer(ctx, tx, reviewerID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE expertise_preferences
			SET priority = $4,
			    updated_at = NOW()
			WHERE reviewer_id = $1 AND scope = $2 AND pref_key = $3
		`, reviewerID, string(scope), key, priority)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrPreferenceNotFound
		}
		return nil
	})
}

func (s *Store) ListPreferences(ctx context.Context, reviewerID string) ([]domain.ExpertisePreference, error) {
	if err := ensureReviewer(ctx, s.pool, reviewerID); err != nil {
		return nil, err
	}
	return listPreferences(ctx, s.pool, reviewerID)
}

func (s *Store) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	var out domain.Product
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (product_id, name, company_id, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE
		SET name = EXCLUDED.name,
		    company_id = EXCLUDED.company_id,
		    category = EXCLUDED.category,
		    updated_at = NOW()
		RETURNING product_id, name, company_id, category
	`, product.ID, product.Name, product.CompanyID, product.Category).Scan(&out.ID, &out.Name, &out.CompanyID, &out.Category)
	if err != nil {
		return domain.Product{}, err
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := s.pool.QueryRow(ctx, `
		SELECT product_id, name, company_id, category
		FROM products
		WHERE product_id = $1
	`, id).Scan(&product.ID, &product.Name, &product.CompanyID, &product.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Store) ListProductsByCategory(ctx context.Context, categories []string) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, name, company_id, category
		FROM products
		WHERE category = ANY($1::text[])
		ORDER BY array_position($1::text[], category), product_id
	`, categories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CompanyID, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return products, nil
}

// CreateTask relies on review_tasks_active_product_idx for the one active
// task per product rule, so concurrent inserts cannot both succeed.
func (s *Store) CreateTask(ctx context.Context, task domain.ReviewTask) (domain.ReviewTask, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO review_tasks (task_id, product_id, reviewer_id, status, priority, deadline, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), COALESCE($7, NOW()), $8, $9)
		RETURNING `+taskColumns,
		task.ID, task.ProductID, task.ReviewerID, string(task.Status), string(task.Priority),
		task.Deadline, nullableTime(task.CreatedAt), task.StartedAt, task.CompletedAt)

	created, err := scanTask(row)
	if err != nil {
		return domain.ReviewTask{}, translateError(err)
	}
	return created, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (domain.ReviewTask, error) {
	task, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM review_tasks WHERE task_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ReviewTask{}, domain.ErrTaskNotFound
		}
		return domain.ReviewTask{}, err
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task domain.ReviewTask, expected domain.TaskStatus) (domain.ReviewTask, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE review_tasks
		SET reviewer_id = $2,
		    status = $3,
		    priority = $4,
		    deadline = $5,
		    started_at = $6,
		    completed_at = $7,
		    updated_at = COALESCE($9, NOW())
		WHERE task_id = $1 AND status = $8
		RETURNING `+taskColumns,
		task.ID, task.ReviewerID, string(task.Status), string(task.Priority),
		task.Deadline, task.StartedAt, task.CompletedAt, string(expected), nullableTime(task.UpdatedAt))

	updated, err := scanTask(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.ReviewTask{}, translateError(err)
	}

	current, err := s.GetTask(ctx, task.ID)
	if err != nil {
		return domain.ReviewTask{}, err
	}
	return domain.ReviewTask{}, fmt.Errorf("%w: task %d is %s, expected %s", domain.ErrInvalidTransition, task.ID, current.Status, expected)
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM review_tasks WHERE task_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *Store) ListTasksByReviewer(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM review_tasks
		WHERE reviewer_id = $1
		ORDER BY created_at DESC, task_id DESC
	`, reviewerID)
}

func (s *Store) ListActiveTasks(ctx context.Context) ([]domain.ReviewTask, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM review_tasks
		WHERE status <> $1
		ORDER BY task_id
	`, string(domain.StatusCompleted))
}

func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]domain.ReviewTask, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.ReviewTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tasks, nil
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertPreference(ctx context.Context, q querier, reviewerID string, pref domain.ExpertisePreference) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO expertise_preferences (reviewer_id, scope, pref_key, priority)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reviewer_id, scope, pref_key) DO NOTHING
	`, reviewerID, string(pref.Scope), pref.Key, pref.Priority)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func listPreferences(ctx context.Context, q querier, reviewerID string) ([]domain.ExpertisePreference, error) {
	rows, err := q.Query(ctx, `
		SELECT scope, pref_key, priority
		FROM expertise_preferences
		WHERE reviewer_id = $1
		ORDER BY priority, scope, pref_key
	`, reviewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make([]domain.ExpertisePreference, 0)
	for rows.Next() {
		var pref domain.ExpertisePreference
		if err := rows.Scan(&pref.Scope, &pref.Key, &pref.Priority); err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return prefs, nil
}

func ensureReviewer(ctx context.Context, q querier, reviewerID string) error {
	var id string
	err := q.QueryRow(ctx, `SELECT reviewer_id FROM reviewers WHERE reviewer_id = $1`, reviewerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrReviewerNotFound
	}
	return err
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "review_tasks_active_product_idx", "review_tasks_pkey":
			return domain.ErrAlreadyAssigned
		case "reviewers_pkey", "reviewers_email_idx":
			return domain.ErrReviewerExists
		}
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "review_tasks_product_fk":
			return domain.ErrProductNotFound
		case "review_tasks_reviewer_fk", "expertise_preferences_reviewer_fk":
			return domain.ErrReviewerNotFound
		}
	}
	return err
}
