// Package memory keeps the whole repository in process memory. It backs
// local runs with STORAGE_TYPE=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"reviewengine/internal/domain"
	"reviewengine/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

type prefKey struct {
	scope domain.PreferenceScope
	key   string
}

type reviewerRecord struct {
	reviewer domain.Reviewer
	prefs    map[prefKey]int
}

type Store struct {
	mu sync.RWMutex

	reviewers     map[string]*reviewerRecord
	reviewerOrder []string
	emails        map[string]string

	products map[string]domain.Product
	tasks    map[int64]domain.ReviewTask
	// active maps product id to the id of its active task.
	active map[string]int64
	nextID int64
}

func New() *Store {
	return &Store{
		reviewers: make(map[string]*reviewerRecord),
		emails:    make(map[string]string),
		products:  make(map[string]domain.Product),
		tasks:     make(map[int64]domain.ReviewTask),
		active:    make(map[string]int64),
	}
}

func (s *Store) CreateReviewer(_ context.Context, reviewer domain.Reviewer) (domain.Reviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviewers[reviewer.ID]; ok {
		return domain.Reviewer{}, domain.ErrReviewerExists
	}
	email := strings.ToLower(reviewer.Email)
	if _, ok := s.emails[email]; ok && email != "" {
		return domain.Reviewer{}, domain.ErrReviewerExists
	}

	rec := &reviewerRecord{
		reviewer: reviewer,
		prefs:    make(map[prefKey]int, len(reviewer.Expertise)),
	}
	rec.reviewer.Expertise = nil
	for _, pref := range reviewer.Expertise {
		k := prefKey{scope: pref.Scope, key: pref.Key}
		if _, ok := rec.prefs[k]; !ok {
			rec.prefs[k] = pref.Priority
		}
	}

	s.reviewers[reviewer.ID] = rec
	s.reviewerOrder = append(s.reviewerOrder, reviewer.ID)
	if email != "" {
		s.emails[email] = reviewer.ID
	}
	return rec.snapshot(), nil
}

func (s *Store) GetReviewer(_ context.Context, id string) (domain.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.reviewers[id]
	if !ok {
		return domain.Reviewer{}, domain.ErrReviewerNotFound
	}
	return rec.snapshot(), nil
}

func (s *Store) ListReviewersByRole(_ context.Context, roles []domain.Role) ([]domain.Reviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Reviewer
	for _, id := range s.reviewerOrder {
		rec := s.reviewers[id]
		if slices.Contains(roles, rec.reviewer.Role) {
			result = append(result, rec.snapshot())
		}
	}
	return result, nil
}

func (s *Store) AddPreference(_ context.Context, reviewerID string, pref domain.ExpertisePreference) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reviewers[reviewerID]
	if !ok {
		return false, domain.ErrReviewerNotFound
	}
	k := prefKey{scope: pref.Scope, key: pref.Key}
	if _, exists := rec.prefs[k]; exists {
		return false, nil
	}
	rec.prefs[k] = pref.Priority
	return true, nil
}

func (s *Store) RemovePreference(_ context.Context, reviewerID string, scope domain.PreferenceScope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reviewers[reviewerID]
	if !ok {
		return domain.ErrReviewerNotFound
	}
	delete(rec.prefs, prefKey{scope: scope, key: key})
	return nil
}

func (s *Store) SetPreferencePriority(_ context.Context, reviewerID string, scope domain.PreferenceScope, key string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reviewers[reviewerID]
	if !ok {
		return domain.ErrReviewerNotFound
	}
	k := prefKey{scope: scope, key: key}
	if _, exists := rec.prefs[k]; !exists {
		return domain.ErrPreferenceNotFound
	}
	rec.prefs[k] = priority
	return nil
}

func (s *Store) ListPreferences(_ context.Context, reviewerID string) ([]domain.ExpertisePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.reviewers[reviewerID]
	if !ok {
		return nil, domain.ErrReviewerNotFound
	}
	return rec.preferences(), nil
}

func (s *Store) UpsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = product
	return product, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *Store) ListProductsByCategory(_ context.Context, categories []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Product
	for _, category := range categories {
		var batch []domain.Product
		for _, product := range s.products {
			if product.Category == category {
				batch = append(batch, product)
			}
		}
		sort.Slice(batch, func(i, j int) bool {
			return batch[i].ID < batch[j].ID
		})
		result = append(result, batch...)
	}
	return result, nil
}

func (s *Store) CreateTask(_ context.Context, task domain.ReviewTask) (domain.ReviewTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[task.ProductID]; !ok {
		return domain.ReviewTask{}, domain.ErrProductNotFound
	}
	if task.ReviewerID != nil {
		if _, ok := s.reviewers[*task.ReviewerID]; !ok {
			return domain.ReviewTask{}, domain.ErrReviewerNotFound
		}
	}
	if task.Active() {
		if _, taken := s.active[task.ProductID]; taken {
			return domain.ReviewTask{}, domain.ErrAlreadyAssigned
		}
	}

	if task.ID == 0 {
		s.nextID++
		task.ID = s.nextID
	}
	if _, exists := s.tasks[task.ID]; exists {
		return domain.ReviewTask{}, domain.ErrAlreadyAssigned
	}

	task = cloneTask(task)
	s.tasks[task.ID] = task
	if task.Active() {
		s.active[task.ProductID] = task.ID
	}
	return cloneTask(task), nil
}

func (s *Store) GetTask(_ context.Context, id int64) (domain.ReviewTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.ReviewTask{}, domain.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

func (s *Store) UpdateTask(_ context.Context, task domain.ReviewTask, expected domain.TaskStatus) (domain.ReviewTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[task.ID]
	if !ok {
		return domain.ReviewTask{}, domain.ErrTaskNotFound
	}
	if current.Status != expected {
		return domain.ReviewTask{}, fmt.Errorf("%w: task %d is %s, expected %s", domain.ErrInvalidTransition, task.ID, current.Status, expected)
	}
	if task.Active() {
		if holder, taken := s.active[current.ProductID]; taken && holder != task.ID {
			return domain.ReviewTask{}, domain.ErrAlreadyAssigned
		}
	}

	// Product and creation time are fixed once the row exists.
	task.ProductID = current.ProductID
	task.CreatedAt = current.CreatedAt

	task = cloneTask(task)
	s.tasks[task.ID] = task
	switch {
	case task.Active():
		s.active[task.ProductID] = task.ID
	case s.active[task.ProductID] == task.ID:
		delete(s.active, task.ProductID)
	}
	return cloneTask(task), nil
}

func (s *Store) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	delete(s.tasks, id)
	if s.active[task.ProductID] == id {
		delete(s.active, task.ProductID)
	}
	return nil
}

func (s *Store) ListTasksByReviewer(_ context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ReviewTask
	for _, task := range s.tasks {
		if task.AssignedTo(reviewerID) {
			result = append(result, cloneTask(task))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *Store) ListActiveTasks(_ context.Context) ([]domain.ReviewTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ReviewTask, 0, len(s.active))
	for _, id := range s.active {
		result = append(result, cloneTask(s.tasks[id]))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) Health(_ context.Context) error {
	return nil
}

func (r *reviewerRecord) snapshot() domain.Reviewer {
	reviewer := r.reviewer
	reviewer.Expertise = r.preferences()
	return reviewer
}

func (r *reviewerRecord) preferences() []domain.ExpertisePreference {
	prefs := make([]domain.ExpertisePreference, 0, len(r.prefs))
	for k, priority := range r.prefs {
		prefs = append(prefs, domain.ExpertisePreference{Scope: k.scope, Key: k.key, Priority: priority})
	}
	sortPreferences(prefs)
	return prefs
}

func sortPreferences(prefs []domain.ExpertisePreference) {
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].Priority != prefs[j].Priority {
			return prefs[i].Priority < prefs[j].Priority
		}
		if prefs[i].Scope != prefs[j].Scope {
			return prefs[i].Scope < prefs[j].Scope
		}
		return prefs[i].Key < prefs[j].Key
	})
}

func cloneTask(task domain.ReviewTask) domain.ReviewTask {
	task.ReviewerID = clonePtr(task.ReviewerID)
	task.Deadline = clonePtr(task.Deadline)
	task.StartedAt = clonePtr(task.StartedAt)
	task.CompletedAt = clonePtr(task.CompletedAt)
	return task
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
