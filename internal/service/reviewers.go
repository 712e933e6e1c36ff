package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"reviewengine/internal/domain"
)

// Invitation onboards a reviewer with an initial expertise set. Each
// expertise entry starts at the default priority.
type Invitation struct {
	Name      string
	Email     string
	Role      domain.Role
	Expertise []InitialExpertise
}

type InitialExpertise struct {
	Scope domain.PreferenceScope
	Key   string
}

func (s *AssignmentService) InviteReviewer(ctx context.Context, inv Invitation) (domain.Reviewer, error) {
	name := strings.TrimSpace(inv.Name)
	email := strings.TrimSpace(inv.Email)
	if name == "" {
		return domain.Reviewer{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.Reviewer{}, fmt.Errorf("%w: valid email is required", domain.ErrValidation)
	}

	role := inv.Role
	if role == "" {
		role = domain.RoleReviewer
	}
	if !role.Valid() {
		return domain.Reviewer{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	prefs := make([]domain.ExpertisePreference, 0, len(inv.Expertise))
	for _, e := range inv.Expertise {
		if !e.Scope.Valid() {
			return domain.Reviewer{}, fmt.Errorf("%w: %q", domain.ErrInvalidScope, e.Scope)
		}
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return domain.Reviewer{}, fmt.Errorf("%w: expertise key is required", domain.ErrValidation)
		}
		prefs = append(prefs, domain.ExpertisePreference{Scope: e.Scope, Key: key, Priority: s.defaultPriority})
	}

	reviewer, err := s.repo.CreateReviewer(ctx, domain.Reviewer{
		ID:        strconv.FormatInt(s.ids.NewID(), 10),
		Name:      name,
		Email:     email,
		Role:      role,
		Expertise: prefs,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Reviewer{}, err
	}

	s.logger.InfoContext(ctx, "reviewer invited", "reviewer_id", reviewer.ID, "role", reviewer.Role, "expertise", len(reviewer.Expertise))
	return reviewer, nil
}

func (s *AssignmentService) GetReviewer(ctx context.Context, reviewerID string) (domain.Reviewer, error) {
	return s.repo.GetReviewer(ctx, reviewerID)
}

// AddPreference is idempotent: an existing (scope, key) pair keeps its
// priority and the call reports false.
func (s *AssignmentService) AddPreference(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string) (bool, error) {
	key, err := validatePreferenceKey(scope, key)
	if err != nil {
		return false, err
	}
	return s.repo.AddPreference(ctx, reviewerID, domain.ExpertisePreference{
		Scope:    scope,
		Key:      key,
		Priority: s.defaultPriority,
	})
}

func (s *AssignmentService) RemovePreference(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string) error {
	key, err := validatePreferenceKey(scope, key)
	if err != nil {
		return err
	}
	return s.repo.RemovePreference(ctx, reviewerID, scope, key)
}

func (s *AssignmentService) SetPreferencePriority(ctx context.Context, reviewerID string, scope domain.PreferenceScope, key string, priority int) error {
	if err := domain.ValidateExpertisePriority(priority); err != nil {
		return err
	}
	key, err := validatePreferenceKey(scope, key)
	if err != nil {
		return err
	}
	return s.repo.SetPreferencePriority(ctx, reviewerID, scope, key, priority)
}

func (s *AssignmentService) ListPreferences(ctx context.Context, reviewerID string) ([]domain.ExpertisePreference, error) {
	return s.repo.ListPreferences(ctx, reviewerID)
}

func (s *AssignmentService) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.ID = strings.TrimSpace(product.ID)
	product.Category = strings.TrimSpace(product.Category)
	if product.ID == "" || product.Category == "" {
		return domain.Product{}, fmt.Errorf("%w: product id and category are required", domain.ErrValidation)
	}
	return s.repo.UpsertProduct(ctx, product)
}

func (s *AssignmentService) ListProducts(ctx context.Context, categories []string) ([]domain.Product, error) {
	categories = normalizeCategories(categories)
	if len(categories) == 0 {
		return nil, domain.ErrNoCategories
	}
	return s.repo.ListProductsByCategory(ctx, categories)
}

func validatePreferenceKey(scope domain.PreferenceScope, key string) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidScope, scope)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: preference key is required", domain.ErrValidation)
	}
	return key, nil
}

// normalizeCategories trims, drops blanks and duplicates, keeping order.
func normalizeCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	result := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	return result
}
