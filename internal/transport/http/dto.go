package httptransport

import (
	"errors"
	"fmt"
	"time"

	"reviewengine/internal/domain"
	"reviewengine/internal/service"
)

type inviteRequest struct {
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	Role      string                 `json:"role"`
	Expertise []preferenceKeyRequest `json:"expertise"`
}

type preferenceKeyRequest struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
}

func (r inviteRequest) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	for i, e := range r.Expertise {
		if e.Key == "" {
			return fmt.Errorf("expertise[%d].key is required", i)
		}
	}
	return nil
}

func (r inviteRequest) toInvitation() (service.Invitation, error) {
	inv := service.Invitation{
		Name:  r.Name,
		Email: r.Email,
		Role:  domain.Role(r.Role),
	}
	for _, e := range r.Expertise {
		scope, err := domain.ParsePreferenceScope(e.Scope)
		if err != nil {
			return service.Invitation{}, err
		}
		inv.Expertise = append(inv.Expertise, service.InitialExpertise{Scope: scope, Key: e.Key})
	}
	return inv, nil
}

func (r preferenceKeyRequest) parse() (domain.PreferenceScope, string, error) {
	if r.Key == "" {
		return "", "", errors.New("key is required")
	}
	scope, err := domain.ParsePreferenceScope(r.Scope)
	if err != nil {
		return "", "", err
	}
	return scope, r.Key, nil
}

type setPreferencePriorityRequest struct {
	Scope    string `json:"scope"`
	Key      string `json:"key"`
	Priority *int   `json:"priority"`
}

func (r setPreferencePriorityRequest) validate() error {
	if r.Priority == nil {
		return errors.New("priority is required")
	}
	return nil
}

type productRequest struct {
	ID        string `json:"product_id"`
	Name      string `json:"name"`
	CompanyID string `json:"company_id"`
	Category  string `json:"category"`
}

func (r productRequest) validate() error {
	if r.ID == "" {
		return errors.New("product_id is required")
	}
	if r.Category == "" {
		return errors.New("category is required")
	}
	return nil
}

func (r productRequest) toDomain() domain.Product {
	return domain.Product{
		ID:        r.ID,
		Name:      r.Name,
		CompanyID: r.CompanyID,
		Category:  r.Category,
	}
}

type assignRequest struct {
	ProductID  string     `json:"product_id"`
	ReviewerID string     `json:"reviewer_id"`
	Priority   string     `json:"priority"`
	Deadline   *time.Time `json:"deadline"`
}

func (r assignRequest) validate() error {
	if r.ProductID == "" {
		return errors.New("product_id is required")
	}
	if r.ReviewerID == "" {
		return errors.New("reviewer_id is required")
	}
	return nil
}

func (r assignRequest) toDomain() (service.ManualAssignment, error) {
	priority, err := domain.ParseTaskPriority(r.Priority)
	if err != nil {
		return service.ManualAssignment{}, err
	}
	return service.ManualAssignment{
		ProductID:  r.ProductID,
		ReviewerID: r.ReviewerID,
		Priority:   priority,
		Deadline:   r.Deadline,
	}, nil
}

type previewRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type autoDistributeRequest struct {
	Categories []string   `json:"categories"`
	Priority   string     `json:"priority"`
	Deadline   *time.Time `json:"deadline"`
}

func (r autoDistributeRequest) validate() error {
	if len(r.Categories) == 0 {
		return errors.New("categories are required")
	}
	return nil
}

func (r autoDistributeRequest) toDomain() (service.AutoDistributeRequest, error) {
	priority, err := domain.ParseTaskPriority(r.Priority)
	if err != nil {
		return service.AutoDistributeRequest{}, err
	}
	return service.AutoDistributeRequest{
		Categories: r.Categories,
		Priority:   priority,
		Deadline:   r.Deadline,
	}, nil
}

type updatePriorityRequest struct {
	Priority string `json:"priority"`
}

func (r updatePriorityRequest) validate() error {
	if r.Priority == "" {
		return errors.New("priority is required")
	}
	return nil
}

type updateDeadlineRequest struct {
	Deadline *time.Time `json:"deadline"`
}
