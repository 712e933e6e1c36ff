package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"reviewengine/internal/domain"
	"reviewengine/internal/service"
)

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type preferencePayload struct {
	Scope    string `json:"scope"`
	Key      string `json:"key"`
	Priority int    `json:"priority"`
}

type reviewerPayload struct {
	ReviewerID string              `json:"reviewer_id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Role       string              `json:"role"`
	Expertise  []preferencePayload `json:"expertise"`
}

type productPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	CompanyID string `json:"company_id"`
	Category  string `json:"category"`
}

type taskPayload struct {
	TaskID      string     `json:"task_id"`
	ProductID   string     `json:"product_id"`
	ReviewerID  *string    `json:"reviewer_id"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type assignmentPayload struct {
	ProductID  string `json:"product_id"`
	ReviewerID string `json:"reviewer_id"`
	Category   string `json:"category"`
}

type planPayload struct {
	Assignments     []assignmentPayload `json:"assignments"`
	Unassignable    []string            `json:"unassignable"`
	AlreadyAssigned []string            `json:"already_assigned"`
	Workloads       map[string]int      `json:"simulated_workloads"`
}

type failurePayload struct {
	ProductID  string `json:"product_id"`
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason"`
}

type persistPayload struct {
	Created []taskPayload       `json:"created"`
	Skipped []assignmentPayload `json:"skipped"`
	Failed  []failurePayload    `json:"failed"`
}

type categorySummaryPayload struct {
	Category        string `json:"category"`
	Products        int    `json:"products"`
	AlreadyAssigned int    `json:"already_assigned"`
	Assigned        int    `json:"assigned"`
	Unassignable    int    `json:"unassignable"`
	Skipped         int    `json:"skipped"`
	Failed          int    `json:"failed"`
}

type workloadPayload struct {
	ReviewerID  string `json:"reviewer_id"`
	Name        string `json:"name"`
	ActiveTasks int    `json:"active_tasks"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	})
}

func mapPreferences(prefs []domain.ExpertisePreference) []preferencePayload {
	result := make([]preferencePayload, 0, len(prefs))
	for _, p := range prefs {
		result = append(result, preferencePayload{
			Scope:    string(p.Scope),
			Key:      p.Key,
			Priority: p.Priority,
		})
	}
	return result
}

func mapReviewer(r domain.Reviewer) reviewerPayload {
	return reviewerPayload{
		ReviewerID: r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Role:       string(r.Role),
		Expertise:  mapPreferences(r.Expertise),
	}
}

func mapProduct(p domain.Product) productPayload {
	return productPayload{
		ProductID: p.ID,
		Name:      p.Name,
		CompanyID: p.CompanyID,
		Category:  p.Category,
	}
}

// Task ids are strings on the wire; snowflake ids exceed the range JSON
// numbers keep exactly in browsers.
func mapTask(t domain.ReviewTask) taskPayload {
	return taskPayload{
		TaskID:      strconv.FormatInt(t.ID, 10),
		ProductID:   t.ProductID,
		ReviewerID:  t.ReviewerID,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

func mapTasks(tasks []domain.ReviewTask) []taskPayload {
	result := make([]taskPayload, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, mapTask(t))
	}
	return result
}

func mapAssignments(assignments []domain.Assignment) []assignmentPayload {
	result := make([]assignmentPayload, 0, len(assignments))
	for _, a := range assignments {
		result = append(result, assignmentPayload{
			ProductID:  a.ProductID,
			ReviewerID: a.ReviewerID,
			Category:   a.Category,
		})
	}
	return result
}

func mapPlan(p service.Plan) planPayload {
	unassignable := append([]string{}, p.Unassignable...)
	already := append([]string{}, p.AlreadyAssigned...)
	return planPayload{
		Assignments:     mapAssignments(p.Assignments),
		Unassignable:    unassignable,
		AlreadyAssigned: already,
		Workloads:       p.Workloads,
	}
}

func mapPersist(r service.PersistReport) persistPayload {
	failed := make([]failurePayload, 0, len(r.Failed))
	for _, f := range r.Failed {
		failed = append(failed, failurePayload{
			ProductID:  f.Assignment.ProductID,
			ReviewerID: f.Assignment.ReviewerID,
			Reason:     f.Err.Error(),
		})
	}
	return persistPayload{
		Created: mapTasks(r.Created),
		Skipped: mapAssignments(r.Skipped),
		Failed:  failed,
	}
}

func mapCategories(summaries []service.CategorySummary) []categorySummaryPayload {
	result := make([]categorySummaryPayload, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, categorySummaryPayload{
			Category:        s.Category,
			Products:        s.Products,
			AlreadyAssigned: s.AlreadyAssigned,
			Assigned:        s.Assigned,
			Unassignable:    s.Unassignable,
			Skipped:         s.Skipped,
			Failed:          s.Failed,
		})
	}
	return result
}

func mapWorkloads(workloads []domain.ReviewerWorkload) []workloadPayload {
	result := make([]workloadPayload, 0, len(workloads))
	for _, w := range workloads {
		result = append(result, workloadPayload{
			ReviewerID:  w.ReviewerID,
			Name:        w.Name,
			ActiveTasks: w.ActiveTasks,
		})
	}
	return result
}
