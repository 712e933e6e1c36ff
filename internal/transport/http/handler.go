package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"reviewengine/internal/domain"
	"reviewengine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	service service.Service
	logger  *slog.Logger
}

func NewHandler(svc service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Route("/reviewers", func(r chi.Router) {
		r.Post("/invite", h.InviteReviewer)
		r.Route("/{reviewerID}", func(r chi.Router) {
			r.Get("/", h.GetReviewer)
			r.Get("/tasks", h.ListReviewerTasks)
			r.Get("/preferences", h.ListPreferences)
			r.Post("/preferences", h.AddPreference)
			r.Delete("/preferences", h.RemovePreference)
			r.Put("/preferences/priority", h.SetPreferencePriority)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.UpsertProduct)
		r.Get("/", h.ListProducts)
	})

	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", h.Assign)
		r.Post("/preview", h.PreviewAssignments)
		r.Post("/auto", h.AutoDistribute)
	})

	r.Route("/tasks/{taskID}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Post("/start", h.StartTask)
		r.Post("/complete", h.CompleteTask)
		r.Put("/priority", h.UpdatePriority)
		r.Put("/deadline", h.UpdateDeadline)
		r.Delete("/", h.DeleteTask)
	})

	r.Get("/workload", h.Workload)
	r.Get("/health", h.Health)

	return r
}

func (h *Handler) InviteReviewer(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	inv, err := req.toInvitation()
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	reviewer, err := h.service.InviteReviewer(r.Context(), inv)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"reviewer": mapReviewer(reviewer),
	})
}

func (h *Handler) GetReviewer(w http.ResponseWriter, r *http.Request) {
	reviewer, err := h.service.GetReviewer(r.Context(), chi.URLParam(r, "reviewerID"))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reviewer": mapReviewer(reviewer),
	})
}

func (h *Handler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	reviewerID := chi.URLParam(r, "reviewerID")
	prefs, err := h.service.ListPreferences(r.Context(), reviewerID)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reviewer_id": reviewerID,
		"preferences": mapPreferences(prefs),
	})
}

func (h *Handler) AddPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceKeyRequest
	if !decode(w, r, &req) {
		return
	}
	scope, key, err := req.parse()
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	created, err := h.service.AddPreference(r.Context(), chi.URLParam(r, "reviewerID"), scope, key)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{
		"created": created,
	})
}

func (h *Handler) RemovePreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceKeyRequest
	if !decode(w, r, &req) {
		return
	}
	scope, key, err := req.parse()
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	if err := h.service.RemovePreference(r.Context(), chi.URLParam(r, "reviewerID"), scope, key); err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetPreferencePriority(w http.ResponseWriter, r *http.Request) {
	var req setPreferencePriorityRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	scope, key, err := preferenceKeyRequest{Scope: req.Scope, Key: req.Key}.parse()
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	if err := h.service.SetPreferencePriority(r.Context(), chi.URLParam(r, "reviewerID"), scope, key, *req.Priority); err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, preferencePayload{Scope: string(scope), Key: key, Priority: *req.Priority})
}

func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	product, err := h.service.UpsertProduct(r.Context(), req.toDomain())
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"product": mapProduct(product),
	})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categories := r.URL.Query()["category"]
	if len(categories) == 0 {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "category is required")
		return
	}

	products, err := h.service.ListProducts(r.Context(), categories)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	result := make([]productPayload, 0, len(products))
	for _, p := range products {
		result = append(result, mapProduct(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"products": result,
	})
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	assignment, err := req.toDomain()
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	task, err := h.service.Assign(r.Context(), assignment)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"task": mapTask(task),
	})
}

func (h *Handler) PreviewAssignments(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decode(w, r, &req) {
		return
	}

	plan, err := h.service.ComputeAssignments(r.Context(), req.ProductIDs)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"plan": mapPlan(plan),
	})
}

// AutoDistribute answers 200 when every planned write succeeded, including
// when nothing was eligible, and 207 when some writes failed.
func (h *Handler) AutoDistribute(w http.ResponseWriter, r *http.Request) {
	var req autoDistributeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	distribute, err := req.toDomain()
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	report, err := h.service.AutoDistribute(r.Context(), distribute)
	status := http.StatusOK
	if err != nil {
		if !errors.Is(err, domain.ErrPartialFailure) {
			h.handleDomainError(w, r, err)
			return
		}
		status = http.StatusMultiStatus
	}

	respondJSON(w, status, map[string]any{
		"plan":       mapPlan(report.Plan),
		"persisted":  mapPersist(report.Persist),
		"categories": mapCategories(report.Categories),
	})
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	task, err := h.service.GetTask(r.Context(), taskID)
	h.respondTask(w, r, task, err)
}

func (h *Handler) StartTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	task, err := h.service.StartTask(r.Context(), taskID)
	h.respondTask(w, r, task, err)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	task, err := h.service.CompleteTask(r.Context(), taskID)
	h.respondTask(w, r, task, err)
}

func (h *Handler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	var req updatePriorityRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	priority, err := domain.ParseTaskPriority(req.Priority)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	task, err := h.service.UpdatePriority(r.Context(), taskID, priority)
	h.respondTask(w, r, task, err)
}

func (h *Handler) UpdateDeadline(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	var req updateDeadlineRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.UpdateDeadline(r.Context(), taskID, req.Deadline)
	h.respondTask(w, r, task, err)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(r.Context(), taskID); err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListReviewerTasks(w http.ResponseWriter, r *http.Request) {
	reviewerID := chi.URLParam(r, "reviewerID")
	tasks, err := h.service.ListReviewerTasks(r.Context(), reviewerID)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reviewer_id": reviewerID,
		"tasks":       mapTasks(tasks),
	})
}

func (h *Handler) Workload(w http.ResponseWriter, r *http.Request) {
	workloads, err := h.service.WorkloadSummary(r.Context())
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reviewers": mapWorkloads(workloads),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "UNHEALTHY", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondTask(w http.ResponseWriter, r *http.Request, task domain.ReviewTask, err error) {
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"task": mapTask(task),
	})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrAlreadyAssigned):
		respondError(w, http.StatusConflict, "ALREADY_ASSIGNED", "product already has an active review task")
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrReviewerExists):
		respondError(w, http.StatusConflict, "REVIEWER_EXISTS", "reviewer already exists")
	case errors.Is(err, domain.ErrNoCategories):
		respondError(w, http.StatusBadRequest, "NO_CATEGORIES", "select at least one category")
	case errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidTaskPriority),
		errors.Is(err, domain.ErrInvalidScope),
		errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrReviewerNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrPreferenceNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return false
	}
	return true
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "taskID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "task id must be a positive integer")
		return 0, false
	}
	return id, true
}
