package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/openpolicy/civicdata/internal/service"
)

// Handler wires the REST routes to the service layer.
type Handler struct {
	tasks      *service.TaskService
	bills      *service.BillService
	validation *service.ValidationService
	health     *service.HealthService
}

func NewHandler(
	taskService *service.TaskService,
	billService *service.BillService,
	validationService *service.ValidationService,
	healthService *service.HealthService,
) *Handler {
	return &Handler{
		tasks:      taskService,
		bills:      billService,
		validation: validationService,
		health:     healthService,
	}
}

// RegisterApi mounts the data plane routes. The caller decides which
// middleware (auth, policy gate) wraps them.
func (h *Handler) RegisterApi(router chi.Router) {
	router.Post("/schedule", h.ScheduleTask)
	router.Get("/tasks/{task_id}", h.GetTaskStatus)
	router.Delete("/tasks/{task_id}", h.CancelTask)
	router.Get("/scraping-runs", h.ListScrapingRuns)

	router.Get("/parliamentary/validation/federal-bills", h.ValidateFederalBills)
	router.Get("/parliamentary/policy/health", h.PolicyHealth)

	// wrapped collaborator endpoints
	router.Get("/api/bills", h.ListBills)
	router.Get("/api/bills/{bill_id}", h.GetBill)
	router.Get("/api/jurisdictions", h.ListJurisdictions)
	router.Get("/api/jurisdictions/{jurisdiction_id}", h.GetJurisdiction)
	router.Get("/api/stats", h.GetStats)
}

// RegisterHealth mounts the liveness route, deliberately outside the policy
// gate so probes never burn rate limit budget.
func (h *Handler) RegisterHealth(router chi.Router) {
	router.Get("/health", h.Health)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.health.Health(r.Context())
	if status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	_ = render.Render(w, r, HealthReply{Status: status})
}

func (h *Handler) PolicyHealth(w http.ResponseWriter, r *http.Request) {
	health := h.health.PolicyHealth(r.Context())
	_ = render.Render(w, r, PolicyHealthReply{Status: health.Status, OpaVersion: health.EngineVersion})
}
