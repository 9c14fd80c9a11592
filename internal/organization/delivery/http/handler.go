package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/usecase/command"
	"github.com/tair/plantops/internal/organization/usecase/query"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/httputil"
)

// OrganizationHandler handles HTTP requests for departments and the acting
// employee
type OrganizationHandler struct {
	createHandler     *command.CreateDepartmentHandler
	moveHandler       *command.MoveDepartmentHandler
	renameHandler     *command.RenameDepartmentHandler
	deactivateHandler *command.DeactivateDepartmentHandler
	visibleHandler    *query.VisibleDepartmentsHandler

	metrics *httputil.Metrics
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(
	createHandler *command.CreateDepartmentHandler,
	moveHandler *command.MoveDepartmentHandler,
	renameHandler *command.RenameDepartmentHandler,
	deactivateHandler *command.DeactivateDepartmentHandler,
	visibleHandler *query.VisibleDepartmentsHandler,
	metrics *httputil.Metrics,
) *OrganizationHandler {
	return &OrganizationHandler{
		createHandler:     createHandler,
		moveHandler:       moveHandler,
		renameHandler:     renameHandler,
		deactivateHandler: deactivateHandler,
		visibleHandler:    visibleHandler,
		metrics:           metrics,
	}
}

// RegisterRoutes registers routes on the authenticated api router
func (h *OrganizationHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/me", h.metrics.Instrument("/api/me", h.Me)).Methods("GET")
	api.HandleFunc("/me/departments", h.metrics.Instrument("/api/me/departments", h.VisibleDepartments)).Methods("GET")
	api.HandleFunc("/departments", h.metrics.Instrument("/api/departments", h.CreateDepartment)).Methods("POST")
	api.HandleFunc("/departments/{id}", h.metrics.Instrument("/api/departments/{id}", h.UpdateDepartment)).Methods("PATCH")
	api.HandleFunc("/departments/{id}", h.metrics.Instrument("/api/departments/{id}", h.DeactivateDepartment)).Methods("DELETE")
}

// Me handles GET /api/me
func (h *OrganizationHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := Actor(w, r)
	if !ok {
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", actor)
}

// VisibleDepartments handles GET /api/me/departments
func (h *OrganizationHandler) VisibleDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := Actor(w, r)
	if !ok {
		return
	}

	departments, err := h.visibleHandler.Handle(r.Context(), actor)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", departments)
}

// CreateDepartment handles POST /api/departments
func (h *OrganizationHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := Actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name" validate:"required,max=200"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	department, err := h.createHandler.Handle(r.Context(), actor, command.CreateDepartmentCommand{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Department created successfully", department)
}

// UpdateDepartment handles PATCH /api/departments/{id}. It renames when name
// is set and moves when parent_id is set or make_root is true.
func (h *OrganizationHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	var req struct {
		Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
		ParentID *uint   `json:"parent_id"`
		MakeRoot bool    `json:"make_root"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	if req.Name == nil && req.ParentID == nil && !req.MakeRoot {
		httputil.RespondError(w, r, apperr.Validation("nothing to update"))
		return
	}
	if req.ParentID != nil && req.MakeRoot {
		httputil.RespondError(w, r, apperr.Validation("parent_id and make_root are mutually exclusive"))
		return
	}

	var department *domain.Department
	if req.Name != nil {
		department, err = h.renameHandler.Handle(r.Context(), actor, command.RenameDepartmentCommand{ID: id, Name: *req.Name})
		if err != nil {
			httputil.RespondError(w, r, err)
			return
		}
	}
	if req.ParentID != nil || req.MakeRoot {
		department, err = h.moveHandler.Handle(r.Context(), actor, command.MoveDepartmentCommand{ID: id, ParentID: req.ParentID})
		if err != nil {
			httputil.RespondError(w, r, err)
			return
		}
	}

	httputil.RespondOK(w, http.StatusOK, "Department updated successfully", department)
}

// DeactivateDepartment handles DELETE /api/departments/{id}
func (h *OrganizationHandler) DeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	department, err := h.deactivateHandler.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Department deactivated", department)
}
