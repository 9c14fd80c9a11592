package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/usecase/command"
	"github.com/tair/plantops/internal/inventory/usecase/query"
	orghttp "github.com/tair/plantops/internal/organization/delivery/http"
	"github.com/tair/plantops/pkg/httputil"
)

// InventoryHandler handles HTTP requests for parts and the stock ledger
type InventoryHandler struct {
	createPartHandler     *command.CreatePartHandler
	setSuccessorHandler   *command.SetSuccessorHandler
	endOfLifeHandler      *command.MarkEndOfLifeHandler
	setDepartmentsHandler *command.SetPartDepartmentsHandler
	bookStockHandler      *command.BookStockHandler
	reverseHandler        *command.ReverseMovementHandler

	getPartHandler       *query.GetPartHandler
	listPartsHandler     *query.ListPartsHandler
	listMovementsHandler *query.ListMovementsHandler
	replayHandler        *query.ReplayPartHandler
	auditHandler         *query.AuditHandler

	metrics *httputil.Metrics
}

// Commands groups the inventory command handlers
type Commands struct {
	CreatePart     *command.CreatePartHandler
	SetSuccessor   *command.SetSuccessorHandler
	EndOfLife      *command.MarkEndOfLifeHandler
	SetDepartments *command.SetPartDepartmentsHandler
	BookStock      *command.BookStockHandler
	Reverse        *command.ReverseMovementHandler
}

// Queries groups the inventory query handlers
type Queries struct {
	GetPart       *query.GetPartHandler
	ListParts     *query.ListPartsHandler
	ListMovements *query.ListMovementsHandler
	Replay        *query.ReplayPartHandler
	Audit         *query.AuditHandler
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(commands Commands, queries Queries, metrics *httputil.Metrics) *InventoryHandler {
	return &InventoryHandler{
		createPartHandler:     commands.CreatePart,
		setSuccessorHandler:   commands.SetSuccessor,
		endOfLifeHandler:      commands.EndOfLife,
		setDepartmentsHandler: commands.SetDepartments,
		bookStockHandler:      commands.BookStock,
		reverseHandler:        commands.Reverse,
		getPartHandler:        queries.GetPart,
		listPartsHandler:      queries.ListParts,
		listMovementsHandler:  queries.ListMovements,
		replayHandler:         queries.Replay,
		auditHandler:          queries.Audit,
		metrics:               metrics,
	}
}

// RegisterRoutes registers routes on the authenticated api router
func (h *InventoryHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/parts", h.metrics.Instrument("/api/parts", h.CreatePart)).Methods("POST")
	api.HandleFunc("/parts", h.metrics.Instrument("/api/parts", h.ListParts)).Methods("GET")
	api.HandleFunc("/parts/{id}", h.metrics.Instrument("/api/parts/{id}", h.GetPart)).Methods("GET")
	api.HandleFunc("/parts/{id}/successor", h.metrics.Instrument("/api/parts/{id}/successor", h.SetSuccessor)).Methods("PUT")
	api.HandleFunc("/parts/{id}/end-of-life", h.metrics.Instrument("/api/parts/{id}/end-of-life", h.SetEndOfLife)).Methods("PUT")
	api.HandleFunc("/parts/{id}/departments", h.metrics.Instrument("/api/parts/{id}/departments", h.SetDepartments)).Methods("PUT")
	api.HandleFunc("/parts/{id}/movements", h.metrics.Instrument("/api/parts/{id}/movements", h.BookStock)).Methods("POST")
	api.HandleFunc("/parts/{id}/movements", h.metrics.Instrument("/api/parts/{id}/movements", h.ListMovements)).Methods("GET")
	api.HandleFunc("/parts/{id}/replay", h.metrics.Instrument("/api/parts/{id}/replay", h.Replay)).Methods("GET")
	api.HandleFunc("/movements/{id}/reversal", h.metrics.Instrument("/api/movements/{id}/reversal", h.ReverseMovement)).Methods("POST")
	api.HandleFunc("/ledger/audit", h.metrics.Instrument("/api/ledger/audit", h.Audit)).Methods("GET")
}

// CreatePart handles POST /api/parts
func (h *InventoryHandler) CreatePart(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	var req struct {
		PartNumber      string           `json:"part_number" validate:"required,max=100"`
		Name            string           `json:"name" validate:"required,max=200"`
		Description     string           `json:"description"`
		SupplierID      *uint            `json:"supplier_id"`
		Unit            string           `json:"unit" validate:"required,max=20"`
		MinimumStock    decimal.Decimal  `json:"minimum_stock"`
		Price           decimal.Decimal  `json:"price"`
		PriceCurrency   string           `json:"price_currency" validate:"omitempty,len=3"`
		DepartmentIDs   []uint           `json:"department_ids"`
		InitialQuantity *decimal.Decimal `json:"initial_quantity"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	part, err := h.createPartHandler.Handle(r.Context(), actor, command.CreatePartCommand{
		PartNumber:      req.PartNumber,
		Name:            req.Name,
		Description:     req.Description,
		SupplierID:      req.SupplierID,
		Unit:            req.Unit,
		MinimumStock:    req.MinimumStock,
		Price:           req.Price,
		PriceCurrency:   req.PriceCurrency,
		DepartmentIDs:   req.DepartmentIDs,
		InitialQuantity: req.InitialQuantity,
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Part created successfully", part)
}

// ListParts handles GET /api/parts
func (h *InventoryHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	parts, err := h.listPartsHandler.Handle(r.Context(), actor, query.ListPartsQuery{
		Search: r.URL.Query().Get("search"),
		Limit:  httputil.QueryInt(r, "limit", 100),
		Offset: httputil.QueryInt(r, "offset", 0),
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", parts)
}

// GetPart handles GET /api/parts/{id}
func (h *InventoryHandler) GetPart(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	part, err := h.getPartHandler.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", part)
}

// SetSuccessor handles PUT /api/parts/{id}/successor
func (h *InventoryHandler) SetSuccessor(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	var req struct {
		SuccessorID *uint `json:"successor_id"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	part, err := h.setSuccessorHandler.Handle(r.Context(), actor, command.SetSuccessorCommand{PartID: id, SuccessorID: req.SuccessorID})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Successor updated", part)
}

// SetEndOfLife handles PUT /api/parts/{id}/end-of-life
func (h *InventoryHandler) SetEndOfLife(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	var req struct {
		EndOfLife bool `json:"end_of_life"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	part, err := h.endOfLifeHandler.Handle(r.Context(), actor, id, req.EndOfLife)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "End of life updated", part)
}

// SetDepartments handles PUT /api/parts/{id}/departments
func (h *InventoryHandler) SetDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	var req struct {
		DepartmentIDs []uint `json:"department_ids"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	part, err := h.setDepartmentsHandler.Handle(r.Context(), actor, id, req.DepartmentIDs)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Part departments updated", part)
}

// BookStock handles POST /api/parts/{id}/movements
func (h *InventoryHandler) BookStock(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	var req struct {
		Kind            domain.MovementKind `json:"kind" validate:"required,oneof=inbound outbound recount"`
		Quantity        decimal.Decimal     `json:"quantity"`
		Reference       string              `json:"reference" validate:"max=500"`
		ShiftLogTopicID *uint               `json:"shift_log_topic_id"`
		CostCenter      string              `json:"cost_center" validate:"max=50"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	res, err := h.bookStockHandler.Handle(r.Context(), actor, command.BookStockCommand{
		PartID:          id,
		Kind:            req.Kind,
		Quantity:        req.Quantity,
		Reference:       req.Reference,
		ShiftLogTopicID: req.ShiftLogTopicID,
		CostCenter:      req.CostCenter,
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Stock posted", res)
}

// ListMovements handles GET /api/parts/{id}/movements
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	movements, err := h.listMovementsHandler.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", movements)
}

// Replay handles GET /api/parts/{id}/replay
func (h *InventoryHandler) Replay(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	res, err := h.replayHandler.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", res)
}

// ReverseMovement handles POST /api/movements/{id}/reversal
func (h *InventoryHandler) ReverseMovement(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	res, err := h.reverseHandler.Handle(r.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Movement reversed", res)
}

// Audit handles GET /api/ledger/audit
func (h *InventoryHandler) Audit(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	drifts, err := h.auditHandler.Handle(r.Context(), actor)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", drifts)
}
