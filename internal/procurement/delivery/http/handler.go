package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	orghttp "github.com/tair/plantops/internal/organization/delivery/http"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/usecase/command"
	"github.com/tair/plantops/internal/procurement/usecase/query"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/httputil"
)

// Commands groups the procurement command handlers
type Commands struct {
	CreateQuote     *command.CreateQuoteHandler
	QuoteLines      *command.QuoteLinesHandler
	QuoteTransition *command.QuoteTransitionHandler
	AcceptPrices    *command.AcceptQuotedPricesHandler
	OrderFromQuote  *command.CreateOrderFromQuoteHandler
	CreateOrder     *command.CreateOrderHandler
	OrderLines      *command.OrderLinesHandler
	OrderACL        *command.SetOrderDepartmentsHandler
	OrderTransition *command.OrderTransitionHandler
	ReceiveGoods    *command.ReceiveGoodsHandler
	Attach          *command.AttachHandler
}

// Queries groups the procurement query handlers
type Queries struct {
	GetQuote    *query.GetQuoteHandler
	ListQuotes  *query.ListQuotesHandler
	GetOrder    *query.GetOrderHandler
	ListOrders  *query.ListOrdersHandler
	Receipts    *query.ListGoodsReceiptsHandler
	Attachments *query.AttachmentsHandler
	Export      *query.ExportHandler
}

// ProcurementHandler handles HTTP requests for quote requests, purchase
// orders and goods receipts
type ProcurementHandler struct {
	commands Commands
	queries  Queries
	metrics  *httputil.Metrics
}

// NewProcurementHandler creates a new procurement handler
func NewProcurementHandler(commands Commands, queries Queries, metrics *httputil.Metrics) *ProcurementHandler {
	return &ProcurementHandler{commands: commands, queries: queries, metrics: metrics}
}

// RegisterRoutes registers routes on the authenticated api router
func (h *ProcurementHandler) RegisterRoutes(api *mux.Router) {
	route := func(path, method string, fn http.HandlerFunc) {
		api.HandleFunc(path, h.metrics.Instrument("/api"+path, fn)).Methods(method)
	}

	route("/quotes", "POST", h.CreateQuote)
	route("/quotes", "GET", h.ListQuotes)
	route("/quotes/{id}", "GET", h.GetQuote)
	route("/quotes/{id}/lines", "POST", h.AddQuoteLine)
	route("/quotes/{id}/lines/{lineID}", "PUT", h.UpdateQuoteLine)
	route("/quotes/{id}/lines/{lineID}", "DELETE", h.RemoveQuoteLine)
	route("/quotes/{id}/lines/{lineID}/price", "PUT", h.SetQuotedPrice)
	route("/quotes/{id}/send", "POST", h.quoteTransition(domain.QuoteSent))
	route("/quotes/{id}/quote-received", "POST", h.quoteTransition(domain.QuoteQuoteReceived))
	route("/quotes/{id}/close", "POST", h.quoteTransition(domain.QuoteClosed))
	route("/quotes/{id}/accept-prices", "POST", h.AcceptQuotedPrices)
	route("/quotes/{id}/purchase-order", "POST", h.CreateOrderFromQuote)
	route("/quotes/{id}/export", "GET", h.ExportQuote)

	route("/orders", "POST", h.CreateOrder)
	route("/orders", "GET", h.ListOrders)
	route("/orders/{id}", "GET", h.GetOrder)
	route("/orders/{id}", "DELETE", h.DiscardOrder)
	route("/orders/{id}/lines", "POST", h.AddOrderLine)
	route("/orders/{id}/lines/{lineID}", "PUT", h.UpdateOrderLine)
	route("/orders/{id}/lines/{lineID}", "DELETE", h.RemoveOrderLine)
	route("/orders/{id}/departments", "PUT", h.SetOrderDepartments)
	route("/orders/{id}/submit", "POST", h.SubmitOrder)
	route("/orders/{id}/approve", "POST", h.ApproveOrder)
	route("/orders/{id}/place", "POST", h.PlaceOrder)
	route("/orders/{id}/close", "POST", h.CloseOrder)
	route("/orders/{id}/cancel", "POST", h.CancelOrder)
	route("/orders/{id}/receipts", "POST", h.ReceiveGoods)
	route("/orders/{id}/receipts", "GET", h.ListGoodsReceipts)
	route("/orders/{id}/export", "GET", h.ExportOrder)

	route("/{entity:quotes|orders}/{id}/attachments", "POST", h.UploadAttachment)
	route("/{entity:quotes|orders}/{id}/attachments", "GET", h.ListAttachments)
	route("/attachments/{id}", "GET", h.DownloadAttachment)
}

// target resolves the acting employee and the {id} path variable
func target(w http.ResponseWriter, r *http.Request) (*orgdomain.Employee, uint, bool) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return nil, 0, false
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, r, err)
		return nil, 0, false
	}
	return actor, id, true
}

// lineTarget is target plus the {lineID} path variable
func lineTarget(w http.ResponseWriter, r *http.Request) (*orgdomain.Employee, uint, uint, bool) {
	actor, id, ok := target(w, r)
	if !ok {
		return nil, 0, 0, false
	}
	lineID, err := httputil.PathID(r, "lineID")
	if err != nil {
		httputil.RespondError(w, r, err)
		return nil, 0, 0, false
	}
	return actor, id, lineID, true
}

type quoteLineRequest struct {
	PartID      *uint           `json:"part_id"`
	OrderNumber string          `json:"order_number" validate:"max=100"`
	Description string          `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit" validate:"max=20"`
}

func (l quoteLineRequest) input() command.QuoteLineInput {
	return command.QuoteLineInput{
		PartID:      l.PartID,
		OrderNumber: l.OrderNumber,
		Description: l.Description,
		Quantity:    l.Quantity,
		Unit:        l.Unit,
	}
}

// CreateQuote handles POST /api/quotes
func (h *ProcurementHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	var req struct {
		SupplierID uint               `json:"supplier_id" validate:"required"`
		Note       string             `json:"note"`
		Lines      []quoteLineRequest `json:"lines" validate:"dive"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	cmd := command.CreateQuoteCommand{SupplierID: req.SupplierID, Note: req.Note}
	for _, l := range req.Lines {
		cmd.Lines = append(cmd.Lines, l.input())
	}
	quote, err := h.commands.CreateQuote.Handle(r.Context(), actor, cmd)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Quote request created successfully", quote)
}

// ListQuotes handles GET /api/quotes
func (h *ProcurementHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	quotes, err := h.queries.ListQuotes.Handle(r.Context(), actor, listQuery(r))
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", quotes)
}

// GetQuote handles GET /api/quotes/{id}
func (h *ProcurementHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	quote, err := h.queries.GetQuote.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", quote)
}

// AddQuoteLine handles POST /api/quotes/{id}/lines
func (h *ProcurementHandler) AddQuoteLine(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req quoteLineRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	line, err := h.commands.QuoteLines.Add(r.Context(), actor, id, req.input())
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Line added", line)
}

// UpdateQuoteLine handles PUT /api/quotes/{id}/lines/{lineID}
func (h *ProcurementHandler) UpdateQuoteLine(w http.ResponseWriter, r *http.Request) {
	actor, id, lineID, ok := lineTarget(w, r)
	if !ok {
		return
	}
	var req quoteLineRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	line, err := h.commands.QuoteLines.Update(r.Context(), actor, id, lineID, req.input())
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Line updated", line)
}

// RemoveQuoteLine handles DELETE /api/quotes/{id}/lines/{lineID}
func (h *ProcurementHandler) RemoveQuoteLine(w http.ResponseWriter, r *http.Request) {
	actor, id, lineID, ok := lineTarget(w, r)
	if !ok {
		return
	}

	if err := h.commands.QuoteLines.Remove(r.Context(), actor, id, lineID); err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Line removed", nil)
}

// SetQuotedPrice handles PUT /api/quotes/{id}/lines/{lineID}/price
func (h *ProcurementHandler) SetQuotedPrice(w http.ResponseWriter, r *http.Request) {
	actor, id, lineID, ok := lineTarget(w, r)
	if !ok {
		return
	}
	var req struct {
		Price    decimal.Decimal `json:"price"`
		Currency string          `json:"currency" validate:"required,len=3"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	line, err := h.commands.QuoteLines.SetPrice(r.Context(), actor, id, lineID, req.Price, req.Currency)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Quoted price recorded", line)
}

// quoteTransition handles POST /api/quotes/{id}/{send|quote-received|close}
func (h *ProcurementHandler) quoteTransition(to domain.QuoteStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := target(w, r)
		if !ok {
			return
		}

		quote, err := h.commands.QuoteTransition.Handle(r.Context(), actor, id, to)
		if err != nil {
			httputil.RespondError(w, r, err)
			return
		}
		httputil.RespondOK(w, http.StatusOK, "Quote request is now "+string(to), quote)
	}
}

// AcceptQuotedPrices handles POST /api/quotes/{id}/accept-prices
func (h *ProcurementHandler) AcceptQuotedPrices(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	quote, err := h.commands.AcceptPrices.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Quoted prices accepted into catalog", quote)
}

// CreateOrderFromQuote handles POST /api/quotes/{id}/purchase-order
func (h *ProcurementHandler) CreateOrderFromQuote(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	order, err := h.commands.OrderFromQuote.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Purchase order created from quote request", order)
}

type orderLineRequest struct {
	PartID      *uint           `json:"part_id"`
	OrderNumber string          `json:"order_number" validate:"max=100"`
	Description string          `json:"description" validate:"max=500"`
	Unit        string          `json:"unit" validate:"max=20"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
}

func (l orderLineRequest) input() command.OrderLineInput {
	return command.OrderLineInput{
		PartID:      l.PartID,
		OrderNumber: l.OrderNumber,
		Description: l.Description,
		Unit:        l.Unit,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Currency:    l.Currency,
	}
}

// CreateOrder handles POST /api/orders
func (h *ProcurementHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	var req struct {
		SupplierID    uint               `json:"supplier_id" validate:"required"`
		OrderNumber   string             `json:"order_number" validate:"max=100"`
		DepartmentIDs []uint             `json:"department_ids"`
		Lines         []orderLineRequest `json:"lines" validate:"dive"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	cmd := command.CreateOrderCommand{
		SupplierID:    req.SupplierID,
		OrderNumber:   req.OrderNumber,
		DepartmentIDs: req.DepartmentIDs,
	}
	for _, l := range req.Lines {
		cmd.Lines = append(cmd.Lines, l.input())
	}
	order, err := h.commands.CreateOrder.Handle(r.Context(), actor, cmd)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Purchase order created successfully", order)
}

// ListOrders handles GET /api/orders
func (h *ProcurementHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := orghttp.Actor(w, r)
	if !ok {
		return
	}

	orders, err := h.queries.ListOrders.Handle(r.Context(), actor, listQuery(r))
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", orders)
}

// GetOrder handles GET /api/orders/{id}
func (h *ProcurementHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	order, err := h.queries.GetOrder.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", order)
}

// DiscardOrder handles DELETE /api/orders/{id}
func (h *ProcurementHandler) DiscardOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	if err := h.commands.OrderTransition.Discard(r.Context(), actor, id); err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Draft discarded", nil)
}

// AddOrderLine handles POST /api/orders/{id}/lines
func (h *ProcurementHandler) AddOrderLine(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req orderLineRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	line, err := h.commands.OrderLines.Add(r.Context(), actor, id, req.input())
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Line added", line)
}

// UpdateOrderLine handles PUT /api/orders/{id}/lines/{lineID}
func (h *ProcurementHandler) UpdateOrderLine(w http.ResponseWriter, r *http.Request) {
	actor, id, lineID, ok := lineTarget(w, r)
	if !ok {
		return
	}
	var req orderLineRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	line, err := h.commands.OrderLines.Update(r.Context(), actor, id, lineID, req.input())
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Line updated", line)
}

// RemoveOrderLine handles DELETE /api/orders/{id}/lines/{lineID}
func (h *ProcurementHandler) RemoveOrderLine(w http.ResponseWriter, r *http.Request) {
	actor, id, lineID, ok := lineTarget(w, r)
	if !ok {
		return
	}

	if err := h.commands.OrderLines.Remove(r.Context(), actor, id, lineID); err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Line removed", nil)
}

// SetOrderDepartments handles PUT /api/orders/{id}/departments
func (h *ProcurementHandler) SetOrderDepartments(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req struct {
		DepartmentIDs []uint `json:"department_ids"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	order, err := h.commands.OrderACL.Handle(r.Context(), actor, id, req.DepartmentIDs)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Departments updated", order)
}

// SubmitOrder handles POST /api/orders/{id}/submit
func (h *ProcurementHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note" validate:"max=2000"`
	}
	if err := decodeOptional(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	order, err := h.commands.OrderTransition.Submit(r.Context(), actor, id, req.Note)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Purchase order submitted for approval", order)
}

// ApproveOrder handles POST /api/orders/{id}/approve
func (h *ProcurementHandler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req struct {
		// Signature is the base64 encoded signature image
		Signature []byte `json:"signature" validate:"required"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	order, err := h.commands.OrderTransition.Approve(r.Context(), actor, id, req.Signature)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Purchase order approved", order)
}

// PlaceOrder handles POST /api/orders/{id}/place
func (h *ProcurementHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	order, err := h.commands.OrderTransition.Place(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Purchase order placed", order)
}

// CloseOrder handles POST /api/orders/{id}/close
func (h *ProcurementHandler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	order, err := h.commands.OrderTransition.Close(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Purchase order closed", order)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *ProcurementHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" validate:"max=2000"`
	}
	if err := decodeOptional(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	order, err := h.commands.OrderTransition.Cancel(r.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "Purchase order cancelled", order)
}

// ReceiveGoods handles POST /api/orders/{id}/receipts
func (h *ProcurementHandler) ReceiveGoods(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}
	var req struct {
		DeliveryNote string `json:"delivery_note" validate:"max=200"`
		Lines        []struct {
			LineID   uint            `json:"line_id" validate:"required"`
			Quantity decimal.Decimal `json:"quantity"`
		} `json:"lines" validate:"required,min=1,dive"`
	}
	if err := httputil.Decode(r, &req); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	lines := make(map[uint]decimal.Decimal, len(req.Lines))
	for _, l := range req.Lines {
		if _, dup := lines[l.LineID]; dup {
			httputil.RespondError(w, r, apperr.Validation("line %d appears more than once", l.LineID))
			return
		}
		lines[l.LineID] = l.Quantity
	}

	result, err := h.commands.ReceiveGoods.Handle(r.Context(), actor, command.ReceiveGoodsCommand{
		OrderID:      id,
		Lines:        lines,
		DeliveryNote: req.DeliveryNote,
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	if result.Receipt == nil {
		httputil.RespondOK(w, http.StatusOK, "Nothing to receive", result)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Goods received", result)
}

// ListGoodsReceipts handles GET /api/orders/{id}/receipts
func (h *ProcurementHandler) ListGoodsReceipts(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	receipts, err := h.queries.Receipts.Handle(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", receipts)
}

func listQuery(r *http.Request) query.ListQuery {
	return query.ListQuery{
		Status: r.URL.Query().Get("status"),
		Limit:  httputil.QueryInt(r, "limit", 100),
		Offset: httputil.QueryInt(r, "offset", 0),
	}
}

// decodeOptional decodes a JSON body that may be omitted
func decodeOptional(r *http.Request, dst interface{}) error {
	if r.ContentLength == 0 {
		return nil
	}
	return httputil.Decode(r, dst)
}
