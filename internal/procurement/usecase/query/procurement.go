package query

import (
	"context"

	"github.com/tair/plantops/internal/integration/attachments"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/usecase"
	"github.com/tair/plantops/pkg/apperr"
)

// ListQuery pages through quote requests or purchase orders
type ListQuery struct {
	Status string
	Limit  int
	Offset int
}

func (q *ListQuery) normalize() {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// GetQuoteHandler handles get quote request query
type GetQuoteHandler struct {
	guard *usecase.Guard
}

// NewGetQuoteHandler creates a new get quote request handler
func NewGetQuoteHandler(guard *usecase.Guard) *GetQuoteHandler {
	return &GetQuoteHandler{guard: guard}
}

// Handle executes the get quote request query
func (h *GetQuoteHandler) Handle(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.QuoteRequest, error) {
	return h.guard.Quote(ctx, actor, id)
}

// ListQuotesHandler handles list quote requests query
type ListQuotesHandler struct {
	repo  domain.Repository
	guard *usecase.Guard
}

// NewListQuotesHandler creates a new list quote requests handler
func NewListQuotesHandler(repo domain.Repository, guard *usecase.Guard) *ListQuotesHandler {
	return &ListQuotesHandler{repo: repo, guard: guard}
}

// Handle returns the quote requests visible to actor, newest first
func (h *ListQuotesHandler) Handle(ctx context.Context, actor *orgdomain.Employee, q ListQuery) ([]domain.QuoteRequest, error) {
	q.normalize()
	status := domain.QuoteStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown quote request status %q", q.Status)
	}

	filter, err := h.guard.QuoteFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.Status = status
	filter.Limit = q.Limit
	filter.Offset = q.Offset
	return h.repo.ListQuotes(ctx, filter)
}

// GetOrderHandler handles get purchase order query
type GetOrderHandler struct {
	guard *usecase.Guard
}

// NewGetOrderHandler creates a new get purchase order handler
func NewGetOrderHandler(guard *usecase.Guard) *GetOrderHandler {
	return &GetOrderHandler{guard: guard}
}

// Handle executes the get purchase order query
func (h *GetOrderHandler) Handle(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.PurchaseOrder, error) {
	return h.guard.Order(ctx, actor, id)
}

// ListOrdersHandler handles list purchase orders query
type ListOrdersHandler struct {
	repo  domain.Repository
	guard *usecase.Guard
}

// NewListOrdersHandler creates a new list purchase orders handler
func NewListOrdersHandler(repo domain.Repository, guard *usecase.Guard) *ListOrdersHandler {
	return &ListOrdersHandler{repo: repo, guard: guard}
}

// Handle returns the purchase orders visible to actor, newest first
func (h *ListOrdersHandler) Handle(ctx context.Context, actor *orgdomain.Employee, q ListQuery) ([]domain.PurchaseOrder, error) {
	q.normalize()
	status := domain.OrderStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown purchase order status %q", q.Status)
	}

	filter, err := h.guard.OrderFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.Status = status
	filter.Limit = q.Limit
	filter.Offset = q.Offset
	return h.repo.ListOrders(ctx, filter)
}

// ListGoodsReceiptsHandler returns the receipts booked against an order
type ListGoodsReceiptsHandler struct {
	repo  domain.Repository
	guard *usecase.Guard
}

// NewListGoodsReceiptsHandler creates a new list goods receipts handler
func NewListGoodsReceiptsHandler(repo domain.Repository, guard *usecase.Guard) *ListGoodsReceiptsHandler {
	return &ListGoodsReceiptsHandler{repo: repo, guard: guard}
}

// Handle executes the list goods receipts query
func (h *ListGoodsReceiptsHandler) Handle(ctx context.Context, actor *orgdomain.Employee, orderID uint) ([]domain.GoodsReceipt, error) {
	if _, err := h.guard.Order(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return h.repo.ListGoodsReceipts(ctx, orderID)
}

// AttachmentsHandler lists and downloads attachments
type AttachmentsHandler struct {
	repo  domain.Repository
	guard *usecase.Guard
	store attachments.Store
}

// NewAttachmentsHandler creates a new attachments handler
func NewAttachmentsHandler(repo domain.Repository, guard *usecase.Guard, store attachments.Store) *AttachmentsHandler {
	return &AttachmentsHandler{repo: repo, guard: guard, store: store}
}

// List returns the attachment metadata of an entity
func (h *AttachmentsHandler) List(ctx context.Context, actor *orgdomain.Employee, entityType string, entityID uint) ([]domain.Attachment, error) {
	if err := h.guard.Entity(ctx, actor, entityType, entityID); err != nil {
		return nil, err
	}
	return h.repo.ListAttachments(ctx, entityType, entityID)
}

// Download returns an attachment and its bytes
func (h *AttachmentsHandler) Download(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.Attachment, []byte, error) {
	attachment, err := h.repo.FindAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := h.guard.Entity(ctx, actor, attachment.EntityType, attachment.EntityID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil, apperr.NotFound("attachment", id)
		}
		return nil, nil, err
	}
	data, err := h.store.Get(ctx, attachment.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return attachment, data, nil
}
