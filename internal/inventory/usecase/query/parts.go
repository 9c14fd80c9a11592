package query

import (
	"context"
	"strings"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/internal/inventory/usecase"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
)

// GetPartHandler handles get part query
type GetPartHandler struct {
	guard *usecase.PartGuard
}

// NewGetPartHandler creates a new get part handler
func NewGetPartHandler(guard *usecase.PartGuard) *GetPartHandler {
	return &GetPartHandler{guard: guard}
}

// Handle executes the get part query
func (h *GetPartHandler) Handle(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.Part, error) {
	return h.guard.Load(ctx, actor, id)
}

// ListPartsQuery represents the query to list parts
type ListPartsQuery struct {
	Search string
	Limit  int
	Offset int
}

// ListPartsHandler handles list parts query
type ListPartsHandler struct {
	repo  domain.Repository
	guard *usecase.PartGuard
}

// NewListPartsHandler creates a new list parts handler
func NewListPartsHandler(repo domain.Repository, guard *usecase.PartGuard) *ListPartsHandler {
	return &ListPartsHandler{repo: repo, guard: guard}
}

// Handle returns the parts visible to actor
func (h *ListPartsHandler) Handle(ctx context.Context, actor *orgdomain.Employee, q ListPartsQuery) ([]domain.Part, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter, err := h.guard.Filter(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(q.Search)
	filter.Limit = q.Limit
	filter.Offset = q.Offset

	return h.repo.ListParts(ctx, filter)
}

// ListMovementsHandler returns the journal of a part
type ListMovementsHandler struct {
	repo  domain.Repository
	guard *usecase.PartGuard
}

// NewListMovementsHandler creates a new list movements handler
func NewListMovementsHandler(repo domain.Repository, guard *usecase.PartGuard) *ListMovementsHandler {
	return &ListMovementsHandler{repo: repo, guard: guard}
}

// Handle returns the movements of partID in replay order
func (h *ListMovementsHandler) Handle(ctx context.Context, actor *orgdomain.Employee, partID uint) ([]domain.StockMovement, error) {
	if _, err := h.guard.Load(ctx, actor, partID); err != nil {
		return nil, err
	}
	return h.repo.ListMovements(ctx, partID)
}

// ReplayPartHandler compares a part's projection with its journal
type ReplayPartHandler struct {
	ledger *ledger.Ledger
	guard  *usecase.PartGuard
}

// NewReplayPartHandler creates a new replay handler
func NewReplayPartHandler(l *ledger.Ledger, guard *usecase.PartGuard) *ReplayPartHandler {
	return &ReplayPartHandler{ledger: l, guard: guard}
}

// Handle replays partID
func (h *ReplayPartHandler) Handle(ctx context.Context, actor *orgdomain.Employee, partID uint) (*ledger.ReplayResult, error) {
	if _, err := h.guard.Load(ctx, actor, partID); err != nil {
		return nil, err
	}
	return h.ledger.Replay(ctx, partID)
}

// AuditHandler replays every part. Admin only.
type AuditHandler struct {
	ledger *ledger.Ledger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(l *ledger.Ledger) *AuditHandler {
	return &AuditHandler{ledger: l}
}

// Handle runs the audit
func (h *AuditHandler) Handle(ctx context.Context, actor *orgdomain.Employee) ([]ledger.Drift, error) {
	if !actor.Has(orgdomain.PermissionAdmin) {
		return nil, apperr.Forbidden("ledger audit requires the admin permission")
	}
	return h.ledger.Audit(ctx)
}
