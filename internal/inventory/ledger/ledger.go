package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
	"github.com/tair/plantops/pkg/logger"
)

// PostingRequest describes one stock posting
type PostingRequest struct {
	PartID   uint
	Kind     domain.MovementKind
	Quantity decimal.Decimal
	ActorID  uint

	Reference           string
	ShiftLogTopicID     *uint
	PurchaseOrderID     *uint
	PurchaseOrderLineID *uint
	CostCenter          string
	// UnitPrice overrides the part's catalog price snapshot
	UnitPrice *decimal.Decimal

	reversesMovementID *uint
}

// PostingResult is the outcome of a successful posting
type PostingResult struct {
	Movement     domain.StockMovement `json:"movement"`
	Part         domain.Part          `json:"part"`
	BelowMinimum bool                 `json:"below_minimum"`
}

// Drift is a part whose projection disagrees with its journal
type Drift struct {
	PartID    uint            `json:"part_id"`
	Projected decimal.Decimal `json:"projected"`
	Replayed  decimal.Decimal `json:"replayed"`
}

// ReplayResult compares a part's live projection with its replayed journal
type ReplayResult struct {
	PartID     uint            `json:"part_id"`
	Projected  decimal.Decimal `json:"projected"`
	Replayed   decimal.Decimal `json:"replayed"`
	Movements  int             `json:"movements"`
	Consistent bool            `json:"consistent"`
}

// Ledger is the only writer of part quantities
type Ledger struct {
	repo  domain.Repository
	tx    database.Transactor
	clock func() time.Time

	postings *prometheus.CounterVec
}

// NewLedger creates a ledger and registers its metrics with reg
func NewLedger(repo domain.Repository, tx database.Transactor, reg prometheus.Registerer) *Ledger {
	return &Ledger{
		repo:  repo,
		tx:    tx,
		clock: time.Now,
		postings: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantops_stock_postings_total",
				Help: "Stock postings by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// WithClock replaces the posting clock, for tests
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

func validate(req PostingRequest) error {
	if req.PartID == 0 {
		return apperr.Validation("part is required")
	}
	if err := domain.ValidateQuantity(req.Kind, req.Quantity); err != nil {
		return err
	}
	if req.PurchaseOrderLineID != nil {
		if req.PurchaseOrderID == nil {
			return apperr.Validation("purchase order line reference requires the purchase order")
		}
		if req.Kind != domain.MovementInbound {
			return apperr.Validation("only inbound postings may reference a purchase order line")
		}
	}
	return nil
}

// Post validates and applies one posting. The movement and the new
// projection are written in one transaction while the part row is locked. It
// joins the caller's transaction if there is one.
func (l *Ledger) Post(ctx context.Context, req PostingRequest) (*PostingResult, error) {
	if err := validate(req); err != nil {
		l.postings.WithLabelValues(string(req.Kind), "invalid").Inc()
		return nil, err
	}

	var result *PostingResult
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		part, err := l.repo.LockPart(ctx, req.PartID)
		if err != nil {
			return err
		}

		before := part.CurrentQuantity
		after := domain.Apply(before, req.Kind, req.Quantity)
		if after.IsNegative() {
			return &apperr.InsufficientStockError{
				PartID:    part.ID,
				Available: before,
				Requested: req.Quantity,
			}
		}

		postedAt, err := l.postingTime(ctx, part.ID)
		if err != nil {
			return err
		}

		unitPrice := part.Price
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}

		movement := &domain.StockMovement{
			PartID:              part.ID,
			Kind:                req.Kind,
			Quantity:            req.Quantity,
			QuantityBefore:      before,
			QuantityAfter:       after,
			Reference:           req.Reference,
			ShiftLogTopicID:     req.ShiftLogTopicID,
			PurchaseOrderID:     req.PurchaseOrderID,
			PurchaseOrderLineID: req.PurchaseOrderLineID,
			CostCenter:          req.CostCenter,
			UnitPrice:           unitPrice,
			PostedAt:            postedAt,
			ActorID:             req.ActorID,
			ReversesMovementID:  req.reversesMovementID,
		}
		if err := l.repo.AppendMovement(ctx, movement); err != nil {
			return err
		}
		if err := l.repo.UpdateQuantity(ctx, part.ID, after); err != nil {
			return err
		}

		part.CurrentQuantity = after
		result = &PostingResult{
			Movement:     *movement,
			Part:         *part,
			BelowMinimum: part.BelowMinimum(),
		}
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindInsufficientStock) {
			l.postings.WithLabelValues(string(req.Kind), "insufficient_stock").Inc()
			logger.Warn(ctx).Err(err).Uint("part_id", req.PartID).Msg("Stock posting rejected")
		} else {
			l.postings.WithLabelValues(string(req.Kind), "error").Inc()
		}
		return nil, err
	}

	l.postings.WithLabelValues(string(req.Kind), "ok").Inc()
	logger.Info(ctx).
		Uint("part_id", req.PartID).
		Uint("movement_id", result.Movement.ID).
		Str("kind", string(req.Kind)).
		Str("quantity", req.Quantity.String()).
		Str("quantity_after", result.Movement.QuantityAfter.String()).
		Msg("Stock posted")
	return result, nil
}

// postingTime keeps posting times non-decreasing per part so that replay
// order matches the order in which postings were applied.
func (l *Ledger) postingTime(ctx context.Context, partID uint) (time.Time, error) {
	now := l.clock().UTC()
	last, err := l.repo.LastMovement(ctx, partID)
	if err != nil {
		return time.Time{}, err
	}
	if last != nil && now.Before(last.PostedAt) {
		return last.PostedAt, nil
	}
	return now, nil
}

// Reverse posts the offsetting entry of a movement. Recounts and reversals
// cannot be reversed, and a movement is reversed at most once.
func (l *Ledger) Reverse(ctx context.Context, movementID, actorID uint, reason string) (*PostingResult, error) {
	var result *PostingResult
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		original, err := l.repo.FindMovement(ctx, movementID)
		if err != nil {
			return err
		}

		var kind domain.MovementKind
		switch original.Kind {
		case domain.MovementInbound:
			kind = domain.MovementOutbound
		case domain.MovementOutbound:
			kind = domain.MovementInbound
		default:
			return apperr.Validation("recount movements cannot be reversed, post a new recount instead")
		}
		if original.ReversesMovementID != nil {
			return apperr.Validation("movement %d is itself a reversal", original.ID)
		}

		existing, err := l.repo.FindReversal(ctx, original.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("movement %d has already been reversed by movement %d", original.ID, existing.ID)
		}

		price := original.UnitPrice
		result, err = l.Post(ctx, PostingRequest{
			PartID:             original.PartID,
			Kind:               kind,
			Quantity:           original.Quantity,
			ActorID:            actorID,
			Reference:          fmt.Sprintf("reversal of movement #%d: %s", original.ID, reason),
			CostCenter:         original.CostCenter,
			UnitPrice:          &price,
			reversesMovementID: &original.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Replay recomputes a part's quantity from its journal and compares it with
// the live projection.
func (l *Ledger) Replay(ctx context.Context, partID uint) (*ReplayResult, error) {
	var result *ReplayResult
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		part, err := l.repo.FindPart(ctx, partID)
		if err != nil {
			return err
		}
		movements, err := l.repo.ListMovements(ctx, partID)
		if err != nil {
			return err
		}
		replayed := domain.Replay(movements)
		result = &ReplayResult{
			PartID:     partID,
			Projected:  part.CurrentQuantity,
			Replayed:   replayed,
			Movements:  len(movements),
			Consistent: replayed.Equal(part.CurrentQuantity),
		}
		return nil
	})
	return result, err
}

// Audit replays every part and returns those whose projection drifted.
func (l *Ledger) Audit(ctx context.Context) ([]Drift, error) {
	ids, err := l.repo.ListPartIDs(ctx)
	if err != nil {
		return nil, err
	}

	drifts := make([]Drift, 0)
	for _, id := range ids {
		res, err := l.Replay(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to replay part %d: %w", id, err)
		}
		if !res.Consistent {
			logger.Warn(ctx).
				Uint("part_id", id).
				Str("projected", res.Projected.String()).
				Str("replayed", res.Replayed.String()).
				Msg("Stock projection drift detected")
			drifts = append(drifts, Drift{PartID: id, Projected: res.Projected, Replayed: res.Replayed})
		}
	}

	logger.Info(ctx).Int("parts", len(ids)).Int("drifts", len(drifts)).Msg("Ledger audit finished")
	return drifts, nil
}
