package command

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/integration/notify"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/logger"
)

// QuoteLineInput describes a requested item. A line without a part names
// the item by order number or description.
type QuoteLineInput struct {
	PartID      *uint
	OrderNumber string
	Description string
	Quantity    decimal.Decimal
	Unit        string
}

// CreateQuoteCommand represents the command to create a quote request
type CreateQuoteCommand struct {
	SupplierID uint
	Note       string
	Lines      []QuoteLineInput
}

// CreateQuoteHandler handles create quote request command
type CreateQuoteHandler struct {
	d *Dependencies
}

// NewCreateQuoteHandler creates a new create quote request handler
func NewCreateQuoteHandler(d *Dependencies) *CreateQuoteHandler {
	return &CreateQuoteHandler{d: d}
}

// Handle executes the create quote request command
func (h *CreateQuoteHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd CreateQuoteCommand) (*domain.QuoteRequest, error) {
	if err := access.Require(actor, orgdomain.PermissionManageQuotes); err != nil {
		return nil, err
	}
	if cmd.SupplierID == 0 {
		return nil, apperr.Validation("supplier is required")
	}

	quote := &domain.QuoteRequest{
		SupplierID:   cmd.SupplierID,
		CreatedByID:  actor.ID,
		DepartmentID: actor.PrimaryDepartmentID,
		Status:       domain.QuoteOpen,
		Note:         strings.TrimSpace(cmd.Note),
	}
	for i, in := range cmd.Lines {
		line, err := h.d.quoteLine(ctx, actor, in)
		if err != nil {
			return nil, err
		}
		line.Position = i + 1
		quote.Lines = append(quote.Lines, *line)
	}

	if err := h.d.Repo.CreateQuote(ctx, quote); err != nil {
		return nil, err
	}

	h.d.Metrics.transition(domain.EntityQuoteRequest, string(domain.QuoteOpen))
	logger.Info(ctx).
		Uint("quote_id", quote.ID).
		Uint("supplier_id", quote.SupplierID).
		Int("lines", len(quote.Lines)).
		Msg("Quote request created")
	return quote, nil
}

func (d *Dependencies) quoteLine(ctx context.Context, actor *orgdomain.Employee, in QuoteLineInput) (*domain.QuoteRequestLine, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperr.Validation("quantity must be positive, got %s", in.Quantity.String())
	}
	line := &domain.QuoteRequestLine{
		PartID:      in.PartID,
		OrderNumber: strings.TrimSpace(in.OrderNumber),
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		Unit:        strings.TrimSpace(in.Unit),
	}

	if in.PartID == nil {
		if line.OrderNumber == "" && line.Description == "" {
			return nil, apperr.Validation("a line without a part needs an order number or description")
		}
		return line, nil
	}

	part, err := d.PartGuard.Load(ctx, actor, *in.PartID)
	if err != nil {
		return nil, err
	}
	if line.OrderNumber == "" {
		line.OrderNumber = part.PartNumber
	}
	if line.Description == "" {
		line.Description = part.Name
	}
	if line.Unit == "" {
		line.Unit = part.Unit
	}
	return line, nil
}

// QuoteLinesHandler edits the lines and quoted prices of a quote request
type QuoteLinesHandler struct {
	d *Dependencies
}

// NewQuoteLinesHandler creates a new quote lines handler
func NewQuoteLinesHandler(d *Dependencies) *QuoteLinesHandler {
	return &QuoteLinesHandler{d: d}
}

// editable locks the quote request and checks that actor may edit it
func (h *QuoteLinesHandler) editable(ctx context.Context, actor *orgdomain.Employee, quoteID uint, prices bool) (*domain.QuoteRequest, error) {
	quote, err := h.d.Guard.LockQuote(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, orgdomain.PermissionManageQuotes); err != nil {
		return nil, err
	}
	if prices && !quote.Status.PricesEditable() {
		return nil, apperr.InvalidState("prices of quote request %d cannot be edited in status %s", quote.ID, quote.Status)
	}
	if !prices && !quote.Status.LinesEditable() {
		return nil, apperr.InvalidState("lines of quote request %d cannot be edited in status %s", quote.ID, quote.Status)
	}
	return quote, nil
}

// Add appends a line to the quote request
func (h *QuoteLinesHandler) Add(ctx context.Context, actor *orgdomain.Employee, quoteID uint, in QuoteLineInput) (*domain.QuoteRequestLine, error) {
	var line *domain.QuoteRequestLine
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		quote, err := h.editable(ctx, actor, quoteID, false)
		if err != nil {
			return err
		}
		if line, err = h.d.quoteLine(ctx, actor, in); err != nil {
			return err
		}
		line.QuoteRequestID = quote.ID
		line.Position = nextQuotePosition(quote)
		return h.d.Repo.AddQuoteLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Update replaces the item data of a line. Quoted prices are kept.
func (h *QuoteLinesHandler) Update(ctx context.Context, actor *orgdomain.Employee, quoteID, lineID uint, in QuoteLineInput) (*domain.QuoteRequestLine, error) {
	var line *domain.QuoteRequestLine
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		quote, err := h.editable(ctx, actor, quoteID, false)
		if err != nil {
			return err
		}
		current := quote.Line(lineID)
		if current == nil {
			return apperr.NotFound("quote request line", lineID)
		}
		if line, err = h.d.quoteLine(ctx, actor, in); err != nil {
			return err
		}
		line.ID = current.ID
		line.QuoteRequestID = quote.ID
		line.Position = current.Position
		line.QuotedPrice = current.QuotedPrice
		line.QuotedCurrency = current.QuotedCurrency
		return h.d.Repo.UpdateQuoteLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Remove deletes a line
func (h *QuoteLinesHandler) Remove(ctx context.Context, actor *orgdomain.Employee, quoteID, lineID uint) error {
	return h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		quote, err := h.editable(ctx, actor, quoteID, false)
		if err != nil {
			return err
		}
		if quote.Line(lineID) == nil {
			return apperr.NotFound("quote request line", lineID)
		}
		return h.d.Repo.DeleteQuoteLine(ctx, quote.ID, lineID)
	})
}

// SetPrice records the supplier's price for a line
func (h *QuoteLinesHandler) SetPrice(ctx context.Context, actor *orgdomain.Employee, quoteID, lineID uint, price decimal.Decimal, currency string) (*domain.QuoteRequestLine, error) {
	if price.IsNegative() {
		return nil, apperr.Validation("quoted price must not be negative, got %s", price.String())
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, apperr.Validation("currency is required")
	}

	var line domain.QuoteRequestLine
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		quote, err := h.editable(ctx, actor, quoteID, true)
		if err != nil {
			return err
		}
		current := quote.Line(lineID)
		if current == nil {
			return apperr.NotFound("quote request line", lineID)
		}
		line = *current
		line.QuotedPrice = &price
		line.QuotedCurrency = currency
		return h.d.Repo.UpdateQuoteLine(ctx, &line)
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func nextQuotePosition(quote *domain.QuoteRequest) int {
	pos := 0
	for _, l := range quote.Lines {
		if l.Position > pos {
			pos = l.Position
		}
	}
	return pos + 1
}

// QuoteTransitionHandler moves a quote request along Open, Sent,
// QuoteReceived and Closed
type QuoteTransitionHandler struct {
	d *Dependencies
}

// NewQuoteTransitionHandler creates a new quote transition handler
func NewQuoteTransitionHandler(d *Dependencies) *QuoteTransitionHandler {
	return &QuoteTransitionHandler{d: d}
}

// Handle moves the quote request to status to
func (h *QuoteTransitionHandler) Handle(ctx context.Context, actor *orgdomain.Employee, quoteID uint, to domain.QuoteStatus) (*domain.QuoteRequest, error) {
	if !to.Valid() {
		return nil, apperr.Validation("unknown quote request status %q", to)
	}

	var quote *domain.QuoteRequest
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if quote, err = h.d.Guard.LockQuote(ctx, actor, quoteID); err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionManageQuotes); err != nil {
			return err
		}
		if !quote.Status.CanTransitionTo(to) {
			return &apperr.InvalidTransitionError{
				Entity: "quote request",
				ID:     quote.ID,
				From:   string(quote.Status),
				To:     string(to),
			}
		}
		if to == domain.QuoteSent && len(quote.Lines) == 0 {
			return apperr.Validation("quote request %d has no lines", quote.ID)
		}

		now := h.d.now()
		switch to {
		case domain.QuoteSent:
			quote.SentAt, quote.SentByID = timePtr(now), uintPtr(actor.ID)
		case domain.QuoteQuoteReceived:
			quote.QuoteReceivedAt, quote.QuoteReceivedByID = timePtr(now), uintPtr(actor.ID)
		case domain.QuoteClosed:
			quote.ClosedAt, quote.ClosedByID = timePtr(now), uintPtr(actor.ID)
		}
		quote.Status = to
		return h.d.Repo.UpdateQuote(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	h.d.Metrics.transition(domain.EntityQuoteRequest, string(to))
	switch to {
	case domain.QuoteSent:
		h.d.notifyQuote(ctx, notify.KindQuoteSent, quote, actor.ID)
	case domain.QuoteQuoteReceived:
		h.d.notifyQuote(ctx, notify.KindQuoteReceived, quote, actor.ID)
	}
	logger.Info(ctx).Uint("quote_id", quote.ID).Str("status", string(to)).Msg("Quote request status changed")
	return quote, nil
}

// AcceptQuotedPricesHandler copies quoted prices into the part catalog
type AcceptQuotedPricesHandler struct {
	d *Dependencies
}

// NewAcceptQuotedPricesHandler creates a new accept quoted prices handler
func NewAcceptQuotedPricesHandler(d *Dependencies) *AcceptQuotedPricesHandler {
	return &AcceptQuotedPricesHandler{d: d}
}

// Handle sets price, currency and price date of every part that has a
// quoted line. Either all parts are updated or none.
func (h *AcceptQuotedPricesHandler) Handle(ctx context.Context, actor *orgdomain.Employee, quoteID uint) (*domain.QuoteRequest, error) {
	var (
		quote   *domain.QuoteRequest
		updated int
	)
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if quote, err = h.d.Guard.LockQuote(ctx, actor, quoteID); err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionManageQuotes); err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionManageParts); err != nil {
			return err
		}
		if quote.Status != domain.QuoteQuoteReceived && quote.Status != domain.QuoteClosed {
			return apperr.InvalidState("prices of quote request %d cannot be accepted in status %s", quote.ID, quote.Status)
		}

		now := h.d.now()
		for _, line := range quote.Lines {
			if line.PartID == nil || line.QuotedPrice == nil {
				continue
			}
			part, err := h.d.Parts.LockPart(ctx, *line.PartID)
			if err != nil {
				return err
			}
			if err := h.d.PartGuard.Check(ctx, actor, part); err != nil {
				return err
			}
			part.Price = *line.QuotedPrice
			part.PriceCurrency = line.QuotedCurrency
			part.PriceAsOf = timePtr(now)
			part.UpdatedAt = now
			if err := h.d.Parts.UpdatePart(ctx, part); err != nil {
				return err
			}
			updated++
		}
		if updated == 0 {
			return apperr.Validation("quote request %d has no quoted prices for catalogued parts", quote.ID)
		}

		quote.PricesAcceptedAt = timePtr(now)
		return h.d.Repo.UpdateQuote(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Uint("quote_id", quote.ID).Int("parts", updated).Msg("Quoted prices accepted into catalog")
	return quote, nil
}

// CreateOrderFromQuoteHandler turns a received quote into a draft order
type CreateOrderFromQuoteHandler struct {
	d *Dependencies
}

// NewCreateOrderFromQuoteHandler creates a new create order from quote handler
func NewCreateOrderFromQuoteHandler(d *Dependencies) *CreateOrderFromQuoteHandler {
	return &CreateOrderFromQuoteHandler{d: d}
}

// Handle creates a draft purchase order with the quote's lines and prices
// and closes the quote request in the same transaction.
func (h *CreateOrderFromQuoteHandler) Handle(ctx context.Context, actor *orgdomain.Employee, quoteID uint) (*domain.PurchaseOrder, error) {
	var order *domain.PurchaseOrder
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		quote, err := h.d.Guard.LockQuote(ctx, actor, quoteID)
		if err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionCreateOrders); err != nil {
			return err
		}
		if quote.Status != domain.QuoteQuoteReceived {
			return &apperr.InvalidTransitionError{
				Entity: "quote request",
				ID:     quote.ID,
				From:   string(quote.Status),
				To:     string(domain.QuoteClosed),
			}
		}

		departments := defaultDepartments(actor, nil)
		if err := h.d.Resolver.ValidateAssignable(ctx, departments); err != nil {
			return err
		}

		order = &domain.PurchaseOrder{
			SupplierID:     quote.SupplierID,
			QuoteRequestID: uintPtr(quote.ID),
			CreatedByID:    actor.ID,
			DepartmentID:   actor.PrimaryDepartmentID,
			Status:         domain.OrderDraft,
			DepartmentIDs:  departments,
		}
		for _, ql := range quote.Lines {
			if ql.PartID != nil {
				if _, err := h.d.PartGuard.Load(ctx, actor, *ql.PartID); err != nil {
					return err
				}
			}
			line := domain.PurchaseOrderLine{
				Position:           ql.Position,
				PartID:             ql.PartID,
				QuoteRequestLineID: uintPtr(ql.ID),
				OrderNumber:        ql.OrderNumber,
				Description:        ql.Description,
				Unit:               ql.Unit,
				QuantityOrdered:    ql.Quantity,
				QuantityReceived:   decimal.Zero,
				UnitPrice:          decimal.Zero,
				Currency:           ql.QuotedCurrency,
			}
			if ql.QuotedPrice != nil {
				line.UnitPrice = *ql.QuotedPrice
			}
			order.Lines = append(order.Lines, line)
		}
		if err := h.d.Repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		now := h.d.now()
		quote.Status = domain.QuoteClosed
		quote.ClosedAt, quote.ClosedByID = timePtr(now), uintPtr(actor.ID)
		quote.PurchaseOrderID = uintPtr(order.ID)
		return h.d.Repo.UpdateQuote(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	h.d.Metrics.transition(domain.EntityQuoteRequest, string(domain.QuoteClosed))
	h.d.Metrics.transition(domain.EntityPurchaseOrder, string(domain.OrderDraft))
	logger.Info(ctx).
		Uint("quote_id", quoteID).
		Uint("order_id", order.ID).
		Int("lines", len(order.Lines)).
		Msg("Purchase order created from quote request")
	return order, nil
}

// defaultDepartments falls back to the actor's primary department when no
// visibility departments were chosen.
func defaultDepartments(actor *orgdomain.Employee, ids []uint) []uint {
	if len(ids) > 0 {
		return ids
	}
	if actor.PrimaryDepartmentID != nil {
		return []uint{*actor.PrimaryDepartmentID}
	}
	return nil
}
