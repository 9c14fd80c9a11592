package repository

import (
	"context"
	"sort"
	"time"

	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

// MemoryRepository keeps procurement data in a database.MemoryDB
type MemoryRepository struct {
	db           *database.MemoryDB
	quotes       *database.Table[domain.QuoteRequest]
	quoteLines   *database.Table[domain.QuoteRequestLine]
	orders       *database.Table[domain.PurchaseOrder]
	orderLines   *database.Table[domain.PurchaseOrderLine]
	receipts     *database.Table[domain.GoodsReceipt]
	receiptLines *database.Table[domain.GoodsReceiptLine]
	attachments  *database.Table[domain.Attachment]
}

// NewMemoryRepository creates an in-memory repository
func NewMemoryRepository(db *database.MemoryDB) *MemoryRepository {
	return &MemoryRepository{
		db:           db,
		quotes:       database.NewTable[domain.QuoteRequest](db),
		quoteLines:   database.NewTable[domain.QuoteRequestLine](db),
		orders:       database.NewTable[domain.PurchaseOrder](db),
		orderLines:   database.NewTable[domain.PurchaseOrderLine](db),
		receipts:     database.NewTable[domain.GoodsReceipt](db),
		receiptLines: database.NewTable[domain.GoodsReceiptLine](db),
		attachments:  database.NewTable[domain.Attachment](db),
	}
}

// Quote requests

func (r *MemoryRepository) CreateQuote(ctx context.Context, quote *domain.QuoteRequest) error {
	return r.db.Run(ctx, func() error {
		now := time.Now()
		quote.ID = r.quotes.NextID()
		quote.CreatedAt, quote.UpdatedAt = now, now

		header := *quote
		header.Lines = nil
		r.quotes.Put(quote.ID, header)

		for i := range quote.Lines {
			quote.Lines[i].QuoteRequestID = quote.ID
			r.putQuoteLine(&quote.Lines[i], now)
		}
		return nil
	})
}

func (r *MemoryRepository) putQuoteLine(line *domain.QuoteRequestLine, now time.Time) {
	if line.ID == 0 {
		line.ID = r.quoteLines.NextID()
		line.CreatedAt = now
	}
	line.UpdatedAt = now
	r.quoteLines.Put(line.ID, *line)
}

func (r *MemoryRepository) loadQuote(id uint) (*domain.QuoteRequest, error) {
	quote, ok := r.quotes.Get(id)
	if !ok || quote.DeletedAt.Valid {
		return nil, apperr.NotFound("quote request", id)
	}
	quote.Lines = r.quoteLines.Filter(func(l domain.QuoteRequestLine) bool { return l.QuoteRequestID == id })
	sort.SliceStable(quote.Lines, func(i, j int) bool { return quote.Lines[i].Position < quote.Lines[j].Position })
	return &quote, nil
}

func (r *MemoryRepository) FindQuote(ctx context.Context, id uint) (*domain.QuoteRequest, error) {
	var out *domain.QuoteRequest
	err := r.db.Run(ctx, func() error {
		var err error
		out, err = r.loadQuote(id)
		return err
	})
	return out, err
}

func (r *MemoryRepository) LockQuote(ctx context.Context, id uint) (*domain.QuoteRequest, error) {
	return r.FindQuote(ctx, id)
}

func (r *MemoryRepository) UpdateQuote(ctx context.Context, quote *domain.QuoteRequest) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.quotes.Get(quote.ID)
		if !ok {
			return apperr.NotFound("quote request", quote.ID)
		}
		header := *quote
		header.Lines = nil
		header.CreatedAt = stored.CreatedAt
		header.UpdatedAt = time.Now()
		quote.UpdatedAt = header.UpdatedAt
		r.quotes.Put(quote.ID, header)
		return nil
	})
}

func (r *MemoryRepository) ListQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteRequest, error) {
	var out []domain.QuoteRequest
	err := r.db.Run(ctx, func() error {
		acl := idSet(filter.DepartmentIDs)
		rows := r.quotes.Filter(func(q domain.QuoteRequest) bool {
			if q.DeletedAt.Valid {
				return false
			}
			if filter.Status != "" && q.Status != filter.Status {
				return false
			}
			if filter.All || q.CreatedByID == filter.CreatorID {
				return true
			}
			_, ok := acl[derefOrZero(q.DepartmentID)]
			return q.DepartmentID != nil && ok
		})
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
		for _, q := range paginate(rows, filter.Limit, filter.Offset) {
			full, err := r.loadQuote(q.ID)
			if err != nil {
				return err
			}
			out = append(out, *full)
		}
		return nil
	})
	return out, err
}

func (r *MemoryRepository) AddQuoteLine(ctx context.Context, line *domain.QuoteRequestLine) error {
	return r.db.Run(ctx, func() error {
		if _, ok := r.quotes.Get(line.QuoteRequestID); !ok {
			return apperr.NotFound("quote request", line.QuoteRequestID)
		}
		line.ID = 0
		r.putQuoteLine(line, time.Now())
		return nil
	})
}

func (r *MemoryRepository) UpdateQuoteLine(ctx context.Context, line *domain.QuoteRequestLine) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.quoteLines.Get(line.ID)
		if !ok || stored.QuoteRequestID != line.QuoteRequestID {
			return apperr.NotFound("quote request line", line.ID)
		}
		line.CreatedAt = stored.CreatedAt
		r.putQuoteLine(line, time.Now())
		return nil
	})
}

func (r *MemoryRepository) DeleteQuoteLine(ctx context.Context, quoteID, lineID uint) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.quoteLines.Get(lineID)
		if !ok || stored.QuoteRequestID != quoteID {
			return apperr.NotFound("quote request line", lineID)
		}
		r.quoteLines.Delete(lineID)
		return nil
	})
}

// Purchase orders

func (r *MemoryRepository) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	return r.db.Run(ctx, func() error {
		if order.OrderNumber != nil {
			for _, existing := range r.orders.All() {
				if existing.OrderNumber != nil && *existing.OrderNumber == *order.OrderNumber {
					return apperr.Validation("duplicate order number %q", *order.OrderNumber)
				}
			}
		}
		now := time.Now()
		order.ID = r.orders.NextID()
		order.CreatedAt, order.UpdatedAt = now, now
		order.DepartmentIDs = dedupe(order.DepartmentIDs)
		r.orders.Put(order.ID, orderHeader(order))

		for i := range order.Lines {
			order.Lines[i].PurchaseOrderID = order.ID
			r.putOrderLine(&order.Lines[i], now)
		}
		return nil
	})
}

func orderHeader(order *domain.PurchaseOrder) domain.PurchaseOrder {
	header := *order
	header.Lines = nil
	header.DepartmentIDs = append([]uint(nil), order.DepartmentIDs...)
	header.Signature = append([]byte(nil), order.Signature...)
	return header
}

func (r *MemoryRepository) putOrderLine(line *domain.PurchaseOrderLine, now time.Time) {
	if line.ID == 0 {
		line.ID = r.orderLines.NextID()
		line.CreatedAt = now
	}
	line.UpdatedAt = now
	r.orderLines.Put(line.ID, *line)
}

func (r *MemoryRepository) loadOrder(id uint) (*domain.PurchaseOrder, error) {
	stored, ok := r.orders.Get(id)
	if !ok || stored.DeletedAt.Valid {
		return nil, apperr.NotFound("purchase order", id)
	}
	order := orderHeader(&stored)
	order.Lines = r.orderLines.Filter(func(l domain.PurchaseOrderLine) bool { return l.PurchaseOrderID == id })
	sort.SliceStable(order.Lines, func(i, j int) bool { return order.Lines[i].Position < order.Lines[j].Position })
	return &order, nil
}

func (r *MemoryRepository) FindOrder(ctx context.Context, id uint) (*domain.PurchaseOrder, error) {
	var out *domain.PurchaseOrder
	err := r.db.Run(ctx, func() error {
		var err error
		out, err = r.loadOrder(id)
		return err
	})
	return out, err
}

func (r *MemoryRepository) LockOrder(ctx context.Context, id uint) (*domain.PurchaseOrder, error) {
	return r.FindOrder(ctx, id)
}

func (r *MemoryRepository) UpdateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.orders.Get(order.ID)
		if !ok || stored.DeletedAt.Valid {
			return apperr.NotFound("purchase order", order.ID)
		}
		header := orderHeader(order)
		header.CreatedAt = stored.CreatedAt
		header.DepartmentIDs = stored.DepartmentIDs
		header.UpdatedAt = time.Now()
		order.UpdatedAt = header.UpdatedAt
		r.orders.Put(order.ID, header)
		return nil
	})
}

func (r *MemoryRepository) DeleteOrder(ctx context.Context, id uint) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.orders.Get(id)
		if !ok || stored.DeletedAt.Valid {
			return apperr.NotFound("purchase order", id)
		}
		stored.DeletedAt.Time, stored.DeletedAt.Valid = time.Now(), true
		r.orders.Put(id, stored)
		return nil
	})
}

func (r *MemoryRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.PurchaseOrder, error) {
	var out []domain.PurchaseOrder
	err := r.db.Run(ctx, func() error {
		acl := idSet(filter.DepartmentIDs)
		rows := r.orders.Filter(func(o domain.PurchaseOrder) bool {
			if o.DeletedAt.Valid {
				return false
			}
			if filter.Status != "" && o.Status != filter.Status {
				return false
			}
			if filter.All {
				return true
			}
			if o.CreatedByID == filter.CreatorID && (o.ApprovedByID == nil || *o.ApprovedByID == filter.CreatorID) {
				return true
			}
			for _, id := range o.DepartmentIDs {
				if _, ok := acl[id]; ok {
					return true
				}
			}
			return false
		})
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
		for _, o := range paginate(rows, filter.Limit, filter.Offset) {
			full, err := r.loadOrder(o.ID)
			if err != nil {
				return err
			}
			out = append(out, *full)
		}
		return nil
	})
	return out, err
}

func (r *MemoryRepository) AddOrderLine(ctx context.Context, line *domain.PurchaseOrderLine) error {
	return r.db.Run(ctx, func() error {
		if _, ok := r.orders.Get(line.PurchaseOrderID); !ok {
			return apperr.NotFound("purchase order", line.PurchaseOrderID)
		}
		line.ID = 0
		r.putOrderLine(line, time.Now())
		return nil
	})
}

func (r *MemoryRepository) UpdateOrderLine(ctx context.Context, line *domain.PurchaseOrderLine) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.orderLines.Get(line.ID)
		if !ok || stored.PurchaseOrderID != line.PurchaseOrderID {
			return apperr.NotFound("purchase order line", line.ID)
		}
		line.CreatedAt = stored.CreatedAt
		r.putOrderLine(line, time.Now())
		return nil
	})
}

func (r *MemoryRepository) DeleteOrderLine(ctx context.Context, orderID, lineID uint) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.orderLines.Get(lineID)
		if !ok || stored.PurchaseOrderID != orderID {
			return apperr.NotFound("purchase order line", lineID)
		}
		r.orderLines.Delete(lineID)
		return nil
	})
}

func (r *MemoryRepository) SetOrderDepartments(ctx context.Context, orderID uint, departmentIDs []uint) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.orders.Get(orderID)
		if !ok || stored.DeletedAt.Valid {
			return apperr.NotFound("purchase order", orderID)
		}
		stored.DepartmentIDs = dedupe(departmentIDs)
		r.orders.Put(orderID, stored)
		return nil
	})
}

// Goods receipts

func (r *MemoryRepository) CreateGoodsReceipt(ctx context.Context, receipt *domain.GoodsReceipt) error {
	return r.db.Run(ctx, func() error {
		receipt.ID = r.receipts.NextID()
		header := *receipt
		header.Lines = nil
		r.receipts.Put(receipt.ID, header)

		for i := range receipt.Lines {
			receipt.Lines[i].GoodsReceiptID = receipt.ID
			receipt.Lines[i].ID = r.receiptLines.NextID()
			r.receiptLines.Put(receipt.Lines[i].ID, receipt.Lines[i])
		}
		return nil
	})
}

func (r *MemoryRepository) ListGoodsReceipts(ctx context.Context, orderID uint) ([]domain.GoodsReceipt, error) {
	var out []domain.GoodsReceipt
	err := r.db.Run(ctx, func() error {
		out = r.receipts.Filter(func(g domain.GoodsReceipt) bool { return g.PurchaseOrderID == orderID })
		for i := range out {
			id := out[i].ID
			out[i].Lines = r.receiptLines.Filter(func(l domain.GoodsReceiptLine) bool { return l.GoodsReceiptID == id })
		}
		return nil
	})
	return out, err
}

// Attachments

func (r *MemoryRepository) CreateAttachment(ctx context.Context, attachment *domain.Attachment) error {
	return r.db.Run(ctx, func() error {
		attachment.ID = r.attachments.NextID()
		attachment.CreatedAt = time.Now()
		r.attachments.Put(attachment.ID, *attachment)
		return nil
	})
}

func (r *MemoryRepository) FindAttachment(ctx context.Context, id uint) (*domain.Attachment, error) {
	var out *domain.Attachment
	err := r.db.Run(ctx, func() error {
		a, ok := r.attachments.Get(id)
		if !ok {
			return apperr.NotFound("attachment", id)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *MemoryRepository) ListAttachments(ctx context.Context, entityType string, entityID uint) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := r.db.Run(ctx, func() error {
		out = r.attachments.Filter(func(a domain.Attachment) bool {
			return a.EntityType == entityType && a.EntityID == entityID
		})
		return nil
	})
	return out, err
}

func idSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func derefOrZero(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}

func dedupe(ids []uint) []uint {
	set := idSet(ids)
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
