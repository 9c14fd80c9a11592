package query

import (
	"context"
	"fmt"

	"github.com/tair/plantops/internal/integration/export"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/usecase"
)

// ExportedDocument is a rendered snapshot ready for download
type ExportedDocument struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportHandler renders quote requests and purchase orders
type ExportHandler struct {
	guard    *usecase.Guard
	exporter export.Exporter
}

// NewExportHandler creates a new export handler
func NewExportHandler(guard *usecase.Guard, exporter export.Exporter) *ExportHandler {
	return &ExportHandler{guard: guard, exporter: exporter}
}

// Order renders a purchase order
func (h *ExportHandler) Order(ctx context.Context, actor *orgdomain.Employee, id uint) (*ExportedDocument, error) {
	order, err := h.guard.Order(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return h.render(ctx, orderDocument(order))
}

// Quote renders a quote request
func (h *ExportHandler) Quote(ctx context.Context, actor *orgdomain.Employee, id uint) (*ExportedDocument, error) {
	quote, err := h.guard.Quote(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return h.render(ctx, quoteDocument(quote))
}

func (h *ExportHandler) render(ctx context.Context, doc export.Document) (*ExportedDocument, error) {
	data, err := h.exporter.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &ExportedDocument{FileName: doc.FileName, ContentType: export.ContentTypeXLSX, Data: data}, nil
}

func orderDocument(o *domain.PurchaseOrder) export.Document {
	number := fmt.Sprintf("#%d", o.ID)
	if o.OrderNumber != nil {
		number = *o.OrderNumber
	}
	doc := export.Document{
		Title:    "Purchase order " + number,
		FileName: fmt.Sprintf("purchase-order-%d.xlsx", o.ID),
		Fields: []export.Field{
			{Label: "Order", Value: number},
			{Label: "Supplier", Value: o.SupplierID},
			{Label: "Status", Value: string(o.Status)},
			{Label: "Created", Value: o.CreatedAt},
			{Label: "Submission note", Value: o.SubmissionNote},
			{Label: "Approved", Value: o.ApprovedAt},
			{Label: "Signature digest", Value: o.SignatureDigest},
			{Label: "Ordered", Value: o.OrderedAt},
			{Label: "Received", Value: o.ReceivedAt},
		},
		Columns: []string{"Pos", "Part", "Order number", "Description", "Ordered", "Received", "Unit", "Unit price", "Currency", "Total"},
	}
	for _, l := range o.Lines {
		doc.Rows = append(doc.Rows, []any{
			l.Position, l.PartID, l.OrderNumber, l.Description,
			l.QuantityOrdered, l.QuantityReceived, l.Unit,
			l.UnitPrice, l.Currency, l.UnitPrice.Mul(l.QuantityOrdered),
		})
	}
	return doc
}

func quoteDocument(q *domain.QuoteRequest) export.Document {
	doc := export.Document{
		Title:    fmt.Sprintf("Quote request #%d", q.ID),
		FileName: fmt.Sprintf("quote-request-%d.xlsx", q.ID),
		Fields: []export.Field{
			{Label: "Quote request", Value: q.ID},
			{Label: "Supplier", Value: q.SupplierID},
			{Label: "Status", Value: string(q.Status)},
			{Label: "Created", Value: q.CreatedAt},
			{Label: "Note", Value: q.Note},
			{Label: "Sent", Value: q.SentAt},
			{Label: "Quote received", Value: q.QuoteReceivedAt},
		},
		Columns: []string{"Pos", "Part", "Order number", "Description", "Quantity", "Unit", "Quoted price", "Currency"},
	}
	for _, l := range q.Lines {
		doc.Rows = append(doc.Rows, []any{
			l.Position, l.PartID, l.OrderNumber, l.Description,
			l.Quantity, l.Unit, l.QuotedPrice, l.QuotedCurrency,
		})
	}
	return doc
}
