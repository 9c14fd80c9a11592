package export

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type of rendered documents
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Field is a labelled header value of a document
type Field struct {
	Label string
	Value any
}

// Document is a read-only snapshot of an order or quote request
type Document struct {
	Title    string
	FileName string
	Fields   []Field
	Columns  []string
	Rows     [][]any
}

// Exporter renders documents
type Exporter interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// ExcelExporter renders documents as a single xlsx sheet: the header fields
// first, then the line table.
type ExcelExporter struct{}

// NewExcelExporter creates an xlsx exporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

const sheet = "Document"

// Render returns the xlsx bytes of doc
func (e *ExcelExporter) Render(ctx context.Context, doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	if err := f.SetCellValue(sheet, "A1", doc.Title); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(sheet, "A1", "A1", title)
	row += 2

	for _, field := range doc.Fields {
		label, _ := excelize.CoordinatesToCellName(1, row)
		value, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(sheet, label, field.Label); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(sheet, label, label, bold)
		if err := f.SetCellValue(sheet, value, cellValue(field.Value)); err != nil {
			return nil, err
		}
		row++
	}
	if len(doc.Fields) > 0 {
		row++
	}

	for i, column := range doc.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, column); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(sheet, cell, cell, bold)
	}
	row++

	for _, values := range doc.Rows {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return nil, err
			}
		}
		row++
	}

	if len(doc.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(doc.Columns))
		_ = f.SetColWidth(sheet, "A", last, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.InexactFloat64()
	case *decimal.Decimal:
		if t == nil {
			return ""
		}
		return t.InexactFloat64()
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *uint:
		if t == nil {
			return ""
		}
		return *t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	default:
		return v
	}
}
