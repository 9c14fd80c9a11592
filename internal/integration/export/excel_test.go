package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestExcelExporterLayout(t *testing.T) {
	doc := Document{
		Title:   "Purchase order #12",
		Fields:  []Field{{Label: "Status", Value: "approved"}, {Label: "Supplier", Value: (*uint)(nil)}},
		Columns: []string{"Pos", "Order number", "Quantity", "Unit price"},
		Rows: [][]any{
			{1, "ABC-1", decimal.RequireFromString("5"), decimal.RequireFromString("12.50")},
		},
	}

	data, err := NewExcelExporter().Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1": "Purchase order #12",
		"A3": "Status",
		"B3": "approved",
		"A6": "Pos",
		"B7": "ABC-1",
		"D7": "12.5",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(sheet, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}
