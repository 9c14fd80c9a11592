package labelprinter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.err
}

func TestNATSPrinterPublishesJob(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPrinter(conn, "labels.print")

	err := p.Print(context.Background(), Job{PartID: 4, PartNumber: "B-7", Quantity: decimal.NewFromInt(3)})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if conn.subject != "labels.print" {
		t.Fatalf("subject = %q", conn.subject)
	}

	var job Job
	if err := json.Unmarshal(conn.data, &job); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if job.JobID == "" || job.PartNumber != "B-7" || !job.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestNATSPrinterReportsPublishError(t *testing.T) {
	p := NewNATSPrinter(&fakeConn{err: errors.New("no responders")}, "labels.print")
	if err := p.Print(context.Background(), Job{PartID: 1}); err == nil {
		t.Fatal("expected error")
	}
}
