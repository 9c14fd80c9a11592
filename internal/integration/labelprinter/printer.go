package labelprinter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/pkg/logger"
)

// Job is a request to print a label for a part
type Job struct {
	JobID       string          `json:"job_id"`
	PartID      uint            `json:"part_id"`
	PartNumber  string          `json:"part_number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reference   string          `json:"reference"`
	RequestedBy uint            `json:"requested_by"`
	RequestedAt time.Time       `json:"requested_at"`
}

// Printer prints part labels. Print is fire-and-forget from the caller's
// point of view; errors are reported for logging only.
type Printer interface {
	Print(ctx context.Context, job Job) error
}

// Publisher is the subset of *nats.Conn used by NATSPrinter
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPrinter sends print jobs to the label print service over NATS
type NATSPrinter struct {
	conn    Publisher
	subject string
}

// NewNATSPrinter creates a printer publishing on subject
func NewNATSPrinter(conn Publisher, subject string) *NATSPrinter {
	return &NATSPrinter{conn: conn, subject: subject}
}

// Connect opens a reconnecting NATS connection for the printer
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("plantops-labels"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Logger.Info().Str("url", url).Msg("NATS connection established")
	return nc, nil
}

// Print publishes job
func (p *NATSPrinter) Print(ctx context.Context, job Job) error {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal print job: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish print job: %w", err)
	}
	logger.Debug(ctx).Str("job_id", job.JobID).Uint("part_id", job.PartID).Msg("Label print job published")
	return nil
}

// LogPrinter logs print jobs instead of printing
type LogPrinter struct{}

// Print logs job
func (LogPrinter) Print(ctx context.Context, job Job) error {
	logger.Info(ctx).
		Uint("part_id", job.PartID).
		Str("part_number", job.PartNumber).
		Str("quantity", job.Quantity.String()).
		Str("reference", job.Reference).
		Msg("Label print requested")
	return nil
}
