package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/plantops/internal/integration/attachments"
	"github.com/tair/plantops/internal/integration/export"
	"github.com/tair/plantops/internal/integration/labelprinter"
	"github.com/tair/plantops/internal/integration/notify"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/treelock"
	"github.com/tair/plantops/pkg/auth"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/logger"
)

const notificationBuffer = 256

// ProvideTokenService provides the JWT token service
func ProvideTokenService(cfg config.Config) *auth.TokenService {
	return auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
}

// ProvideTreeLocker uses a Redis lock when Redis is configured so that
// several instances can share one database
func ProvideTreeLocker(infra *Infrastructure) orgdomain.TreeLocker {
	if infra.Redis != nil {
		return treelock.NewRedisLocker(infra.Redis, 0)
	}
	return treelock.NewLocalLocker()
}

// ProvideTreeChangePublisher returns nil without Kafka
func ProvideTreeChangePublisher(infra *Infrastructure) orgdomain.TreeChangePublisher {
	if infra.Publisher == nil {
		return nil
	}
	return infra.Publisher
}

// ProvideNotifier starts the notification dispatcher. The cleanup drains
// pending events.
func ProvideNotifier(infra *Infrastructure, reg prometheus.Registerer) (*notify.Dispatcher, func()) {
	var sink notify.Sink = notify.LogSink{}
	if infra.Publisher != nil {
		sink = notify.NewKafkaSink(infra.Publisher)
	}
	d := notify.NewDispatcher(sink, notificationBuffer, reg)
	return d, d.Close
}

// ProvideLabelPrinter publishes print jobs over NATS or logs them
func ProvideLabelPrinter(infra *Infrastructure) labelprinter.Printer {
	if infra.NATS != nil {
		return labelprinter.NewNATSPrinter(infra.NATS, infra.Config.NATS.LabelSubject)
	}
	logger.Logger.Warn().Msg("NATS disabled, label print jobs are only logged")
	return labelprinter.LogPrinter{}
}

// ProvideAttachmentStore stores attachments in S3 or in memory
func ProvideAttachmentStore(infra *Infrastructure) attachments.Store {
	if infra.S3 != nil {
		return attachments.NewS3Store(infra.S3, infra.Config.S3.Bucket)
	}
	logger.Logger.Warn().Msg("S3 disabled, attachments are kept in memory")
	return attachments.NewMemoryStore()
}

// ProvideExporter provides the spreadsheet exporter
func ProvideExporter() export.Exporter {
	return export.NewExcelExporter()
}
