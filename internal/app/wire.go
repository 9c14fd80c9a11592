//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/plantops/internal/integration/notify"
	"github.com/tair/plantops/internal/inventory"
	"github.com/tair/plantops/internal/organization"
	"github.com/tair/plantops/internal/procurement"
	"github.com/tair/plantops/pkg/httputil"
)

// IntegrationSet provides the external collaborators
var IntegrationSet = wire.NewSet(
	ProvideTokenService,
	ProvideTreeLocker,
	ProvideTreeChangePublisher,
	ProvideNotifier,
	wire.Bind(new(notify.Trigger), new(*notify.Dispatcher)),
	ProvideLabelPrinter,
	ProvideAttachmentStore,
	ProvideExporter,
)

// InitializeServer builds the server with all dependencies
func InitializeServer(infra *Infrastructure, reg prometheus.Registerer) (*Server, func(), error) {
	wire.Build(
		wire.FieldsOf(new(*Infrastructure), "Config", "Store"),
		wire.FieldsOf(new(*Store), "Organization", "Inventory", "Procurement", "Tx"),
		IntegrationSet,
		httputil.NewMetrics,
		organization.ProviderSet,
		inventory.ProviderSet,
		procurement.ProviderSet,
		NewServer,
	)
	return nil, nil, nil
}
