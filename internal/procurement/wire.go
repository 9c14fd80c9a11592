package procurement

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/plantops/internal/integration/attachments"
	"github.com/tair/plantops/internal/integration/labelprinter"
	"github.com/tair/plantops/internal/integration/notify"
	invdomain "github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	invusecase "github.com/tair/plantops/internal/inventory/usecase"
	"github.com/tair/plantops/internal/organization/access"
	"github.com/tair/plantops/internal/procurement/delivery/http"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/usecase"
	"github.com/tair/plantops/internal/procurement/usecase/command"
	"github.com/tair/plantops/internal/procurement/usecase/query"
	"github.com/tair/plantops/pkg/database"
)

// ProvideDependencies collects the collaborators of the procurement commands
func ProvideDependencies(
	repo domain.Repository,
	tx database.Transactor,
	guard *usecase.Guard,
	resolver *access.Resolver,
	parts invdomain.Repository,
	partGuard *invusecase.PartGuard,
	l *ledger.Ledger,
	notifier notify.Trigger,
	printer labelprinter.Printer,
	store attachments.Store,
	reg prometheus.Registerer,
) *command.Dependencies {
	return &command.Dependencies{
		Repo:      repo,
		Tx:        tx,
		Guard:     guard,
		Resolver:  resolver,
		Parts:     parts,
		PartGuard: partGuard,
		Ledger:    l,
		Notifier:  notifier,
		Printer:   printer,
		Store:     store,
		Metrics:   command.NewMetrics(reg),
	}
}

// ProvideCommands groups the procurement command handlers
func ProvideCommands(d *command.Dependencies) http.Commands {
	return http.Commands{
		CreateQuote:     command.NewCreateQuoteHandler(d),
		QuoteLines:      command.NewQuoteLinesHandler(d),
		QuoteTransition: command.NewQuoteTransitionHandler(d),
		AcceptPrices:    command.NewAcceptQuotedPricesHandler(d),
		OrderFromQuote:  command.NewCreateOrderFromQuoteHandler(d),
		CreateOrder:     command.NewCreateOrderHandler(d),
		OrderLines:      command.NewOrderLinesHandler(d),
		OrderACL:        command.NewSetOrderDepartmentsHandler(d),
		OrderTransition: command.NewOrderTransitionHandler(d),
		ReceiveGoods:    command.NewReceiveGoodsHandler(d),
		Attach:          command.NewAttachHandler(d),
	}
}

// ProvideQueries groups the procurement query handlers
func ProvideQueries(
	getQuote *query.GetQuoteHandler,
	listQuotes *query.ListQuotesHandler,
	getOrder *query.GetOrderHandler,
	listOrders *query.ListOrdersHandler,
	receipts *query.ListGoodsReceiptsHandler,
	files *query.AttachmentsHandler,
	export *query.ExportHandler,
) http.Queries {
	return http.Queries{
		GetQuote:    getQuote,
		ListQuotes:  listQuotes,
		GetOrder:    getOrder,
		ListOrders:  listOrders,
		Receipts:    receipts,
		Attachments: files,
		Export:      export,
	}
}

// ProviderSet wires the procurement context
var ProviderSet = wire.NewSet(
	usecase.NewGuard,
	ProvideDependencies,
	ProvideCommands,
	query.NewGetQuoteHandler,
	query.NewListQuotesHandler,
	query.NewGetOrderHandler,
	query.NewListOrdersHandler,
	query.NewListGoodsReceiptsHandler,
	query.NewAttachmentsHandler,
	query.NewExportHandler,
	ProvideQueries,
	http.NewProcurementHandler,
)
