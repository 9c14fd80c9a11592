package inventory

import (
	"github.com/google/wire"

	"github.com/tair/plantops/internal/inventory/delivery/http"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/internal/inventory/usecase"
	"github.com/tair/plantops/internal/inventory/usecase/command"
	"github.com/tair/plantops/internal/inventory/usecase/query"
)

// ProvideCommands groups the inventory command handlers
func ProvideCommands(
	createPart *command.CreatePartHandler,
	setSuccessor *command.SetSuccessorHandler,
	endOfLife *command.MarkEndOfLifeHandler,
	setDepartments *command.SetPartDepartmentsHandler,
	bookStock *command.BookStockHandler,
	reverse *command.ReverseMovementHandler,
) http.Commands {
	return http.Commands{
		CreatePart:     createPart,
		SetSuccessor:   setSuccessor,
		EndOfLife:      endOfLife,
		SetDepartments: setDepartments,
		BookStock:      bookStock,
		Reverse:        reverse,
	}
}

// ProvideQueries groups the inventory query handlers
func ProvideQueries(
	getPart *query.GetPartHandler,
	listParts *query.ListPartsHandler,
	listMovements *query.ListMovementsHandler,
	replay *query.ReplayPartHandler,
	audit *query.AuditHandler,
) http.Queries {
	return http.Queries{
		GetPart:       getPart,
		ListParts:     listParts,
		ListMovements: listMovements,
		Replay:        replay,
		Audit:         audit,
	}
}

// ProviderSet wires the inventory context
var ProviderSet = wire.NewSet(
	ledger.NewLedger,
	usecase.NewPartGuard,
	command.NewCreatePartHandler,
	command.NewSetSuccessorHandler,
	command.NewMarkEndOfLifeHandler,
	command.NewSetPartDepartmentsHandler,
	command.NewBookStockHandler,
	command.NewReverseMovementHandler,
	query.NewGetPartHandler,
	query.NewListPartsHandler,
	query.NewListMovementsHandler,
	query.NewReplayPartHandler,
	query.NewAuditHandler,
	ProvideCommands,
	ProvideQueries,
	http.NewInventoryHandler,
)
