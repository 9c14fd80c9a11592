package organization

import (
	"github.com/google/wire"

	"github.com/tair/plantops/internal/organization/access"
	"github.com/tair/plantops/internal/organization/delivery/http"
	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/graph"
	"github.com/tair/plantops/internal/organization/usecase/command"
	"github.com/tair/plantops/internal/organization/usecase/query"
)

// ProvideGraphCache provides the process-wide department graph cache
func ProvideGraphCache(repo domain.Repository) *graph.Cache {
	return graph.NewCache(repo)
}

// ProviderSet wires the organization context
var ProviderSet = wire.NewSet(
	ProvideGraphCache,
	wire.Bind(new(access.GraphSource), new(*graph.Cache)),
	access.NewResolver,
	command.NewTreeEditor,
	command.NewCreateDepartmentHandler,
	command.NewMoveDepartmentHandler,
	command.NewRenameDepartmentHandler,
	command.NewDeactivateDepartmentHandler,
	query.NewVisibleDepartmentsHandler,
	http.NewOrganizationHandler,
	http.NewAuthenticator,
)
