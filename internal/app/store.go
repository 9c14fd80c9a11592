package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	invdomain "github.com/tair/plantops/internal/inventory/domain"
	invrepo "github.com/tair/plantops/internal/inventory/repository"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	orgrepo "github.com/tair/plantops/internal/organization/repository"
	procdomain "github.com/tair/plantops/internal/procurement/domain"
	procrepo "github.com/tair/plantops/internal/procurement/repository"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/database"
	"github.com/tair/plantops/pkg/logger"
)

// Store bundles the repositories of one persistence backend. All
// repositories of a store share its transactor.
type Store struct {
	Organization orgdomain.Repository
	Inventory    invdomain.Repository
	Procurement  procdomain.Repository
	Tx           database.Transactor

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewPostgresStore connects to PostgreSQL, migrates the schema and wraps
// every repository with tracing
func NewPostgresStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := database.NewGormConnection(cfg)
	if err != nil {
		return nil, err
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	org := orgrepo.NewGormRepository(db)
	inv := invrepo.NewGormRepository(db)
	proc := procrepo.NewGormRepository(db)
	for _, m := range []interface{ AutoMigrate() error }{org, inv, proc} {
		if err := m.AutoMigrate(); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	logger.Logger.Info().Msg("Database initialized successfully")

	return &Store{
		Organization: orgrepo.NewRepositoryWithTracing(org),
		Inventory:    invrepo.NewRepositoryWithTracing(inv),
		Procurement:  procrepo.NewRepositoryWithTracing(proc),
		Tx:           database.NewGormTransactor(db),
		ping:         sqlDB.PingContext,
		close:        sqlDB.Close,
	}, nil
}

// NewMemoryStore creates a process-local store. State is lost on exit.
func NewMemoryStore() *Store {
	db := database.NewMemoryDB()
	return &Store{
		Organization: orgrepo.NewMemoryRepository(db),
		Inventory:    invrepo.NewMemoryRepository(db),
		Procurement:  procrepo.NewMemoryRepository(db),
		Tx:           db,
	}
}
