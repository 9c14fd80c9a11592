package database

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs a unit of work atomically. Calls nested inside an active
// unit of work join it instead of opening a new one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTxKey struct{}

// GormTransactor is the PostgreSQL Transactor.
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a transactor over db
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or db bound to ctx when there
// is none. Repositories use it for every statement.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
