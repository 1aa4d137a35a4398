package pg

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type txContextKey string

const txKey txContextKey = "trx"

// DB holds a read/write connection pair. Repositories pick the right
// side via Read(ctx)/Write(ctx); an open transaction in the context
// always wins so that multi-repository units of work stay atomic.
type DB struct {
	read  *gorm.DB
	write *gorm.DB
}

func Open(cfg Config, withDebug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}
	if withDebug {
		db = db.Debug()
	}
	return db, nil
}

func OpenReadWrite(readCfg, writeCfg Config, withDebug bool) (*DB, error) {
	read, err := Open(readCfg, withDebug)
	if err != nil {
		return nil, fmt.Errorf("open read pool: %w", err)
	}
	write, err := Open(writeCfg, withDebug)
	if err != nil {
		return nil, fmt.Errorf("open write pool: %w", err)
	}
	return &DB{read: read, write: write}, nil
}

// WithinTransaction runs fn inside a single database transaction. The
// transaction handle travels in the context, so every repository call
// made through Read/Write inside fn joins the same transaction.
func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, txKey, tx)
		return fn(ctx)
	})
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return r.write.WithContext(ctx)
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return r.read.WithContext(ctx)
}
