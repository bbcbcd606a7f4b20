package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/common"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

type ctxKey string

const txCtxKey = ctxKey("TX")

// SQLSTATE of a unique constraint violation
const uniqueViolation = "23505"

func contextGetTX(ctx context.Context) *TX {
	tx, ok := ctx.Value(txCtxKey).(*TX)
	if !ok {
		return nil
	}
	return tx
}

// queryer is satisfied by both *sqlx.DB & *sqlx.Tx
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

type DB struct {
	*sqlx.DB
}

func OpenDB(cfg *common.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConn)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConn)
	db.SetConnMaxIdleTime(cfg.DB.MaxIdleConnTime)
	return &DB{db}, nil
}

// RunMigrations applies the embedded schema, every statement in it is idempotent
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// conn returns the transaction carried by ctx, if any, otherwise the pool
func (db *DB) conn(ctx context.Context) queryer {
	if tx := contextGetTX(ctx); tx != nil {
		return tx
	}
	return db.DB
}

type TX struct {
	*sqlx.Tx
}

func (db *DB) BeginTx(ctx context.Context) (*TX, error) {
	txx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &TX{txx}, err
}

// RunInTX runs fn with a context carrying the transaction, nested calls join the outer transaction.
func (db *DB) RunInTX(ctx context.Context, fn func(ctx context.Context) error) error {
	if contextGetTX(ctx) != nil {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ctx = context.WithValue(ctx, txCtxKey, tx)
	if err = fn(ctx); err != nil {
		return err
	}
	return tx.Commit()
}
