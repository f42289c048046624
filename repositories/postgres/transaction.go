package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/newsroom-api/repositories"
	"go.uber.org/zap"
)

// txKey carries the open *sql.Tx of an issue write
type txKey struct{}

// TxManager opens the transactions that issue writes run in
type TxManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a TxManager over db
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TxManager{db: db, logger: logger}
}

// Begin opens a transaction. Repository calls made with the returned
// transaction's Context() execute on it.
func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &tx{
		sqlTx:  sqlTx,
		ctx:    context.WithValue(ctx, txKey{}, sqlTx),
		logger: m.logger,
	}, nil
}

type tx struct {
	sqlTx  *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

func (t *tx) Commit() error {
	if err := t.sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op once the transaction has finished
func (t *tx) Rollback() error {
	err := t.sqlTx.Rollback()
	switch {
	case err == nil:
		t.logger.Debug("issue write rolled back")
		return nil
	case errors.Is(err, sql.ErrTxDone):
		return nil
	default:
		return fmt.Errorf("rollback transaction: %w", err)
	}
}

func (t *tx) Context() context.Context {
	return t.ctx
}

// Executor is the query surface shared by *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetExecutor returns the transaction opened by Begin when ctx carries one,
// otherwise the pool
func GetExecutor(ctx context.Context, db *DB) Executor {
	if sqlTx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return sqlTx
	}
	return db.DB
}
