package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

type pgxPool interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool pgxPool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a read-committed read-write transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	return m.begin(ctx, pgx.TxOptions{})
}

// BeginSnapshot starts a read-only repeatable-read transaction so that every
// query of a report sees the same ledger state.
func (m *TxManager) BeginSnapshot(ctx context.Context) (usecase.Transaction, error) {
	return m.begin(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
}

// BeginSerializable starts a serializable read-write transaction.
func (m *TxManager) BeginSerializable(ctx context.Context) (usecase.Transaction, error) {
	return m.begin(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
}

func (m *TxManager) begin(ctx context.Context, opts pgx.TxOptions) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

// conn returns the transaction's connection, or db when tx is nil.
func conn(db generated.DBTX, tx usecase.Transaction) generated.DBTX {
	if t, ok := tx.(*Tx); ok && t != nil {
		return t.tx
	}
	return db
}
