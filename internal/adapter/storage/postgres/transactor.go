package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ledgerTxOptions pins the isolation level the ledger's locking relies on:
// SELECT ... FOR UPDATE under READ COMMITTED re-reads the latest committed
// row after the lock is granted, regardless of the server default.
var ledgerTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Transactor implements ports.DBTransactor on a pgx pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a READ COMMITTED database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.BeginTx(ctx, ledgerTxOptions)
}
