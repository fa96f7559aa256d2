package memory

import (
	"context"
	"errors"
	"sync"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Tx stages writes and applies them atomically on Commit. Only the methods
// used by the repositories are implemented; the embedded pgx.Tx is nil.
type Tx struct {
	pgx.Tx

	store *Store

	mu       sync.Mutex
	held     map[string]chan struct{}
	balances map[uuid.UUID]decimal.Decimal
	inserts  []domain.Transaction
	settles  map[uuid.UUID]ports.SettleUpdate
	closed   bool
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:    s,
		held:     make(map[string]chan struct{}),
		balances: make(map[uuid.UUID]decimal.Decimal),
		settles:  make(map[uuid.UUID]ports.SettleUpdate),
	}
}

func asTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, errForeignTx
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// lock takes the row lock for key unless this transaction already holds it.
func (t *Tx) lock(ctx context.Context, key string) error {
	t.mu.Lock()
	_, ok := t.held[key]
	t.mu.Unlock()
	if ok {
		return nil
	}

	ch, err := t.store.acquire(ctx, key)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		<-ch
		return pgx.ErrTxClosed
	}
	t.held[key] = ch
	return nil
}

// Commit applies staged writes and releases every row lock.
func (t *Tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}

	s := t.store
	s.mu.Lock()
	for id, balance := range t.balances {
		w := s.wallets[id]
		w.Balance = balance
		w.UpdatedAt = nowUTC()
		s.wallets[id] = w
	}
	for _, txn := range t.inserts {
		s.transactions[txn.ID] = txn
	}
	for id, u := range t.settles {
		txn := s.transactions[id]
		txn.Status = u.Status
		txn.GatewayOrderID = u.GatewayOrderID
		txn.GatewayProvider = u.GatewayProvider
		processed := u.ProcessedAt
		txn.ProcessedAt = &processed
		s.transactions[id] = txn
	}
	s.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards staged writes and releases every row lock. Calling it
// after Commit returns pgx.ErrTxClosed, as pgx does.
func (t *Tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	for _, ch := range t.held {
		<-ch
	}
	t.held = nil
	t.closed = true
}

func (t *Tx) stagedTransaction(id uuid.UUID) (domain.Transaction, bool) {
	for i := len(t.inserts) - 1; i >= 0; i-- {
		if t.inserts[i].ID == id {
			return t.inserts[i], true
		}
	}
	return domain.Transaction{}, false
}
