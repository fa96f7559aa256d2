package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func nowUTC() time.Time { return time.Now().UTC() }

// --- Wallets ---

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

// NewWalletRepo creates a WalletRepo backed by s.
func NewWalletRepo(s *Store) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) CreateIfAbsent(_ context.Context, w *domain.Wallet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.walletByIdentity[w.IdentityID]; ok {
		return false, nil
	}
	r.s.wallets[w.ID] = *w
	r.s.walletByIdentity[w.IdentityID] = w.ID
	return true, nil
}

func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	id, ok := r.s.walletByIdentity[identityID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// GetByIDForUpdate locks the wallet row until tx ends.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	w, err := r.GetByID(ctx, id)
	if err != nil || w == nil {
		return nil, err
	}
	if err := t.lock(ctx, walletKey(id)); err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	// Re-read under the lock; a previous holder may have committed.
	w, _ = r.GetByID(ctx, id)
	t.mu.Lock()
	if staged, ok := t.balances[id]; ok {
		w.Balance = staged
	}
	t.mu.Unlock()
	return w, nil
}

func (r *WalletRepo) UpdateBalance(_ context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return fmt.Errorf("update balance: wallet %s would go negative", walletID)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.held[walletKey(walletID)]; !ok {
		return fmt.Errorf("update balance: wallet %s is not locked by this transaction", walletID)
	}
	t.balances[walletID] = balance
	return nil
}

func (r *WalletRepo) UpdatePinHash(_ context.Context, walletID uuid.UUID, pinHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[walletID]
	if !ok {
		return fmt.Errorf("update pin: wallet %s not found", walletID)
	}
	w.PinHash = &pinHash
	w.UpdatedAt = nowUTC()
	r.s.wallets[walletID] = w
	return nil
}

// --- Transactions ---

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ s *Store }

// NewTransactionRepo creates a TransactionRepo backed by s.
func NewTransactionRepo(s *Store) *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inserts = append(t.inserts, *txn)
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	txn, ok := r.s.transactions[id]
	if !ok {
		return nil, nil
	}
	return &txn, nil
}

// GetByIDForUpdate locks the transaction row until tx ends.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	staged, ok := t.stagedTransaction(id)
	t.mu.Unlock()
	if ok {
		return &staged, nil
	}

	txn, err := r.GetByID(ctx, id)
	if err != nil || txn == nil {
		return nil, err
	}
	if err := t.lock(ctx, transactionKey(id)); err != nil {
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	txn, _ = r.GetByID(ctx, id)
	return txn, nil
}

// Settle stages a PENDING -> final transition. It reports ports.ErrNotPending
// when the committed row, or an earlier settle in this tx, already left PENDING.
func (r *TransactionRepo) Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, update ports.SettleUpdate) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ports.ErrNotPending
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, settled := t.settles[id]; settled || !current.IsPending() {
		return ports.ErrNotPending
	}
	t.settles[id] = update
	return nil
}

func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	var result []domain.Transaction
	for _, txn := range r.s.transactions {
		if txn.WalletID != params.WalletID {
			continue
		}
		if params.Status != nil && txn.Status != *params.Status {
			continue
		}
		if params.Type != nil && txn.Type != *params.Type {
			continue
		}
		result = append(result, txn)
	}
	r.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return lessUUID(result[j].ID, result[i].ID)
	})
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *TransactionRepo) ListPending(_ context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	var result []domain.Transaction
	for _, txn := range r.s.transactions {
		if txn.Type == domain.TransactionTypeTopup && txn.IsPending() && txn.CreatedAt.Before(olderThan) {
			result = append(result, txn)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- Embeddings ---

// EmbeddingRepo implements ports.EmbeddingRepository.
type EmbeddingRepo struct{ s *Store }

// NewEmbeddingRepo creates an EmbeddingRepo backed by s.
func NewEmbeddingRepo(s *Store) *EmbeddingRepo { return &EmbeddingRepo{s: s} }

func (r *EmbeddingRepo) Upsert(_ context.Context, e *domain.EnrolledEmbedding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *e
	row.Ciphertext = append([]byte(nil), e.Ciphertext...)
	if existing, ok := r.s.embeddings[e.IdentityID]; ok {
		row.CreatedAt = existing.CreatedAt
	}
	r.s.embeddings[e.IdentityID] = row
	return nil
}

func (r *EmbeddingRepo) GetByIdentityID(_ context.Context, identityID uuid.UUID) (*domain.EnrolledEmbedding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.embeddings[identityID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *EmbeddingRepo) ListAll(_ context.Context) ([]domain.EnrolledEmbedding, error) {
	r.s.mu.RLock()
	list := make([]domain.EnrolledEmbedding, 0, len(r.s.embeddings))
	for _, e := range r.s.embeddings {
		list = append(list, e)
	}
	r.s.mu.RUnlock()
	sortEmbeddings(list)
	return list, nil
}

// --- Identities ---

// IdentityRepo implements ports.IdentityRepository.
type IdentityRepo struct{ s *Store }

// NewIdentityRepo creates an IdentityRepo backed by s.
func NewIdentityRepo(s *Store) *IdentityRepo { return &IdentityRepo{s: s} }

func (r *IdentityRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (r *IdentityRepo) GetByPhone(_ context.Context, phone string) (*domain.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, identity := range r.s.identities {
		if identity.Phone == phone {
			return &identity, nil
		}
	}
	return nil, nil
}

func (r *IdentityRepo) MarkPalmRegistered(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return fmt.Errorf("mark palm registered: identity %s not found", id)
	}
	identity.PalmRegistered = true
	r.s.identities[id] = identity
	return nil
}

// --- Terminals ---

// TerminalRepo implements ports.TerminalRepository.
type TerminalRepo struct{ s *Store }

// NewTerminalRepo creates a TerminalRepo backed by s.
func NewTerminalRepo(s *Store) *TerminalRepo { return &TerminalRepo{s: s} }

func (r *TerminalRepo) GetByTerminalID(_ context.Context, terminalID string) (*domain.Terminal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.terminals[terminalID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// --- Gateway events & audit ---

// GatewayEventRepo implements ports.GatewayEventRepository.
type GatewayEventRepo struct{ s *Store }

// NewGatewayEventRepo creates a GatewayEventRepo backed by s.
func NewGatewayEventRepo(s *Store) *GatewayEventRepo { return &GatewayEventRepo{s: s} }

func (r *GatewayEventRepo) Create(_ context.Context, e *domain.GatewayEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.gatewayEvents = append(r.s.gatewayEvents, *e)
	return nil
}

// Events returns a copy of the recorded gateway events, oldest first.
func (r *GatewayEventRepo) Events() []domain.GatewayEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.GatewayEvent(nil), r.s.gatewayEvents...)
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

// NewAuditRepo creates an AuditRepo backed by s.
func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auditLogs = append(r.s.auditLogs, *entry)
	return nil
}

// Entries returns a copy of the recorded audit entries, oldest first.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.auditLogs...)
}
