package ports

import (
	"context"
	"time"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	// CreateIfAbsent inserts the wallet unless the identity already owns one.
	// created is false when another wallet won the race.
	CreateIfAbsent(ctx context.Context, wallet *domain.Wallet) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
	UpdatePinHash(ctx context.Context, walletID uuid.UUID, pinHash string) error
}

// TransactionRepository defines persistence operations for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	// Settle moves a PENDING transaction to a final status. It affects no row
	// (and returns ErrNotPending) if the transaction already left PENDING.
	Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, update SettleUpdate) error
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)
}

// SettleUpdate carries the final state written by TransactionRepository.Settle.
type SettleUpdate struct {
	Status          domain.TransactionStatus
	GatewayOrderID  *string
	GatewayProvider *string
	ProcessedAt     time.Time
}

// TransactionListParams holds filter + pagination for a wallet statement.
type TransactionListParams struct {
	WalletID uuid.UUID
	Status   *domain.TransactionStatus
	Type     *domain.TransactionType
	Page     int
	PageSize int
}

// EmbeddingRepository stores one encrypted palm vector per identity.
type EmbeddingRepository interface {
	// Upsert inserts or replaces the identity's embedding.
	Upsert(ctx context.Context, embedding *domain.EnrolledEmbedding) error
	GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*domain.EnrolledEmbedding, error)
	// ListAll returns every enrolled embedding in a stable order
	// (enrollment time, then identity id).
	ListAll(ctx context.Context) ([]domain.EnrolledEmbedding, error)
}

// IdentityRepository reads identities owned by the signup/KYC workflow.
type IdentityRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Identity, error)
	MarkPalmRegistered(ctx context.Context, id uuid.UUID) error
}

// TerminalRepository reads the registry of point-of-sale terminals.
type TerminalRepository interface {
	GetByTerminalID(ctx context.Context, terminalID string) (*domain.Terminal, error)
}

// GatewayEventRepository keeps a log of verified gateway callbacks.
type GatewayEventRepository interface {
	Create(ctx context.Context, event *domain.GatewayEvent) error
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
