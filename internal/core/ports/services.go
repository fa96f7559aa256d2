package ports

import (
	"context"
	"time"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EmbeddingVault seals palm vectors at rest with an authenticated cipher.
type EmbeddingVault interface {
	Encrypt(vector []float64) ([]byte, error)
	Decrypt(ciphertext []byte) ([]float64, error)
}

// IdentityResolver matches a query vector against enrolled embeddings.
// A nil Match with a nil error means no candidate reached the threshold.
type IdentityResolver interface {
	Resolve(ctx context.Context, query []float64, candidates []domain.EnrolledEmbedding) (*Match, error)
	Verify(ctx context.Context, query []float64, candidate domain.EnrolledEmbedding) (*Match, error)
}

// Match is the identity whose embedding best matched a query.
type Match struct {
	IdentityID uuid.UUID
	Score      float64
}

// EmbeddingExtractor turns a raw palm capture into a feature vector.
type EmbeddingExtractor interface {
	Extract(ctx context.Context, artifact []byte) ([]float64, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// HashService handles secret hashing (Argon2id) for PINs and terminal API keys.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(identityID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	IdentityID uuid.UUID
}

// ProcessedEventCache remembers settled transactions so replayed gateway
// callbacks can be answered without touching the database.
type ProcessedEventCache interface {
	IsProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the only writer of wallet balances and transactions.
type LedgerService interface {
	CreateWallet(ctx context.Context, identityID uuid.UUID, currency string) (*domain.Wallet, error)
	OpenTopup(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error)
	CompleteTopup(ctx context.Context, txID uuid.UUID, externalOrderID, provider string) (*LedgerResult, error)
	FailTopup(ctx context.Context, txID uuid.UUID, externalOrderID, provider string) (*domain.Transaction, error)
	Debit(ctx context.Context, req DebitRequest) (*LedgerResult, error)
}

// DebitRequest holds validated input for a synchronous wallet debit.
type DebitRequest struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	OriginRef   *string // terminal id, when the debit came from a terminal
	Description string
}

// LedgerResult is the committed state after a balance mutation.
type LedgerResult struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
}

// WalletService exposes read paths and PIN management for wallet owners.
type WalletService interface {
	GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	GetBalanceWithPIN(ctx context.Context, identityID uuid.UUID, pin string) (*domain.Wallet, error)
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*domain.Wallet, error)
	SetPIN(ctx context.Context, identityID uuid.UUID, pin string) error
	VerifyPIN(ctx context.Context, identityID uuid.UUID, pin string) error
	ListTransactions(ctx context.Context, identityID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	ListPendingTopups(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Transaction, error)
}

// EmbeddingInput is a palm sample given either as a vector or as a raw capture.
// Exactly one of the two must be set.
type EmbeddingInput struct {
	Vector   []float64
	Artifact []byte
}

// EnrollmentService registers palm embeddings.
type EnrollmentService interface {
	Enroll(ctx context.Context, identityID uuid.UUID, input EmbeddingInput) (*EnrollResult, error)
}

// EnrollResult describes a completed enrollment.
type EnrollResult struct {
	IdentityID uuid.UUID
	WalletID   uuid.UUID
	Dimensions int
	Replaced   bool
}

// PayMode selects how a palm payment is authorised.
type PayMode string

const (
	// PayModeTerminal is a registered terminal running a full 1:N scan.
	PayModeTerminal PayMode = "TERMINAL"
	// PayModeDirect narrows the scan to the identity owning a phone number (1:1).
	PayModeDirect PayMode = "DIRECT"
)

// AuthContext identifies the caller of a palm payment.
type AuthContext struct {
	Mode       PayMode
	TerminalID string
	APIKey     string
	Phone      string
}

// PaymentService executes pay-by-palm requests end to end.
type PaymentService interface {
	ResolveAndPay(ctx context.Context, req PayRequest) (*PayResult, error)
}

// PayRequest holds the input for a palm payment.
type PayRequest struct {
	Auth      AuthContext
	Input     EmbeddingInput
	Amount    decimal.Decimal
	OriginRef string
}

// PayResult is returned after a successful palm payment.
type PayResult struct {
	IdentityID    uuid.UUID
	WalletID      uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	NewBalance    decimal.Decimal
	Currency      string
	Score         float64
}

// GatewayReconciler applies signed payment-gateway callbacks to the ledger.
type GatewayReconciler interface {
	Reconcile(ctx context.Context, rawPayload []byte, signature string) (*ReconcileResult, error)
}

// ReconcileResult describes how a verified gateway callback was handled.
type ReconcileResult struct {
	Outcome       domain.GatewayOutcome
	EventType     string
	TransactionID *uuid.UUID
}

// TopupService starts wallet top-ups: it opens the PENDING ledger entry and
// the gateway order the customer pays against.
type TopupService interface {
	StartTopup(ctx context.Context, identityID uuid.UUID, amount decimal.Decimal) (*TopupCheckout, error)
}

// TopupCheckout is what a client needs to pay for a top-up. Order is nil
// when no gateway order client is configured.
type TopupCheckout struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
	Order       *GatewayOrder
}

// GatewayOrderClient opens a checkout order at the payment gateway for a
// PENDING top-up. The order carries the transaction id back to us in its
// notes, which is how callbacks find the top-up.
type GatewayOrderClient interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
}

// GatewayOrderRequest describes the top-up an order is opened for.
type GatewayOrderRequest struct {
	TransactionID uuid.UUID
	IdentityID    uuid.UUID
	Amount        decimal.Decimal
	Currency      string
}

// GatewayOrder is the order as the gateway created it. KeyID is the public
// key the client needs to start checkout.
type GatewayOrder struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	KeyID    string
}

// AuditService records audit entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
