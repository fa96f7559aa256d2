package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeTopup   TransactionType = "TOPUP"
	TransactionTypePayment TransactionType = "PAYMENT"
)

// TransactionStatus represents the lifecycle state of a transaction.
// The only transitions are PENDING -> SUCCESS and PENDING -> FAILED.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// DefaultGatewayProvider is recorded when a gateway callback does not name one.
const DefaultGatewayProvider = "RAZORPAY"

// Transaction is a single ledger entry against a wallet.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	WalletID        uuid.UUID         `json:"wallet_id"`
	Amount          decimal.Decimal   `json:"amount"` // always > 0, sign comes from Type
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	TerminalID      *string           `json:"terminal_id,omitempty"`
	GatewayOrderID  *string           `json:"gateway_order_id,omitempty"`
	GatewayProvider *string           `json:"gateway_provider,omitempty"`
	Description     string            `json:"description"`
	CreatedAt       time.Time         `json:"created_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess ||
		t.Status == TransactionStatusFailed
}

// IsPending returns true while the transaction can still be settled.
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// Delta is the signed effect of the transaction on its wallet balance once it succeeds.
func (t *Transaction) Delta() decimal.Decimal {
	if t.Type == TransactionTypePayment {
		return t.Amount.Neg()
	}
	return t.Amount
}
