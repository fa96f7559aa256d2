package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a wallet is opened without an explicit currency.
const DefaultCurrency = "INR"

// AmountScale is the number of decimal places balances and amounts are stored with.
const AmountScale = 2

// ValidAmount reports whether amount is positive and representable in minor
// units without rounding.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(AmountScale))
}

// Wallet is the prepaid balance owned by a single identity.
type Wallet struct {
	ID         uuid.UUID       `json:"id"`
	IdentityID uuid.UUID       `json:"identity_id"`
	Balance    decimal.Decimal `json:"balance"` // never negative
	Currency   string          `json:"currency"`
	PinHash    *string         `json:"-"` // Argon2id, never expose
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// HasPIN reports whether a PIN has been set for the wallet.
func (w *Wallet) HasPIN() bool {
	return w.PinHash != nil && *w.PinHash != ""
}

// CanCover reports whether the balance is at least amount.
func (w *Wallet) CanCover(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
