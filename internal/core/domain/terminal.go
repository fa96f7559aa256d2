package domain

import (
	"time"

	"github.com/google/uuid"
)

// Terminal is a registered point-of-sale scanner trusted to run full palm scans.
type Terminal struct {
	ID         uuid.UUID `json:"id"`
	TerminalID string    `json:"terminal_id"`
	APIKeyHash string    `json:"-"` // Argon2id, never expose
	Merchant   string    `json:"merchant"`
	Location   string    `json:"location,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
