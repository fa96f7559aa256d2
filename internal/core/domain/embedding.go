package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrolledEmbedding is the encrypted palm vector registered for an identity.
// There is at most one per identity; re-enrollment replaces it.
type EnrolledEmbedding struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Ciphertext []byte    `json:"-"` // version | nonce | sealed vector | tag
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
