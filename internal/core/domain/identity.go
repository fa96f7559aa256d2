package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus is the verification state of an identity, owned by the KYC workflow.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusApproved KYCStatus = "APPROVED"
	KYCStatusRejected KYCStatus = "REJECTED"
)

// Identity is a registered person. It is read-only here apart from the palm flag.
type Identity struct {
	ID             uuid.UUID `json:"id"`
	Phone          string    `json:"phone"`
	KYCStatus      KYCStatus `json:"kyc_status"`
	PalmRegistered bool      `json:"palm_registered"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsKYCApproved returns true if the identity may spend from its wallet.
func (i *Identity) IsKYCApproved() bool {
	return i.KYCStatus == KYCStatusApproved
}
