package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionEnroll     AuditAction = "PALM_ENROLL"
	AuditActionScanPay    AuditAction = "SCAN_PAY"
	AuditActionMallPay    AuditAction = "MALL_SCAN_PAY"
	AuditActionTopup      AuditAction = "TOPUP_ORDER"
	AuditActionSetPIN     AuditAction = "SET_PIN"
	AuditActionVerifyPIN  AuditAction = "VERIFY_PIN"
	AuditActionGatewayEvt AuditAction = "GATEWAY_EVENT"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	IdentityID   *uuid.UUID  `json:"identity_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
