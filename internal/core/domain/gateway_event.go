package domain

import (
	"time"

	"github.com/google/uuid"
)

// GatewayOutcome is how a verified gateway callback was handled.
type GatewayOutcome string

const (
	GatewayOutcomeCredited  GatewayOutcome = "CREDITED"
	GatewayOutcomeDuplicate GatewayOutcome = "DUPLICATE"
	GatewayOutcomeIgnored   GatewayOutcome = "IGNORED"
)

// GatewayEvent records one verified callback from the payment gateway.
type GatewayEvent struct {
	ID             uuid.UUID      `json:"id"`
	Provider       string         `json:"provider"`
	EventType      string         `json:"event_type"`
	TransactionID  *uuid.UUID     `json:"transaction_id,omitempty"`
	GatewayOrderID *string        `json:"gateway_order_id,omitempty"`
	Outcome        GatewayOutcome `json:"outcome"`
	Payload        string         `json:"payload"` // raw JSON as delivered
	CreatedAt      time.Time      `json:"created_at"`
}
