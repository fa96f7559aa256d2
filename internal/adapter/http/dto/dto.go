package dto

import "github.com/shopspring/decimal"

// EnrollRequest is the request body for palm enrollment. Exactly one of
// Vector and Artifact must be set; Artifact is base64 in JSON.
type EnrollRequest struct {
	Vector   []float64 `json:"vector,omitempty" binding:"omitempty,max=4096"`
	Artifact []byte    `json:"artifact,omitempty"`
}

// EnrollResponse is the response body for a completed enrollment.
type EnrollResponse struct {
	IdentityID string `json:"identity_id"`
	WalletID   string `json:"wallet_id"`
	Dimensions int    `json:"dimensions"`
	Replaced   bool   `json:"replaced"`
}

// ScanPayRequest is the request body for a terminal scan-pay.
type ScanPayRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Vector   []float64       `json:"vector,omitempty" binding:"omitempty,max=4096"`
	Artifact []byte          `json:"artifact,omitempty"`
}

// MallScanPayRequest is the request body for a phone-scoped scan-pay.
type MallScanPayRequest struct {
	Phone     string          `json:"phone" binding:"required,e164"`
	Amount    decimal.Decimal `json:"amount"`
	OriginRef string          `json:"origin_ref,omitempty" binding:"omitempty,max=64,safe_id"`
	Vector    []float64       `json:"vector,omitempty" binding:"omitempty,max=4096"`
	Artifact  []byte          `json:"artifact,omitempty"`
}

// PaymentResponse is the response body for a successful palm payment.
type PaymentResponse struct {
	TransactionID string          `json:"transaction_id"`
	IdentityID    string          `json:"identity_id"`
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Currency      string          `json:"currency"`
	Score         float64         `json:"score"`
}

// PINRequest carries a wallet PIN, for setting, checking or a balance lookup.
type PINRequest struct {
	PIN string `json:"pin" binding:"required,pin"`
}

// TopupRequest is the request body for opening a wallet top-up.
type TopupRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TopupResponse carries what the client needs to open gateway checkout.
// OrderID and KeyID are empty when no gateway is configured.
type TopupResponse struct {
	TransactionID string          `json:"transaction_id"`
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	OrderID       string          `json:"order_id,omitempty"`
	KeyID         string          `json:"key_id,omitempty"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	WalletID string          `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// TransactionListQuery binds statement paging parameters.
type TransactionListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// TransactionResponse is one statement line.
type TransactionResponse struct {
	ID             string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Description    string          `json:"description"`
	TerminalID     *string         `json:"terminal_id,omitempty"`
	GatewayOrderID *string         `json:"gateway_order_id,omitempty"`
	CreatedAt      string          `json:"created_at"`
	ProcessedAt    *string         `json:"processed_at,omitempty"`
}

// TransactionListResponse wraps paginated transaction list.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

// WebhookResponse acknowledges a gateway callback.
type WebhookResponse struct {
	Outcome       string  `json:"outcome"`
	EventType     string  `json:"event_type"`
	TransactionID *string `json:"transaction_id,omitempty"`
}
