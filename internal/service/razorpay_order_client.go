package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultRazorpayOrdersURL is the Razorpay orders endpoint.
const DefaultRazorpayOrdersURL = "https://api.razorpay.com/v1/orders"

const maxOrderResponse = 64 << 10

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units (paise)
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayOrderClient implements ports.GatewayOrderClient against the
// Razorpay orders API using basic auth with the key pair.
type RazorpayOrderClient struct {
	url        string
	keyID      string
	keySecret  string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewRazorpayOrderClient creates an order client. An empty url uses
// DefaultRazorpayOrdersURL.
func NewRazorpayOrderClient(url, keyID, keySecret string, httpClient HTTPClient, log zerolog.Logger) *RazorpayOrderClient {
	if url == "" {
		url = DefaultRazorpayOrdersURL
	}
	return &RazorpayOrderClient{
		url:        url,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: httpClient,
		log:        log,
	}
}

// CreateOrder opens an order for the top-up. The transaction id is sent as
// both receipt and notes.transactionId.
func (c *RazorpayOrderClient) CreateOrder(ctx context.Context, req ports.GatewayOrderRequest) (*ports.GatewayOrder, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.Amount.Shift(domain.AmountScale).IntPart(),
		Currency: currency,
		Receipt:  req.TransactionID.String(),
		Notes: map[string]string{
			"transactionId": req.TransactionID.String(),
			"identityId":    req.IdentityID.String(),
		},
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal order: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build order request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("tx_id", req.TransactionID.String()).Msg("gateway: order request failed")
		return nil, apperror.ErrGatewayUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxOrderResponse))
	if err != nil {
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("read order response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gwErr razorpayErrorResponse
		_ = json.Unmarshal(raw, &gwErr)
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("gateway_code", gwErr.Error.Code).
			Str("gateway_error", gwErr.Error.Description).
			Str("tx_id", req.TransactionID.String()).
			Msg("gateway: order rejected")
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("orders api returned status %d", resp.StatusCode))
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("decode order response: %w", err))
	}
	if out.ID == "" {
		return nil, apperror.ErrGatewayUnavailable(errors.New("orders api returned no order id"))
	}
	if out.Currency == "" {
		out.Currency = currency
	}

	c.log.Info().
		Str("tx_id", req.TransactionID.String()).
		Str("gateway_order_id", out.ID).
		Msg("gateway: order created")

	return &ports.GatewayOrder{
		ID:       out.ID,
		Amount:   decimal.New(out.Amount, -domain.AmountScale),
		Currency: out.Currency,
		KeyID:    c.keyID,
	}, nil
}
