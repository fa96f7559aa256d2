package handler

import (
	"palmpay/internal/adapter/http/dto"
	"palmpay/internal/adapter/http/middleware"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"
	"palmpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles pay-by-palm endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// ScanPay handles POST /api/v1/payments/scan-pay. The terminal authenticates
// with its id and API key headers; the service verifies them.
func (h *PaymentHandler) ScanPay(c *gin.Context) {
	var req dto.ScanPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.paymentSvc.ResolveAndPay(c.Request.Context(), ports.PayRequest{
		Auth: ports.AuthContext{
			Mode:       ports.PayModeTerminal,
			TerminalID: c.GetHeader(middleware.HeaderTerminalID),
			APIKey:     c.GetHeader(middleware.HeaderTerminalAPIKey),
		},
		Input:  ports.EmbeddingInput{Vector: req.Vector, Artifact: req.Artifact},
		Amount: req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.TransactionID.String())
	response.OK(c, toPaymentResponse(result))
}

// MallScanPay handles POST /api/v1/mall/scan-pay: the shopper names their
// phone number and the palm is checked against that identity only.
func (h *PaymentHandler) MallScanPay(c *gin.Context) {
	var req dto.MallScanPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.paymentSvc.ResolveAndPay(c.Request.Context(), ports.PayRequest{
		Auth:      ports.AuthContext{Mode: ports.PayModeDirect, Phone: req.Phone},
		Input:     ports.EmbeddingInput{Vector: req.Vector, Artifact: req.Artifact},
		Amount:    req.Amount,
		OriginRef: req.OriginRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.TransactionID.String())
	response.OK(c, toPaymentResponse(result))
}

func toPaymentResponse(r *ports.PayResult) dto.PaymentResponse {
	return dto.PaymentResponse{
		TransactionID: r.TransactionID.String(),
		IdentityID:    r.IdentityID.String(),
		WalletID:      r.WalletID.String(),
		Amount:        r.Amount,
		NewBalance:    r.NewBalance,
		Currency:      r.Currency,
		Score:         r.Score,
	}
}
