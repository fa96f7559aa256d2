package handler

import (
	"time"

	"palmpay/internal/adapter/http/dto"
	"palmpay/internal/adapter/http/middleware"
	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"
	"palmpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet-owner endpoints and the gateway callback.
type WalletHandler struct {
	walletSvc  ports.WalletService
	topupSvc   ports.TopupService
	reconciler ports.GatewayReconciler
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, topupSvc ports.TopupService, reconciler ports.GatewayReconciler) *WalletHandler {
	return &WalletHandler{
		walletSvc:  walletSvc,
		topupSvc:   topupSvc,
		reconciler: reconciler,
	}
}

// SetPIN handles POST /api/v1/wallets/pin.
func (h *WalletHandler) SetPIN(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("pin must be 4 to 6 digits"))
		return
	}

	if err := h.walletSvc.SetPIN(c.Request.Context(), identityID, req.PIN); err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, identityID.String())
	response.OK(c, gin.H{"pin_set": true})
}

// VerifyPIN handles POST /api/v1/wallets/pin/verify.
func (h *WalletHandler) VerifyPIN(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidPIN())
		return
	}

	if err := h.walletSvc.VerifyPIN(c.Request.Context(), identityID, req.PIN); err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, identityID.String())
	response.OK(c, gin.H{"verified": true})
}

// GetBalance handles POST /api/v1/wallets/balance. The PIN travels in the
// body, so this is a POST.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidPIN())
		return
	}

	wallet, err := h.walletSvc.GetBalanceWithPIN(c.Request.Context(), identityID, req.PIN)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// Topup handles POST /api/v1/wallets/topup. It opens a PENDING top-up and
// its gateway order; the balance moves only when the gateway confirms it.
func (h *WalletHandler) Topup(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	checkout, err := h.topupSvc.StartTopup(c.Request.Context(), identityID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	txn := checkout.Transaction
	resp := dto.TopupResponse{
		TransactionID: txn.ID.String(),
		WalletID:      checkout.Wallet.ID.String(),
		Amount:        txn.Amount,
		Currency:      checkout.Wallet.Currency,
		Status:        string(txn.Status),
	}
	if checkout.Order != nil {
		resp.OrderID = checkout.Order.ID
		resp.KeyID = checkout.Order.KeyID
		resp.Currency = checkout.Order.Currency
	}

	c.Set(middleware.CtxResourceID, txn.ID.String())
	response.Created(c, resp)
}

// ListTransactions handles GET /api/v1/wallets/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}

	txns, total, err := h.walletSvc.ListTransactions(c.Request.Context(), identityID, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{
		Transactions: items,
		Total:        total,
		Page:         q.Page,
		PageSize:     q.PageSize,
	})
}

// GatewayWebhook handles POST /api/v1/wallets/webhook. The signature covers
// the raw body, so it is read before any decoding.
func (h *WalletHandler) GatewayWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), payload, c.GetHeader(middleware.HeaderGatewaySignature))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.WebhookResponse{
		Outcome:   string(result.Outcome),
		EventType: result.EventType,
	}
	if result.TransactionID != nil {
		id := result.TransactionID.String()
		resp.TransactionID = &id
		c.Set(middleware.CtxResourceID, id)
	}
	response.OK(c, resp)
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:             tx.ID.String(),
		Amount:         tx.Amount,
		Type:           string(tx.Type),
		Status:         string(tx.Status),
		Description:    tx.Description,
		TerminalID:     tx.TerminalID,
		GatewayOrderID: tx.GatewayOrderID,
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.ProcessedAt != nil {
		s := tx.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
