package service

import (
	"context"
	"fmt"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// topupService implements ports.TopupService.
type topupService struct {
	walletRepo ports.WalletRepository
	ledger     ports.LedgerService
	orders     ports.GatewayOrderClient
	provider   string
	log        zerolog.Logger
}

// NewTopupService creates a top-up service. orders may be nil, in which case
// top-ups are opened without a gateway order.
func NewTopupService(
	walletRepo ports.WalletRepository,
	ledger ports.LedgerService,
	orders ports.GatewayOrderClient,
	provider string,
	log zerolog.Logger,
) ports.TopupService {
	if provider == "" {
		provider = domain.DefaultGatewayProvider
	}
	return &topupService{
		walletRepo: walletRepo,
		ledger:     ledger,
		orders:     orders,
		provider:   provider,
		log:        log,
	}
}

// StartTopup opens a PENDING top-up and its gateway order. If the gateway
// refuses the order the top-up is failed at once, since nothing can ever
// pay it.
func (s *topupService) StartTopup(ctx context.Context, identityID uuid.UUID, amount decimal.Decimal) (*ports.TopupCheckout, error) {
	if !domain.ValidAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	txn, err := s.ledger.OpenTopup(ctx, wallet.ID, amount)
	if err != nil {
		return nil, err
	}

	checkout := &ports.TopupCheckout{Wallet: wallet, Transaction: txn}
	if s.orders == nil {
		return checkout, nil
	}

	order, err := s.orders.CreateOrder(ctx, ports.GatewayOrderRequest{
		TransactionID: txn.ID,
		IdentityID:    identityID,
		Amount:        txn.Amount,
		Currency:      wallet.Currency,
	})
	if err != nil {
		if _, failErr := s.ledger.FailTopup(context.WithoutCancel(ctx), txn.ID, "", s.provider); failErr != nil {
			s.log.Error().Err(failErr).Str("tx_id", txn.ID.String()).Msg("failed to close top-up after order error")
		}
		return nil, err
	}

	checkout.Order = order
	return checkout, nil
}
