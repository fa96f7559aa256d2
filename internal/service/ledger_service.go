package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const topupDescription = "Wallet top-up"

// LedgerServiceImpl implements ports.LedgerService. Every balance change runs
// inside one database transaction holding row locks on the rows it touches.
type LedgerServiceImpl struct {
	walletRepo   ports.WalletRepository
	txRepo       ports.TransactionRepository
	identityRepo ports.IdentityRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	identityRepo ports.IdentityRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo:   walletRepo,
		txRepo:       txRepo,
		identityRepo: identityRepo,
		transactor:   transactor,
		log:          log,
	}
}

// CreateWallet returns the identity's wallet, creating an empty one if needed.
func (s *LedgerServiceImpl) CreateWallet(ctx context.Context, identityID uuid.UUID, currency string) (*domain.Wallet, error) {
	existing, err := s.walletRepo.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	if currency == "" {
		currency = domain.DefaultCurrency
	}
	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:         uuid.New(),
		IdentityID: identityID,
		Balance:    decimal.Zero,
		Currency:   currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.walletRepo.CreateIfAbsent(ctx, wallet)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	if !created {
		// A concurrent call for the same identity inserted first.
		existing, err := s.walletRepo.GetByIdentityID(ctx, identityID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("wallet for identity %s vanished after insert conflict", identityID))
		}
		return existing, nil
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("identity_id", identityID.String()).
		Msg("wallet created")

	return wallet, nil
}

// OpenTopup records a PENDING top-up. The balance is credited later by
// CompleteTopup once the gateway confirms payment.
func (s *LedgerServiceImpl) OpenTopup(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	if !domain.ValidAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        domain.TransactionTypeTopup,
		Status:      domain.TransactionStatusPending,
		Description: topupDescription,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create topup: %w", err))
	}

	if err := dbTx.Commit(context.WithoutCancel(ctx)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", amount.String()).
		Msg("topup opened")

	return txn, nil
}

// CompleteTopup settles a PENDING top-up as SUCCESS and credits the wallet.
// A second call for the same transaction fails with AlreadyProcessed.
func (s *LedgerServiceImpl) CompleteTopup(ctx context.Context, txID uuid.UUID, externalOrderID, provider string) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.lockPendingTopup(ctx, dbTx, txID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, txn.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	newBalance := wallet.Balance.Add(txn.Amount)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := s.settle(ctx, dbTx, txn, domain.TransactionStatusSuccess, externalOrderID, provider); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(context.WithoutCancel(ctx)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	wallet.Balance = newBalance
	wallet.UpdatedAt = *txn.ProcessedAt

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", txn.Amount.String()).
		Str("gateway_order_id", externalOrderID).
		Msg("topup completed")

	return &ports.LedgerResult{Wallet: wallet, Transaction: txn}, nil
}

// FailTopup settles a PENDING top-up as FAILED without touching the balance.
func (s *LedgerServiceImpl) FailTopup(ctx context.Context, txID uuid.UUID, externalOrderID, provider string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.lockPendingTopup(ctx, dbTx, txID)
	if err != nil {
		return nil, err
	}

	if err := s.settle(ctx, dbTx, txn, domain.TransactionStatusFailed, externalOrderID, provider); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(context.WithoutCancel(ctx)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("gateway_order_id", externalOrderID).
		Msg("topup failed")

	return txn, nil
}

// Debit withdraws funds from a wallet and records a SUCCESS PAYMENT.
func (s *LedgerServiceImpl) Debit(ctx context.Context, req ports.DebitRequest) (*ports.LedgerResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	identity, err := s.identityRepo.GetByID(ctx, wallet.IdentityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get identity: %w", err))
	}
	if identity == nil || !identity.IsKYCApproved() {
		return nil, apperror.ErrKycNotApproved()
	}

	if !wallet.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	newBalance := wallet.Balance.Sub(req.Amount)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Amount:      req.Amount,
		Type:        domain.TransactionTypePayment,
		Status:      domain.TransactionStatusSuccess,
		TerminalID:  req.OriginRef,
		Description: req.Description,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	if err := dbTx.Commit(context.WithoutCancel(ctx)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	wallet.Balance = newBalance
	wallet.UpdatedAt = now

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", req.Amount.String()).
		Msg("wallet debited")

	return &ports.LedgerResult{Wallet: wallet, Transaction: txn}, nil
}

func (s *LedgerServiceImpl) lockPendingTopup(ctx context.Context, dbTx pgx.Tx, txID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, txID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil || txn.Type != domain.TransactionTypeTopup {
		return nil, apperror.ErrNotFound("transaction")
	}
	if !txn.IsPending() {
		return nil, apperror.ErrAlreadyProcessed()
	}
	return txn, nil
}

func (s *LedgerServiceImpl) settle(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction, status domain.TransactionStatus, externalOrderID, provider string) error {
	if provider == "" {
		provider = domain.DefaultGatewayProvider
	}
	now := time.Now().UTC()
	update := ports.SettleUpdate{
		Status:          status,
		GatewayProvider: &provider,
		ProcessedAt:     now,
	}
	if externalOrderID != "" {
		update.GatewayOrderID = &externalOrderID
	}

	if err := s.txRepo.Settle(ctx, dbTx, txn.ID, update); err != nil {
		if errors.Is(err, ports.ErrNotPending) {
			return apperror.ErrAlreadyProcessed()
		}
		return apperror.InternalError(fmt.Errorf("settle transaction: %w", err))
	}

	txn.Status = status
	txn.GatewayOrderID = update.GatewayOrderID
	txn.GatewayProvider = update.GatewayProvider
	txn.ProcessedAt = &now
	return nil
}
