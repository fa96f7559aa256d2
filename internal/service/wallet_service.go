package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// walletService implements ports.WalletService.
type walletService struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	hashSvc    ports.HashService
	log        zerolog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	hashSvc ports.HashService,
	log zerolog.Logger,
) ports.WalletService {
	return &walletService{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		hashSvc:    hashSvc,
		log:        log,
	}
}

// GetBalance returns the wallet with its committed balance.
func (s *walletService) GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// GetByIdentity returns the wallet owned by an identity.
func (s *walletService) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// GetBalanceWithPIN returns the identity's wallet after checking its PIN.
func (s *walletService) GetBalanceWithPIN(ctx context.Context, identityID uuid.UUID, pin string) (*domain.Wallet, error) {
	wallet, err := s.GetByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if !wallet.HasPIN() {
		return nil, apperror.ErrPINNotSet()
	}

	ok, err := s.hashSvc.Verify(pin, *wallet.PinHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}
	if !ok {
		s.log.Warn().Str("wallet_id", wallet.ID.String()).Msg("wallet pin mismatch")
		return nil, apperror.ErrInvalidPIN()
	}
	return wallet, nil
}

// VerifyPIN checks pin against the identity's wallet without returning it.
func (s *walletService) VerifyPIN(ctx context.Context, identityID uuid.UUID, pin string) error {
	_, err := s.GetBalanceWithPIN(ctx, identityID, pin)
	return err
}

// SetPIN stores an Argon2id hash of a 4-6 digit PIN, replacing any previous one.
func (s *walletService) SetPIN(ctx context.Context, identityID uuid.UUID, pin string) error {
	if !pinPattern.MatchString(pin) {
		return apperror.Validation("PIN must be 4 to 6 digits")
	}

	wallet, err := s.GetByIdentity(ctx, identityID)
	if err != nil {
		return err
	}

	hash, err := s.hashSvc.Hash(pin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}
	if err := s.walletRepo.UpdatePinHash(ctx, wallet.ID, hash); err != nil {
		return apperror.InternalError(fmt.Errorf("update pin: %w", err))
	}

	s.log.Info().Str("wallet_id", wallet.ID.String()).Msg("wallet pin set")
	return nil
}

// ListTransactions returns a page of the identity's statement, newest first.
func (s *walletService) ListTransactions(ctx context.Context, identityID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	wallet, err := s.GetByIdentity(ctx, identityID)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	txns, total, err := s.txRepo.List(ctx, ports.TransactionListParams{
		WalletID: wallet.ID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// ListPendingTopups returns top-ups still PENDING after olderThan, oldest first.
func (s *walletService) ListPendingTopups(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Transaction, error) {
	if limit < 1 || limit > maxPageSize {
		limit = maxPageSize
	}
	txns, err := s.txRepo.ListPending(ctx, time.Now().UTC().Add(-olderThan), limit)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return txns, nil
}
