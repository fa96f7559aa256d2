package service

import (
	"context"
	"fmt"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// DefaultScanTimeout bounds a full 1:N scan when none is configured.
const DefaultScanTimeout = 5 * time.Second

// PalmPaymentServiceImpl implements ports.PaymentService.
type PalmPaymentServiceImpl struct {
	terminalRepo  ports.TerminalRepository
	identityRepo  ports.IdentityRepository
	embeddingRepo ports.EmbeddingRepository
	walletRepo    ports.WalletRepository
	resolver      ports.IdentityResolver
	extractor     ports.EmbeddingExtractor
	hashSvc       ports.HashService
	ledger        ports.LedgerService
	scanTimeout   time.Duration
	dimensions    int
	log           zerolog.Logger
}

// NewPalmPaymentService creates a new PalmPaymentServiceImpl.
func NewPalmPaymentService(
	terminalRepo ports.TerminalRepository,
	identityRepo ports.IdentityRepository,
	embeddingRepo ports.EmbeddingRepository,
	walletRepo ports.WalletRepository,
	resolver ports.IdentityResolver,
	extractor ports.EmbeddingExtractor,
	hashSvc ports.HashService,
	ledger ports.LedgerService,
	scanTimeout time.Duration,
	dimensions int,
	log zerolog.Logger,
) *PalmPaymentServiceImpl {
	if scanTimeout <= 0 {
		scanTimeout = DefaultScanTimeout
	}
	return &PalmPaymentServiceImpl{
		terminalRepo:  terminalRepo,
		identityRepo:  identityRepo,
		embeddingRepo: embeddingRepo,
		walletRepo:    walletRepo,
		resolver:      resolver,
		extractor:     extractor,
		hashSvc:       hashSvc,
		ledger:        ledger,
		scanTimeout:   scanTimeout,
		dimensions:    dimensions,
		log:           log,
	}
}

// ResolveAndPay identifies the payer from a palm sample and debits their wallet.
// Integrity failures are reported as internal errors.
func (s *PalmPaymentServiceImpl) ResolveAndPay(ctx context.Context, req ports.PayRequest) (*ports.PayResult, error) {
	res, err := s.resolveAndPay(ctx, req)
	if err != nil && apperror.KindOf(err) == apperror.KindIntegrity {
		s.log.Error().Err(err).Str("mode", string(req.Auth.Mode)).Msg("integrity failure during palm payment")
		return nil, apperror.InternalError(err)
	}
	return res, err
}

func (s *PalmPaymentServiceImpl) resolveAndPay(ctx context.Context, req ports.PayRequest) (*ports.PayResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	var (
		match       *ports.Match
		originRef   *string
		description string
	)

	switch req.Auth.Mode {
	case ports.PayModeTerminal:
		terminal, err := s.authenticateTerminal(ctx, req.Auth)
		if err != nil {
			return nil, err
		}
		query, err := queryVector(ctx, s.extractor, req.Input, s.dimensions)
		if err != nil {
			return nil, err
		}
		match, err = s.scan(ctx, query)
		if err != nil {
			return nil, err
		}
		originRef = &terminal.TerminalID
		description = fmt.Sprintf("Palm payment at terminal %s", terminal.TerminalID)

	case ports.PayModeDirect:
		query, err := queryVector(ctx, s.extractor, req.Input, s.dimensions)
		if err != nil {
			return nil, err
		}
		match, err = s.verifyPhone(ctx, req.Auth.Phone, query)
		if err != nil {
			return nil, err
		}
		if req.OriginRef != "" {
			originRef = &req.OriginRef
		}
		description = "Mall scan-pay"

	default:
		return nil, apperror.Validation("unknown payment mode")
	}

	if match == nil {
		s.log.Warn().Str("mode", string(req.Auth.Mode)).Msg("palm did not match any identity")
		return nil, apperror.ErrBiometricMismatch()
	}

	identity, err := s.identityRepo.GetByID(ctx, match.IdentityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get identity: %w", err))
	}
	if identity == nil || !identity.IsKYCApproved() {
		return nil, apperror.ErrKycNotApproved()
	}

	wallet, err := s.walletRepo.GetByIdentityID(ctx, match.IdentityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	res, err := s.ledger.Debit(ctx, ports.DebitRequest{
		WalletID:    wallet.ID,
		Amount:      req.Amount,
		OriginRef:   originRef,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("tx_id", res.Transaction.ID.String()).
		Str("identity_id", match.IdentityID.String()).
		Str("mode", string(req.Auth.Mode)).
		Float64("score", match.Score).
		Msg("palm payment completed")

	return &ports.PayResult{
		IdentityID:    match.IdentityID,
		WalletID:      res.Wallet.ID,
		TransactionID: res.Transaction.ID,
		Amount:        res.Transaction.Amount,
		NewBalance:    res.Wallet.Balance,
		Currency:      res.Wallet.Currency,
		Score:         match.Score,
	}, nil
}

func (s *PalmPaymentServiceImpl) authenticateTerminal(ctx context.Context, auth ports.AuthContext) (*domain.Terminal, error) {
	if auth.TerminalID == "" || auth.APIKey == "" {
		return nil, apperror.ErrInvalidTerminal()
	}

	terminal, err := s.terminalRepo.GetByTerminalID(ctx, auth.TerminalID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get terminal: %w", err))
	}
	if terminal == nil || !terminal.Active {
		return nil, apperror.ErrInvalidTerminal()
	}

	ok, err := s.hashSvc.Verify(auth.APIKey, terminal.APIKeyHash)
	if err != nil || !ok {
		s.log.Warn().Str("terminal_id", auth.TerminalID).Msg("terminal credential check failed")
		return nil, apperror.ErrInvalidTerminal()
	}
	return terminal, nil
}

// scan runs the 1:N search under the configured deadline.
func (s *PalmPaymentServiceImpl) scan(ctx context.Context, query []float64) (*ports.Match, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	candidates, err := s.embeddingRepo.ListAll(scanCtx)
	if err != nil {
		if scanCtx.Err() != nil {
			return nil, apperror.ErrResolutionTimeout(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("list embeddings: %w", err))
	}
	return s.resolver.Resolve(scanCtx, query, candidates)
}

// verifyPhone runs the 1:1 check against the identity registered to phone.
func (s *PalmPaymentServiceImpl) verifyPhone(ctx context.Context, phone string, query []float64) (*ports.Match, error) {
	if phone == "" {
		return nil, apperror.Validation("phone is required")
	}

	identity, err := s.identityRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get identity: %w", err))
	}
	if identity == nil {
		return nil, apperror.ErrNotFound("identity")
	}

	embedding, err := s.embeddingRepo.GetByIdentityID(ctx, identity.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get embedding: %w", err))
	}
	if embedding == nil {
		return nil, apperror.ErrNotEnrolled()
	}
	return s.resolver.Verify(ctx, query, *embedding)
}
