package service

import (
	"context"
	"fmt"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnrollmentServiceImpl implements ports.EnrollmentService.
type EnrollmentServiceImpl struct {
	identityRepo  ports.IdentityRepository
	embeddingRepo ports.EmbeddingRepository
	vault         ports.EmbeddingVault
	extractor     ports.EmbeddingExtractor
	ledger        ports.LedgerService
	dimensions    int
	log           zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentServiceImpl. dimensions > 0
// pins the accepted vector length.
func NewEnrollmentService(
	identityRepo ports.IdentityRepository,
	embeddingRepo ports.EmbeddingRepository,
	vault ports.EmbeddingVault,
	extractor ports.EmbeddingExtractor,
	ledger ports.LedgerService,
	dimensions int,
	log zerolog.Logger,
) *EnrollmentServiceImpl {
	return &EnrollmentServiceImpl{
		identityRepo:  identityRepo,
		embeddingRepo: embeddingRepo,
		vault:         vault,
		extractor:     extractor,
		ledger:        ledger,
		dimensions:    dimensions,
		log:           log,
	}
}

// Enroll seals the identity's palm vector, replacing any earlier one, and
// makes sure the identity has a wallet.
func (s *EnrollmentServiceImpl) Enroll(ctx context.Context, identityID uuid.UUID, input ports.EmbeddingInput) (*ports.EnrollResult, error) {
	vector, err := queryVector(ctx, s.extractor, input, s.dimensions)
	if err != nil {
		return nil, err
	}

	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get identity: %w", err))
	}
	if identity == nil {
		return nil, apperror.ErrNotFound("identity")
	}

	existing, err := s.embeddingRepo.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get embedding: %w", err))
	}

	blob, err := s.vault.Encrypt(vector)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("seal embedding: %w", err))
	}

	now := time.Now().UTC()
	embedding := &domain.EnrolledEmbedding{
		IdentityID: identityID,
		Ciphertext: blob,
		Dimensions: len(vector),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.embeddingRepo.Upsert(ctx, embedding); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store embedding: %w", err))
	}

	if !identity.PalmRegistered {
		if err := s.identityRepo.MarkPalmRegistered(ctx, identityID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("mark palm registered: %w", err))
		}
	}

	wallet, err := s.ledger.CreateWallet(ctx, identityID, domain.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("identity_id", identityID.String()).
		Str("wallet_id", wallet.ID.String()).
		Int("dimensions", len(vector)).
		Bool("replaced", existing != nil).
		Msg("palm enrolled")

	return &ports.EnrollResult{
		IdentityID: identityID,
		WalletID:   wallet.ID,
		Dimensions: len(vector),
		Replaced:   existing != nil,
	}, nil
}
