package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/internal/core/ports/mocks"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        ports.WalletService
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	hashSvc    *mocks.MockHashService
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		hashSvc:    mocks.NewMockHashService(ctrl),
	}
	d.svc = NewWalletService(d.walletRepo, d.txRepo, d.hashSvc, zerolog.Nop())
	return d
}

func TestWalletService_GetBalance(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	wallet := &domain.Wallet{ID: uuid.New(), Balance: dec("12.34")}

	d.walletRepo.EXPECT().GetByID(ctx, wallet.ID).Return(wallet, nil)

	got, err := d.svc.GetBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("12.34")))
}

func TestWalletService_GetBalance_NotFound(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	id := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.GetBalance(ctx, id)
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestWalletService_GetBalance_RepoError(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	id := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, id).Return(nil, errors.New("db down"))

	_, err := d.svc.GetBalance(ctx, id)
	assertAppError(t, err, apperror.CodeInternal)
}

func TestWalletService_SetPIN(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	wallet := &domain.Wallet{ID: uuid.New(), IdentityID: uuid.New()}

	d.walletRepo.EXPECT().GetByIdentityID(ctx, wallet.IdentityID).Return(wallet, nil)
	d.hashSvc.EXPECT().Hash("4321").Return("$argon2id$hash", nil)
	d.walletRepo.EXPECT().UpdatePinHash(ctx, wallet.ID, "$argon2id$hash").Return(nil)

	require.NoError(t, d.svc.SetPIN(ctx, wallet.IdentityID, "4321"))
}

func TestWalletService_SetPIN_Invalid(t *testing.T) {
	d := setupWalletService(t)

	for _, pin := range []string{"", "123", "1234567", "12a4", " 1234"} {
		err := d.svc.SetPIN(context.Background(), uuid.New(), pin)
		assertAppError(t, err, apperror.CodeInvalidAmount)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	}
}

func TestWalletService_GetBalanceWithPIN(t *testing.T) {
	hash := "$argon2id$stored"

	tests := []struct {
		name     string
		wallet   *domain.Wallet
		verifyOK bool
		wantCode string
	}{
		{"pin not set", &domain.Wallet{ID: uuid.New()}, false, apperror.CodePINNotSet},
		{"wrong pin", &domain.Wallet{ID: uuid.New(), PinHash: &hash}, false, apperror.CodeInvalidPIN},
		{"ok", &domain.Wallet{ID: uuid.New(), PinHash: &hash, Balance: dec("9")}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWalletService(t)
			ctx := context.Background()
			identityID := uuid.New()

			d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(tt.wallet, nil)
			if tt.wallet.HasPIN() {
				d.hashSvc.EXPECT().Verify("1234", hash).Return(tt.verifyOK, nil)
			}

			got, err := d.svc.GetBalanceWithPIN(ctx, identityID, "1234")
			if tt.wantCode != "" {
				assertAppError(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Balance.Equal(dec("9")))
		})
	}
}

func TestWalletService_VerifyPIN(t *testing.T) {
	hash := "$argon2id$stored"
	ctx := context.Background()

	t.Run("match", func(t *testing.T) {
		d := setupWalletService(t)
		identityID := uuid.New()
		d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(&domain.Wallet{ID: uuid.New(), PinHash: &hash}, nil)
		d.hashSvc.EXPECT().Verify("4321", hash).Return(true, nil)

		assert.NoError(t, d.svc.VerifyPIN(ctx, identityID, "4321"))
	})

	t.Run("mismatch", func(t *testing.T) {
		d := setupWalletService(t)
		identityID := uuid.New()
		d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(&domain.Wallet{ID: uuid.New(), PinHash: &hash}, nil)
		d.hashSvc.EXPECT().Verify("0000", hash).Return(false, nil)

		assertAppError(t, d.svc.VerifyPIN(ctx, identityID, "0000"), apperror.CodeInvalidPIN)
	})

	t.Run("hash error", func(t *testing.T) {
		d := setupWalletService(t)
		identityID := uuid.New()
		d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(&domain.Wallet{ID: uuid.New(), PinHash: &hash}, nil)
		d.hashSvc.EXPECT().Verify("4321", hash).Return(false, errors.New("bad encoding"))

		assertAppError(t, d.svc.VerifyPIN(ctx, identityID, "4321"), apperror.CodeInternal)
	})
}

func TestWalletService_ListTransactions_ClampsPaging(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	wallet := &domain.Wallet{ID: uuid.New(), IdentityID: uuid.New()}

	d.walletRepo.EXPECT().GetByIdentityID(ctx, wallet.IdentityID).Return(wallet, nil)
	d.txRepo.EXPECT().List(ctx, ports.TransactionListParams{WalletID: wallet.ID, Page: 1, PageSize: maxPageSize}).
		Return([]domain.Transaction{{ID: uuid.New()}}, int64(1), nil)

	txns, total, err := d.svc.ListTransactions(ctx, wallet.IdentityID, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, int64(1), total)
}

func TestWalletService_ListPendingTopups(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.txRepo.EXPECT().ListPending(ctx, gomock.Any(), 50).DoAndReturn(
		func(_ context.Context, olderThan time.Time, _ int) ([]domain.Transaction, error) {
			assert.WithinDuration(t, time.Now().Add(-time.Hour), olderThan, 5*time.Second)
			return nil, nil
		})

	_, err := d.svc.ListPendingTopups(ctx, time.Hour, 50)
	require.NoError(t, err)
}
