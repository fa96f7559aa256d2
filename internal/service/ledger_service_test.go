package service

import (
	"context"
	"errors"
	"testing"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/internal/core/ports/mocks"
	"palmpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc          *LedgerServiceImpl
	walletRepo   *mocks.MockWalletRepository
	txRepo       *mocks.MockTransactionRepository
	identityRepo *mocks.MockIdentityRepository
	transactor   *mocks.MockDBTransactor
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		txRepo:       mocks.NewMockTransactionRepository(ctrl),
		identityRepo: mocks.NewMockIdentityRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
	}
	d.svc = NewLedgerService(d.walletRepo, d.txRepo, d.identityRepo, d.transactor, zerolog.Nop())
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func approvedIdentity(id uuid.UUID) *domain.Identity {
	return &domain.Identity{ID: id, Phone: "+919800000001", KYCStatus: domain.KYCStatusApproved, PalmRegistered: true}
}

// ==================== CreateWallet ====================

func TestLedger_CreateWallet_New(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	identityID := uuid.New()

	d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(nil, nil)
	d.walletRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, w *domain.Wallet) (bool, error) {
		assert.Equal(t, identityID, w.IdentityID)
		assert.True(t, w.Balance.IsZero())
		assert.Equal(t, domain.DefaultCurrency, w.Currency)
		return true, nil
	})

	w, err := d.svc.CreateWallet(ctx, identityID, "")
	require.NoError(t, err)
	assert.Equal(t, identityID, w.IdentityID)
}

func TestLedger_CreateWallet_Existing(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	existing := &domain.Wallet{ID: uuid.New(), IdentityID: uuid.New()}

	d.walletRepo.EXPECT().GetByIdentityID(ctx, existing.IdentityID).Return(existing, nil)

	w, err := d.svc.CreateWallet(ctx, existing.IdentityID, "INR")
	require.NoError(t, err)
	assert.Same(t, existing, w)
}

func TestLedger_CreateWallet_LostInsertRace(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	identityID := uuid.New()
	winner := &domain.Wallet{ID: uuid.New(), IdentityID: identityID, Currency: domain.DefaultCurrency}

	gomock.InOrder(
		d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(nil, nil),
		d.walletRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(false, nil),
		d.walletRepo.EXPECT().GetByIdentityID(ctx, identityID).Return(winner, nil),
	)

	w, err := d.svc.CreateWallet(ctx, identityID, "")
	require.NoError(t, err)
	assert.Same(t, winner, w)
}

// ==================== OpenTopup ====================

func TestLedger_OpenTopup_Success(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := &domain.Wallet{ID: uuid.New(), Balance: decimal.Zero}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(func(_ context.Context, _ any, txn *domain.Transaction) error {
		assert.Equal(t, domain.TransactionTypeTopup, txn.Type)
		assert.Equal(t, domain.TransactionStatusPending, txn.Status)
		assert.True(t, txn.Amount.Equal(dec("500")))
		return nil
	})

	txn, err := d.svc.OpenTopup(ctx, wallet.ID, dec("500"))
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, txn.WalletID)
	assert.True(t, txn.IsPending())
	assert.True(t, wallet.Balance.IsZero(), "balance untouched until completion")
}

func TestLedger_OpenTopup_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)

	for _, amt := range []string{"0", "-10", "10.005", "0.001"} {
		_, err := d.svc.OpenTopup(context.Background(), uuid.New(), dec(amt))
		assertAppError(t, err, apperror.CodeInvalidAmount)
	}
}

func TestLedger_OpenTopup_WalletNotFound(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	walletID := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(nil, nil)

	_, err := d.svc.OpenTopup(ctx, walletID, dec("10"))
	assertAppError(t, err, apperror.CodeNotFound)
}

// ==================== CompleteTopup ====================

func TestLedger_CompleteTopup_Success(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := &domain.Wallet{ID: uuid.New(), Balance: dec("100")}
	txn := &domain.Transaction{
		ID: uuid.New(), WalletID: wallet.ID, Amount: dec("500"),
		Type: domain.TransactionTypeTopup, Status: domain.TransactionStatusPending,
	}

	gomock.InOrder(
		d.transactor.EXPECT().Begin(ctx).Return(tx, nil),
		d.txRepo.EXPECT().GetByIDForUpdate(ctx, tx, txn.ID).Return(txn, nil),
		d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil),
		d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ any, _ uuid.UUID, b decimal.Decimal) error {
				assert.True(t, b.Equal(dec("600")))
				return nil
			}),
		d.txRepo.EXPECT().Settle(ctx, tx, txn.ID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ any, _ uuid.UUID, u ports.SettleUpdate) error {
				assert.Equal(t, domain.TransactionStatusSuccess, u.Status)
				require.NotNil(t, u.GatewayOrderID)
				assert.Equal(t, "order_abc", *u.GatewayOrderID)
				assert.Equal(t, domain.DefaultGatewayProvider, *u.GatewayProvider)
				return nil
			}),
	)

	res, err := d.svc.CompleteTopup(ctx, txn.ID, "order_abc", "")
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("600")))
	assert.Equal(t, domain.TransactionStatusSuccess, res.Transaction.Status)
	assert.NotNil(t, res.Transaction.ProcessedAt)
}

func TestLedger_CompleteTopup_AlreadyProcessed(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	txn := &domain.Transaction{
		ID: uuid.New(), Amount: dec("500"),
		Type: domain.TransactionTypeTopup, Status: domain.TransactionStatusSuccess,
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByIDForUpdate(ctx, tx, txn.ID).Return(txn, nil)

	_, err := d.svc.CompleteTopup(ctx, txn.ID, "order_abc", "RAZORPAY")
	assertAppError(t, err, apperror.CodeAlreadyProcessed)
}

func TestLedger_CompleteTopup_NotFound(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	_, err := d.svc.CompleteTopup(ctx, id, "", "")
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestLedger_CompleteTopup_RejectsPayment(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	txn := &domain.Transaction{ID: uuid.New(), Type: domain.TransactionTypePayment, Status: domain.TransactionStatusPending}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByIDForUpdate(ctx, tx, txn.ID).Return(txn, nil)

	_, err := d.svc.CompleteTopup(ctx, txn.ID, "", "")
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestLedger_CompleteTopup_SettleRace(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := &domain.Wallet{ID: uuid.New(), Balance: dec("0")}
	txn := &domain.Transaction{
		ID: uuid.New(), WalletID: wallet.ID, Amount: dec("5"),
		Type: domain.TransactionTypeTopup, Status: domain.TransactionStatusPending,
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByIDForUpdate(ctx, tx, txn.ID).Return(txn, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Settle(ctx, tx, txn.ID, gomock.Any()).Return(ports.ErrNotPending)

	_, err := d.svc.CompleteTopup(ctx, txn.ID, "", "")
	assertAppError(t, err, apperror.CodeAlreadyProcessed)
}

func TestLedger_CompleteTopup_BeginFails(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()

	d.transactor.EXPECT().Begin(ctx).Return(nil, errors.New("pool closed"))

	_, err := d.svc.CompleteTopup(ctx, uuid.New(), "", "")
	assertAppError(t, err, apperror.CodeInternal)
}

// ==================== FailTopup ====================

func TestLedger_FailTopup_Success(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	txn := &domain.Transaction{
		ID: uuid.New(), WalletID: uuid.New(), Amount: dec("50"),
		Type: domain.TransactionTypeTopup, Status: domain.TransactionStatusPending,
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByIDForUpdate(ctx, tx, txn.ID).Return(txn, nil)
	d.txRepo.EXPECT().Settle(ctx, tx, txn.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, _ uuid.UUID, u ports.SettleUpdate) error {
			assert.Equal(t, domain.TransactionStatusFailed, u.Status)
			return nil
		})

	got, err := d.svc.FailTopup(ctx, txn.ID, "order_x", "RAZORPAY")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, got.Status)
}

// ==================== Debit ====================

func TestLedger_Debit_Success(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := &domain.Wallet{ID: uuid.New(), IdentityID: uuid.New(), Balance: dec("500"), Currency: "INR"}
	terminal := "TERM-01"

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.identityRepo.EXPECT().GetByID(ctx, wallet.IdentityID).Return(approvedIdentity(wallet.IdentityID), nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, _ uuid.UUID, b decimal.Decimal) error {
			assert.True(t, b.Equal(dec("379.50")))
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(func(_ context.Context, _ any, txn *domain.Transaction) error {
		assert.Equal(t, domain.TransactionTypePayment, txn.Type)
		assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
		assert.Equal(t, &terminal, txn.TerminalID)
		return nil
	})

	res, err := d.svc.Debit(ctx, ports.DebitRequest{
		WalletID: wallet.ID, Amount: dec("120.50"), OriginRef: &terminal, Description: "coffee",
	})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("379.50")))
	assert.Equal(t, "coffee", res.Transaction.Description)
}

func TestLedger_Debit_InsufficientBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := &domain.Wallet{ID: uuid.New(), IdentityID: uuid.New(), Balance: dec("100")}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.identityRepo.EXPECT().GetByID(ctx, wallet.IdentityID).Return(approvedIdentity(wallet.IdentityID), nil)

	_, err := d.svc.Debit(ctx, ports.DebitRequest{WalletID: wallet.ID, Amount: dec("150")})
	assertAppError(t, err, apperror.CodeInsufficientBalance)
	assert.True(t, wallet.Balance.Equal(dec("100")))
}

func TestLedger_Debit_KycNotApproved(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := &domain.Wallet{ID: uuid.New(), IdentityID: uuid.New(), Balance: dec("100")}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.identityRepo.EXPECT().GetByID(ctx, wallet.IdentityID).Return(&domain.Identity{
		ID: wallet.IdentityID, KYCStatus: domain.KYCStatusPending,
	}, nil)

	_, err := d.svc.Debit(ctx, ports.DebitRequest{WalletID: wallet.ID, Amount: dec("10")})
	assertAppError(t, err, apperror.CodeKycNotApproved)
}

func TestLedger_Debit_WalletNotFound(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	_, err := d.svc.Debit(ctx, ports.DebitRequest{WalletID: id, Amount: dec("10")})
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestLedger_Debit_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)

	for _, amt := range []decimal.Decimal{decimal.Zero, dec("10.005"), dec("0.001")} {
		_, err := d.svc.Debit(context.Background(), ports.DebitRequest{WalletID: uuid.New(), Amount: amt})
		assertAppError(t, err, apperror.CodeInvalidAmount)
	}
}
