package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, s *Store, balance string) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{
		ID:         uuid.New(),
		IdentityID: uuid.New(),
		Balance:    decimal.RequireFromString(balance),
		Currency:   domain.DefaultCurrency,
		CreatedAt:  time.Now().UTC(),
	}
	created, err := NewWalletRepo(s).CreateIfAbsent(context.Background(), w)
	require.NoError(t, err)
	require.True(t, created)
	return w
}

func TestWalletRepo_CommitAppliesBalance(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()
	w := seedWallet(t, s, "100")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	locked, err := repo.GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateBalance(ctx, tx, w.ID, locked.Balance.Add(decimal.NewFromInt(25))))

	// Not visible before commit.
	before, _ := repo.GetByID(ctx, w.ID)
	assert.True(t, before.Balance.Equal(decimal.NewFromInt(100)))

	require.NoError(t, tx.Commit(ctx))
	after, _ := repo.GetByID(ctx, w.ID)
	assert.True(t, after.Balance.Equal(decimal.NewFromInt(125)))

	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
}

func TestWalletRepo_RollbackDiscards(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()
	w := seedWallet(t, s, "100")

	tx, _ := s.Begin(ctx)
	_, err := repo.GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateBalance(ctx, tx, w.ID, decimal.Zero))
	require.NoError(t, tx.Rollback(ctx))

	got, _ := repo.GetByID(ctx, w.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}

func TestWalletRepo_UpdateBalanceRequiresLock(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "10")

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck
	err := NewWalletRepo(s).UpdateBalance(ctx, tx, w.ID, decimal.NewFromInt(5))
	assert.Error(t, err)
}

func TestWalletRepo_RowLockBlocksSecondTx(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	ctx := context.Background()
	w := seedWallet(t, s, "10")

	first, _ := s.Begin(ctx)
	_, err := repo.GetByIDForUpdate(ctx, first, w.ID)
	require.NoError(t, err)

	second, _ := s.Begin(ctx)
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = repo.GetByIDForUpdate(waitCtx, second, w.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Commit(ctx))
	got, err := repo.GetByIDForUpdate(ctx, second, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	require.NoError(t, second.Rollback(ctx))
}

func TestWalletRepo_UniqueIdentity(t *testing.T) {
	s := NewStore()
	repo := NewWalletRepo(s)
	w := seedWallet(t, s, "0")

	_, err := repo.CreateIfAbsent(context.Background(), &domain.Wallet{ID: uuid.New(), IdentityID: w.IdentityID})
	assert.Error(t, err)
}

func TestTransactionRepo_SettleOnce(t *testing.T) {
	s := NewStore()
	repo := NewTransactionRepo(s)
	ctx := context.Background()
	txn := &domain.Transaction{
		ID: uuid.New(), WalletID: uuid.New(), Amount: decimal.NewFromInt(5),
		Type: domain.TransactionTypeTopup, Status: domain.TransactionStatusPending, CreatedAt: time.Now().UTC(),
	}

	tx, _ := s.Begin(ctx)
	require.NoError(t, repo.Create(ctx, tx, txn))
	require.NoError(t, tx.Commit(ctx))

	update := ports.SettleUpdate{Status: domain.TransactionStatusSuccess, ProcessedAt: time.Now().UTC()}

	tx, _ = s.Begin(ctx)
	_, err := repo.GetByIDForUpdate(ctx, tx, txn.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Settle(ctx, tx, txn.ID, update))
	assert.ErrorIs(t, repo.Settle(ctx, tx, txn.ID, update), ports.ErrNotPending)
	require.NoError(t, tx.Commit(ctx))

	got, _ := repo.GetByID(ctx, txn.ID)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
	require.NotNil(t, got.ProcessedAt)

	tx, _ = s.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck
	assert.ErrorIs(t, repo.Settle(ctx, tx, txn.ID, update), ports.ErrNotPending)
}

func TestTransactionRepo_ListAndPending(t *testing.T) {
	s := NewStore()
	repo := NewTransactionRepo(s)
	ctx := context.Background()
	walletID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	tx, _ := s.Begin(ctx)
	for i := 0; i < 5; i++ {
		status := domain.TransactionStatusSuccess
		if i%2 == 0 {
			status = domain.TransactionStatusPending
		}
		require.NoError(t, repo.Create(ctx, tx, &domain.Transaction{
			ID: uuid.New(), WalletID: walletID, Amount: decimal.NewFromInt(int64(i + 1)),
			Type: domain.TransactionTypeTopup, Status: status, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, tx, &domain.Transaction{
		ID: uuid.New(), WalletID: uuid.New(), Type: domain.TransactionTypeTopup,
		Status: domain.TransactionStatusPending, CreatedAt: base,
	}))
	require.NoError(t, tx.Commit(ctx))

	page, total, err := repo.List(ctx, ports.TransactionListParams{WalletID: walletID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].Amount.Equal(decimal.NewFromInt(5)), "newest first")

	empty, _, err := repo.List(ctx, ports.TransactionListParams{WalletID: walletID, Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)

	pending, err := repo.ListPending(ctx, time.Now().UTC(), 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.True(t, !pending[0].CreatedAt.After(pending[1].CreatedAt), "oldest first")
}

func TestEmbeddingRepo_ListAllStableOrder(t *testing.T) {
	s := NewStore()
	repo := NewEmbeddingRepo(s)
	ctx := context.Background()
	at := time.Now().UTC()

	a := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	c := uuid.MustParse("00000000-0000-0000-0000-000000000003")
	require.NoError(t, repo.Upsert(ctx, &domain.EnrolledEmbedding{IdentityID: c, Ciphertext: []byte{1}, CreatedAt: at.Add(-time.Minute)}))
	require.NoError(t, repo.Upsert(ctx, &domain.EnrolledEmbedding{IdentityID: a, Ciphertext: []byte{2}, CreatedAt: at}))
	require.NoError(t, repo.Upsert(ctx, &domain.EnrolledEmbedding{IdentityID: b, Ciphertext: []byte{3}, CreatedAt: at}))

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{c, b, a}, []uuid.UUID{list[0].IdentityID, list[1].IdentityID, list[2].IdentityID})

	// Re-enrollment replaces the blob but keeps the original position.
	require.NoError(t, repo.Upsert(ctx, &domain.EnrolledEmbedding{IdentityID: c, Ciphertext: []byte{9}, CreatedAt: at.Add(time.Hour)}))
	list, _ = repo.ListAll(ctx)
	assert.Equal(t, c, list[0].IdentityID)
	assert.Equal(t, []byte{9}, list[0].Ciphertext)
}

func TestLoadSeed(t *testing.T) {
	s := NewStore()
	id := uuid.New()
	doc := `{
	  "identities": [{"id": "` + id.String() + `", "phone": "+919800000001", "kyc_status": "APPROVED"}],
	  "terminals": [{"terminal_id": "T-1", "api_key_hash": "h", "merchant": "Cafe", "active": true}]
	}`

	require.NoError(t, s.LoadSeed(strings.NewReader(doc)))

	identity, err := NewIdentityRepo(s).GetByPhone(context.Background(), "+919800000001")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, id, identity.ID)
	assert.True(t, identity.IsKYCApproved())

	terminal, err := NewTerminalRepo(s).GetByTerminalID(context.Background(), "T-1")
	require.NoError(t, err)
	require.NotNil(t, terminal)
	assert.True(t, terminal.Active)

	assert.Error(t, s.LoadSeed(strings.NewReader(`{"identities":[{"phone":"x"}]}`)))
}

func TestForeignTxRejected(t *testing.T) {
	s := NewStore()
	_, err := NewWalletRepo(s).GetByIDForUpdate(context.Background(), nil, uuid.New())
	assert.Error(t, err)
}
