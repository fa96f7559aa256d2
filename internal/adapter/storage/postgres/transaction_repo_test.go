package postgres

import (
	"context"
	"testing"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestTransaction(walletID uuid.UUID) *domain.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    walletID,
		Amount:      decimal.RequireFromString("120.00"),
		Type:        domain.TransactionTypePayment,
		Status:      domain.TransactionStatusSuccess,
		TerminalID:  strPtr("T-100"),
		Description: "Palm payment at terminal T-100",
		CreatedAt:   now,
		ProcessedAt: &now,
	}
}

func txColumns() []string {
	return []string{"id", "wallet_id", "amount", "type", "status", "terminal_id",
		"gateway_order_id", "gateway_provider", "description", "created_at", "processed_at"}
}

func txRow(rows *pgxmock.Rows, t *domain.Transaction) *pgxmock.Rows {
	return rows.AddRow(
		t.ID, t.WalletID, t.Amount, t.Type, t.Status, t.TerminalID,
		t.GatewayOrderID, t.GatewayProvider, t.Description,
		t.CreatedAt, t.ProcessedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.Status, txn.TerminalID,
			txn.GatewayOrderID, txn.GatewayProvider, txn.Description,
			txn.CreatedAt, txn.ProcessedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(txRow(pgxmock.NewRows(txColumns()), txn))

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, domain.TransactionTypePayment, result.Type)
	assert.Equal(t, "T-100", *result.TerminalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())
	txn.Type = domain.TransactionTypeTopup
	txn.Status = domain.TransactionStatusPending
	txn.TerminalID = nil
	txn.ProcessedAt = nil

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id .+ FOR UPDATE").
		WithArgs(txn.ID).
		WillReturnRows(txRow(pgxmock.NewRows(txColumns()), txn))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsPending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Settle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txID := uuid.New()
	update := ports.SettleUpdate{
		Status:          domain.TransactionStatusSuccess,
		GatewayOrderID:  strPtr("order_Nf1"),
		GatewayProvider: strPtr(domain.DefaultGatewayProvider),
		ProcessedAt:     time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions .+ WHERE id = .+ AND status = 'PENDING'").
		WithArgs(update.Status, update.GatewayOrderID, update.GatewayProvider, pgxmock.AnyArg(), txID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Settle(context.Background(), dbTx, txID, update)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Settle_NotPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(domain.TransactionStatusFailed, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), txID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Settle(context.Background(), dbTx, txID, ports.SettleUpdate{
		Status:      domain.TransactionStatusFailed,
		ProcessedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ports.ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	status := domain.TransactionStatusSuccess
	first := newTestTransaction(walletID)
	second := newTestTransaction(walletID)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transactions WHERE wallet_id = \\$1 AND status = \\$2").
		WithArgs(walletID, status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	rows := txRow(txRow(pgxmock.NewRows(txColumns()), first), second)
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id .+ ORDER BY created_at DESC").
		WithArgs(walletID, status, 2, 2).
		WillReturnRows(rows)

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		WalletID: walletID,
		Status:   &status,
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, txns, 2)
	assert.Equal(t, first.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	cutoff := time.Now().Add(-time.Hour)
	txn := newTestTransaction(uuid.New())
	txn.Type = domain.TransactionTypeTopup
	txn.Status = domain.TransactionStatusPending

	mock.ExpectQuery("SELECT .+ FROM transactions\\s+WHERE type = 'TOPUP' AND status = 'PENDING'").
		WithArgs(cutoff, 50).
		WillReturnRows(txRow(pgxmock.NewRows(txColumns()), txn))

	txns, err := repo.ListPending(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
