package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumnList = `id, wallet_id, amount, type, status, terminal_id,
		gateway_order_id, gateway_provider, description, created_at, processed_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Amount, t.Type, t.Status, t.TerminalID,
		t.GatewayOrderID, t.GatewayProvider, t.Description,
		t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumnList + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// GetByIDForUpdate fetches a transaction with a row lock so that concurrent
// gateway callbacks for the same top-up serialize.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumnList + ` FROM transactions WHERE id = $1 FOR UPDATE`

	t, err := scanTransaction(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction for update: %w", err)
	}
	return t, nil
}

// Settle moves a PENDING transaction to its final status. The status guard in
// the WHERE clause makes a second settlement affect no row.
func (r *TransactionRepo) Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, u ports.SettleUpdate) error {
	query := `UPDATE transactions
		SET status = $1,
			gateway_order_id = COALESCE($2, gateway_order_id),
			gateway_provider = COALESCE($3, gateway_provider),
			processed_at = $4
		WHERE id = $5 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, u.Status, u.GatewayOrderID, u.GatewayProvider, u.ProcessedAt, id)
	if err != nil {
		return fmt.Errorf("settle transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotPending
	}
	return nil
}

// List returns one page of a wallet statement, newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumnList, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	txns, err := r.queryTransactions(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txns, total, nil
}

// ListPending returns top-ups still PENDING that were opened before olderThan,
// oldest first.
func (r *TransactionRepo) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumnList + ` FROM transactions
		WHERE type = 'TOPUP' AND status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`

	txns, err := r.queryTransactions(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending top-ups: %w", err)
	}
	return txns, nil
}

func (r *TransactionRepo) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(transactionDest(&t)...); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func transactionDest(t *domain.Transaction) []any {
	return []any{
		&t.ID, &t.WalletID, &t.Amount, &t.Type, &t.Status, &t.TerminalID,
		&t.GatewayOrderID, &t.GatewayProvider, &t.Description,
		&t.CreatedAt, &t.ProcessedAt,
	}
}

// scanTransaction returns nil, nil when the row does not exist.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	if err := row.Scan(transactionDest(t)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}
