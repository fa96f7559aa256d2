package postgres

import (
	"context"
	"errors"
	"fmt"

	"palmpay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TerminalRepo implements ports.TerminalRepository.
type TerminalRepo struct {
	pool Pool
}

// NewTerminalRepo creates a new TerminalRepo.
func NewTerminalRepo(pool Pool) *TerminalRepo {
	return &TerminalRepo{pool: pool}
}

// GetByTerminalID fetches a terminal by its public identifier.
func (r *TerminalRepo) GetByTerminalID(ctx context.Context, terminalID string) (*domain.Terminal, error) {
	query := `SELECT id, terminal_id, api_key_hash, merchant, location, active, created_at
		FROM terminals WHERE terminal_id = $1`

	t := &domain.Terminal{}
	err := r.pool.QueryRow(ctx, query, terminalID).Scan(
		&t.ID, &t.TerminalID, &t.APIKeyHash, &t.Merchant,
		&t.Location, &t.Active, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get terminal: %w", err)
	}
	return t, nil
}
