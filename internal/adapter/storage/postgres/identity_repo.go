package postgres

import (
	"context"
	"errors"
	"fmt"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const identityColumnList = `id, phone, kyc_status, palm_registered, created_at`

// IdentityRepo implements ports.IdentityRepository. Identities are written by
// the signup and KYC workflow; only the palm flag is updated here.
type IdentityRepo struct {
	pool Pool
}

// NewIdentityRepo creates a new IdentityRepo.
func NewIdentityRepo(pool Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// GetByID fetches an identity by its UUID.
func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	query := `SELECT ` + identityColumnList + ` FROM identities WHERE id = $1`

	i, err := scanIdentity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get identity by id: %w", err)
	}
	return i, nil
}

// GetByPhone fetches an identity by its E.164 phone number.
func (r *IdentityRepo) GetByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumnList + ` FROM identities WHERE phone = $1`

	i, err := scanIdentity(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		return nil, fmt.Errorf("get identity by phone: %w", err)
	}
	return i, nil
}

// MarkPalmRegistered sets the palm flag once an embedding is stored.
func (r *IdentityRepo) MarkPalmRegistered(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE identities SET palm_registered = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark palm registered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity not found: %s", id)
	}
	return nil
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	i := &domain.Identity{}
	err := row.Scan(&i.ID, &i.Phone, &i.KYCStatus, &i.PalmRegistered, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return i, nil
}
