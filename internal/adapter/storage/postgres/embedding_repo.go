package postgres

import (
	"context"
	"errors"
	"fmt"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EmbeddingRepo implements ports.EmbeddingRepository. Only ciphertext is
// stored; the vault key never reaches the database.
type EmbeddingRepo struct {
	pool Pool
}

// NewEmbeddingRepo creates a new EmbeddingRepo.
func NewEmbeddingRepo(pool Pool) *EmbeddingRepo {
	return &EmbeddingRepo{pool: pool}
}

// Upsert stores the embedding, replacing any previous one for the identity.
// created_at is kept on replace so the scan order stays stable.
func (r *EmbeddingRepo) Upsert(ctx context.Context, e *domain.EnrolledEmbedding) error {
	query := `INSERT INTO palm_embeddings (identity_id, ciphertext, dimensions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id) DO UPDATE
		SET ciphertext = EXCLUDED.ciphertext,
			dimensions = EXCLUDED.dimensions,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, e.IdentityID, e.Ciphertext, e.Dimensions, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

// GetByIdentityID fetches the embedding enrolled for an identity.
func (r *EmbeddingRepo) GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*domain.EnrolledEmbedding, error) {
	query := `SELECT identity_id, ciphertext, dimensions, created_at, updated_at
		FROM palm_embeddings WHERE identity_id = $1`

	e := &domain.EnrolledEmbedding{}
	err := r.pool.QueryRow(ctx, query, identityID).Scan(
		&e.IdentityID, &e.Ciphertext, &e.Dimensions, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	return e, nil
}

// ListAll returns every enrolled embedding ordered by enrollment time, then
// identity id.
func (r *EmbeddingRepo) ListAll(ctx context.Context) ([]domain.EnrolledEmbedding, error) {
	query := `SELECT identity_id, ciphertext, dimensions, created_at, updated_at
		FROM palm_embeddings ORDER BY created_at ASC, identity_id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var out []domain.EnrolledEmbedding
	for rows.Next() {
		var e domain.EnrolledEmbedding
		if err := rows.Scan(&e.IdentityID, &e.Ciphertext, &e.Dimensions, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding rows: %w", err)
	}
	return out, nil
}
