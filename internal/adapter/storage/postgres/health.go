package postgres

import (
	"context"
	"errors"
	"time"
)

const healthTimeout = 2 * time.Second

// errSchemaMissing means the database answers but migrations were not applied.
var errSchemaMissing = errors.New("palmpay schema not migrated")

// HealthCheck implements ports.HealthChecker for PostgreSQL. A reachable
// database without the ledger tables is reported unhealthy.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks connectivity and that the wallets and embeddings tables exist.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var ready bool
	err := h.pool.QueryRow(ctx,
		`SELECT to_regclass('wallets') IS NOT NULL AND to_regclass('palm_embeddings') IS NOT NULL`,
	).Scan(&ready)
	if err != nil {
		return err
	}
	if !ready {
		return errSchemaMissing
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
