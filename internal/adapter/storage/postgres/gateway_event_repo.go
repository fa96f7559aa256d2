package postgres

import (
	"context"
	"fmt"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
)

type gatewayEventRepo struct {
	pool Pool
}

// NewGatewayEventRepository creates a PostgreSQL-backed GatewayEventRepository.
func NewGatewayEventRepository(pool Pool) ports.GatewayEventRepository {
	return &gatewayEventRepo{pool: pool}
}

func (r *gatewayEventRepo) Create(ctx context.Context, e *domain.GatewayEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO gateway_events
		(id, provider, event_type, transaction_id, gateway_order_id, outcome, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Provider, e.EventType, e.TransactionID,
		e.GatewayOrderID, string(e.Outcome), e.Payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert gateway event: %w", err)
	}
	return nil
}
