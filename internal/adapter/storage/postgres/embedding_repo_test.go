package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingColumns() []string {
	return []string{"identity_id", "ciphertext", "dimensions", "created_at", "updated_at"}
}

func newTestEmbedding(createdAt time.Time) *domain.EnrolledEmbedding {
	return &domain.EnrolledEmbedding{
		IdentityID: uuid.New(),
		Ciphertext: []byte{0x01, 0xde, 0xad, 0xbe, 0xef},
		Dimensions: 128,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestEmbeddingRepo_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmbeddingRepo(mock)
	e := newTestEmbedding(time.Now().UTC())

	mock.ExpectExec("INSERT INTO palm_embeddings .+ ON CONFLICT \\(identity_id\\) DO UPDATE").
		WithArgs(e.IdentityID, e.Ciphertext, e.Dimensions, e.CreatedAt, e.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Upsert(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepo_GetByIdentityID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmbeddingRepo(mock)
	e := newTestEmbedding(time.Now().UTC().Truncate(time.Microsecond))

	mock.ExpectQuery("SELECT .+ FROM palm_embeddings WHERE identity_id").
		WithArgs(e.IdentityID).
		WillReturnRows(pgxmock.NewRows(embeddingColumns()).
			AddRow(e.IdentityID, e.Ciphertext, e.Dimensions, e.CreatedAt, e.UpdatedAt))

	result, err := repo.GetByIdentityID(context.Background(), e.IdentityID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, e.Ciphertext, result.Ciphertext)
	assert.Equal(t, 128, result.Dimensions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepo_ListAll_Ordered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmbeddingRepo(mock)
	base := time.Now().UTC().Truncate(time.Microsecond)
	a := newTestEmbedding(base)
	b := newTestEmbedding(base.Add(time.Second))

	mock.ExpectQuery("SELECT .+ FROM palm_embeddings ORDER BY created_at ASC, identity_id ASC").
		WillReturnRows(pgxmock.NewRows(embeddingColumns()).
			AddRow(a.IdentityID, a.Ciphertext, a.Dimensions, a.CreatedAt, a.UpdatedAt).
			AddRow(b.IdentityID, b.Ciphertext, b.Dimensions, b.CreatedAt, b.UpdatedAt))

	result, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, a.IdentityID, result[0].IdentityID)
	assert.Equal(t, b.IdentityID, result[1].IdentityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingRepo_ListAll_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmbeddingRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM palm_embeddings").
		WillReturnError(errors.New("canceling statement due to statement timeout"))

	result, err := repo.ListAll(context.Background())
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "list embeddings")
}

func TestGatewayEventRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewGatewayEventRepository(mock)
	txID := uuid.New()
	evt := &domain.GatewayEvent{
		ID:             uuid.New(),
		Provider:       domain.DefaultGatewayProvider,
		EventType:      "payment.captured",
		TransactionID:  &txID,
		GatewayOrderID: strPtr("order_Nf1"),
		Outcome:        domain.GatewayOutcomeCredited,
		Payload:        `{"event":"payment.captured"}`,
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO gateway_events").
		WithArgs(evt.ID, evt.Provider, evt.EventType, evt.TransactionID,
			evt.GatewayOrderID, "CREDITED", evt.Payload, evt.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), evt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionEnroll,
		ResourceType: "identity",
		ResourceID:   uuid.New().String(),
		IPAddress:    "10.0.0.4",
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.IdentityID, "PALM_ENROLL", entry.ResourceType,
			entry.ResourceID, entry.Details, entry.IPAddress, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
