package postgres

import (
	"context"
	"testing"
	"time"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityRow(i *domain.Identity) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "phone", "kyc_status", "palm_registered", "created_at"}).
		AddRow(i.ID, i.Phone, i.KYCStatus, i.PalmRegistered, i.CreatedAt)
}

func newTestIdentity() *domain.Identity {
	return &domain.Identity{
		ID:        uuid.New(),
		Phone:     "+919800000001",
		KYCStatus: domain.KYCStatusApproved,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestIdentityRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)
	i := newTestIdentity()

	mock.ExpectQuery("SELECT .+ FROM identities WHERE id").
		WithArgs(i.ID).
		WillReturnRows(identityRow(i))

	result, err := repo.GetByID(context.Background(), i.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsKYCApproved())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_GetByPhone_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM identities WHERE phone").
		WithArgs("+919800000009").
		WillReturnRows(pgxmock.NewRows([]string{"id", "phone", "kyc_status", "palm_registered", "created_at"}))

	result, err := repo.GetByPhone(context.Background(), "+919800000009")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepo_MarkPalmRegistered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdentityRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE identities SET palm_registered").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.MarkPalmRegistered(context.Background(), id))

	mock.ExpectExec("UPDATE identities SET palm_registered").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkPalmRegistered(context.Background(), id)
	assert.ErrorContains(t, err, "identity not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTerminalRepo_GetByTerminalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTerminalRepo(mock)
	term := &domain.Terminal{
		ID:         uuid.New(),
		TerminalID: "T-100",
		APIKeyHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		Merchant:   "Corner Store",
		Location:   "Aisle 3",
		Active:     true,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectQuery("SELECT .+ FROM terminals WHERE terminal_id").
		WithArgs("T-100").
		WillReturnRows(pgxmock.NewRows([]string{"id", "terminal_id", "api_key_hash", "merchant", "location", "active", "created_at"}).
			AddRow(term.ID, term.TerminalID, term.APIKeyHash, term.Merchant, term.Location, term.Active, term.CreatedAt))

	result, err := repo.GetByTerminalID(context.Background(), "T-100")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, term.APIKeyHash, result.APIKeyHash)
	assert.True(t, result.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}
