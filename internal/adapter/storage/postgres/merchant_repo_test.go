package postgres

import (
	"context"
	"testing"
	"time"

	"token-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMerchant() *domain.Merchant {
	now := time.Now().UTC().Truncate(time.Microsecond)
	url := "https://merchant.example/webhooks"
	return &domain.Merchant{
		ID:                uuid.New(),
		Name:              "Test Shop",
		WalletAddress:     "7cVfgArCheMR6Cs4t6vz5rfnqd56vZq4ndaBrY5xkxXy",
		SettlementAccount: "7cVfgArCheMR6Cs4t6vz5rfnqd56vZq4ndaBrY5xkxXy",
		APIKey:            "ak_0123456789abcdef0123456789abcdef0123456789abcdef",
		WebhookURL:        &url,
		Status:            domain.MerchantStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func merchantRow(m *domain.Merchant) *pgxmock.Rows {
	cols := []string{"id", "name", "wallet_address", "settlement_account", "api_key", "webhook_url", "status", "created_at", "updated_at"}
	return pgxmock.NewRows(cols).AddRow(
		m.ID, m.Name, m.WalletAddress, m.SettlementAccount,
		m.APIKey, m.WebhookURL, m.Status, m.CreatedAt, m.UpdatedAt,
	)
}

func TestMerchantRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectExec("INSERT INTO merchants").
		WithArgs(m.ID, m.Name, m.WalletAddress, m.SettlementAccount,
			m.APIKey, m.WebhookURL, m.Status, m.CreatedAt, m.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), m)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE id").
		WithArgs(m.ID).
		WillReturnRows(merchantRow(m))

	result, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, m.ID, result.ID)
	assert.Equal(t, m.APIKey, result.APIKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByAPIKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE api_key").
		WithArgs(m.APIKey).
		WillReturnRows(merchantRow(m))

	result, err := repo.GetByAPIKey(context.Background(), m.APIKey)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, m.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByAPIKey_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM merchants WHERE api_key").
		WithArgs("ak_unknown").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	result, err := repo.GetByAPIKey(context.Background(), "ak_unknown")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
