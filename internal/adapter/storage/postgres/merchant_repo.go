package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

const merchantColumns = `id, name, wallet_address, settlement_account, api_key, webhook_url, status, created_at, updated_at`

// Create inserts a new merchant.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Name, m.WalletAddress, m.SettlementAccount,
		m.APIKey, m.WebhookURL, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID. Returns nil, nil when not found.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "id")
}

// GetByAPIKey fetches a merchant by its API key. Returns nil, nil when not found.
func (r *MerchantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE api_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, apiKey), "api_key")
}

func (r *MerchantRepo) scanOne(row pgx.Row, by string) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(
		&m.ID, &m.Name, &m.WalletAddress, &m.SettlementAccount,
		&m.APIKey, &m.WebhookURL, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by %s: %w", by, err)
	}
	return m, nil
}
