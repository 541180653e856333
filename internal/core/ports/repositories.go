package ports

import (
	"context"

	"token-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// PaymentRepository defines persistence operations for payments.
// Update is keyed by id: updating a row that no longer exists reports
// domain.Payment not found rather than succeeding silently.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	// Reporting queries
	List(ctx context.Context, params PaymentListParams) ([]domain.Payment, int64, error)
	CountByStatus(ctx context.Context, merchantID uuid.UUID) (map[domain.PaymentStatus]int64, error)
}

// PaymentListParams holds filter + pagination for listing payments.
type PaymentListParams struct {
	MerchantID uuid.UUID
	Status     *domain.PaymentStatus
	Page       int
	PageSize   int
}

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
}
