package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, merchant_id, amount, currency, settlement_amount, selected_token,
		destination_wallet, customer_wallet, transaction_signature, status, created_at, updated_at`

// Create inserts a new payment.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.Amount, p.Currency, p.SettlementAmount, p.SelectedToken,
		p.DestinationWallet, p.CustomerWallet, p.TransactionSignature, p.Status,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by its UUID. Returns nil, nil when not found.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p := &domain.Payment{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.MerchantID, &p.Amount, &p.Currency, &p.SettlementAmount, &p.SelectedToken,
		&p.DestinationWallet, &p.CustomerWallet, &p.TransactionSignature, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return p, nil
}

// Update persists the mutable lifecycle fields keyed by id. Updating a row
// that no longer exists is an error, not a silent success.
func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	query := `UPDATE payments
		SET settlement_amount=$1, selected_token=$2, customer_wallet=$3,
			transaction_signature=$4, status=$5, updated_at=$6
		WHERE id=$7`

	tag, err := r.pool.Exec(ctx, query,
		p.SettlementAmount, p.SelectedToken, p.CustomerWallet,
		p.TransactionSignature, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payment: no row with id %s", p.ID)
	}
	return nil
}

// List returns a page of a merchant's payments, newest first, plus the
// total count for the filter.
func (r *PaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.Payment, int64, error) {
	where := `WHERE merchant_id = $1`
	args := []any{params.MerchantID}
	if params.Status != nil {
		where += ` AND status = $2`
		args = append(args, *params.Status)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT `+paymentColumns+` FROM payments %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.MerchantID, &p.Amount, &p.Currency, &p.SettlementAmount, &p.SelectedToken,
			&p.DestinationWallet, &p.CustomerWallet, &p.TransactionSignature, &p.Status,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, total, nil
}

// CountByStatus returns the merchant's payment counts grouped by status.
func (r *PaymentRepo) CountByStatus(ctx context.Context, merchantID uuid.UUID) (map[domain.PaymentStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM payments WHERE merchant_id = $1 GROUP BY status`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("count payments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.PaymentStatus]int64)
	for rows.Next() {
		var status domain.PaymentStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}
