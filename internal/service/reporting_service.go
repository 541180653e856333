package service

import (
	"context"
	"fmt"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// ReportingServiceImpl implements ports.ReportingService.
type ReportingServiceImpl struct {
	payments ports.PaymentRepository
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(payments ports.PaymentRepository) *ReportingServiceImpl {
	return &ReportingServiceImpl{payments: payments}
}

// GetPayment returns one payment by id, for checkout status polling.
func (s *ReportingServiceImpl) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	return payment, nil
}

// ListPayments returns a page of the merchant's payments plus the total count.
func (s *ReportingServiceImpl) ListPayments(ctx context.Context, params ports.PaymentListParams) ([]domain.Payment, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	payments, total, err := s.payments.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return payments, total, nil
}

// GetStats returns per-status payment counts for the merchant.
func (s *ReportingServiceImpl) GetStats(ctx context.Context, merchantID uuid.UUID) (*ports.PaymentStats, error) {
	counts, err := s.payments.CountByStatus(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count payments: %w", err))
	}

	stats := &ports.PaymentStats{
		Pending:    counts[domain.PaymentStatusPending],
		Processing: counts[domain.PaymentStatusProcessing],
		Completed:  counts[domain.PaymentStatusCompleted],
		Failed:     counts[domain.PaymentStatusFailed],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	return stats, nil
}
