package ports

import (
	"context"

	"token-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// QuoteProvider prices and builds token settlement routes. Network-bound;
// both calls honor context deadlines.
type QuoteProvider interface {
	// GetQuote requests fixed-output pricing: the exact settlement amount
	// desired, solving for the required input amount. It fails with
	// apperror.ErrQuoteUnavailable when no route exists (user-facing
	// "unsupported token") and with ErrUpstreamTimeout/ErrUpstreamUnavailable
	// on transport failure (retryable).
	GetQuote(ctx context.Context, inputMint, outputMint string, exactOutputAmount int64, slippageBps int) (*domain.Quote, error)

	// BuildSettlementPayload produces an opaque, signable transfer
	// description routing the quoted output directly to payeeAccount. The
	// gateway never holds custody of swapped proceeds.
	BuildSettlementPayload(ctx context.Context, quote *domain.Quote, payerWallet, payeeAccount string) (string, error)
}

// EventPublisher receives committed lifecycle events. Implementations must
// never fail the triggering transition; delivery problems are theirs to
// swallow and log.
type EventPublisher interface {
	Publish(event domain.Event)
}

// --- Service Ports (Business Logic) ---

// PaymentLifecycle is the state machine engine exposed to the HTTP layer.
// All operations return synchronously but suspend internally on I/O.
type PaymentLifecycle interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error)
	Prepare(ctx context.Context, paymentID uuid.UUID, token string) (*PrepareResult, error)
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
	RecordSubmission(ctx context.Context, paymentID uuid.UUID, signature string) (*domain.Payment, error)
	Confirm(ctx context.Context, paymentID uuid.UUID, signature string) (*domain.Payment, error)
	Fail(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.Payment, error)
}

// CreatePaymentRequest holds validated input for payment creation.
type CreatePaymentRequest struct {
	MerchantID uuid.UUID
	Amount     int64 // minor units of Currency
	Currency   string
}

// ExecuteRequest holds validated input for payment execution.
type ExecuteRequest struct {
	PaymentID      uuid.UUID
	Token          string
	CustomerWallet string
}

// PrepareResult pairs the updated payment with the tentative quote.
type PrepareResult struct {
	Payment *domain.Payment
	Quote   *domain.Quote
}

// ExecuteResult pairs the updated payment with the signable payload.
type ExecuteResult struct {
	Payment *domain.Payment
	Payload string
}

// MerchantService defines merchant onboarding.
type MerchantService interface {
	Register(ctx context.Context, req RegisterMerchantRequest) (*RegisterMerchantResponse, error)
	GetProfile(ctx context.Context, merchantID uuid.UUID) (*domain.Merchant, error)
}

// RegisterMerchantRequest holds input for merchant registration.
type RegisterMerchantRequest struct {
	Name              string
	WalletAddress     string
	SettlementAccount string // optional, defaults to WalletAddress
	WebhookURL        *string
}

// RegisterMerchantResponse holds the registration result; the API key is
// shown exactly once.
type RegisterMerchantResponse struct {
	Merchant *domain.Merchant
	APIKey   string
}

// ReportingService defines payment reporting: merchant-facing listings and
// stats, plus single-payment lookups for checkout status polling.
type ReportingService interface {
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, params PaymentListParams) ([]domain.Payment, int64, error)
	GetStats(ctx context.Context, merchantID uuid.UUID) (*PaymentStats, error)
}

// PaymentStats holds per-status payment counts for a merchant.
type PaymentStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
