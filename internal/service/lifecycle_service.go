package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/pkg/apperror"
	"token-settlement-gateway/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LifecycleConfig tunes the engine's upstream calls. Quote and build carry
// distinct timeouts because quoting is a fast pricing lookup while payload
// construction is noticeably slower upstream.
type LifecycleConfig struct {
	QuoteTimeout time.Duration
	BuildTimeout time.Duration
	SlippageBps  int
}

// LifecycleService owns the payment state machine. It validates the current
// state, calls the quote provider as needed, persists through the payment
// repository, and pushes an event on every committed transition. Operations
// on one payment id are serialized by a keyed lock; events are published
// while that lock is held, so delivery order matches commit order.
type LifecycleService struct {
	payments  ports.PaymentRepository
	merchants ports.MerchantRepository
	quotes    ports.QuoteProvider
	publisher ports.EventPublisher
	tokens    *domain.TokenRegistry
	cfg       LifecycleConfig
	locks     *keyedMutex
	log       zerolog.Logger
}

// NewLifecycleService creates the engine.
func NewLifecycleService(
	payments ports.PaymentRepository,
	merchants ports.MerchantRepository,
	quotes ports.QuoteProvider,
	publisher ports.EventPublisher,
	tokens *domain.TokenRegistry,
	cfg LifecycleConfig,
	log zerolog.Logger,
) *LifecycleService {
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 5 * time.Second
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 15 * time.Second
	}
	return &LifecycleService{
		payments:  payments,
		merchants: merchants,
		quotes:    quotes,
		publisher: publisher,
		tokens:    tokens,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		log:       log,
	}
}

// Create registers a new payment in PENDING for an existing merchant. The
// merchant's settlement account is snapshotted onto the payment, so later
// merchant wallet changes never alter in-flight payments.
func (s *LifecycleService) Create(ctx context.Context, req ports.CreatePaymentRequest) (*domain.Payment, error) {
	if req.Amount <= 0 {
		return nil, s.fail("create", apperror.ErrInvalidInput("amount must be positive"))
	}
	if req.Currency == "" {
		return nil, s.fail("create", apperror.ErrInvalidInput("currency is required"))
	}

	merchant, err := s.merchants.GetByID(ctx, req.MerchantID)
	if err != nil {
		return nil, s.fail("create", apperror.InternalError(fmt.Errorf("fetch merchant: %w", err)))
	}
	if merchant == nil {
		return nil, s.fail("create", apperror.ErrNotFound("merchant"))
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:                uuid.New(),
		MerchantID:        merchant.ID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		DestinationWallet: merchant.SettlementAccount,
		Status:            domain.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, s.fail("create", apperror.InternalError(fmt.Errorf("create payment: %w", err)))
	}

	s.publisher.Publish(domain.NewEvent(domain.EventPaymentCreated, payment))
	metrics.TransitionsTotal.WithLabelValues("create", "ok").Inc()

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("merchant_id", merchant.ID.String()).
		Int64("amount", payment.Amount).
		Str("currency", payment.Currency).
		Msg("payment created")

	return payment, nil
}

// Prepare resolves the settlement route for a tentatively selected token and
// persists the selection. No event is emitted: token choice is tentative
// until execute.
func (s *LifecycleService) Prepare(ctx context.Context, paymentID uuid.UUID, token string) (*ports.PrepareResult, error) {
	unlock := s.locks.Lock(paymentID)
	defer unlock()

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, s.fail("prepare", err)
	}
	if !payment.CanSelectToken() {
		return nil, s.fail("prepare", apperror.ErrInvalidState("prepare", string(payment.Status)))
	}

	tok, settlementAmount, err := s.resolveRoute(payment, token)
	if err != nil {
		return nil, s.fail("prepare", err)
	}

	quote, err := s.priceRoute(ctx, tok, settlementAmount)
	if err != nil {
		return nil, s.fail("prepare", err)
	}

	payment.SelectedToken = tok.Mint
	payment.SettlementAmount = settlementAmount
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, s.fail("prepare", apperror.InternalError(fmt.Errorf("persist token selection: %w", err)))
	}

	metrics.TransitionsTotal.WithLabelValues("prepare", "ok").Inc()
	return &ports.PrepareResult{Payment: payment, Quote: quote}, nil
}

// Execute moves the payment to PROCESSING and builds the signable transfer
// payload. If the quote or payload construction fails (including timeouts),
// the status is rolled back to PENDING so the operation is retryable; a
// payment is never left stuck in PROCESSING on this path.
func (s *LifecycleService) Execute(ctx context.Context, req ports.ExecuteRequest) (*ports.ExecuteResult, error) {
	unlock := s.locks.Lock(req.PaymentID)
	defer unlock()

	payment, err := s.getPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, s.fail("execute", err)
	}
	if !payment.CanExecute() {
		return nil, s.fail("execute", apperror.ErrInvalidState("execute", string(payment.Status)))
	}
	if !domain.IsWalletAddress(req.CustomerWallet) {
		return nil, s.fail("execute", apperror.ErrInvalidInput("invalid customer wallet address"))
	}

	// The executed token wins over any tentative prepare; the route is
	// always re-resolved because prices are time-sensitive.
	tok, settlementAmount, err := s.resolveRoute(payment, req.Token)
	if err != nil {
		return nil, s.fail("execute", err)
	}

	payment.SelectedToken = tok.Mint
	payment.SettlementAmount = settlementAmount
	payment.CustomerWallet = req.CustomerWallet
	payment.Status = domain.PaymentStatusProcessing
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, s.fail("execute", apperror.InternalError(fmt.Errorf("persist processing state: %w", err)))
	}

	payload, err := s.buildPayload(ctx, payment, tok, settlementAmount)
	if err != nil {
		s.rollbackToPending(ctx, payment)
		return nil, s.fail("execute", err)
	}

	s.publisher.Publish(domain.NewEvent(domain.EventPaymentUpdated, payment))
	metrics.TransitionsTotal.WithLabelValues("execute", "ok").Inc()

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("token", tok.Mint).
		Bool("direct", s.tokens.IsSettlement(tok)).
		Int64("settlement_amount", settlementAmount).
		Msg("payment executing")

	return &ports.ExecuteResult{Payment: payment, Payload: payload}, nil
}

// RecordSubmission stores the on-chain transaction signature reported by
// the client after it submitted the transfer.
func (s *LifecycleService) RecordSubmission(ctx context.Context, paymentID uuid.UUID, signature string) (*domain.Payment, error) {
	if signature == "" {
		return nil, s.fail("submit", apperror.ErrInvalidInput("signature is required"))
	}

	unlock := s.locks.Lock(paymentID)
	defer unlock()

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, s.fail("submit", err)
	}

	payment.TransactionSignature = signature
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, s.fail("submit", apperror.InternalError(fmt.Errorf("persist signature: %w", err)))
	}

	s.publisher.Publish(domain.NewEvent(domain.EventTransactionSubmitted, payment))
	metrics.TransitionsTotal.WithLabelValues("submit", "ok").Inc()
	return payment, nil
}

// Confirm completes the payment on the client-supplied confirmation signal.
// It is deliberately permissive: a confirm arriving after the state already
// advanced is logged and accepted, and a duplicate confirm with the same
// signature on a COMPLETED payment is a no-op. Last write of status to
// COMPLETED wins; the signature is overwritten only if a new one arrives.
func (s *LifecycleService) Confirm(ctx context.Context, paymentID uuid.UUID, signature string) (*domain.Payment, error) {
	unlock := s.locks.Lock(paymentID)
	defer unlock()

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, s.fail("confirm", err)
	}

	if payment.Status == domain.PaymentStatusCompleted &&
		(signature == "" || signature == payment.TransactionSignature) {
		s.log.Debug().Str("payment_id", payment.ID.String()).Msg("duplicate confirmation ignored")
		metrics.TransitionsTotal.WithLabelValues("confirm", "ok").Inc()
		return payment, nil
	}

	if payment.Status != domain.PaymentStatusProcessing {
		s.log.Warn().
			Str("payment_id", payment.ID.String()).
			Str("status", string(payment.Status)).
			Msg("confirming payment not in PROCESSING")
	}

	if signature != "" {
		payment.TransactionSignature = signature
	}
	payment.Status = domain.PaymentStatusCompleted
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, s.fail("confirm", apperror.InternalError(fmt.Errorf("persist completion: %w", err)))
	}

	s.publisher.Publish(domain.NewEvent(domain.EventTransactionConfirmed, payment))
	s.publisher.Publish(domain.NewEvent(domain.EventPaymentCompleted, payment))
	metrics.TransitionsTotal.WithLabelValues("confirm", "ok").Inc()

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("signature", payment.TransactionSignature).
		Msg("payment completed")

	return payment, nil
}

// Fail moves a non-terminal payment to FAILED, carrying the reason in the
// emitted event alongside the payment snapshot.
func (s *LifecycleService) Fail(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.Payment, error) {
	unlock := s.locks.Lock(paymentID)
	defer unlock()

	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, s.fail("fail", err)
	}
	if !payment.CanFail() {
		return nil, s.fail("fail", apperror.ErrInvalidState("fail", string(payment.Status)))
	}

	payment.Status = domain.PaymentStatusFailed
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, s.fail("fail", apperror.InternalError(fmt.Errorf("persist failure: %w", err)))
	}

	s.publisher.Publish(domain.NewFailureEvent(payment, reason))
	metrics.TransitionsTotal.WithLabelValues("fail", "ok").Inc()

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("reason", reason).
		Msg("payment failed")

	return payment, nil
}

// getPayment fetches a payment or reports NotFound.
func (s *LifecycleService) getPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	return payment, nil
}

// resolveRoute resolves the token identifier and computes the exact
// settlement amount by integer power-of-ten scaling from the fiat price.
func (s *LifecycleService) resolveRoute(payment *domain.Payment, token string) (domain.Token, int64, error) {
	tok, ok := s.tokens.Resolve(token)
	if !ok {
		return domain.Token{}, 0, apperror.ErrUnsupportedToken(token)
	}
	settlementAmount, err := domain.ScaleAmount(
		payment.Amount,
		domain.CurrencyDecimals(payment.Currency),
		s.tokens.Settlement().Decimals,
	)
	if err != nil {
		return domain.Token{}, 0, apperror.ErrInvalidInput(err.Error())
	}
	return tok, settlementAmount, nil
}

// priceRoute prices the route for display. Direct settlement needs no
// external pricing call.
func (s *LifecycleService) priceRoute(ctx context.Context, tok domain.Token, settlementAmount int64) (*domain.Quote, error) {
	settlement := s.tokens.Settlement()
	if s.tokens.IsSettlement(tok) {
		return &domain.Quote{
			IsDirectSettlement: true,
			InputToken:         tok.Mint,
			OutputToken:        settlement.Mint,
			InputAmount:        settlementAmount,
			OutputAmount:       settlementAmount,
		}, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()
	return s.quotes.GetQuote(qctx, tok.Mint, settlement.Mint, settlementAmount, s.cfg.SlippageBps)
}

// directPayload is the locally built transfer description for the direct
// route: the exact settlement amount moved straight to the merchant's
// settlement-token account.
type directPayload struct {
	Type        string `json:"type"`
	Mint        string `json:"mint"`
	Amount      int64  `json:"amount"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// buildPayload produces the signable transfer description. Swap proceeds
// are routed by the provider directly to the merchant's settlement account;
// the gateway never holds custody of them, even transiently.
func (s *LifecycleService) buildPayload(ctx context.Context, payment *domain.Payment, tok domain.Token, settlementAmount int64) (string, error) {
	settlement := s.tokens.Settlement()

	if s.tokens.IsSettlement(tok) {
		raw, err := json.Marshal(directPayload{
			Type:        "direct_transfer",
			Mint:        settlement.Mint,
			Amount:      settlementAmount,
			Source:      payment.CustomerWallet,
			Destination: payment.DestinationWallet,
		})
		if err != nil {
			return "", apperror.InternalError(fmt.Errorf("encode direct payload: %w", err))
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()
	quote, err := s.quotes.GetQuote(qctx, tok.Mint, settlement.Mint, settlementAmount, s.cfg.SlippageBps)
	if err != nil {
		return "", err
	}

	bctx, cancel := context.WithTimeout(ctx, s.cfg.BuildTimeout)
	defer cancel()
	return s.quotes.BuildSettlementPayload(bctx, quote, payment.CustomerWallet, payment.DestinationWallet)
}

// rollbackToPending undoes the PROCESSING transition after a failed quote or
// payload build. A failed rollback write leaves no compensating mechanism in
// scope; it is logged at error level and the original failure is surfaced.
func (s *LifecycleService) rollbackToPending(ctx context.Context, payment *domain.Payment) {
	// The rollback write must land even if the caller's context already
	// expired; the expiry is usually why we are here.
	rctx := context.WithoutCancel(ctx)

	payment.Status = domain.PaymentStatusPending
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(rctx, payment); err != nil {
		s.log.Error().
			Err(err).
			Str("payment_id", payment.ID.String()).
			Msg("failed to roll payment back to PENDING")
		return
	}
	s.log.Warn().
		Str("payment_id", payment.ID.String()).
		Msg("payment rolled back to PENDING after quote failure")
}

// fail counts an errored operation and passes the error through.
func (s *LifecycleService) fail(operation string, err error) error {
	metrics.TransitionsTotal.WithLabelValues(operation, "error").Inc()
	return err
}
