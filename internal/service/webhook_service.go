package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// webhookRetryIntervals is the delivery retry schedule.
var webhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// WebhookPayload is the JSON structure sent to a merchant webhook_url. The
// signature is an HMAC-SHA256 of the event JSON keyed by the merchant API key.
type WebhookPayload struct {
	Event     domain.Event `json:"event"`
	Signature string       `json:"signature"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookNotifier mirrors lifecycle events to the owning merchant's
// configured webhook URL. It implements ports.EventPublisher and never
// fails the triggering transition: lookups and deliveries are best-effort,
// delivery runs async with retries.
type WebhookNotifier struct {
	merchants  ports.MerchantRepository
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(merchants ports.MerchantRepository, httpClient HTTPClient, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		merchants:  merchants,
		httpClient: httpClient,
		log:        log,
	}
}

// Publish implements ports.EventPublisher.
func (s *WebhookNotifier) Publish(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	merchant, err := s.merchants.GetByID(ctx, event.MerchantID)
	if err != nil {
		s.log.Error().Err(err).Str("merchant_id", event.MerchantID.String()).Msg("webhook: failed to fetch merchant")
		return
	}
	if merchant == nil || merchant.WebhookURL == nil || *merchant.WebhookURL == "" {
		s.log.Debug().Str("merchant_id", event.MerchantID.String()).Msg("webhook: no webhook URL configured, skipping")
		return
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", event.PaymentID.String()).Msg("webhook: failed to marshal event")
		return
	}

	payload := WebhookPayload{
		Event:     event,
		Signature: sign(merchant.APIKey, eventJSON),
	}

	// Fire async with retries
	go s.deliverWithRetries(*merchant.WebhookURL, payload, event.PaymentID.String())
}

// deliverWithRetries attempts delivery with backoff.
func (s *WebhookNotifier) deliverWithRetries(url string, payload WebhookPayload, paymentID string) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", paymentID).Msg("webhook: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(webhookRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(webhookRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payloadBytes))
		if err != nil {
			s.log.Error().Err(err).Str("payment_id", paymentID).Int("attempt", attempt+1).Msg("webhook: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.log.Warn().Err(err).Str("payment_id", paymentID).Int("attempt", attempt+1).Msg("webhook: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.log.Info().Str("payment_id", paymentID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook: delivered successfully")
			return
		}

		s.log.Warn().Str("payment_id", paymentID).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("webhook: non-2xx response, retrying")
	}

	s.log.Error().Str("payment_id", paymentID).Msg("webhook: all retry attempts exhausted")
}

func sign(key string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
