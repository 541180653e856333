package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"testing"
	"time"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// capturingClient records the first request and signals completion.
type capturingClient struct {
	status    int
	delivered chan *http.Request
	body      chan []byte
}

func newCapturingClient(status int) *capturingClient {
	return &capturingClient{
		status:    status,
		delivered: make(chan *http.Request, 1),
		body:      make(chan []byte, 1),
	}
}

func (c *capturingClient) Do(req *http.Request) (*http.Response, error) {
	raw, _ := io.ReadAll(req.Body)
	select {
	case c.delivered <- req:
		c.body <- raw
	default:
	}
	return &http.Response{StatusCode: c.status, Body: http.NoBody}, nil
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchants := mocks.NewMockMerchantRepository(ctrl)
	client := newCapturingClient(http.StatusOK)
	notifier := NewWebhookNotifier(merchants, client, zerolog.Nop())

	merchantID := uuid.New()
	url := "https://merchant.example/webhooks"
	merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{
		ID:         merchantID,
		APIKey:     "ak_secret",
		WebhookURL: &url,
		Status:     domain.MerchantStatusActive,
	}, nil)

	payment := pendingPayment(merchantID)
	notifier.Publish(domain.NewEvent(domain.EventPaymentCompleted, payment))

	select {
	case req := <-client.delivered:
		assert.Equal(t, url, req.URL.String())
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		var payload WebhookPayload
		require.NoError(t, json.Unmarshal(<-client.body, &payload))
		assert.Equal(t, domain.EventPaymentCompleted, payload.Event.Type)
		assert.Equal(t, payment.ID, payload.Event.PaymentID)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), payload.Signature)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestWebhookNotifier_SkipsWithoutURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchants := mocks.NewMockMerchantRepository(ctrl)
	client := newCapturingClient(http.StatusOK)
	notifier := NewWebhookNotifier(merchants, client, zerolog.Nop())

	merchantID := uuid.New()
	merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(&domain.Merchant{
		ID:     merchantID,
		Status: domain.MerchantStatusActive,
	}, nil)

	notifier.Publish(domain.NewEvent(domain.EventPaymentCreated, pendingPayment(merchantID)))

	select {
	case <-client.delivered:
		t.Fatal("no delivery expected without a webhook URL")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebhookNotifier_SwallowsLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchants := mocks.NewMockMerchantRepository(ctrl)
	notifier := NewWebhookNotifier(merchants, newCapturingClient(http.StatusOK), zerolog.Nop())

	merchantID := uuid.New()
	merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(nil, context.DeadlineExceeded)

	// Must not panic or propagate: publishers never fail the transition.
	notifier.Publish(domain.NewEvent(domain.EventPaymentCreated, pendingPayment(merchantID)))
}

func TestSign_Deterministic(t *testing.T) {
	a := sign("ak_secret", []byte(`{"x":1}`))
	b := sign("ak_secret", []byte(`{"x":1}`))
	c := sign("ak_other", []byte(`{"x":1}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
