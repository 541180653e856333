package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "token-settlement-gateway/internal/adapter/http/handler"
	redisStorage "token-settlement-gateway/internal/adapter/storage/redis"
	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/service"
	"token-settlement-gateway/internal/stream"
	"token-settlement-gateway/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	solMint        = "So11111111111111111111111111111111111111112"
	merchantVault  = "7cVfgArCheMR6Cs4t6vz5rfnqd56vZq4ndaBrY5xkxXy"
	customerWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

// testApp builds the full application stack over in-memory storage: real HTTP
// layer, middleware, handlers, services, keyed locking, and event streaming,
// with miniredis behind the API key cache and a fake quote provider upstream.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	registry *stream.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	apiKeyCache := redisStorage.NewAPIKeyCache(rdb)

	merchantRepo := newInMemoryMerchantRepo()
	paymentRepo := newInMemoryPaymentRepo()

	tokens := domain.NewTokenRegistry(
		domain.Token{Symbol: "USDC", Mint: usdcMint, Decimals: 6},
		[]domain.Token{{Symbol: "SOL", Mint: solMint, Decimals: 9}},
	)

	log := logger.New("error", false)

	registry := stream.NewRegistry()
	broadcaster := stream.NewBroadcaster(registry, log)

	lifecycle := service.NewLifecycleService(
		paymentRepo, merchantRepo, fakeQuoteProvider{}, broadcaster, tokens,
		service.LifecycleConfig{QuoteTimeout: time.Second, BuildTimeout: time.Second, SlippageBps: 50},
		log,
	)
	merchantSvc := service.NewMerchantService(merchantRepo)
	reportingSvc := service.NewReportingService(paymentRepo)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Lifecycle:      lifecycle,
		MerchantSvc:    merchantSvc,
		ReportingSvc:   reportingSvc,
		MerchantRepo:   merchantRepo,
		APIKeyCache:    apiKeyCache,
		Registry:       registry,
		ObserverBuffer: 16,
		Logger:         log,
	})

	server := httptest.NewServer(router)
	return &testApp{server: server, redis: mr, registry: registry}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// post sends a JSON request, optionally authenticated, and decodes the envelope.
func (a *testApp) post(t *testing.T, path, apiKey string, body any, out any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testApp) get(t *testing.T, path, apiKey string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerMerchant(t *testing.T, app *testApp, name string) (merchantID, apiKey string) {
	t.Helper()
	var reg struct {
		Data struct {
			MerchantID string `json:"merchant_id"`
			APIKey     string `json:"api_key"`
		} `json:"data"`
	}
	code := app.post(t, "/api/v1/merchants/register", "", map[string]string{
		"name":           name,
		"wallet_address": merchantVault,
	}, &reg)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, reg.Data.APIKey)
	return reg.Data.MerchantID, reg.Data.APIKey
}

type paymentEnvelope struct {
	Data struct {
		ID                   string `json:"id"`
		Amount               string `json:"amount"`
		Currency             string `json:"currency"`
		SettlementAmount     int64  `json:"settlement_amount"`
		SelectedToken        string `json:"selected_token"`
		TransactionSignature string `json:"transaction_signature"`
		Status               string `json:"status"`
	} `json:"data"`
}

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

// TestIntegration_DirectSettlementFlow walks one payment through the whole
// lifecycle in the settlement token: no swap, settlement amount is the fiat
// amount rescaled to token decimals.
func TestIntegration_DirectSettlementFlow(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, apiKey := registerMerchant(t, app, "Flow Shop")

	// Create: 19.99 USD
	var created paymentEnvelope
	code := app.post(t, "/api/v1/payments", apiKey, map[string]string{
		"amount":   "19.99",
		"currency": "USD",
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "19.99", created.Data.Amount)
	assert.Equal(t, "PENDING", created.Data.Status)
	paymentID := created.Data.ID

	// Prepare: customer intends to pay in USDC (the settlement token).
	var prepared struct {
		Data struct {
			Payment struct {
				SettlementAmount int64  `json:"settlement_amount"`
				Status           string `json:"status"`
			} `json:"payment"`
			Quote struct {
				DirectSettlement bool  `json:"direct_settlement"`
				InputAmount      int64 `json:"input_amount"`
			} `json:"quote"`
		} `json:"data"`
	}
	code = app.post(t, "/api/v1/payments/"+paymentID+"/prepare", "", map[string]string{
		"token": "USDC",
	}, &prepared)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, prepared.Data.Quote.DirectSettlement)
	assert.Equal(t, int64(19990000), prepared.Data.Payment.SettlementAmount, "19.99 USD at 6 decimals")
	assert.Equal(t, int64(19990000), prepared.Data.Quote.InputAmount)
	assert.Equal(t, "PENDING", prepared.Data.Payment.Status, "prepare does not advance the state")

	// Execute: commits to PROCESSING and returns a signable payload.
	var executed struct {
		Data struct {
			Payment struct {
				Status string `json:"status"`
			} `json:"payment"`
			Payload string `json:"payload"`
		} `json:"data"`
	}
	code = app.post(t, "/api/v1/payments/"+paymentID+"/execute", "", map[string]string{
		"token":           "USDC",
		"customer_wallet": customerWallet,
	}, &executed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PROCESSING", executed.Data.Payment.Status)
	_, err := base64.StdEncoding.DecodeString(executed.Data.Payload)
	assert.NoError(t, err, "payload is base64")

	// Submit the broadcast signature.
	signature := "5KtP3yGdGHxt7rV8jWm2QqNcLpXaUzJbYfRe4Ds6hTnA"
	var submitted paymentEnvelope
	code = app.post(t, "/api/v1/payments/"+paymentID+"/submit", "", map[string]string{
		"signature": signature,
	}, &submitted)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, signature, submitted.Data.TransactionSignature)

	// Confirm: terminal COMPLETED.
	var confirmed paymentEnvelope
	code = app.post(t, "/api/v1/payments/"+paymentID+"/confirm", "", map[string]string{}, &confirmed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "COMPLETED", confirmed.Data.Status)

	// Listing and stats reflect the completed payment.
	var list struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	code = app.get(t, "/api/v1/payments?status=completed", apiKey, &list)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), list.Data.Total)

	var stats struct {
		Data struct {
			Total     int64 `json:"total"`
			Completed int64 `json:"completed"`
		} `json:"data"`
	}
	code = app.get(t, "/api/v1/merchants/me/stats", apiKey, &stats)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), stats.Data.Total)
	assert.Equal(t, int64(1), stats.Data.Completed)
}

// TestIntegration_SwapSettlementFlow pays in SOL: the fake provider prices
// the pair, and the settlement amount stays fixed at the quoted output.
func TestIntegration_SwapSettlementFlow(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, apiKey := registerMerchant(t, app, "Swap Shop")

	var created paymentEnvelope
	code := app.post(t, "/api/v1/payments", apiKey, map[string]string{
		"amount":   "5.00",
		"currency": "USD",
	}, &created)
	require.Equal(t, http.StatusCreated, code)

	var prepared struct {
		Data struct {
			Quote struct {
				DirectSettlement bool   `json:"direct_settlement"`
				InputToken       string `json:"input_token"`
				InputAmount      int64  `json:"input_amount"`
				OutputAmount     int64  `json:"output_amount"`
			} `json:"quote"`
		} `json:"data"`
	}
	code = app.post(t, "/api/v1/payments/"+created.Data.ID+"/prepare", "", map[string]string{
		"token": "SOL",
	}, &prepared)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, prepared.Data.Quote.DirectSettlement)
	assert.Equal(t, solMint, prepared.Data.Quote.InputToken)
	assert.Equal(t, int64(5000000), prepared.Data.Quote.OutputAmount, "5.00 USD at 6 decimals")
	assert.Equal(t, int64(10000000), prepared.Data.Quote.InputAmount, "fake provider prices 2:1")

	var executed struct {
		Data struct {
			Payment struct {
				Status        string `json:"status"`
				SelectedToken string `json:"selected_token"`
			} `json:"payment"`
			Payload string `json:"payload"`
		} `json:"data"`
	}
	code = app.post(t, "/api/v1/payments/"+created.Data.ID+"/execute", "", map[string]string{
		"token":           "SOL",
		"customer_wallet": customerWallet,
	}, &executed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PROCESSING", executed.Data.Payment.Status)
	assert.Equal(t, solMint, executed.Data.Payment.SelectedToken)
	assert.NotEmpty(t, executed.Data.Payload)
}

// TestIntegration_FailAndTerminalGuard fails a payment and verifies terminal
// states reject further transitions.
func TestIntegration_FailAndTerminalGuard(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, apiKey := registerMerchant(t, app, "Guard Shop")

	var created paymentEnvelope
	code := app.post(t, "/api/v1/payments", apiKey, map[string]string{
		"amount":   "1.00",
		"currency": "USD",
	}, &created)
	require.Equal(t, http.StatusCreated, code)

	var failed paymentEnvelope
	code = app.post(t, "/api/v1/payments/"+created.Data.ID+"/fail", "", map[string]string{
		"reason": "customer abandoned checkout",
	}, &failed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "FAILED", failed.Data.Status)

	var errResp struct {
		ErrorCode string `json:"error_code"`
	}
	code = app.post(t, "/api/v1/payments/"+created.Data.ID+"/execute", "", map[string]string{
		"token":           "USDC",
		"customer_wallet": customerWallet,
	}, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "PAY_002", errResp.ErrorCode)
}

// TestIntegration_EventStream subscribes over SSE by payment id and observes
// the lifecycle events a confirm emits.
func TestIntegration_EventStream(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, apiKey := registerMerchant(t, app, "Stream Shop")

	var created paymentEnvelope
	code := app.post(t, "/api/v1/payments", apiKey, map[string]string{
		"amount":   "2.50",
		"currency": "USD",
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	paymentID := created.Data.ID

	// Open the SSE stream before driving the lifecycle.
	streamURL := fmt.Sprintf("%s/api/v1/events?payment_id=%s", app.server.URL, paymentID)
	req, err := http.NewRequest(http.MethodGet, streamURL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		defer close(events)
		buf := make([]byte, 4096)
		var pending []byte
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				for {
					idx := bytes.Index(pending, []byte("\n"))
					if idx < 0 {
						break
					}
					line := string(pending[:idx])
					pending = pending[idx+1:]
					if name, ok := cutPrefix(line, "event:"); ok {
						events <- name
					}
				}
			}
			if readErr != nil {
				return
			}
		}
	}()

	requireEvent(t, events, "subscribed")

	// Drive the payment; each committed transition must reach the stream.
	code = app.post(t, "/api/v1/payments/"+paymentID+"/execute", "", map[string]string{
		"token":           "USDC",
		"customer_wallet": customerWallet,
	}, nil)
	require.Equal(t, http.StatusOK, code)
	requireEvent(t, events, "payment_updated")

	code = app.post(t, "/api/v1/payments/"+paymentID+"/submit", "", map[string]string{
		"signature": "5KtP3yGdGHxt7rV8jWm2QqNcLpXaUzJbYfRe4Ds6hTnA",
	}, nil)
	require.Equal(t, http.StatusOK, code)
	requireEvent(t, events, "transaction_submitted")

	code = app.post(t, "/api/v1/payments/"+paymentID+"/confirm", "", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, code)
	requireEvent(t, events, "transaction_confirmed")
	requireEvent(t, events, "payment_completed")
}

func requireEvent(t *testing.T, events <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case name, ok := <-events:
			require.True(t, ok, "stream closed while waiting for %q", want)
			if name == "heartbeat" {
				continue
			}
			require.Equal(t, want, name)
			return
		case <-deadline:
			t.Fatalf("timed out waiting for event %q", want)
		}
	}
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		rest := s[len(prefix):]
		if len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
		return rest, true
	}
	return "", false
}
