// Package quote implements the QuoteProvider port against a Jupiter-style
// swap API: fixed-output quoting plus building a signable swap transaction
// whose proceeds are routed directly to the payee's settlement account.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/pkg/apperror"
	"token-settlement-gateway/pkg/metrics"
)

// Client is a QuoteProvider over HTTP. Call deadlines come from the caller's
// context; the engine applies a short deadline for quoting and a longer one
// for payload construction.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient creates a quote API client.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetHeader("X-API-Key", apiKey)
	}
	return &Client{http: c, log: log}
}

type quoteResponse struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
	ErrorCode string `json:"errorCode"`
	Error     string `json:"error"`
}

type swapRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	DestinationTokenAccount string          `json:"destinationTokenAccount"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
	Error           string `json:"error"`
}

// GetQuote requests fixed-output pricing: solve for the input amount that
// yields exactly exactOutputAmount of the output token.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, exactOutputAmount int64, slippageBps int) (*domain.Quote, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   inputMint,
			"outputMint":  outputMint,
			"amount":      strconv.FormatInt(exactOutputAmount, 10),
			"swapMode":    "ExactOut",
			"slippageBps": strconv.Itoa(slippageBps),
		}).
		Get("/quote")
	metrics.QuoteLatency.WithLabelValues("quote").Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, c.transportError("quote", err)
	}

	var body quoteResponse
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr != nil && resp.IsSuccess() {
		metrics.QuoteRequestsTotal.WithLabelValues("quote", "error").Inc()
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("decode quote response: %w", jsonErr))
	}

	if !resp.IsSuccess() {
		if isNoRoute(resp.StatusCode(), body) {
			metrics.QuoteRequestsTotal.WithLabelValues("quote", "no_route").Inc()
			return nil, apperror.ErrQuoteUnavailable(inputMint)
		}
		metrics.QuoteRequestsTotal.WithLabelValues("quote", "error").Inc()
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("quote API status %d: %s", resp.StatusCode(), body.Error))
	}

	inAmount, err := strconv.ParseInt(body.InAmount, 10, 64)
	if err != nil {
		metrics.QuoteRequestsTotal.WithLabelValues("quote", "error").Inc()
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("quote API returned bad inAmount %q", body.InAmount))
	}

	metrics.QuoteRequestsTotal.WithLabelValues("quote", "ok").Inc()
	return &domain.Quote{
		InputToken:   inputMint,
		OutputToken:  outputMint,
		InputAmount:  inAmount,
		OutputAmount: exactOutputAmount,
		Route:        append([]byte(nil), resp.Body()...),
	}, nil
}

// BuildSettlementPayload asks the provider to build the swap transaction,
// delivering the output directly to payeeAccount.
func (c *Client) BuildSettlementPayload(ctx context.Context, quote *domain.Quote, payerWallet, payeeAccount string) (string, error) {
	if quote == nil || len(quote.Route) == 0 {
		return "", apperror.ErrInvalidInput("quote has no route")
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(swapRequest{
			QuoteResponse:           json.RawMessage(quote.Route),
			UserPublicKey:           payerWallet,
			DestinationTokenAccount: payeeAccount,
		}).
		Post("/swap")
	metrics.QuoteLatency.WithLabelValues("swap").Observe(time.Since(start).Seconds())

	if err != nil {
		return "", c.transportError("swap", err)
	}

	var body swapResponse
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr != nil && resp.IsSuccess() {
		metrics.QuoteRequestsTotal.WithLabelValues("swap", "error").Inc()
		return "", apperror.ErrUpstreamUnavailable(fmt.Errorf("decode swap response: %w", jsonErr))
	}

	if !resp.IsSuccess() || body.SwapTransaction == "" {
		metrics.QuoteRequestsTotal.WithLabelValues("swap", "error").Inc()
		return "", apperror.ErrUpstreamUnavailable(fmt.Errorf("swap API status %d: %s", resp.StatusCode(), body.Error))
	}

	metrics.QuoteRequestsTotal.WithLabelValues("swap", "ok").Inc()
	return body.SwapTransaction, nil
}

// transportError maps transport-level failures onto the error taxonomy:
// deadline expiry is UpstreamTimeout, anything else UpstreamUnavailable.
func (c *Client) transportError(endpoint string, err error) error {
	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())

	if timedOut {
		metrics.QuoteRequestsTotal.WithLabelValues(endpoint, "timeout").Inc()
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("quote provider timed out")
		return apperror.ErrUpstreamTimeout(err)
	}

	metrics.QuoteRequestsTotal.WithLabelValues(endpoint, "error").Inc()
	c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("quote provider unreachable")
	return apperror.ErrUpstreamUnavailable(err)
}

// isNoRoute recognizes the provider's "no route between these tokens"
// answer, which is user-facing rather than retryable.
func isNoRoute(status int, body quoteResponse) bool {
	if status != http.StatusBadRequest && status != http.StatusNotFound {
		return false
	}
	if strings.Contains(body.ErrorCode, "NO_ROUTE") || strings.Contains(body.ErrorCode, "COULD_NOT_FIND_ANY_ROUTE") {
		return true
	}
	return strings.Contains(strings.ToLower(body.Error), "route")
}
