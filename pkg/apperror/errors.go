package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Is reports whether target carries the same error code. It lets callers use
// errors.Is against sentinel constructors without comparing pointers.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ---- Payment Lifecycle (PAY) ----

// ErrNotFound signals an unknown payment/merchant id. Not retryable.
func ErrNotFound(entity string) *AppError {
	return New("PAY_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrInvalidState signals an operation illegal for the payment's current
// status. The caller must re-fetch, not blindly retry.
func ErrInvalidState(operation string, status string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not allowed while payment is %s", operation, status), http.StatusConflict)
}

// ErrInvalidInput signals a malformed wallet address, token identifier or
// amount. Not retryable.
func ErrInvalidInput(message string) *AppError {
	return New("PAY_003", message, http.StatusBadRequest)
}

func ErrUnsupportedToken(token string) *AppError {
	return New("PAY_004", fmt.Sprintf("token %s is not supported", token), http.StatusBadRequest)
}

// ---- Quote Provider (QTE) ----

// ErrQuoteUnavailable signals that no pricing route exists for the requested
// token pair. Surfaced to the user as "unsupported token", not retryable.
func ErrQuoteUnavailable(inputToken string) *AppError {
	return New("QTE_001", fmt.Sprintf("no settlement route for token %s", inputToken), http.StatusUnprocessableEntity)
}

// ErrUpstreamTimeout signals the quote provider did not answer in time.
// The whole operation may be retried; the engine guarantees no payment is
// left stuck in PROCESSING on this path.
func ErrUpstreamTimeout(err error) *AppError {
	return Wrap("QTE_002", "Quote provider timed out", http.StatusGatewayTimeout, err)
}

// ErrUpstreamUnavailable signals a transient quote provider failure.
func ErrUpstreamUnavailable(err error) *AppError {
	return Wrap("QTE_003", "Quote provider unavailable", http.StatusBadGateway, err)
}

// ---- Security (SEC) ----

func ErrInvalidAPIKey() *AppError {
	return New("SEC_001", "Invalid API key", http.StatusUnauthorized)
}

func ErrMerchantSuspended() *AppError {
	return New("SEC_002", "Merchant account is suspended", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error. Persistence
// failures land here: fatal to the current operation, no partial commit.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_003-style validation error.
func Validation(message string) *AppError {
	return ErrInvalidInput(message)
}
