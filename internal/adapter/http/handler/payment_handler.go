package handler

import (
	"strings"

	"token-settlement-gateway/internal/adapter/http/dto"
	"token-settlement-gateway/internal/adapter/http/middleware"
	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/pkg/apperror"
	"token-settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment lifecycle endpoints.
type PaymentHandler struct {
	lifecycle ports.PaymentLifecycle
	reporting ports.ReportingService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(lifecycle ports.PaymentLifecycle, reporting ports.ReportingService) *PaymentHandler {
	return &PaymentHandler{lifecycle: lifecycle, reporting: reporting}
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	currency := strings.ToUpper(req.Currency)
	amount, err := domain.ParseAmount(req.Amount, domain.CurrencyDecimals(currency))
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.lifecycle.Create(c.Request.Context(), ports.CreatePaymentRequest{
		MerchantID: merchantID.(uuid.UUID),
		Amount:     amount,
		Currency:   currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToPaymentResponse(payment))
}

// Get handles GET /api/v1/payments/:id. Public: checkout pages poll it.
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	payment, err := h.reporting.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToPaymentResponse(payment))
}

// Prepare handles POST /api/v1/payments/:id/prepare.
func (h *PaymentHandler) Prepare(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	var req dto.PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.lifecycle.Prepare(c.Request.Context(), paymentID, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PrepareResponse{
		Payment: dto.ToPaymentResponse(result.Payment),
		Quote:   dto.ToQuoteResponse(result.Quote),
	})
}

// Execute handles POST /api/v1/payments/:id/execute.
func (h *PaymentHandler) Execute(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.lifecycle.Execute(c.Request.Context(), ports.ExecuteRequest{
		PaymentID:      paymentID,
		Token:          req.Token,
		CustomerWallet: req.CustomerWallet,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ExecuteResponse{
		Payment: dto.ToPaymentResponse(result.Payment),
		Payload: result.Payload,
	})
}

// Submit handles POST /api/v1/payments/:id/submit.
func (h *PaymentHandler) Submit(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.lifecycle.RecordSubmission(c.Request.Context(), paymentID, req.Signature)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToPaymentResponse(payment))
}

// Confirm handles POST /api/v1/payments/:id/confirm.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.lifecycle.Confirm(c.Request.Context(), paymentID, req.Signature)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToPaymentResponse(payment))
}

// Fail handles POST /api/v1/payments/:id/fail.
func (h *PaymentHandler) Fail(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}

	var req dto.FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payment, err := h.lifecycle.Fail(c.Request.Context(), paymentID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToPaymentResponse(payment))
}

// paymentIDParam parses the :id path parameter, writing the error response
// itself on failure.
func paymentIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return uuid.Nil, false
	}
	return id, true
}
