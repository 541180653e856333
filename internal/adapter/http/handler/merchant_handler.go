package handler

import (
	"strconv"
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

// MerchantHandler handles merchant onboarding and reporting endpoints.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
	reporting   ports.ReportingService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService, reporting ports.ReportingService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc, reporting: reporting}
}

// Register handles POST /api/v1/merchants/register.
func (h *MerchantHandler) Register(c *gin.Context) {
	var req dto.RegisterMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.merchantSvc.Register(c.Request.Context(), ports.RegisterMerchantRequest{
		Name:              req.Name,
		WalletAddress:     req.WalletAddress,
		SettlementAccount: req.SettlementAccount,
		WebhookURL:        req.WebhookURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterMerchantResponse{
		MerchantID:        result.Merchant.ID.String(),
		Name:              result.Merchant.Name,
		WalletAddress:     result.Merchant.WalletAddress,
		SettlementAccount: result.Merchant.SettlementAccount,
		APIKey:            result.APIKey,
		WebhookURL:        result.Merchant.WebhookURL,
	})
}

// GetProfile handles GET /api/v1/merchants/me.
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	merchant, err := h.merchantSvc.GetProfile(c.Request.Context(), merchantID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToMerchantResponse(merchant))
}

// ListPayments handles GET /api/v1/payments (merchant-scoped listing).
func (h *MerchantHandler) ListPayments(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	params := ports.PaymentListParams{
		MerchantID: merchantID.(uuid.UUID),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.PaymentStatus(strings.ToUpper(raw))
		switch status {
		case domain.PaymentStatusPending, domain.PaymentStatusProcessing,
			domain.PaymentStatusCompleted, domain.PaymentStatusFailed:
			params.Status = &status
		default:
			response.Error(c, apperror.Validation("unknown status filter"))
			return
		}
	}

	payments, total, err := h.reporting.ListPayments(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToPaymentListResponse(payments, total, params))
}

// GetStats handles GET /api/v1/merchants/me/stats.
func (h *MerchantHandler) GetStats(c *gin.Context) {
	merchantID, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	stats, err := h.reporting.GetStats(c.Request.Context(), merchantID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, stats)
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
