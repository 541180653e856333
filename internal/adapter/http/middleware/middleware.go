package middleware

import (
	"net/http"
	"time"

	redisStore "token-settlement-gateway/internal/adapter/storage/redis"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/pkg/apperror"
	"token-settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the merchant API key.
	HeaderAPIKey = "X-API-Key"

	// Context keys
	CtxMerchantID  = "merchant_id"
	CtxMerchantKey = "merchant"
)

// APIKeyAuth authenticates merchant API requests by API key. Lookups go
// through the Redis cache first; cache trouble degrades to a direct
// PostgreSQL lookup rather than failing the request.
func APIKeyAuth(
	merchantRepo ports.MerchantRepository,
	cache *redisStore.APIKeyCache,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		if apiKey == "" {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		ctx := c.Request.Context()

		merchant, err := cache.Get(ctx, apiKey)
		if err != nil {
			log.Warn().Err(err).Msg("api key cache error, falling back to database")
		}

		if merchant == nil {
			merchant, err = merchantRepo.GetByAPIKey(ctx, apiKey)
			if err != nil {
				log.Error().Err(err).Msg("failed to fetch merchant by api key")
				response.Error(c, apperror.InternalError(err))
				c.Abort()
				return
			}
			if merchant == nil {
				response.Error(c, apperror.ErrInvalidAPIKey())
				c.Abort()
				return
			}
			if cacheErr := cache.Set(ctx, apiKey, merchant); cacheErr != nil {
				log.Warn().Err(cacheErr).Msg("failed to cache merchant api key")
			}
		}

		if !merchant.IsActive() {
			response.Error(c, apperror.ErrMerchantSuspended())
			c.Abort()
			return
		}

		c.Set(CtxMerchantID, merchant.ID)
		c.Set(CtxMerchantKey, merchant)

		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize caps request body reads at maxBytes.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
