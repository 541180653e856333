package dto

import (
	"net/url"
	"regexp"

	"token-settlement-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	tokenRefRe   = regexp.MustCompile(`^[a-zA-Z0-9]{2,44}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		_ = v.RegisterValidation("wallet_address", validateWalletAddress)
		_ = v.RegisterValidation("token_ref", validateTokenRef)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// validateWalletAddress checks base58 wallet address shape.
func validateWalletAddress(fl validator.FieldLevel) bool {
	return domain.IsWalletAddress(fl.Field().String())
}

// validateTokenRef accepts a configured token symbol or a raw mint address.
func validateTokenRef(fl validator.FieldLevel) bool {
	return tokenRefRe.MatchString(fl.Field().String())
}
