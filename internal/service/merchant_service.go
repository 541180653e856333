package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// MerchantServiceImpl implements ports.MerchantService.
type MerchantServiceImpl struct {
	merchants ports.MerchantRepository
}

// NewMerchantService creates a new MerchantServiceImpl.
func NewMerchantService(merchants ports.MerchantRepository) *MerchantServiceImpl {
	return &MerchantServiceImpl{merchants: merchants}
}

// Register creates a merchant account and issues its API key. The key is
// returned exactly once and never exposed again.
func (s *MerchantServiceImpl) Register(ctx context.Context, req ports.RegisterMerchantRequest) (*ports.RegisterMerchantResponse, error) {
	if req.Name == "" {
		return nil, apperror.ErrInvalidInput("merchant name is required")
	}
	if !domain.IsWalletAddress(req.WalletAddress) {
		return nil, apperror.ErrInvalidInput("invalid wallet address")
	}

	settlementAccount := req.SettlementAccount
	if settlementAccount == "" {
		settlementAccount = req.WalletAddress
	} else if !domain.IsWalletAddress(settlementAccount) {
		return nil, apperror.ErrInvalidInput("invalid settlement account address")
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate api key: %w", err))
	}

	now := time.Now().UTC()
	merchant := &domain.Merchant{
		ID:                uuid.New(),
		Name:              req.Name,
		WalletAddress:     req.WalletAddress,
		SettlementAccount: settlementAccount,
		APIKey:            apiKey,
		WebhookURL:        req.WebhookURL,
		Status:            domain.MerchantStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.merchants.Create(ctx, merchant); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}

	return &ports.RegisterMerchantResponse{Merchant: merchant, APIKey: apiKey}, nil
}

// GetProfile fetches a merchant by id.
func (s *MerchantServiceImpl) GetProfile(ctx context.Context, merchantID uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return merchant, nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ak_" + hex.EncodeToString(buf), nil
}
