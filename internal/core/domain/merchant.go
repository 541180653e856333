package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "ACTIVE"
	MerchantStatusSuspended MerchantStatus = "SUSPENDED"
)

// Merchant owns zero or more payments and is always paid out in the
// settlement asset. Payments snapshot SettlementAccount at creation time, so
// wallet updates never retroactively affect in-flight payments.
type Merchant struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"wallet_address"`

	// SettlementAccount is the merchant's settlement-token account that swap
	// proceeds are routed to directly. Defaults to WalletAddress.
	SettlementAccount string `json:"settlement_account"`

	APIKey     string         `json:"-"` // Opaque credential, never exposed after registration
	WebhookURL *string        `json:"webhook_url,omitempty"`
	Status     MerchantStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
