package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment.
// Status only ever advances forward or laterally to FAILED; it never
// regresses from COMPLETED.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

// Payment is the unit of work: a fiat-denominated price owed to a merchant,
// paid by a customer in an arbitrary supported token and settled in the
// fixed settlement asset.
type Payment struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"merchant_id"`

	// Fiat price owed to the merchant, in minor units of Currency.
	// Immutable after creation.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	// SettlementAmount is the amount of the settlement token the merchant
	// receives, in its smallest unit. Zero until a token is selected.
	SettlementAmount int64 `json:"settlement_amount"`

	// SelectedToken is the mint of the token the customer pays with.
	// Empty until selection; immutable once execution begins.
	SelectedToken string `json:"selected_token"`

	// DestinationWallet is the merchant's settlement-token account,
	// snapshotted at creation. Later merchant wallet changes do not alter
	// in-flight payments.
	DestinationWallet string `json:"destination_wallet"`

	// CustomerWallet is set once, at execution time.
	CustomerWallet string `json:"customer_wallet"`

	// TransactionSignature is set at submission/confirmation time.
	TransactionSignature string `json:"transaction_signature"`

	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsTerminal returns true if the payment is in a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed
}

// CanSelectToken reports whether a token may (still) be selected.
func (p *Payment) CanSelectToken() bool {
	return p.Status == PaymentStatusPending
}

// CanExecute reports whether execution may begin.
func (p *Payment) CanExecute() bool {
	return p.Status == PaymentStatusPending
}

// CanFail reports whether the payment may be moved to FAILED.
func (p *Payment) CanFail() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}
