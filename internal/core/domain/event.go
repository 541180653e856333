package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventPaymentCreated       EventType = "payment_created"
	EventPaymentUpdated       EventType = "payment_updated"
	EventPaymentCompleted     EventType = "payment_completed"
	EventPaymentFailed        EventType = "payment_failed"
	EventTransactionSubmitted EventType = "transaction_submitted"
	EventTransactionConfirmed EventType = "transaction_confirmed"
)

// Event is one delivered lifecycle event. Data carries the full current
// payment snapshot, except for payment_failed where it is a FailureData.
type Event struct {
	Type       EventType   `json:"type"`
	PaymentID  uuid.UUID   `json:"payment_id"`
	MerchantID uuid.UUID   `json:"merchant_id"`
	Data       interface{} `json:"data"`
	Timestamp  time.Time   `json:"timestamp"`
}

// FailureData is the payload of a payment_failed event.
type FailureData struct {
	Payment *Payment `json:"payment"`
	Reason  string   `json:"reason"`
}

// NewEvent builds an event carrying the payment snapshot.
func NewEvent(t EventType, p *Payment) Event {
	return Event{
		Type:       t,
		PaymentID:  p.ID,
		MerchantID: p.MerchantID,
		Data:       p,
		Timestamp:  time.Now().UTC(),
	}
}

// NewFailureEvent builds a payment_failed event carrying the snapshot and
// the failure reason.
func NewFailureEvent(p *Payment, reason string) Event {
	return Event{
		Type:       EventPaymentFailed,
		PaymentID:  p.ID,
		MerchantID: p.MerchantID,
		Data:       FailureData{Payment: p, Reason: reason},
		Timestamp:  time.Now().UTC(),
	}
}
