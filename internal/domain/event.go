package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPaymentProcessing EventType = "PaymentProcessing"
	EventPaymentApproved   EventType = "PaymentApproved"
	EventPaymentDeclined   EventType = "PaymentDeclined"
	EventPaymentFailed     EventType = "PaymentFailed"
)

// PaymentEvent records a single state transition. Events are append-only;
// one is published per transition and none is ever retracted.
type PaymentEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	EventType     EventType `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	Data          *string   `json:"data,omitempty"`
}

// PurchaseCompleted is the cross-domain summary published once per
// processed message, mirroring the terminal status.
type PurchaseCompleted struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	UserID        uuid.UUID       `json:"user_id"`
	GameID        uuid.UUID       `json:"game_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	Reason        *string         `json:"reason,omitempty"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	CompletedAt   time.Time       `json:"completed_at"`
}
