package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequested is the inbound creation message: a game purchase that
// needs a payment record. Consumed once by the workflow, never mutated.
type PurchaseRequested struct {
	PaymentID     ID              `json:"payment_id"`
	UserID        ID              `json:"user_id"`
	GameID        ID              `json:"game_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	CorrelationID ID              `json:"correlation_id"`
}

// ProcessingMessage is the inbound processing message for a payment that is
// assumed to already exist in the system of record.
type ProcessingMessage struct {
	PaymentID     ID              `json:"payment_id"`
	CorrelationID ID              `json:"correlation_id"`
	UserID        ID              `json:"user_id"`
	GameID        ID              `json:"game_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SchemaVersion int             `json:"schema_version"`
}
