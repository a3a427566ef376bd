package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusFailed:
		return true
	}
	return false
}

// Payment is the system-of-record entity. It is owned and mutated by the
// payment store; the workflow reads it and requests status transitions.
type Payment struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	GameID           uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	Status           Status
	CreatedAt        time.Time
	ProcessedAt      *time.Time
	ProviderResponse *string
	FailureReason    *string
}

// CreatePaymentRequest is the creation command submitted to the payments
// API. The API owns the created/queued events for new payments.
type CreatePaymentRequest struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	GameID        uuid.UUID       `json:"game_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
}
