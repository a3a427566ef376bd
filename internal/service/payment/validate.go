package payment

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gamepay/payments-worker/internal/domain"
)

// Validation is a fast-fail gate: the first violated rule wins and nothing
// is checked after it. No side effects happen before a message passes.

func ValidateProcessingMessage(msg domain.ProcessingMessage) error {
	switch {
	case msg.PaymentID.UUID == uuid.Nil:
		return fmt.Errorf("payment id must not be empty: %w", domain.ErrInvalidMessage)
	case msg.CorrelationID.UUID == uuid.Nil:
		return fmt.Errorf("correlation id must not be empty: %w", domain.ErrInvalidMessage)
	case msg.UserID.UUID == uuid.Nil:
		return fmt.Errorf("user id must not be empty: %w", domain.ErrInvalidMessage)
	case msg.GameID.UUID == uuid.Nil:
		return fmt.Errorf("game id must not be empty: %w", domain.ErrInvalidMessage)
	case msg.Amount.Sign() <= 0:
		return fmt.Errorf("amount must be greater than zero: %w", domain.ErrInvalidMessage)
	case msg.Currency == "":
		return fmt.Errorf("currency must not be empty: %w", domain.ErrInvalidMessage)
	}
	return nil
}

func ValidatePurchaseRequest(req domain.PurchaseRequested) error {
	switch {
	case req.PaymentID.UUID == uuid.Nil:
		return fmt.Errorf("payment id must not be empty: %w", domain.ErrInvalidMessage)
	case req.CorrelationID.UUID == uuid.Nil:
		return fmt.Errorf("correlation id must not be empty: %w", domain.ErrInvalidMessage)
	case req.UserID.UUID == uuid.Nil:
		return fmt.Errorf("user id must not be empty: %w", domain.ErrInvalidMessage)
	case req.GameID.UUID == uuid.Nil:
		return fmt.Errorf("game id must not be empty: %w", domain.ErrInvalidMessage)
	case req.Amount.Sign() <= 0:
		return fmt.Errorf("amount must be greater than zero: %w", domain.ErrInvalidMessage)
	case req.Currency == "":
		return fmt.Errorf("currency must not be empty: %w", domain.ErrInvalidMessage)
	case req.PaymentMethod == "":
		return fmt.Errorf("payment method must not be empty: %w", domain.ErrInvalidMessage)
	}
	return nil
}
