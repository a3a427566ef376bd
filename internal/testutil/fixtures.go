package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamepay/payments-worker/internal/domain"
)

// NewPendingPayment builds a payment in its initial state with sane
// defaults for tests.
func NewPendingPayment(amount string) *domain.Payment {
	return &domain.Payment{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		GameID:    uuid.New(),
		Amount:    decimal.RequireFromString(amount),
		Currency:  "BRL",
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func InsertPayment(t *testing.T, db *sql.DB, p *domain.Payment) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO payments (id, user_id, game_id, amount, currency, status, created_at, processed_at, provider_response, failure_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, p.GameID, p.Amount, p.Currency, p.Status,
		p.CreatedAt, p.ProcessedAt, p.ProviderResponse, p.FailureReason,
	)
	if err != nil {
		t.Fatalf("insert payment: %v", err)
	}
}
