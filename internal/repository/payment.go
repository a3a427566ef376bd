// Package repository implements the relational payment store against the
// payments table.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gamepay/payments-worker/internal/domain"
	"github.com/gamepay/payments-worker/internal/observability"
)

const paymentColumns = `id, user_id, game_id, amount, currency, status,
	created_at, processed_at, provider_response, failure_reason`

type scanner interface {
	Scan(dest ...any) error
}

type PaymentRepository struct {
	db  *sql.DB
	obs observability.Observability
}

func NewPaymentRepository(db *sql.DB, obs observability.Observability) *PaymentRepository {
	return &PaymentRepository{db: db, obs: obs}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.obs.TrackDependency("SELECT", "payments", time.Since(start), true)
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		r.obs.TrackDependency("SELECT", "payments", time.Since(start), false)
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	r.obs.TrackDependency("SELECT", "payments", time.Since(start), true)
	return p, nil
}

// UpdateStatus transitions a payment and stamps processed_at. Terminal
// statuses are guarded: re-applying the current status is a no-op success,
// overwriting one terminal status with another is rejected, so duplicate
// deliveries cannot flip an outcome.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, providerResponse, failureReason *string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		SET status = $2, processed_at = now(), provider_response = $3, failure_reason = $4
		WHERE id = $1
		AND (status = $2 OR status NOT IN ('approved', 'declined', 'failed'))`,
		id, status, providerResponse, failureReason,
	)
	if err != nil {
		r.obs.TrackDependency("UPDATE", "payments", time.Since(start), false)
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		r.obs.TrackDependency("UPDATE", "payments", time.Since(start), false)
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		r.obs.TrackDependency("UPDATE", "payments", time.Since(start), false)

		var current domain.Status
		err := r.db.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("UpdateStatus: %w", err)
		}
		return fmt.Errorf("UpdateStatus: %s -> %s: %w", current, status, domain.ErrPaymentTerminal)
	}

	r.obs.TrackDependency("UPDATE", "payments", time.Since(start), true)
	return nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	err := s.Scan(
		&p.ID, &p.UserID, &p.GameID, &p.Amount, &p.Currency, &p.Status,
		&p.CreatedAt, &p.ProcessedAt, &p.ProviderResponse, &p.FailureReason,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
