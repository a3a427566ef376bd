// Package payment implements the payment processing workflow: validation of
// inbound messages, the decision procedure, the ordered side effects
// (mark-processing, decide, mark-outcome, publish completion) and the
// compensation path on failure.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gamepay/payments-worker/internal/domain"
	"github.com/gamepay/payments-worker/internal/logging"
	"github.com/gamepay/payments-worker/internal/observability"
)

// Store is the system of record for payments. It may be backed by the
// payments API or by the payments table directly; the workflow is agnostic.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, providerResponse, failureReason *string) error
}

// Creator submits payment creation commands to the remote counterpart that
// owns creation. The created/queued events for new payments are published
// on that side, not by this workflow.
type Creator interface {
	CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (*domain.Payment, error)
}

// Publisher hands serialized domain events to the event transport.
// Transport errors must be surfaced: a lost terminal event breaks the
// exactly-one-terminal-event guarantee.
type Publisher interface {
	Publish(ctx context.Context, eventType domain.EventType, paymentID, correlationID uuid.UUID, data *string) error
	PublishPurchaseCompleted(ctx context.Context, ev domain.PurchaseCompleted) error
}

type Service struct {
	store     Store
	creator   Creator
	publisher Publisher
	obs       observability.Observability
}

func NewService(store Store, creator Creator, publisher Publisher, obs observability.Observability) *Service {
	return &Service{
		store:     store,
		creator:   creator,
		publisher: publisher,
		obs:       obs,
	}
}

// CreatePayment handles a purchase request by submitting a creation command
// to the payments API. No events are emitted here on either outcome:
// creation events belong to the system of record. Duplicate deliveries are
// deduplicated there as well, by payment id uniqueness.
func (s *Service) CreatePayment(ctx context.Context, req domain.PurchaseRequested) error {
	if err := ValidatePurchaseRequest(req); err != nil {
		return fmt.Errorf("CreatePayment: %w", err)
	}

	ctx = observability.WithCorrelationID(ctx, req.CorrelationID.UUID)
	log := logging.FromContext(ctx).With(
		"payment_id", req.PaymentID.UUID,
		"correlation_id", req.CorrelationID.UUID,
	)
	ctx = logging.WithLogger(ctx, log)

	ctx, span := s.obs.StartProcessingSpan(ctx, "CreatePayment", req.PaymentID.UUID, req.CorrelationID.UUID)
	defer span.End()

	log.Info("creating payment", "user_id", req.UserID.UUID, "game_id", req.GameID.UUID)

	created, err := s.creator.CreatePayment(ctx, domain.CreatePaymentRequest{
		ID:            req.PaymentID.UUID,
		UserID:        req.UserID.UUID,
		GameID:        req.GameID.UUID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CorrelationID: req.CorrelationID.UUID,
	})
	if err != nil {
		return fmt.Errorf("CreatePayment: %w", err)
	}
	if created == nil {
		return errors.New("CreatePayment: store rejected creation")
	}

	log.Info("payment created")
	return nil
}

// ProcessPayment advances an existing payment from pending to a terminal
// state. Steps 1-2 (load, reconcile) fail fast with no store mutation; the
// mutation region (mark processing through publish completion) sits inside
// a single capture region so that any unexpected error still leaves a
// terminal record in both the store and the event stream.
func (s *Service) ProcessPayment(ctx context.Context, msg domain.ProcessingMessage) error {
	if err := ValidateProcessingMessage(msg); err != nil {
		return fmt.Errorf("ProcessPayment: %w", err)
	}

	ctx = observability.WithCorrelationID(ctx, msg.CorrelationID.UUID)
	log := logging.FromContext(ctx).With(
		"payment_id", msg.PaymentID.UUID,
		"correlation_id", msg.CorrelationID.UUID,
	)
	ctx = logging.WithLogger(ctx, log)

	ctx, span := s.obs.StartProcessingSpan(ctx, "ProcessPayment", msg.PaymentID.UUID, msg.CorrelationID.UUID)
	defer span.End()

	log.Info("processing payment", "user_id", msg.UserID.UUID)

	p, err := s.store.GetByID(ctx, msg.PaymentID.UUID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			reason := "payment not found"
			if pubErr := s.publisher.Publish(ctx, domain.EventPaymentFailed, msg.PaymentID.UUID, msg.CorrelationID.UUID, &reason); pubErr != nil {
				return fmt.Errorf("ProcessPayment: publish failed event: %w", pubErr)
			}
			return fmt.Errorf("ProcessPayment: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("ProcessPayment: load payment: %w", err)
	}

	if p.Status.Terminal() {
		log.Info("payment already in terminal state, skipping", "status", p.Status)
		return nil
	}

	if err := reconcile(p, msg, log); err != nil {
		reason := "data inconsistency between message and store"
		if pubErr := s.publisher.Publish(ctx, domain.EventPaymentFailed, msg.PaymentID.UUID, msg.CorrelationID.UUID, &reason); pubErr != nil {
			return fmt.Errorf("ProcessPayment: publish failed event: %w", pubErr)
		}
		return fmt.Errorf("ProcessPayment: %w", err)
	}

	status, err := s.execute(ctx, p, msg)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-flight: redelivery retries the whole message,
			// so no compensating events are emitted here.
			return fmt.Errorf("ProcessPayment: %w", err)
		}
		s.compensate(ctx, msg, err)
		return fmt.Errorf("ProcessPayment: %w", err)
	}

	log.Info("payment processed", "status", status)
	return nil
}

// execute is the mutation region: mark processing, decide, mark the
// outcome, publish the completion summary. Any error propagates to the
// caller's compensation path.
func (s *Service) execute(ctx context.Context, p *domain.Payment, msg domain.ProcessingMessage) (domain.Status, error) {
	if err := s.store.UpdateStatus(ctx, p.ID, domain.StatusProcessing, nil, nil); err != nil {
		return "", fmt.Errorf("mark processing: %w", err)
	}
	if err := s.publisher.Publish(ctx, domain.EventPaymentProcessing, p.ID, msg.CorrelationID.UUID, nil); err != nil {
		return "", fmt.Errorf("publish processing event: %w", err)
	}

	approved, response, reason := Decide(p.Amount)

	var (
		status    domain.Status
		eventType domain.EventType
		data      string
	)
	if approved {
		status, eventType, data = domain.StatusApproved, domain.EventPaymentApproved, response
		if err := s.store.UpdateStatus(ctx, p.ID, status, &response, nil); err != nil {
			return "", fmt.Errorf("mark approved: %w", err)
		}
	} else {
		status, eventType, data = domain.StatusDeclined, domain.EventPaymentDeclined, reason
		if err := s.store.UpdateStatus(ctx, p.ID, status, &response, &reason); err != nil {
			return "", fmt.Errorf("mark declined: %w", err)
		}
	}
	if err := s.publisher.Publish(ctx, eventType, p.ID, msg.CorrelationID.UUID, &data); err != nil {
		return "", fmt.Errorf("publish %s event: %w", eventType, err)
	}

	if err := s.publisher.PublishPurchaseCompleted(ctx, completedEvent(msg, string(status), reason)); err != nil {
		return "", fmt.Errorf("publish completion event: %w", err)
	}

	return status, nil
}

// compensate is best-effort: the store update and each publish are
// attempted independently so a failing transport cannot suppress the
// terminal record elsewhere.
func (s *Service) compensate(ctx context.Context, msg domain.ProcessingMessage, cause error) {
	log := logging.FromContext(ctx)
	reason := cause.Error()

	if err := s.store.UpdateStatus(ctx, msg.PaymentID.UUID, domain.StatusFailed, nil, &reason); err != nil {
		log.Error("failed to mark payment failed", "error", err)
	}
	if err := s.publisher.Publish(ctx, domain.EventPaymentFailed, msg.PaymentID.UUID, msg.CorrelationID.UUID, &reason); err != nil {
		log.Error("failed to publish failed event", "error", err)
	}
	if err := s.publisher.PublishPurchaseCompleted(ctx, completedEvent(msg, string(domain.StatusFailed), reason)); err != nil {
		log.Error("failed to publish completion event", "error", err)
	}
}

// reconcile checks the loaded payment's ownership fields against the
// message. Zero store values adopt the message values; a non-zero mismatch
// is an inconsistency. The adoption is deliberately loud: it can mask
// genuine data-integrity bugs upstream.
func reconcile(p *domain.Payment, msg domain.ProcessingMessage, log *slog.Logger) error {
	if p.UserID == uuid.Nil {
		log.Warn("store user id missing, adopting message value", "user_id", msg.UserID.UUID)
		p.UserID = msg.UserID.UUID
	} else if p.UserID != msg.UserID.UUID {
		return domain.ErrDataInconsistency
	}

	if p.GameID == uuid.Nil {
		log.Warn("store game id missing, adopting message value", "game_id", msg.GameID.UUID)
		p.GameID = msg.GameID.UUID
	} else if p.GameID != msg.GameID.UUID {
		return domain.ErrDataInconsistency
	}

	return nil
}

func completedEvent(msg domain.ProcessingMessage, status, reason string) domain.PurchaseCompleted {
	return domain.PurchaseCompleted{
		PaymentID:     msg.PaymentID.UUID,
		UserID:        msg.UserID.UUID,
		GameID:        msg.GameID.UUID,
		Amount:        msg.Amount,
		Currency:      msg.Currency,
		PaymentMethod: msg.PaymentMethod,
		Status:        status,
		Reason:        &reason,
		CorrelationID: msg.CorrelationID.UUID,
		CompletedAt:   time.Now().UTC(),
	}
}
