package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamepay/payments-worker/internal/domain"
	"github.com/gamepay/payments-worker/internal/observability"
)

type statusUpdate struct {
	id               uuid.UUID
	status           domain.Status
	providerResponse *string
	failureReason    *string
}

type fakeStore struct {
	payment    *domain.Payment
	getErr     error
	updateFunc func(status domain.Status) error
	updates    []statusUpdate
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.payment == nil || f.payment.ID != id {
		return nil, domain.ErrNotFound
	}
	cp := *f.payment
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status, providerResponse, failureReason *string) error {
	if f.updateFunc != nil {
		if err := f.updateFunc(status); err != nil {
			return err
		}
	}
	f.updates = append(f.updates, statusUpdate{id, status, providerResponse, failureReason})
	return nil
}

type publishedEvent struct {
	eventType     domain.EventType
	paymentID     uuid.UUID
	correlationID uuid.UUID
	data          *string
}

type fakePublisher struct {
	errOn     domain.EventType
	events    []publishedEvent
	completed []domain.PurchaseCompleted
}

func (f *fakePublisher) Publish(_ context.Context, eventType domain.EventType, paymentID, correlationID uuid.UUID, data *string) error {
	if f.errOn != "" && f.errOn == eventType {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, publishedEvent{eventType, paymentID, correlationID, data})
	return nil
}

func (f *fakePublisher) PublishPurchaseCompleted(_ context.Context, ev domain.PurchaseCompleted) error {
	f.completed = append(f.completed, ev)
	return nil
}

type fakeCreator struct {
	err  error
	got  *domain.CreatePaymentRequest
	resp *domain.Payment
}

func (f *fakeCreator) CreatePayment(_ context.Context, req domain.CreatePaymentRequest) (*domain.Payment, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func processingMessageFor(p *domain.Payment) domain.ProcessingMessage {
	return domain.ProcessingMessage{
		PaymentID:     domain.ID{UUID: p.ID},
		CorrelationID: domain.ID{UUID: uuid.New()},
		UserID:        domain.ID{UUID: p.UserID},
		GameID:        domain.ID{UUID: p.GameID},
		Amount:        p.Amount,
		Currency:      p.Currency,
	}
}

func pendingPayment(amount string) *domain.Payment {
	return &domain.Payment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		GameID:   uuid.New(),
		Amount:   decimal.RequireFromString(amount),
		Currency: "BRL",
		Status:   domain.StatusPending,
	}
}

func eventTypes(events []publishedEvent) []domain.EventType {
	types := make([]domain.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.eventType)
	}
	return types
}

func TestProcessPaymentApproved(t *testing.T) {
	p := pendingPayment("10.00")
	store := &fakeStore{payment: p}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	msg := processingMessageFor(p)
	require.NoError(t, svc.ProcessPayment(context.Background(), msg))

	require.Len(t, store.updates, 2)
	assert.Equal(t, domain.StatusProcessing, store.updates[0].status)
	assert.Equal(t, domain.StatusApproved, store.updates[1].status)
	require.NotNil(t, store.updates[1].providerResponse)
	assert.Equal(t, "approved", *store.updates[1].providerResponse)
	assert.Nil(t, store.updates[1].failureReason)

	assert.Equal(t,
		[]domain.EventType{domain.EventPaymentProcessing, domain.EventPaymentApproved},
		eventTypes(pub.events),
	)
	assert.Nil(t, pub.events[0].data)
	require.NotNil(t, pub.events[1].data)
	assert.Equal(t, "approved", *pub.events[1].data)

	require.Len(t, pub.completed, 1)
	completed := pub.completed[0]
	assert.Equal(t, p.ID, completed.PaymentID)
	assert.Equal(t, "approved", completed.Status)
	assert.Equal(t, msg.CorrelationID.UUID, completed.CorrelationID)
	assert.True(t, completed.Amount.Equal(p.Amount))
}

func TestProcessPaymentDeclined(t *testing.T) {
	p := pendingPayment("10.01")
	store := &fakeStore{payment: p}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	require.NoError(t, svc.ProcessPayment(context.Background(), processingMessageFor(p)))

	require.Len(t, store.updates, 2)
	assert.Equal(t, domain.StatusDeclined, store.updates[1].status)
	require.NotNil(t, store.updates[1].failureReason)
	assert.Equal(t, reasonDeclined, *store.updates[1].failureReason)

	assert.Equal(t,
		[]domain.EventType{domain.EventPaymentProcessing, domain.EventPaymentDeclined},
		eventTypes(pub.events),
	)
	require.NotNil(t, pub.events[1].data)
	assert.Equal(t, reasonDeclined, *pub.events[1].data)

	require.Len(t, pub.completed, 1)
	assert.Equal(t, "declined", pub.completed[0].Status)
	require.NotNil(t, pub.completed[0].Reason)
	assert.Equal(t, reasonDeclined, *pub.completed[0].Reason)
}

func TestProcessPaymentNotFound(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	msg := processingMessageFor(pendingPayment("10.00"))
	err := svc.ProcessPayment(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, store.updates)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventPaymentFailed, pub.events[0].eventType)
	require.NotNil(t, pub.events[0].data)
	assert.Equal(t, "payment not found", *pub.events[0].data)
	assert.Empty(t, pub.completed)
}

func TestProcessPaymentAlreadyTerminal(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusApproved, domain.StatusDeclined, domain.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			p := pendingPayment("10.00")
			p.Status = status
			store := &fakeStore{payment: p}
			pub := &fakePublisher{}
			svc := NewService(store, nil, pub, observability.Nop())

			require.NoError(t, svc.ProcessPayment(context.Background(), processingMessageFor(p)))

			assert.Empty(t, store.updates)
			assert.Empty(t, pub.events)
			assert.Empty(t, pub.completed)
		})
	}
}

func TestProcessPaymentDataInconsistency(t *testing.T) {
	p := pendingPayment("10.00")
	store := &fakeStore{payment: p}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	msg := processingMessageFor(p)
	msg.UserID = domain.ID{UUID: uuid.New()}

	err := svc.ProcessPayment(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrDataInconsistency)

	assert.Empty(t, store.updates, "no store mutation on inconsistency")
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventPaymentFailed, pub.events[0].eventType)
	require.NotNil(t, pub.events[0].data)
	assert.Equal(t, "data inconsistency between message and store", *pub.events[0].data)
	assert.Empty(t, pub.completed)
}

func TestProcessPaymentAdoptsMissingOwnershipFields(t *testing.T) {
	p := pendingPayment("10.00")
	p.UserID = uuid.Nil
	p.GameID = uuid.Nil
	store := &fakeStore{payment: p}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	msg := processingMessageFor(p)
	msg.UserID = domain.ID{UUID: uuid.New()}
	msg.GameID = domain.ID{UUID: uuid.New()}

	require.NoError(t, svc.ProcessPayment(context.Background(), msg))
	require.Len(t, pub.completed, 1)
	assert.Equal(t, msg.UserID.UUID, pub.completed[0].UserID)
	assert.Equal(t, msg.GameID.UUID, pub.completed[0].GameID)
}

func TestProcessPaymentCompensatesOnStoreError(t *testing.T) {
	p := pendingPayment("10.00")
	store := &fakeStore{
		payment: p,
		updateFunc: func(status domain.Status) error {
			if status == domain.StatusApproved {
				return errors.New("store write failed")
			}
			return nil
		},
	}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	err := svc.ProcessPayment(context.Background(), processingMessageFor(p))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark approved")

	// Processing succeeded, approval failed, then compensation marked failed.
	require.Len(t, store.updates, 2)
	assert.Equal(t, domain.StatusProcessing, store.updates[0].status)
	assert.Equal(t, domain.StatusFailed, store.updates[1].status)
	require.NotNil(t, store.updates[1].failureReason)

	assert.Equal(t,
		[]domain.EventType{domain.EventPaymentProcessing, domain.EventPaymentFailed},
		eventTypes(pub.events),
	)
	require.Len(t, pub.completed, 1)
	assert.Equal(t, "failed", pub.completed[0].Status)
}

func TestProcessPaymentCompensatesOnPublishError(t *testing.T) {
	p := pendingPayment("10.00")
	store := &fakeStore{payment: p}
	pub := &fakePublisher{errOn: domain.EventPaymentProcessing}
	svc := NewService(store, nil, pub, observability.Nop())

	err := svc.ProcessPayment(context.Background(), processingMessageFor(p))
	require.Error(t, err)

	// Compensation still records the terminal failure in the store and the
	// event stream even though the processing event was lost.
	require.Len(t, store.updates, 2)
	assert.Equal(t, domain.StatusFailed, store.updates[1].status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventPaymentFailed, pub.events[0].eventType)
	require.Len(t, pub.completed, 1)
	assert.Equal(t, "failed", pub.completed[0].Status)
}

func TestProcessPaymentNoCompensationOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := pendingPayment("10.00")
	store := &fakeStore{
		payment: p,
		updateFunc: func(status domain.Status) error {
			if status == domain.StatusApproved {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	err := svc.ProcessPayment(ctx, processingMessageFor(p))
	require.Error(t, err)

	// The message will be redelivered, so no failed/completed events and no
	// failed status are written.
	require.Len(t, store.updates, 1)
	assert.Equal(t, domain.StatusProcessing, store.updates[0].status)
	assert.Equal(t, []domain.EventType{domain.EventPaymentProcessing}, eventTypes(pub.events))
	assert.Empty(t, pub.completed)
}

func TestProcessPaymentValidationFailure(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewService(store, nil, pub, observability.Nop())

	err := svc.ProcessPayment(context.Background(), domain.ProcessingMessage{})
	require.ErrorIs(t, err, domain.ErrInvalidMessage)
	assert.Empty(t, store.updates)
	assert.Empty(t, pub.events)
	assert.Empty(t, pub.completed)
}

func TestCreatePayment(t *testing.T) {
	req := validPurchaseRequest()
	creator := &fakeCreator{resp: &domain.Payment{ID: req.PaymentID.UUID}}
	pub := &fakePublisher{}
	svc := NewService(&fakeStore{}, creator, pub, observability.Nop())

	require.NoError(t, svc.CreatePayment(context.Background(), req))

	require.NotNil(t, creator.got)
	assert.Equal(t, req.PaymentID.UUID, creator.got.ID)
	assert.Equal(t, req.UserID.UUID, creator.got.UserID)
	assert.Equal(t, req.PaymentMethod, creator.got.PaymentMethod)
	assert.True(t, creator.got.Amount.Equal(req.Amount))

	// Creation events belong to the system of record.
	assert.Empty(t, pub.events)
	assert.Empty(t, pub.completed)
}

func TestCreatePaymentCreatorError(t *testing.T) {
	creator := &fakeCreator{err: errors.New("api unavailable")}
	pub := &fakePublisher{}
	svc := NewService(&fakeStore{}, creator, pub, observability.Nop())

	err := svc.CreatePayment(context.Background(), validPurchaseRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api unavailable")
	assert.Empty(t, pub.events)
}

func TestCreatePaymentRejectedCreation(t *testing.T) {
	creator := &fakeCreator{resp: nil}
	svc := NewService(&fakeStore{}, creator, &fakePublisher{}, observability.Nop())

	err := svc.CreatePayment(context.Background(), validPurchaseRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected creation")
}

func TestCreatePaymentValidationFailure(t *testing.T) {
	creator := &fakeCreator{}
	svc := NewService(&fakeStore{}, creator, &fakePublisher{}, observability.Nop())

	err := svc.CreatePayment(context.Background(), domain.PurchaseRequested{})
	require.ErrorIs(t, err, domain.ErrInvalidMessage)
	assert.Nil(t, creator.got)
}
