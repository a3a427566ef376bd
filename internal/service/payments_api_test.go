package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamepay/payments-worker/internal/domain"
	"github.com/gamepay/payments-worker/internal/observability"
)

type recordedRequest struct {
	method string
	path   string
	token  string
	body   map[string]any
}

func newTestClient(t *testing.T, status int, respBody string) (*PaymentsAPIClient, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			token:  r.Header.Get("x-internal-token"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		requests = append(requests, rec)

		w.WriteHeader(status)
		fmt.Fprint(w, respBody)
	}))
	t.Cleanup(srv.Close)

	client := NewPaymentsAPIClient(srv.URL, "secret", 5*time.Second, observability.Nop())
	return client, &requests
}

func TestPaymentsAPIClientGetByID(t *testing.T) {
	id := uuid.New()
	payload := fmt.Sprintf(`{
		"id": %q,
		"user_id": %q,
		"game_id": %q,
		"amount": 59.90,
		"currency": "BRL",
		"status": "pending",
		"created_at": "2026-01-15T10:00:00Z"
	}`, id, uuid.New(), uuid.New())

	client, requests := newTestClient(t, http.StatusOK, payload)

	p, err := client.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("59.90")))

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/internal/payments/"+id.String(), got.path)
	assert.Equal(t, "secret", got.token)
}

func TestPaymentsAPIClientGetByIDNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.StatusNotFound, `{"error":"not found"}`)

	_, err := client.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentsAPIClientGetByIDServerError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusInternalServerError, `boom`)

	_, err := client.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "500")
}

func TestPaymentsAPIClientUpdateStatus(t *testing.T) {
	response := "approved"
	reason := "payment declined by provider"

	tests := []struct {
		status   domain.Status
		action   string
		wantBody map[string]any
	}{
		{domain.StatusProcessing, "mark-processing", nil},
		{domain.StatusApproved, "mark-approved", map[string]any{"provider_response": "approved"}},
		{domain.StatusDeclined, "mark-declined", map[string]any{"provider_response": "approved", "reason": reason}},
		{domain.StatusFailed, "mark-failed", map[string]any{"reason": reason}},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			client, requests := newTestClient(t, http.StatusOK, `{}`)
			id := uuid.New()

			err := client.UpdateStatus(context.Background(), id, tt.status, &response, &reason)
			require.NoError(t, err)

			require.Len(t, *requests, 1)
			got := (*requests)[0]
			assert.Equal(t, http.MethodPost, got.method)
			assert.Equal(t, fmt.Sprintf("/internal/payments/%s/%s", id, tt.action), got.path)
			assert.Equal(t, "secret", got.token)
			if tt.wantBody == nil {
				assert.Empty(t, got.body)
			} else {
				assert.Equal(t, tt.wantBody, got.body)
			}
		})
	}
}

func TestPaymentsAPIClientUpdateStatusNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.StatusNotFound, `{}`)

	err := client.UpdateStatus(context.Background(), uuid.New(), domain.StatusProcessing, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentsAPIClientUpdateStatusUnknown(t *testing.T) {
	client, requests := newTestClient(t, http.StatusOK, `{}`)

	err := client.UpdateStatus(context.Background(), uuid.New(), domain.StatusPending, nil, nil)
	require.Error(t, err)
	assert.Empty(t, *requests, "no endpoint exists to move a payment back to pending")
}

func TestPaymentsAPIClientCreatePayment(t *testing.T) {
	id := uuid.New()
	payload := fmt.Sprintf(`{
		"id": %q,
		"user_id": %q,
		"game_id": %q,
		"amount": 10.00,
		"currency": "BRL",
		"status": "pending",
		"created_at": "2026-01-15T10:00:00Z"
	}`, id, uuid.New(), uuid.New())

	client, requests := newTestClient(t, http.StatusCreated, payload)

	p, err := client.CreatePayment(context.Background(), domain.CreatePaymentRequest{
		ID:            id,
		UserID:        uuid.New(),
		GameID:        uuid.New(),
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "BRL",
		PaymentMethod: "credit_card",
		CorrelationID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, "/internal/payments", got.path)
	assert.Equal(t, "credit_card", got.body["payment_method"])
}
