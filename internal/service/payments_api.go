// Package service holds clients for the worker's external collaborators.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamepay/payments-worker/internal/domain"
	"github.com/gamepay/payments-worker/internal/logging"
	"github.com/gamepay/payments-worker/internal/observability"
)

const dependencyTarget = "payments-api"

// PaymentsAPIClient is the HTTP-backed payment store. It authenticates with
// the shared internal token and reports every call as a dependency.
type PaymentsAPIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	obs        observability.Observability
}

func NewPaymentsAPIClient(baseURL, token string, timeout time.Duration, obs observability.Observability) *PaymentsAPIClient {
	return &PaymentsAPIClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		obs: obs,
	}
}

type paymentPayload struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	GameID           uuid.UUID       `json:"game_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	ProviderResponse *string         `json:"provider_response,omitempty"`
	FailureReason    *string         `json:"failure_reason,omitempty"`
}

func (pl paymentPayload) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:               pl.ID,
		UserID:           pl.UserID,
		GameID:           pl.GameID,
		Amount:           pl.Amount,
		Currency:         pl.Currency,
		Status:           domain.Status(pl.Status),
		CreatedAt:        pl.CreatedAt,
		ProcessedAt:      pl.ProcessedAt,
		ProviderResponse: pl.ProviderResponse,
		FailureReason:    pl.FailureReason,
	}
}

func (c *PaymentsAPIClient) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	endpoint := fmt.Sprintf("/internal/payments/%s", id)

	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.obs.TrackDependency(http.MethodGet, dependencyTarget, time.Since(start), false)
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.obs.TrackDependency(http.MethodGet, dependencyTarget, time.Since(start), true)
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.obs.TrackDependency(http.MethodGet, dependencyTarget, time.Since(start), false)
		return nil, fmt.Errorf("GetByID: unexpected status %d: %s", resp.StatusCode, readBody(resp))
	}

	var payload paymentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.obs.TrackDependency(http.MethodGet, dependencyTarget, time.Since(start), false)
		return nil, fmt.Errorf("GetByID: decode: %w", err)
	}

	c.obs.TrackDependency(http.MethodGet, dependencyTarget, time.Since(start), true)
	return payload.toDomain(), nil
}

// UpdateStatus calls the status endpoint matching the requested transition.
// The API owns the record, including the terminal-transition guard.
func (c *PaymentsAPIClient) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, providerResponse, failureReason *string) error {
	var (
		action string
		body   any
	)
	switch status {
	case domain.StatusProcessing:
		action = "mark-processing"
	case domain.StatusApproved:
		action = "mark-approved"
		body = map[string]any{"provider_response": deref(providerResponse)}
	case domain.StatusDeclined:
		action = "mark-declined"
		body = map[string]any{"provider_response": deref(providerResponse), "reason": deref(failureReason)}
	case domain.StatusFailed:
		action = "mark-failed"
		body = map[string]any{"reason": deref(failureReason)}
	default:
		return fmt.Errorf("UpdateStatus: no endpoint for status %q", status)
	}

	endpoint := fmt.Sprintf("/internal/payments/%s/%s", id, action)

	start := time.Now()
	resp, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), false)
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), true)
		return fmt.Errorf("UpdateStatus: %s: %w", action, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), false)
		return fmt.Errorf("UpdateStatus: %s: unexpected status %d: %s", action, resp.StatusCode, readBody(resp))
	}

	c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), true)
	logging.FromContext(ctx).Debug("payment status updated", "payment_id", id, "action", action)
	return nil
}

// CreatePayment submits the creation command. The API publishes the
// created/queued events for the new payment.
func (c *PaymentsAPIClient) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (*domain.Payment, error) {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodPost, "/internal/payments", req)
	if err != nil {
		c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), false)
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), false)
		return nil, fmt.Errorf("CreatePayment: unexpected status %d: %s", resp.StatusCode, readBody(resp))
	}

	var payload paymentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), false)
		return nil, fmt.Errorf("CreatePayment: decode: %w", err)
	}

	c.obs.TrackDependency(http.MethodPost, dependencyTarget, time.Since(start), true)
	return payload.toDomain(), nil
}

func (c *PaymentsAPIClient) do(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-internal-token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return resp, nil
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return string(b)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
