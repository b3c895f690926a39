package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPGateway talks to the payment processor's REST API. Transport errors
// and 5xx responses are retried with exponential backoff; 4xx responses are
// not, since repeating them cannot succeed.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   RetryConfig
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   DefaultRetryConfig(),
	}
}

type intentPayload struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

type intentResponse struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	Status       string          `json:"status"`
	Metadata     json.RawMessage `json:"metadata"`
}

type confirmResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	payload := intentPayload{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Method:      req.Method,
		Reference:   req.PaymentID,
		Description: "order " + req.OrderNumber,
	}

	var resp intentResponse
	if err := g.do(ctx, http.MethodPost, "/v1/intents", payload, &resp); err != nil {
		return nil, err
	}
	return &Intent{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
		Metadata:     string(resp.Metadata),
	}, nil
}

func (g *HTTPGateway) ConfirmIntent(ctx context.Context, externalID string) (*ConfirmResult, error) {
	var resp confirmResponse
	err := g.do(ctx, http.MethodPost, "/v1/intents/"+externalID+"/confirm", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{
		Approved: resp.Status == "succeeded",
		Message:  resp.Message,
	}, nil
}

func (g *HTTPGateway) CancelIntent(ctx context.Context, externalID string) error {
	return g.do(ctx, http.MethodPost, "/v1/intents/"+externalID+"/cancel", nil, nil)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	backoff := g.retry.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * g.retry.BackoffMultiplier)
			if backoff > g.retry.MaxBackoff {
				backoff = g.retry.MaxBackoff
			}
		}

		lastErr = g.once(ctx, method, path, body, out)
		if lastErr == nil {
			return nil
		}
		var re *retryableError
		if !errors.As(lastErr, &re) {
			return lastErr
		}
		slog.Warn("gateway call failed, retrying",
			"path", path, "attempt", attempt, "error", lastErr)
	}
	return fmt.Errorf("gateway %s %s: %w", method, path, lastErr)
}

func (g *HTTPGateway) once(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return &retryableError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &retryableError{err: err}
	}
	if resp.StatusCode >= 500 {
		return &retryableError{err: fmt.Errorf("gateway returned %d: %s", resp.StatusCode, data)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }
