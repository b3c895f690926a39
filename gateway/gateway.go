// Package gateway abstracts the external payment processor. PaymentService
// and the webhook reconciler depend only on the interface, so they are
// testable without network access.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type IntentRequest struct {
	PaymentID   string
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Method      string
}

// Intent is the gateway-side handle for an in-progress payment attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Metadata     string
}

type ConfirmResult struct {
	Approved bool
	Message  string
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// ConfirmIntent returns Approved=false for a decline; an error means the
	// gateway itself failed or timed out.
	ConfirmIntent(ctx context.Context, externalID string) (*ConfirmResult, error)
	CancelIntent(ctx context.Context, externalID string) error
}

// RetryConfig bounds gateway calls. These retries are internal to the
// adapter and distinct from user-facing request timeouts: a slow gateway
// must never hold an order's row lock open.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
}
