package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
// FAILED is not terminal: the customer may retry and a later gateway
// success may still complete the payment.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentCancelled
}

// Payment is one attempt to pay for an order. An order may accumulate
// several attempts over time but holds at most one non-terminal payment.
type Payment struct {
	ID          string          `json:"id"`
	OrderID     int64           `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	Status      PaymentStatus   `json:"status"`
	ExternalID  string          `json:"external_id,omitempty"`
	Metadata    string          `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

type CreateIntentRequest struct {
	OrderID int64  `json:"order_id" binding:"required"`
	Method  string `json:"method" binding:"required,oneof=card wallet bank_transfer"`
}

type CreateIntentResponse struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
	ExternalID   string `json:"external_id"`
}

type PaymentResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Webhook event types we act on. Anything else is acknowledged and ignored
// so the gateway does not retry-storm on events we don't yet understand.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
)

type WebhookEvent struct {
	ID      string           `json:"id"`
	Type    string           `json:"type" binding:"required"`
	Created time.Time        `json:"created"`
	Data    WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	PaymentID string `json:"payment_id"` // gateway external id, not our Payment.ID
	Reason    string `json:"reason,omitempty"`
}
