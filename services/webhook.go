package services

import (
	"context"
	"log/slog"
	"time"

	"commerce-backend/models"
	"commerce-backend/repository"
)

// ProcessedEventStore remembers webhook event ids so redelivered events are
// acknowledged without being re-applied. MarkProcessed returns false when
// the id has already been seen.
type ProcessedEventStore interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// WebhookReconciler maps inbound gateway events onto Payment and Order
// state. Delivery is at-least-once and may be out of order, so every path
// here must be idempotent: duplicates are dropped by event id, and a stale
// event can never move a payment out of a terminal status.
type WebhookReconciler struct {
	store   repository.Store
	seen    ProcessedEventStore
	machine *StatusMachine
	now     func() time.Time
}

func NewWebhookReconciler(store repository.Store, seen ProcessedEventStore, machine *StatusMachine) *WebhookReconciler {
	return &WebhookReconciler{
		store:   store,
		seen:    seen,
		machine: machine,
		now:     time.Now,
	}
}

// Handle processes one gateway event. A nil return means "acknowledge":
// unknown event types, unmatched payments, duplicates and stale events are
// all acknowledged so the gateway does not retry-storm. Only infrastructure
// failures return an error, which makes the gateway redeliver.
func (r *WebhookReconciler) Handle(ctx context.Context, ev *models.WebhookEvent) error {
	switch ev.Type {
	case models.EventPaymentSucceeded, models.EventPaymentFailed, models.EventPaymentCancelled:
	default:
		slog.Info("ignoring unrecognized webhook event",
			"event_id", ev.ID, "type", ev.Type)
		return nil
	}

	if ev.ID != "" && r.seen != nil {
		first, err := r.seen.MarkProcessed(ctx, ev.ID)
		if err != nil {
			return err
		}
		if !first {
			slog.Info("dropping duplicate webhook event", "event_id", ev.ID)
			return nil
		}
	}

	payment, err := r.store.PaymentByExternalID(ctx, ev.Data.PaymentID)
	if err != nil {
		if models.IsNotFound(err) {
			slog.Warn("webhook event for unknown payment",
				"event_id", ev.ID, "external_id", ev.Data.PaymentID)
			return nil
		}
		return err
	}

	if payment.Status.Terminal() {
		// A terminal payment never moves again; an older event arriving
		// after a newer one lands here.
		slog.Info("dropping stale webhook event",
			"event_id", ev.ID, "payment_id", payment.ID,
			"payment_status", payment.Status, "type", ev.Type)
		return nil
	}

	order, err := r.store.OrderByID(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	switch ev.Type {
	case models.EventPaymentSucceeded:
		return r.applySucceeded(ctx, payment, order)
	case models.EventPaymentFailed:
		return r.applyState(ctx, payment, order, models.PaymentFailed, models.PayFailed)
	case models.EventPaymentCancelled:
		return r.applyState(ctx, payment, order, models.PaymentCancelled, models.PayCancelled)
	}
	return nil
}

func (r *WebhookReconciler) applySucceeded(ctx context.Context, payment *models.Payment, order *models.Order) error {
	now := r.now()
	fromPay := payment.Status
	payment.Status = models.PaymentCompleted
	payment.ProcessedAt = &now

	var err error
	if order.Status == models.OrderPending {
		from := order.Status
		if terr := r.machine.Transition(order, models.OrderConfirmed); terr != nil {
			return terr
		}
		order.PaymentStatus = models.PayCompleted
		err = r.store.ReconcilePayment(ctx, payment, fromPay, order, from)
	} else {
		// The order moved past PENDING already (staff confirmed it first, or
		// it was auto-cancelled). The payment status still has to cascade so
		// the money reconciles; only the CONFIRMED transition is skipped.
		order.PaymentStatus = models.PayCompleted
		err = r.store.ReconcilePayment(ctx, payment, fromPay, order, order.Status)
	}
	return r.ackConflict(err, payment.ID)
}

// applyState moves the payment to a non-success outcome and mirrors it on
// the order's payment status. The order status itself is left alone, and a
// COMPLETED order payment status is never regressed.
func (r *WebhookReconciler) applyState(ctx context.Context, payment *models.Payment, order *models.Order, payStatus models.PaymentStatus, orderPay models.PaymentState) error {
	if payment.Status == payStatus {
		return nil
	}
	now := r.now()
	fromPay := payment.Status
	payment.Status = payStatus
	payment.ProcessedAt = &now

	var err error
	if order.PaymentStatus != models.PayCompleted {
		order.PaymentStatus = orderPay
		err = r.store.ReconcilePayment(ctx, payment, fromPay, order, order.Status)
	} else {
		err = r.store.UpdatePaymentStatus(ctx, payment, fromPay)
	}
	return r.ackConflict(err, payment.ID)
}

// ackConflict downgrades a compare-and-set conflict to an ack: it means a
// concurrent delivery of the same notification already applied the change.
func (r *WebhookReconciler) ackConflict(err error, paymentID string) error {
	if err == nil {
		return nil
	}
	if models.IsConflict(err) {
		slog.Info("concurrent webhook delivery already applied",
			"payment_id", paymentID)
		return nil
	}
	return err
}
