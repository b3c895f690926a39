package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"commerce-backend/gateway"
	"commerce-backend/models"
	"commerce-backend/repository"
)

type PaymentService struct {
	store    repository.Store
	gw       gateway.PaymentGateway
	machine  *StatusMachine
	events   EventPublisher
	now      func() time.Time
	currency string
}

func NewPaymentService(store repository.Store, gw gateway.PaymentGateway, machine *StatusMachine, events EventPublisher, currency string) *PaymentService {
	if currency == "" {
		currency = "USD"
	}
	return &PaymentService{
		store:    store,
		gw:       gw,
		machine:  machine,
		events:   events,
		now:      time.Now,
		currency: currency,
	}
}

// CreateIntent opens a payment attempt for an order: a Payment row pinned to
// the order's total plus a gateway-side intent referenced by external id.
func (s *PaymentService) CreateIntent(ctx context.Context, orderID int64, method string, requester Requester) (*models.CreateIntentResponse, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !requester.Staff() && order.CustomerID != requester.UserID {
		return nil, models.ForbiddenError("not allowed to pay for this order")
	}
	if order.PaymentStatus == models.PayCompleted {
		return nil, models.ConflictError("order is already paid")
	}
	if order.Status == models.OrderCancelled {
		return nil, models.ConflictError("order is cancelled")
	}
	open, err := s.store.OpenPaymentExists(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, models.ConflictError("a payment for this order is already in progress")
	}

	payment := &models.Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Amount:    order.Total,
		Currency:  s.currency,
		Method:    method,
		Status:    models.PaymentPending,
		CreatedAt: s.now(),
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	intent, err := s.gw.CreateIntent(ctx, gateway.IntentRequest{
		PaymentID:   payment.ID,
		OrderNumber: order.OrderNumber,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Method:      method,
	})
	if err != nil {
		now := s.now()
		payment.Status = models.PaymentFailed
		payment.ProcessedAt = &now
		if uerr := s.store.UpdatePaymentStatus(ctx, payment, models.PaymentPending); uerr != nil {
			slog.Error("failed to mark payment failed after gateway error",
				"payment_id", payment.ID, "error", uerr)
		}
		return nil, &models.GatewayError{Op: "create intent", Err: err}
	}

	if err := s.store.SetPaymentExternal(ctx, payment.ID, intent.ID, intent.Metadata); err != nil {
		// A PENDING payment without an external id can never be confirmed
		// and would block every new intent for the order. Fail it so the
		// customer can retry.
		s.markFailed(ctx, payment)
		return nil, err
	}

	return &models.CreateIntentResponse{
		PaymentID:    payment.ID,
		ClientSecret: intent.ClientSecret,
		ExternalID:   intent.ID,
	}, nil
}

// Confirm drives the gateway confirmation and, on approval, cascades the
// order to CONFIRMED through the status machine in the same transaction as
// the payment update. A decline marks the payment FAILED and leaves the
// order untouched so the customer may retry with a new intent.
func (s *PaymentService) Confirm(ctx context.Context, paymentID string, requester Requester) (*models.PaymentResult, error) {
	payment, order, err := s.ownedPayment(ctx, paymentID, requester)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentCompleted {
		return &models.PaymentResult{Success: true, Message: "payment already completed"}, nil
	}
	if payment.Status != models.PaymentPending {
		return nil, models.ConflictError("payment is " + string(payment.Status))
	}

	result, err := s.gw.ConfirmIntent(ctx, payment.ExternalID)
	if err != nil {
		s.markFailed(ctx, payment)
		return nil, &models.GatewayError{Op: "confirm intent", Err: err}
	}
	if !result.Approved {
		s.markFailed(ctx, payment)
		msg := result.Message
		if msg == "" {
			msg = "payment was declined"
		}
		return &models.PaymentResult{Success: false, Message: msg}, nil
	}

	if err := s.completePayment(ctx, payment, order); err != nil {
		return nil, err
	}
	s.publishPaymentEvent(ctx, order)
	return &models.PaymentResult{Success: true}, nil
}

// Cancel voids the gateway intent and marks the payment CANCELLED. The
// order's payment status follows, but the order itself stays in its current
// status: order-level cancellation is a separate decision.
func (s *PaymentService) Cancel(ctx context.Context, paymentID string, requester Requester) (*models.PaymentResult, error) {
	payment, order, err := s.ownedPayment(ctx, paymentID, requester)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentCancelled {
		return &models.PaymentResult{Success: true}, nil
	}
	if payment.Status == models.PaymentCompleted {
		return nil, models.ConflictError("completed payment cannot be cancelled")
	}

	// A payment that never got an external id has nothing to void at the
	// gateway.
	if payment.ExternalID != "" {
		if err := s.gw.CancelIntent(ctx, payment.ExternalID); err != nil {
			return nil, &models.GatewayError{Op: "cancel intent", Err: err}
		}
	}

	fromPay := payment.Status
	now := s.now()
	payment.Status = models.PaymentCancelled
	payment.ProcessedAt = &now
	order.PaymentStatus = models.PayCancelled
	if err := s.store.ReconcilePayment(ctx, payment, fromPay, order, order.Status); err != nil {
		return nil, err
	}

	return &models.PaymentResult{Success: true}, nil
}

// completePayment applies COMPLETED to the payment and cascades the order in
// one transaction. If another writer already moved the order past PENDING,
// the CONFIRMED transition is skipped but the order's payment status still
// follows the payment.
func (s *PaymentService) completePayment(ctx context.Context, payment *models.Payment, order *models.Order) error {
	now := s.now()
	fromPay := payment.Status
	payment.Status = models.PaymentCompleted
	payment.ProcessedAt = &now

	from := order.Status
	if order.Status == models.OrderPending {
		if err := s.machine.Transition(order, models.OrderConfirmed); err != nil {
			return err
		}
	}
	order.PaymentStatus = models.PayCompleted
	return s.store.ReconcilePayment(ctx, payment, fromPay, order, from)
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment) {
	from := payment.Status
	now := s.now()
	payment.Status = models.PaymentFailed
	payment.ProcessedAt = &now
	if err := s.store.UpdatePaymentStatus(ctx, payment, from); err != nil {
		slog.Error("failed to mark payment failed",
			"payment_id", payment.ID, "error", err)
	}
}

func (s *PaymentService) ownedPayment(ctx context.Context, paymentID string, requester Requester) (*models.Payment, *models.Order, error) {
	payment, err := s.store.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.store.OrderByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if !requester.Staff() && order.CustomerID != requester.UserID {
		return nil, nil, models.ForbiddenError("not allowed to manage this payment")
	}
	return payment, order, nil
}

func (s *PaymentService) publishPaymentEvent(ctx context.Context, o *models.Order) {
	if s.events == nil {
		return
	}
	ev := models.OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Type:        "payment_completed",
		Status:      o.Status,
		Payment:     o.PaymentStatus,
		Total:       o.Total.StringFixed(2),
		Occurred:    s.now(),
	}
	if err := s.events.PublishOrderEvent(ctx, ev, 5); err != nil {
		slog.Warn("failed to publish payment event",
			"order_id", o.ID, "error", err)
	}
}
