package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commerce-backend/models"
	"commerce-backend/repository"
)

// Requester identifies the authenticated caller. Staff roles may act on any
// order; customers only on their own.
type Requester struct {
	UserID int
	Email  string
	Role   string
}

func (r Requester) Staff() bool {
	return r.Role == "admin" || r.Role == "manager"
}

// EventPublisher decouples the services from the broker. A nil publisher
// disables event publication (tests, local runs without RabbitMQ).
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev models.OrderEvent, priority uint8) error
	PublishPaymentCheck(ctx context.Context, orderID int64, delay time.Duration) error
}

const allocationRetries = 10

type OrderService struct {
	store   repository.Store
	pricer  Pricer
	seq     SequenceAllocator
	machine *StatusMachine
	events  EventPublisher
	now     func() time.Time

	// PaymentCheckDelay is how long an order may sit unpaid before the
	// deferred payment check fires.
	PaymentCheckDelay time.Duration
}

func NewOrderService(store repository.Store, pricer Pricer, seq SequenceAllocator, machine *StatusMachine, events EventPublisher) *OrderService {
	return &OrderService{
		store:             store,
		pricer:            pricer,
		seq:               seq,
		machine:           machine,
		events:            events,
		now:               time.Now,
		PaymentCheckDelay: 15 * time.Minute,
	}
}

// Create converts a validated cart into a durable order. Product prices,
// names and SKUs are resolved from the catalog; client-supplied prices are
// ignored. The order and its item snapshots are inserted in one transaction,
// retrying allocation when the order-number unique index rejects the insert.
func (s *OrderService) Create(ctx context.Context, req *models.CreateOrderRequest, requester Requester) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, models.ValidationError("order must contain at least one item")
	}
	ids := make([]int64, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, models.ValidationError(fmt.Sprintf(
				"invalid quantity %d for product %d", line.Quantity, line.ProductID))
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.store.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, models.NotFoundError(fmt.Sprintf("product %d", line.ProductID))
		}
		items = append(items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Image:       p.Image,
			Quantity:    line.Quantity,
			UnitPrice:   p.Price,
			Total:       p.Price.Mul(decimalFromInt(line.Quantity)),
		})
	}

	totals := s.pricer.Price(items, req.ShippingAddr)

	order := &models.Order{
		CustomerID:     requester.UserID,
		CustomerEmail:  requester.Email,
		CustomerPhone:  req.ShippingAddr.Phone,
		Status:         models.OrderPending,
		PaymentStatus:  models.PayPending,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		ShippingCost:   totals.ShippingCost,
		DiscountAmount: totals.Discount,
		Total:          totals.Total,
		ShippingAddr:   req.ShippingAddr,
		BillingAddr:    req.BillingAddr,
		Notes:          req.Notes,
		Items:          items,
		CreatedAt:      s.now(),
	}

	for attempt := 1; ; attempt++ {
		number, err := s.seq.Next(ctx)
		if err != nil {
			return nil, err
		}
		order.OrderNumber = number

		err = s.store.CreateOrder(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return nil, err
		}
		if attempt >= allocationRetries {
			return nil, models.ConflictError("could not allocate a unique order number")
		}
	}

	s.publish(ctx, order, "created", createPriority(order))
	if s.events != nil {
		if err := s.events.PublishPaymentCheck(ctx, order.ID, s.PaymentCheckDelay); err != nil {
			slog.Warn("failed to schedule payment check",
				"order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func (s *OrderService) FindAll(ctx context.Context, f models.OrderFilters) (*models.OrderPage, error) {
	return s.store.ListOrders(ctx, f)
}

func (s *OrderService) FindByCustomer(ctx context.Context, customerID int, f models.OrderFilters) (*models.OrderPage, error) {
	return s.store.ListCustomerOrders(ctx, customerID, f)
}

func (s *OrderService) FindOne(ctx context.Context, id int64, requester Requester) (*models.Order, error) {
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Staff() && order.CustomerID != requester.UserID {
		return nil, models.ForbiddenError("not allowed to view this order")
	}
	return order, nil
}

// UpdateStatus applies a staff-driven transition through the status machine.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, to models.OrderStatus, requester Requester) (*models.Order, error) {
	if !requester.Staff() {
		return nil, models.ForbiddenError("staff role required")
	}
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := s.machine.Transition(order, to); err != nil {
		return nil, err
	}
	if err := s.store.UpdateOrderStatus(ctx, order, from); err != nil {
		return nil, err
	}

	priority := uint8(5)
	if to == models.OrderCancelled {
		priority = 8
	}
	s.publish(ctx, order, "status_changed", priority)
	return order, nil
}

// Cancel is idempotent: cancelling an already-cancelled order succeeds as a
// no-op so duplicate client retries do not surface errors.
func (s *OrderService) Cancel(ctx context.Context, id int64, requester Requester) (*models.Order, error) {
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Staff() && order.CustomerID != requester.UserID {
		return nil, models.ForbiddenError("not allowed to cancel this order")
	}
	if order.Status == models.OrderCancelled {
		return order, nil
	}
	if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
		return nil, models.ConflictError(fmt.Sprintf(
			"order in status %s cannot be cancelled", order.Status))
	}

	from := order.Status
	if err := s.machine.Transition(order, models.OrderCancelled); err != nil {
		return nil, err
	}
	if err := s.store.UpdateOrderStatus(ctx, order, from); err != nil {
		return nil, err
	}

	s.publish(ctx, order, "cancelled", 8)
	return order, nil
}

// CancelUnpaid cancels an order the deferred payment check found still
// unpaid. It is an internal entry point with no caller: only orders that are
// PENDING with payment still pending are touched. Returns true when the
// order was cancelled.
func (s *OrderService) CancelUnpaid(ctx context.Context, id int64) (bool, error) {
	order, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return false, err
	}
	if order.Status != models.OrderPending || order.PaymentStatus != models.PayPending {
		return false, nil
	}

	from := order.Status
	if err := s.machine.Transition(order, models.OrderCancelled); err != nil {
		return false, err
	}
	if err := s.store.UpdateOrderStatus(ctx, order, from); err != nil {
		if models.IsConflict(err) {
			// A payment or staff action advanced the order between the read
			// and the write; leave it alone.
			return false, nil
		}
		return false, err
	}

	s.publish(ctx, order, "cancelled", 8)
	return true, nil
}

func (s *OrderService) publish(ctx context.Context, o *models.Order, eventType string, priority uint8) {
	if s.events == nil {
		return
	}
	ev := models.OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Type:        eventType,
		Status:      o.Status,
		Payment:     o.PaymentStatus,
		Total:       o.Total.StringFixed(2),
		Occurred:    s.now(),
	}
	if err := s.events.PublishOrderEvent(ctx, ev, priority); err != nil {
		slog.Warn("failed to publish order event",
			"order_id", o.ID, "type", eventType, "error", err)
	}
}

func createPriority(o *models.Order) uint8 {
	// Large orders jump the queue, same as cancellations.
	if o.Total.GreaterThan(decimalFromInt(1000)) {
		return 9
	}
	return 5
}
