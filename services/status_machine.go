package services

import (
	"fmt"
	"time"

	"commerce-backend/models"
)

// transitions holds the allowed outgoing edges per order status. Absent
// states (DELIVERED, CANCELLED, REFUNDED) are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed:  {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered, models.OrderCancelled},
}

// StatusMachine is the single authority for order status mutation. Services
// never assign Order.Status directly; they call Transition and persist the
// result with a compare-and-set against the previous status.
type StatusMachine struct {
	now func() time.Time
}

func NewStatusMachine() *StatusMachine {
	return &StatusMachine{now: time.Now}
}

func (m *StatusMachine) CanTransition(from, to models.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies the status change in memory and stamps the lifecycle
// timestamp matching the target status, exactly once.
func (m *StatusMachine) Transition(o *models.Order, to models.OrderStatus) error {
	if !m.CanTransition(o.Status, to) {
		return models.ConflictError(fmt.Sprintf(
			"invalid status transition %s -> %s", o.Status, to))
	}

	now := m.now()
	switch to {
	case models.OrderConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case models.OrderShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case models.OrderDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	case models.OrderCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}

	o.Status = to
	return nil
}
