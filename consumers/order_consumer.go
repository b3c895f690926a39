package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"commerce-backend/config"
	"commerce-backend/models"
	"commerce-backend/services"
)

type OrderConsumer struct {
	orderSvc *services.OrderService
}

func NewOrderConsumer(orderSvc *services.OrderService) *OrderConsumer {
	return &OrderConsumer{orderSvc: orderSvc}
}

func (c *OrderConsumer) Start(ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"commerce-backend", // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			c.process(msg)
		}
	}()

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"commerce-backend-dlq", // consumer tag
		false,                  // auto-ack
		false,                  // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for msg := range dlqMsgs {
			slog.Warn("received dead letter", "body", string(msg.Body))
			msg.Ack(false)
		}
	}()

	return nil
}

func (c *OrderConsumer) process(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic in message processing", "panic", r)
		}
	}()

	var ev models.OrderEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		slog.Error("invalid event payload", "body", string(msg.Body), "error", err)
		msg.Nack(false, false) // to the dead letter queue
		return
	}

	switch ev.Type {
	case "created", "status_changed", "cancelled", "payment_completed":
		slog.Info("order event",
			"order_id", ev.OrderID, "type", ev.Type, "status", ev.Status)
	case "payment_check":
		c.handlePaymentCheck(ev.OrderID)
	default:
		slog.Warn("unknown event type", "type", ev.Type)
	}

	msg.Ack(false)
}

// handlePaymentCheck cancels orders still unpaid when the deferred check
// fires. Orders that were paid, advanced by staff, or already cancelled are
// left alone.
func (c *OrderConsumer) handlePaymentCheck(orderID int64) {
	cancelled, err := c.orderSvc.CancelUnpaid(context.Background(), orderID)
	if err != nil {
		slog.Error("payment check: failed to auto-cancel order",
			"order_id", orderID, "error", err)
		return
	}
	if cancelled {
		slog.Info("auto-cancelled unpaid order", "order_id", orderID)
	}
}
