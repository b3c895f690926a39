package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/models"
)

func TestStatusMachineAllowedTransitions(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		ok       bool
	}{
		{models.OrderPending, models.OrderConfirmed, true},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderPending, models.OrderShipped, false},
		{models.OrderPending, models.OrderDelivered, false},
		{models.OrderConfirmed, models.OrderProcessing, true},
		{models.OrderConfirmed, models.OrderCancelled, true},
		{models.OrderConfirmed, models.OrderShipped, false},
		{models.OrderProcessing, models.OrderShipped, true},
		{models.OrderProcessing, models.OrderCancelled, true},
		{models.OrderProcessing, models.OrderDelivered, false},
		{models.OrderShipped, models.OrderDelivered, true},
		{models.OrderShipped, models.OrderCancelled, true},
		{models.OrderDelivered, models.OrderCancelled, false},
		{models.OrderCancelled, models.OrderPending, false},
		{models.OrderCancelled, models.OrderConfirmed, false},
		{models.OrderRefunded, models.OrderPending, false},
	}

	m := NewStatusMachine()
	for _, tc := range cases {
		assert.Equal(t, tc.ok, m.CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusMachineRejectsSkippedStep(t *testing.T) {
	m := NewStatusMachine()
	order := &models.Order{Status: models.OrderPending}

	err := m.Transition(order, models.OrderShipped)

	assert.True(t, models.IsConflict(err), "want conflict, got %v", err)
	assert.Equal(t, models.OrderPending, order.Status, "state must not change on a rejected edge")
	assert.Nil(t, order.ShippedAt)
}

func TestStatusMachineStampsMatchingTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	m := NewStatusMachine()
	m.now = fixedClock(now)
	order := &models.Order{Status: models.OrderPending}

	require.NoError(t, m.Transition(order, models.OrderConfirmed))
	require.NoError(t, m.Transition(order, models.OrderProcessing))
	require.NoError(t, m.Transition(order, models.OrderShipped))
	require.NoError(t, m.Transition(order, models.OrderDelivered))

	assert.Equal(t, models.OrderDelivered, order.Status)
	require.NotNil(t, order.ConfirmedAt)
	require.NotNil(t, order.ShippedAt)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, now, *order.DeliveredAt)
	assert.Nil(t, order.CancelledAt)
}

func TestStatusMachineStampsCancelledAt(t *testing.T) {
	m := NewStatusMachine()
	order := &models.Order{Status: models.OrderConfirmed}

	require.NoError(t, m.Transition(order, models.OrderCancelled))

	assert.NotNil(t, order.CancelledAt)
	assert.Nil(t, order.ShippedAt)
}
