package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/models"
)

func seedOrder(t *testing.T, store interface {
	CreateOrder(context.Context, *models.Order) error
}, number string) {
	t.Helper()
	err := store.CreateOrder(context.Background(), &models.Order{
		OrderNumber:   number,
		CustomerID:    1,
		Status:        models.OrderPending,
		PaymentStatus: models.PayPending,
		Total:         decimal.NewFromInt(10),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
}

func TestDailySequenceFirstOfDay(t *testing.T) {
	seq := NewDailySequence(newTestStore())
	seq.now = fixedClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	number, err := seq.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "202603140001", number)
}

func TestDailySequenceIncrements(t *testing.T) {
	store := newTestStore()
	seq := NewDailySequence(store)
	seq.now = fixedClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	seedOrder(t, store, "202603140001")
	seedOrder(t, store, "202603140007")

	number, err := seq.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "202603140008", number)
}

func TestDailySequenceIgnoresOtherDays(t *testing.T) {
	store := newTestStore()
	seq := NewDailySequence(store)
	seq.now = fixedClock(time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC))

	seedOrder(t, store, "202603149999")

	number, err := seq.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "202603150001", number)
}

func TestDailySequenceExhaustion(t *testing.T) {
	store := newTestStore()
	seq := NewDailySequence(store)
	seq.now = fixedClock(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC))

	seedOrder(t, store, "202603149999")

	_, err := seq.Next(context.Background())

	assert.True(t, models.IsConflict(err), "want conflict, got %v", err)
}
