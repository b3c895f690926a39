package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-backend/gateway"
	"commerce-backend/models"
	"commerce-backend/repository"
)

func newPaymentFixture(t *testing.T) (*PaymentService, *OrderService, *repository.Memory, *gateway.Mock, *models.Order) {
	t.Helper()
	store := newTestStore()
	orderSvc := newTestOrderService(store)
	gw := gateway.NewMock()
	paySvc := NewPaymentService(store, gw, NewStatusMachine(), nil, "USD")

	order, err := orderSvc.Create(context.Background(),
		testCart(models.CartItem{ProductID: 1, Quantity: 2}), customer)
	require.NoError(t, err)
	return paySvc, orderSvc, store, gw, order
}

func TestCreateIntentPinsAmountToOrderTotal(t *testing.T) {
	paySvc, _, store, _, order := newPaymentFixture(t)

	resp, err := paySvc.CreateIntent(context.Background(), order.ID, "card", customer)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.PaymentID)
	assert.NotEmpty(t, resp.ClientSecret)
	assert.NotEmpty(t, resp.ExternalID)

	payment, err := store.PaymentByID(context.Background(), resp.PaymentID)
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(order.Total))
	assert.Equal(t, "USD", payment.Currency)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, resp.ExternalID, payment.ExternalID)
}

func TestCreateIntentOwnership(t *testing.T) {
	paySvc, _, _, _, order := newPaymentFixture(t)

	_, err := paySvc.CreateIntent(context.Background(), order.ID, "card", stranger)
	assert.True(t, models.IsForbidden(err))

	_, err = paySvc.CreateIntent(context.Background(), 424242, "card", customer)
	assert.True(t, models.IsNotFound(err))
}

func TestCreateIntentRejectsSecondOpenAttempt(t *testing.T) {
	paySvc, _, _, _, order := newPaymentFixture(t)
	ctx := context.Background()

	_, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	_, err = paySvc.CreateIntent(ctx, order.ID, "card", customer)
	assert.True(t, models.IsConflict(err), "want conflict, got %v", err)
}

func TestCreateIntentGatewayFailureMarksPaymentFailed(t *testing.T) {
	paySvc, _, store, gw, order := newPaymentFixture(t)
	gw.Fail = true

	_, err := paySvc.CreateIntent(context.Background(), order.ID, "card", customer)

	assert.True(t, models.IsGatewayError(err), "want gateway error, got %v", err)

	// The failed attempt does not block a retry once the gateway recovers.
	gw.Fail = false
	_, err = paySvc.CreateIntent(context.Background(), order.ID, "card", customer)
	assert.NoError(t, err)

	order2, err := store.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order2.Status, "order untouched by failed intent")
}

// externalIDWriteFailStore fails the write that records the gateway intent
// id on the payment row.
type externalIDWriteFailStore struct {
	*repository.Memory
}

func (s *externalIDWriteFailStore) SetPaymentExternal(ctx context.Context, id, externalID, metadata string) error {
	return errors.New("storage unavailable")
}

func TestCreateIntentExternalIDWriteFailureFailsPayment(t *testing.T) {
	store := newTestStore()
	orderSvc := newTestOrderService(store)
	flaky := &externalIDWriteFailStore{Memory: store}
	paySvc := NewPaymentService(flaky, gateway.NewMock(), NewStatusMachine(), nil, "USD")
	ctx := context.Background()

	order, err := orderSvc.Create(ctx,
		testCart(models.CartItem{ProductID: 1, Quantity: 1}), customer)
	require.NoError(t, err)

	_, err = paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.Error(t, err)

	// The stranded attempt must end up FAILED, not PENDING, or it would
	// block the order from ever being paid.
	open, err := store.OpenPaymentExists(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, open)

	healthy := NewPaymentService(store, gateway.NewMock(), NewStatusMachine(), nil, "USD")
	_, err = healthy.CreateIntent(ctx, order.ID, "card", customer)
	assert.NoError(t, err, "a new intent succeeds once storage recovers")
}

func TestCancelPaymentWithoutExternalIDSkipsGateway(t *testing.T) {
	paySvc, _, store, gw, order := newPaymentFixture(t)
	ctx := context.Background()

	// A payment stranded before its gateway intent id was recorded.
	payment := &models.Payment{
		ID: "pay_stranded", OrderID: order.ID, Amount: order.Total,
		Currency: "USD", Method: "card", Status: models.PaymentPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreatePayment(ctx, payment))

	result, err := paySvc.Cancel(ctx, payment.ID, customer)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, gw.Cancelled, "no intent exists at the gateway to void")

	reloaded, err := store.PaymentByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, reloaded.Status)
}

func TestConfirmSuccessCascadesOrder(t *testing.T) {
	paySvc, _, store, _, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	result, err := paySvc.Confirm(ctx, resp.PaymentID, customer)

	require.NoError(t, err)
	assert.True(t, result.Success)

	payment, err := store.PaymentByID(ctx, resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, payment.Status)
	assert.NotNil(t, payment.ProcessedAt)

	reloaded, err := store.OrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, reloaded.Status)
	assert.Equal(t, models.PayCompleted, reloaded.PaymentStatus)
	assert.NotNil(t, reloaded.ConfirmedAt)
}

func TestConfirmAfterStaffConfirmationStillMarksPaid(t *testing.T) {
	paySvc, orderSvc, store, _, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	// Staff confirms the order manually before the customer confirms the
	// payment.
	_, err = orderSvc.UpdateStatus(ctx, order.ID, models.OrderConfirmed, staff)
	require.NoError(t, err)

	result, err := paySvc.Confirm(ctx, resp.PaymentID, customer)
	require.NoError(t, err)
	assert.True(t, result.Success)

	payment, err := store.PaymentByID(ctx, resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, payment.Status)

	reloaded, err := store.OrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, reloaded.Status)
	assert.Equal(t, models.PayCompleted, reloaded.PaymentStatus,
		"payment success must reach the order even when it is no longer PENDING")
}

func TestConfirmIsIdempotent(t *testing.T) {
	paySvc, _, _, _, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)
	_, err = paySvc.Confirm(ctx, resp.PaymentID, customer)
	require.NoError(t, err)

	result, err := paySvc.Confirm(ctx, resp.PaymentID, customer)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestConfirmDeclineLeavesOrderUntouched(t *testing.T) {
	paySvc, _, store, gw, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	gw.Decline = true
	result, err := paySvc.Confirm(ctx, resp.PaymentID, customer)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	payment, err := store.PaymentByID(ctx, resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)

	reloaded, err := store.OrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, reloaded.Status, "no automatic cancel on a declined confirmation")
	assert.Equal(t, models.PayPending, reloaded.PaymentStatus)
}

func TestConfirmGatewayErrorMarksFailed(t *testing.T) {
	paySvc, _, store, gw, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	gw.Fail = true
	_, err = paySvc.Confirm(ctx, resp.PaymentID, customer)

	assert.True(t, models.IsGatewayError(err))
	payment, err := store.PaymentByID(ctx, resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)
}

func TestConfirmOwnership(t *testing.T) {
	paySvc, _, _, _, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	_, err = paySvc.Confirm(ctx, resp.PaymentID, stranger)
	assert.True(t, models.IsForbidden(err))
}

func TestCancelPaymentKeepsOrderStatus(t *testing.T) {
	paySvc, _, store, gw, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)

	result, err := paySvc.Cancel(ctx, resp.PaymentID, customer)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, gw.Cancelled, 1)

	payment, err := store.PaymentByID(ctx, resp.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, payment.Status)

	reloaded, err := store.OrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayCancelled, reloaded.PaymentStatus)
	assert.Equal(t, models.OrderPending, reloaded.Status,
		"payment cancellation does not cancel the order itself")

	// Cancelling twice is a no-op success.
	again, err := paySvc.Cancel(ctx, resp.PaymentID, customer)
	require.NoError(t, err)
	assert.True(t, again.Success)
}

func TestCancelCompletedPaymentConflicts(t *testing.T) {
	paySvc, _, _, _, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)
	_, err = paySvc.Confirm(ctx, resp.PaymentID, customer)
	require.NoError(t, err)

	_, err = paySvc.Cancel(ctx, resp.PaymentID, customer)
	assert.True(t, models.IsConflict(err))
}

func TestCreateIntentOnPaidOrderConflicts(t *testing.T) {
	paySvc, _, _, _, order := newPaymentFixture(t)
	ctx := context.Background()

	resp, err := paySvc.CreateIntent(ctx, order.ID, "card", customer)
	require.NoError(t, err)
	_, err = paySvc.Confirm(ctx, resp.PaymentID, customer)
	require.NoError(t, err)

	_, err = paySvc.CreateIntent(ctx, order.ID, "card", customer)
	assert.True(t, models.IsConflict(err))
}

func TestCreateIntentOnCancelledOrderConflicts(t *testing.T) {
	paySvc, orderSvc, _, _, order := newPaymentFixture(t)
	ctx := context.Background()

	_, err := orderSvc.Cancel(ctx, order.ID, customer)
	require.NoError(t, err)

	_, err = paySvc.CreateIntent(ctx, order.ID, "card", customer)
	assert.True(t, models.IsConflict(err))
}
