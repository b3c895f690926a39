package repository

import (
	"context"
	"errors"

	"commerce-backend/models"
)

// ErrDuplicateOrderNumber is returned by CreateOrder when the unique index
// on orders.order_number rejects the insert. OrderService reacts by
// re-allocating a number and retrying; callers never see this error.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// Store is the durable storage behind the order and payment services.
//
// Status writes are compare-and-set: Update* methods take the status the
// caller read and fail with models.ConflictError when the row has moved on,
// so concurrent writers (operator vs. webhook) never silently lose updates.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	OrderByID(ctx context.Context, id int64) (*models.Order, error)
	LastOrderNumber(ctx context.Context, prefix string) (string, error)
	ListOrders(ctx context.Context, f models.OrderFilters) (*models.OrderPage, error)
	ListCustomerOrders(ctx context.Context, customerID int, f models.OrderFilters) (*models.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, o *models.Order, from models.OrderStatus) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentByID(ctx context.Context, id string) (*models.Payment, error)
	PaymentByExternalID(ctx context.Context, externalID string) (*models.Payment, error)
	OpenPaymentExists(ctx context.Context, orderID int64) (bool, error)
	SetPaymentExternal(ctx context.Context, id, externalID, metadata string) error
	UpdatePaymentStatus(ctx context.Context, p *models.Payment, from models.PaymentStatus) error

	// ReconcilePayment writes the payment and its order in one transaction:
	// either both rows move or neither does.
	ReconcilePayment(ctx context.Context, p *models.Payment, fromPay models.PaymentStatus, o *models.Order, fromOrder models.OrderStatus) error

	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}
