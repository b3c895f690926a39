package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

type PaymentState string

const (
	PayPending    PaymentState = "PENDING"
	PayProcessing PaymentState = "PROCESSING"
	PayCompleted  PaymentState = "COMPLETED"
	PayFailed     PaymentState = "FAILED"
	PayCancelled  PaymentState = "CANCELLED"
	PayRefunded   PaymentState = "REFUNDED"
)

type Address struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" binding:"required"`
}

type Order struct {
	ID             int64           `json:"id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     int             `json:"customer_id"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerPhone  string          `json:"customer_phone"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentState    `json:"payment_status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	ShippingAddr   Address         `json:"shipping_address"`
	BillingAddr    *Address        `json:"billing_address,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Items          []OrderItem     `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt      *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
}

// OrderItem is a snapshot of the product taken at order-creation time.
// Later catalog edits must not alter historical orders.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type CartItem struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items        []CartItem `json:"items" binding:"required,min=1,dive"`
	ShippingAddr Address    `json:"shipping_address" binding:"required"`
	BillingAddr  *Address   `json:"billing_address"`
	Notes        string     `json:"notes"`
}

// Product is the authoritative catalog record a cart line resolves against.
type Product struct {
	ID    int64
	Name  string
	SKU   string
	Image string
	Price decimal.Decimal
}

type OrderFilters struct {
	Status   OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}

type OrderPage struct {
	Data     []Order `json:"data"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	HasNext  bool    `json:"has_next"`
	HasPrev  bool    `json:"has_prev"`
}

type OrderEvent struct {
	OrderID     int64        `json:"order_id"`
	OrderNumber string       `json:"order_number"`
	CustomerID  int          `json:"customer_id"`
	Type        string       `json:"type"` // created, status_changed, payment_completed, cancelled
	Status      OrderStatus  `json:"status"`
	Payment     PaymentState `json:"payment_status"`
	Total       string       `json:"total"`
	Occurred    time.Time    `json:"occurred"`
}
