package services

import (
	"time"

	"github.com/shopspring/decimal"

	"commerce-backend/models"
	"commerce-backend/repository"
)

var (
	customer = Requester{UserID: 7, Email: "jo@example.com", Role: "customer"}
	stranger = Requester{UserID: 8, Email: "sam@example.com", Role: "customer"}
	staff    = Requester{UserID: 1, Email: "ops@example.com", Role: "admin"}
)

func newTestStore() *repository.Memory {
	store := repository.NewMemory()
	store.AddProduct(models.Product{
		ID: 1, Name: "Walnut Desk Organizer", SKU: "WD-001",
		Image: "/img/wd-001.jpg", Price: decimal.NewFromInt(50),
	})
	store.AddProduct(models.Product{
		ID: 2, Name: "Brass Bookend", SKU: "BB-014",
		Price: decimal.NewFromInt(20),
	})
	return store
}

func newTestOrderService(store *repository.Memory) *OrderService {
	return NewOrderService(store, NewStandardPricer(), NewDailySequence(store), NewStatusMachine(), nil)
}

func testCart(lines ...models.CartItem) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		Items: lines,
		ShippingAddr: models.Address{
			Name: "Jo Doe", Phone: "555-0100", Line1: "1 Main St",
			City: "Springfield", Country: "US",
		},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
