package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"commerce-backend/models"
)

// Memory is an in-process Store used by tests and local development. It
// mirrors the MySQL implementation's semantics: order-number uniqueness and
// compare-and-set status updates under a single mutex.
type Memory struct {
	mu           sync.Mutex
	nextOrderID  int64
	nextItemID   int64
	orders       map[int64]*models.Order
	orderNumbers map[string]int64
	payments     map[string]*models.Payment
	products     map[int64]models.Product
}

func NewMemory() *Memory {
	return &Memory{
		orders:       map[int64]*models.Order{},
		orderNumbers: map[string]int64{},
		payments:     map[string]*models.Payment{},
		products:     map[int64]models.Product{},
	}
}

// AddProduct seeds the catalog.
func (s *Memory) AddProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Memory) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.orderNumbers[o.OrderNumber]; taken {
		return ErrDuplicateOrderNumber
	}
	s.nextOrderID++
	o.ID = s.nextOrderID
	for i := range o.Items {
		s.nextItemID++
		o.Items[i].ID = s.nextItemID
		o.Items[i].OrderID = o.ID
	}
	cp := cloneOrder(o)
	s.orders[o.ID] = cp
	s.orderNumbers[o.OrderNumber] = o.ID
	return nil
}

func (s *Memory) OrderByID(_ context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, models.NotFoundError("order")
	}
	return cloneOrder(o), nil
}

func (s *Memory) LastOrderNumber(_ context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := ""
	for num := range s.orderNumbers {
		if strings.HasPrefix(num, prefix) && num > last {
			last = num
		}
	}
	return last, nil
}

func (s *Memory) ListOrders(ctx context.Context, f models.OrderFilters) (*models.OrderPage, error) {
	return s.list(0, f)
}

func (s *Memory) ListCustomerOrders(_ context.Context, customerID int, f models.OrderFilters) (*models.OrderPage, error) {
	return s.list(customerID, f)
}

func (s *Memory) list(customerID int, f models.OrderFilters) (*models.OrderPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*models.Order{}
	for _, o := range s.orders {
		if customerID != 0 && o.CustomerID != customerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
			continue
		}
		if f.Search != "" &&
			!strings.Contains(o.OrderNumber, f.Search) &&
			!strings.Contains(o.CustomerEmail, f.Search) {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page, pageSize := normalizePage(f.Page, f.PageSize)
	offset := (page - 1) * pageSize
	end := offset + pageSize
	if offset > len(matched) {
		offset = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	data := make([]models.Order, 0, end-offset)
	for _, o := range matched[offset:end] {
		data = append(data, *cloneOrder(o))
	}
	return &models.OrderPage{
		Data:     data,
		Total:    len(matched),
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < len(matched),
		HasPrev:  page > 1,
	}, nil
}

func (s *Memory) UpdateOrderStatus(_ context.Context, o *models.Order, from models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOrderLocked(o, from)
}

func (s *Memory) updateOrderLocked(o *models.Order, from models.OrderStatus) error {
	stored, ok := s.orders[o.ID]
	if !ok {
		return models.NotFoundError("order")
	}
	if stored.Status != from {
		return models.ConflictError(fmt.Sprintf(
			"order %d no longer in status %s", o.ID, from))
	}
	stored.Status = o.Status
	stored.PaymentStatus = o.PaymentStatus
	stored.ConfirmedAt = o.ConfirmedAt
	stored.ShippedAt = o.ShippedAt
	stored.DeliveredAt = o.DeliveredAt
	stored.CancelledAt = o.CancelledAt
	return nil
}

func (s *Memory) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *Memory) PaymentByID(_ context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, models.NotFoundError("payment")
	}
	cp := *p
	return &cp, nil
}

func (s *Memory) PaymentByExternalID(_ context.Context, externalID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ExternalID == externalID && externalID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.NotFoundError("payment")
}

func (s *Memory) OpenPaymentExists(_ context.Context, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.OrderID == orderID && p.Status == models.PaymentPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) SetPaymentExternal(_ context.Context, id, externalID, metadata string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return models.NotFoundError("payment")
	}
	p.ExternalID = externalID
	p.Metadata = metadata
	return nil
}

func (s *Memory) UpdatePaymentStatus(_ context.Context, p *models.Payment, from models.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePaymentLocked(p, from)
}

func (s *Memory) updatePaymentLocked(p *models.Payment, from models.PaymentStatus) error {
	stored, ok := s.payments[p.ID]
	if !ok {
		return models.NotFoundError("payment")
	}
	if stored.Status != from {
		return models.ConflictError(fmt.Sprintf(
			"payment %s no longer in status %s", p.ID, from))
	}
	stored.Status = p.Status
	stored.ProcessedAt = p.ProcessedAt
	return nil
}

func (s *Memory) ReconcilePayment(_ context.Context, p *models.Payment, fromPay models.PaymentStatus, o *models.Order, fromOrder models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate both sides before mutating either, matching the all-or-nothing
	// transaction in the MySQL store.
	storedPay, ok := s.payments[p.ID]
	if !ok {
		return models.NotFoundError("payment")
	}
	if storedPay.Status != fromPay {
		return models.ConflictError(fmt.Sprintf(
			"payment %s no longer in status %s", p.ID, fromPay))
	}
	storedOrder, ok := s.orders[o.ID]
	if !ok {
		return models.NotFoundError("order")
	}
	if storedOrder.Status != fromOrder {
		return models.ConflictError(fmt.Sprintf(
			"order %d no longer in status %s", o.ID, fromOrder))
	}

	if err := s.updatePaymentLocked(p, fromPay); err != nil {
		return err
	}
	return s.updateOrderLocked(o, fromOrder)
}

func (s *Memory) ProductsByIDs(_ context.Context, ids []int64) (map[int64]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	if o.BillingAddr != nil {
		b := *o.BillingAddr
		cp.BillingAddr = &b
	}
	return &cp
}
