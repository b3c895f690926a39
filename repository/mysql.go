package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"commerce-backend/models"
)

// MySQL implements Store on a database/sql pool.
type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

const duplicateKeyErr = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == duplicateKeyErr
}

func (s *MySQL) CreateOrder(ctx context.Context, o *models.Order) error {
	shipJSON, err := json.Marshal(o.ShippingAddr)
	if err != nil {
		return err
	}
	var billJSON []byte
	if o.BillingAddr != nil {
		if billJSON, err = json.Marshal(o.BillingAddr); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (order_number, customer_id, customer_email, customer_phone,
			status, payment_status, subtotal, tax_amount, shipping_cost, discount_amount,
			total, shipping_address, billing_address, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.CustomerID, o.CustomerEmail, o.CustomerPhone,
		o.Status, o.PaymentStatus, o.Subtotal, o.TaxAmount, o.ShippingCost,
		o.DiscountAmount, o.Total, shipJSON, nullBytes(billJSON), o.Notes, o.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrderNumber
		}
		return err
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = orderID

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = orderID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, sku, image,
				quantity, unit_price, total)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.ProductName, item.SKU, item.Image,
			item.Quantity, item.UnitPrice, item.Total)
		if err != nil {
			return err
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const orderColumns = `id, order_number, customer_id, customer_email, customer_phone,
	status, payment_status, subtotal, tax_amount, shipping_cost, discount_amount,
	total, shipping_address, billing_address, notes, created_at, confirmed_at,
	shipped_at, delivered_at, cancelled_at`

func (s *MySQL) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundError("order")
		}
		return nil, err
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *MySQL) loadItems(ctx context.Context, o *models.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, sku, image, quantity, unit_price, total
		FROM order_items WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.SKU, &item.Image, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (s *MySQL) LastOrderNumber(ctx context.Context, prefix string) (string, error) {
	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(order_number) FROM orders WHERE order_number LIKE ?`,
		prefix+"%").Scan(&last)
	if err != nil {
		return "", err
	}
	return last.String, nil
}

func (s *MySQL) ListOrders(ctx context.Context, f models.OrderFilters) (*models.OrderPage, error) {
	return s.listOrders(ctx, 0, f)
}

func (s *MySQL) ListCustomerOrders(ctx context.Context, customerID int, f models.OrderFilters) (*models.OrderPage, error) {
	return s.listOrders(ctx, customerID, f)
}

func (s *MySQL) listOrders(ctx context.Context, customerID int, f models.OrderFilters) (*models.OrderPage, error) {
	where := []string{"1=1"}
	args := []any{}

	if customerID != 0 {
		where = append(where, "customer_id = ?")
		args = append(args, customerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.DateFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *f.DateTo)
	}
	if f.Search != "" {
		where = append(where, "(order_number LIKE ? OR customer_email LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, err
	}

	page, pageSize := normalizePage(f.Page, f.PageSize)
	offset := (page - 1) * pageSize
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+cond+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, pageSize, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := s.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return &models.OrderPage{
		Data:     orders,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  offset+len(orders) < total,
		HasPrev:  page > 1,
	}, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// UpdateOrderStatus is a compare-and-set on the status the caller read.
// Zero rows affected means another writer got there first.
func (s *MySQL) UpdateOrderStatus(ctx context.Context, o *models.Order, from models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, confirmed_at = ?, shipped_at = ?,
			delivered_at = ?, cancelled_at = ?
		WHERE id = ? AND status = ?`,
		o.Status, o.PaymentStatus, o.ConfirmedAt, o.ShippedAt,
		o.DeliveredAt, o.CancelledAt, o.ID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ConflictError(fmt.Sprintf(
			"order %d no longer in status %s", o.ID, from))
	}
	return nil
}

func (s *MySQL) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount, currency, method, status,
			external_id, metadata, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.Amount, p.Currency, p.Method, p.Status,
		p.ExternalID, p.Metadata, p.CreatedAt, p.ProcessedAt)
	return err
}

const paymentColumns = `id, order_id, amount, currency, method, status,
	external_id, metadata, created_at, processed_at`

func (s *MySQL) PaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	return s.paymentWhere(ctx, "id = ?", id)
}

func (s *MySQL) PaymentByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	return s.paymentWhere(ctx, "external_id = ?", externalID)
}

func (s *MySQL) paymentWhere(ctx context.Context, cond string, arg any) (*models.Payment, error) {
	var p models.Payment
	var processedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+cond, arg).Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.Method, &p.Status,
		&p.ExternalID, &p.Metadata, &p.CreatedAt, &processedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundError("payment")
		}
		return nil, err
	}
	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	return &p, nil
}

func (s *MySQL) OpenPaymentExists(ctx context.Context, orderID int64) (bool, error) {
	// Only a PENDING attempt blocks a new intent; FAILED attempts may be
	// retried with a fresh payment.
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payments
		WHERE order_id = ? AND status = ?`,
		orderID, models.PaymentPending).Scan(&n)
	return n > 0, err
}

func (s *MySQL) SetPaymentExternal(ctx context.Context, id, externalID, metadata string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payments SET external_id = ?, metadata = ? WHERE id = ?`,
		externalID, metadata, id)
	return err
}

func (s *MySQL) UpdatePaymentStatus(ctx context.Context, p *models.Payment, from models.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = ?, processed_at = ?
		WHERE id = ? AND status = ?`,
		p.Status, p.ProcessedAt, p.ID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ConflictError(fmt.Sprintf(
			"payment %s no longer in status %s", p.ID, from))
	}
	return nil
}

// ReconcilePayment moves a payment and its order in one transaction. Both
// writes are compare-and-set; a conflict on either rolls back the whole
// update so no observer ever sees a half-applied reconciliation.
func (s *MySQL) ReconcilePayment(ctx context.Context, p *models.Payment, fromPay models.PaymentStatus, o *models.Order, fromOrder models.OrderStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = ?, processed_at = ?
		WHERE id = ? AND status = ?`,
		p.Status, p.ProcessedAt, p.ID, fromPay)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.ConflictError(fmt.Sprintf(
			"payment %s no longer in status %s", p.ID, fromPay))
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, confirmed_at = ?, shipped_at = ?,
			delivered_at = ?, cancelled_at = ?
		WHERE id = ? AND status = ?`,
		o.Status, o.PaymentStatus, o.ConfirmedAt, o.ShippedAt,
		o.DeliveredAt, o.CancelledAt, o.ID, fromOrder)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.ConflictError(fmt.Sprintf(
			"order %d no longer in status %s", o.ID, fromOrder))
	}

	return tx.Commit()
}

func (s *MySQL) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	if len(ids) == 0 {
		return map[int64]models.Product{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, sku, image, price FROM products WHERE id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]models.Product, len(ids))
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Image, &p.Price); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var shipJSON []byte
	var billJSON []byte
	var notes sql.NullString
	var confirmedAt, shippedAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerEmail,
		&o.CustomerPhone, &o.Status, &o.PaymentStatus, &o.Subtotal, &o.TaxAmount,
		&o.ShippingCost, &o.DiscountAmount, &o.Total, &shipJSON, &billJSON,
		&notes, &o.CreatedAt, &confirmedAt, &shippedAt, &deliveredAt, &cancelledAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(shipJSON, &o.ShippingAddr); err != nil {
		return nil, err
	}
	if len(billJSON) > 0 {
		o.BillingAddr = &models.Address{}
		if err := json.Unmarshal(billJSON, o.BillingAddr); err != nil {
			return nil, err
		}
	}
	o.Notes = notes.String
	if confirmedAt.Valid {
		o.ConfirmedAt = &confirmedAt.Time
	}
	if shippedAt.Valid {
		o.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	if cancelledAt.Valid {
		o.CancelledAt = &cancelledAt.Time
	}
	return &o, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
