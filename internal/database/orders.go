package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getNextOrderNumber = `
SELECT COALESCE(MAX(order_number), 0) + 1
FROM orders
WHERE created_at::date = now()::date
`

// GetNextOrderNumber returns the next per-day sequential order number.
// Concurrent callers can read the same MAX; the unique constraint on
// (order_number, created day) surfaces the race to the caller for retry.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (order_number, customer_name, customer_phone, customer_address,
                    payment_method, delivery_fee, change_due, total_amount, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, order_number, customer_name, customer_phone, customer_address, payment_method,
          delivery_fee, change_due, total_amount, status, completed_at, created_by, created_at, updated_at
`

type CreateOrderParams struct {
	OrderNumber     int32
	CustomerName    string
	CustomerPhone   pgtype.Text
	CustomerAddress pgtype.Text
	PaymentMethod   pgtype.Text
	DeliveryFee     pgtype.Numeric
	ChangeDue       pgtype.Numeric
	TotalAmount     pgtype.Numeric
	Status          string
	CreatedBy       uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.CustomerName, arg.CustomerPhone, arg.CustomerAddress,
		arg.PaymentMethod, arg.DeliveryFee, arg.ChangeDue, arg.TotalAmount,
		arg.Status, arg.CreatedBy)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, product_id, product_name, quantity, unit_price, subtotal, notes
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	ProductID   pgtype.UUID
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Notes       pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.Quantity,
		arg.UnitPrice, arg.Subtotal, arg.Notes)
	return scanOrderItem(row)
}

const getOrder = `
SELECT id, order_number, customer_name, customer_phone, customer_address, payment_method,
       delivery_fee, change_due, total_amount, status, completed_at, created_by, created_at, updated_at
FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT id, order_number, customer_name, customer_phone, customer_address, payment_method,
       delivery_fee, change_due, total_amount, status, completed_at, created_by, created_at, updated_at
FROM orders WHERE id = $1
FOR UPDATE
`

// GetOrderForUpdate locks the order row for the duration of the enclosing
// transaction so stage advancement is serialized per order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `
SELECT id, order_number, customer_name, customer_phone, customer_address, payment_method,
       delivery_fee, change_due, total_amount, status, completed_at, created_by, created_at, updated_at
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND (NOT $2::boolean OR status <> 'CANCELLED')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	Status        pgtype.Text
	ExcludeCancel bool
	Limit         int32
	Offset        int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.ExcludeCancel, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal, notes
FROM order_items WHERE order_id = $1
ORDER BY product_name
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatusIfCurrent = `
UPDATE orders
SET status = $2,
    completed_at = CASE WHEN $2 = 'DELIVERED' THEN now() ELSE completed_at END,
    updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, order_number, customer_name, customer_phone, customer_address, payment_method,
          delivery_fee, change_due, total_amount, status, completed_at, created_by, created_at, updated_at
`

type UpdateOrderStatusIfCurrentParams struct {
	ID            uuid.UUID
	Status        string
	CurrentStatus string
}

// UpdateOrderStatusIfCurrent performs the stage transition only when the row
// still holds the expected current status; pgx.ErrNoRows means a concurrent
// transition won.
func (q *Queries) UpdateOrderStatusIfCurrent(ctx context.Context, arg UpdateOrderStatusIfCurrentParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatusIfCurrent, arg.ID, arg.Status, arg.CurrentStatus)
	return scanOrder(row)
}

const deleteOrder = `
DELETE FROM orders WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrder, id)
	return err
}

func scanOrder(row scannable) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone,
		&o.CustomerAddress, &o.PaymentMethod, &o.DeliveryFee, &o.ChangeDue,
		&o.TotalAmount, &o.Status, &o.CompletedAt, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func scanOrderItem(row scannable) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
		&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.Notes)
	return it, err
}
