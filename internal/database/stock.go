package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createStockItem = `
INSERT INTO stock_items (code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
`

type CreateStockItemParams struct {
	Code        pgtype.Text
	Name        string
	Category    pgtype.Text
	Unit        string
	Quantity    pgtype.Numeric
	CostPerUnit pgtype.Numeric
	MinQuantity pgtype.Numeric
	Supplier    pgtype.Text
}

func (q *Queries) CreateStockItem(ctx context.Context, arg CreateStockItemParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, createStockItem,
		arg.Code, arg.Name, arg.Category, arg.Unit, arg.Quantity,
		arg.CostPerUnit, arg.MinQuantity, arg.Supplier)
	return scanStockItem(row)
}

const getStockItem = `
SELECT id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
FROM stock_items WHERE id = $1
`

func (q *Queries) GetStockItem(ctx context.Context, id uuid.UUID) (StockItem, error) {
	return scanStockItem(q.db.QueryRow(ctx, getStockItem, id))
}

const getStockItemByCode = `
SELECT id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
FROM stock_items WHERE code = $1
`

func (q *Queries) GetStockItemByCode(ctx context.Context, code string) (StockItem, error) {
	return scanStockItem(q.db.QueryRow(ctx, getStockItemByCode, code))
}

const listStockItems = `
SELECT id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
FROM stock_items
ORDER BY name
`

func (q *Queries) ListStockItems(ctx context.Context) ([]StockItem, error) {
	rows, err := q.db.Query(ctx, listStockItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listLowStockItems = `
SELECT id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
FROM stock_items
WHERE quantity <= min_quantity
ORDER BY name
`

func (q *Queries) ListLowStockItems(ctx context.Context) ([]StockItem, error) {
	rows, err := q.db.Query(ctx, listLowStockItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateStockItem = `
UPDATE stock_items
SET code = $2, name = $3, category = $4, unit = $5, quantity = $6,
    cost_per_unit = $7, min_quantity = $8, supplier = $9, updated_at = now()
WHERE id = $1
RETURNING id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
`

type UpdateStockItemParams struct {
	ID          uuid.UUID
	Code        pgtype.Text
	Name        string
	Category    pgtype.Text
	Unit        string
	Quantity    pgtype.Numeric
	CostPerUnit pgtype.Numeric
	MinQuantity pgtype.Numeric
	Supplier    pgtype.Text
}

func (q *Queries) UpdateStockItem(ctx context.Context, arg UpdateStockItemParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, updateStockItem,
		arg.ID, arg.Code, arg.Name, arg.Category, arg.Unit, arg.Quantity,
		arg.CostPerUnit, arg.MinQuantity, arg.Supplier)
	return scanStockItem(row)
}

const deleteStockItem = `
DELETE FROM stock_items WHERE id = $1
`

func (q *Queries) DeleteStockItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteStockItem, id)
	return err
}

const addStockQuantity = `
UPDATE stock_items
SET quantity = quantity + $2, cost_per_unit = $3, updated_at = now()
WHERE id = $1
RETURNING id, code, name, category, unit, quantity, cost_per_unit, min_quantity, supplier, created_at, updated_at
`

type AddStockQuantityParams struct {
	ID          uuid.UUID
	Quantity    pgtype.Numeric
	CostPerUnit pgtype.Numeric
}

// AddStockQuantity adds a received quantity to an existing item and records
// the latest purchase cost. Used by scanned-receipt ingestion.
func (q *Queries) AddStockQuantity(ctx context.Context, arg AddStockQuantityParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, addStockQuantity, arg.ID, arg.Quantity, arg.CostPerUnit)
	return scanStockItem(row)
}

const decrementStockFloor = `
UPDATE stock_items
SET quantity = GREATEST(quantity - $2, 0), updated_at = now()
WHERE id = $1
`

type DecrementStockFloorParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

// DecrementStockFloor consumes stock on order completion; quantities never
// go below zero.
func (q *Queries) DecrementStockFloor(ctx context.Context, arg DecrementStockFloorParams) error {
	_, err := q.db.Exec(ctx, decrementStockFloor, arg.ID, arg.Amount)
	return err
}

func scanStockItem(row scannable) (StockItem, error) {
	var s StockItem
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Category, &s.Unit, &s.Quantity,
		&s.CostPerUnit, &s.MinQuantity, &s.Supplier, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
