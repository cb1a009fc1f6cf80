package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createRecipeIngredient = `
INSERT INTO recipe_ingredients (product_id, stock_item_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, product_id, stock_item_id, quantity
`

type CreateRecipeIngredientParams struct {
	ProductID   uuid.UUID
	StockItemID uuid.UUID
	Quantity    pgtype.Numeric
}

func (q *Queries) CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) (RecipeIngredient, error) {
	row := q.db.QueryRow(ctx, createRecipeIngredient, arg.ProductID, arg.StockItemID, arg.Quantity)
	var ri RecipeIngredient
	err := row.Scan(&ri.ID, &ri.ProductID, &ri.StockItemID, &ri.Quantity)
	return ri, err
}

const deleteRecipeIngredient = `
DELETE FROM recipe_ingredients WHERE id = $1 AND product_id = $2
`

type DeleteRecipeIngredientParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) DeleteRecipeIngredient(ctx context.Context, arg DeleteRecipeIngredientParams) error {
	_, err := q.db.Exec(ctx, deleteRecipeIngredient, arg.ID, arg.ProductID)
	return err
}

const listRecipeIngredientsByProduct = `
SELECT ri.id, ri.product_id, ri.stock_item_id, ri.quantity,
       s.name, s.unit, s.cost_per_unit
FROM recipe_ingredients ri
JOIN stock_items s ON s.id = ri.stock_item_id
WHERE ri.product_id = $1
ORDER BY s.name
`

// RecipeIngredientDetailRow joins a recipe link with its stock item so cost
// aggregation needs a single round trip.
type RecipeIngredientDetailRow struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	StockItemID uuid.UUID
	Quantity    pgtype.Numeric
	StockName   string
	Unit        string
	CostPerUnit pgtype.Numeric
}

func (q *Queries) ListRecipeIngredientsByProduct(ctx context.Context, productID uuid.UUID) ([]RecipeIngredientDetailRow, error) {
	rows, err := q.db.Query(ctx, listRecipeIngredientsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RecipeIngredientDetailRow
	for rows.Next() {
		var r RecipeIngredientDetailRow
		if err := rows.Scan(&r.ID, &r.ProductID, &r.StockItemID, &r.Quantity,
			&r.StockName, &r.Unit, &r.CostPerUnit); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listAllRecipeIngredients = `
SELECT ri.id, ri.product_id, ri.stock_item_id, ri.quantity,
       s.name, s.unit, s.cost_per_unit
FROM recipe_ingredients ri
JOIN stock_items s ON s.id = ri.stock_item_id
ORDER BY ri.product_id, s.name
`

func (q *Queries) ListAllRecipeIngredients(ctx context.Context) ([]RecipeIngredientDetailRow, error) {
	rows, err := q.db.Query(ctx, listAllRecipeIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RecipeIngredientDetailRow
	for rows.Next() {
		var r RecipeIngredientDetailRow
		if err := rows.Scan(&r.ID, &r.ProductID, &r.StockItemID, &r.Quantity,
			&r.StockName, &r.Unit, &r.CostPerUnit); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
