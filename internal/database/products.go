package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createProduct = `
INSERT INTO products (name, description, price, category, available, image_url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, description, price, category, available, image_url, created_at, updated_at
`

type CreateProductParams struct {
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Category    pgtype.Text
	Available   bool
	ImageURL    pgtype.Text
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Description, arg.Price, arg.Category, arg.Available, arg.ImageURL)
	return scanProduct(row)
}

const getProduct = `
SELECT id, name, description, price, category, available, image_url, created_at, updated_at
FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProducts = `
SELECT id, name, description, price, category, available, image_url, created_at, updated_at
FROM products
WHERE (NOT $1::boolean OR available)
ORDER BY name
`

// ListProducts returns all menu products; availableOnly filters to those
// currently sellable (the POS view).
func (q *Queries) ListProducts(ctx context.Context, availableOnly bool) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, availableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProduct = `
UPDATE products
SET name = $2, description = $3, price = $4, category = $5, available = $6,
    image_url = $7, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, category, available, image_url, created_at, updated_at
`

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Category    pgtype.Text
	Available   bool
	ImageURL    pgtype.Text
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.Category, arg.Available, arg.ImageURL)
	return scanProduct(row)
}

const deleteProduct = `
DELETE FROM products WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteProduct, id)
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.Available, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
