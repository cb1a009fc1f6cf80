package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createTransaction = `
INSERT INTO transactions (description, amount, type, category, date, due_date,
                          payment_method, attachment_name, attachment_url, order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, description, amount, type, category, date, due_date, payment_method,
          attachment_name, attachment_url, order_id, created_at
`

type CreateTransactionParams struct {
	Description    string
	Amount         pgtype.Numeric
	Type           string
	Category       string
	Date           pgtype.Date
	DueDate        pgtype.Date
	PaymentMethod  pgtype.Text
	AttachmentName pgtype.Text
	AttachmentURL  pgtype.Text
	OrderID        pgtype.UUID
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, createTransaction,
		arg.Description, arg.Amount, arg.Type, arg.Category, arg.Date, arg.DueDate,
		arg.PaymentMethod, arg.AttachmentName, arg.AttachmentURL, arg.OrderID)
	return scanTransaction(row)
}

const listTransactions = `
SELECT id, description, amount, type, category, date, due_date, payment_method,
       attachment_name, attachment_url, order_id, created_at
FROM transactions
WHERE ($1::text IS NULL OR type = $1)
  AND ($2::date IS NULL OR date >= $2)
  AND ($3::date IS NULL OR date <= $3)
ORDER BY date DESC, created_at DESC
LIMIT $4 OFFSET $5
`

type ListTransactionsParams struct {
	Type      pgtype.Text
	StartDate pgtype.Date
	EndDate   pgtype.Date
	Limit     int32
	Offset    int32
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions,
		arg.Type, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = $1
`

func (q *Queries) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteTransaction, id)
	return err
}

const sumTransactionsByTypeOn = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE type = $1 AND date = $2
`

type SumTransactionsByTypeOnParams struct {
	Type string
	Date pgtype.Date
}

// SumTransactionsByTypeOn totals one transaction type for a single day.
// Cash reconciliation reads today's income and expense with it.
func (q *Queries) SumTransactionsByTypeOn(ctx context.Context, arg SumTransactionsByTypeOnParams) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumTransactionsByTypeOn, arg.Type, arg.Date).Scan(&n)
	return n, err
}

const sumExpensesBetween = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE type = 'EXPENSE'
  AND ($1::date IS NULL OR date >= $1)
  AND ($2::date IS NULL OR date <= $2)
`

type SumExpensesBetweenParams struct {
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

func (q *Queries) SumExpensesBetween(ctx context.Context, arg SumExpensesBetweenParams) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumExpensesBetween, arg.StartDate, arg.EndDate).Scan(&n)
	return n, err
}

func scanTransaction(row scannable) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Description, &t.Amount, &t.Type, &t.Category,
		&t.Date, &t.DueDate, &t.PaymentMethod, &t.AttachmentName,
		&t.AttachmentURL, &t.OrderID, &t.CreatedAt)
	return t, err
}
