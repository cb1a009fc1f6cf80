package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCashSession = `
INSERT INTO cash_sessions (responsible, opening_float, status, opened_by)
VALUES ($1, $2, 'OPEN', $3)
RETURNING id, responsible, opening_float, counted_cash, expected_balance, variance,
          status, opened_by, opened_at, closed_at
`

type CreateCashSessionParams struct {
	Responsible  string
	OpeningFloat pgtype.Numeric
	OpenedBy     uuid.UUID
}

func (q *Queries) CreateCashSession(ctx context.Context, arg CreateCashSessionParams) (CashSession, error) {
	row := q.db.QueryRow(ctx, createCashSession, arg.Responsible, arg.OpeningFloat, arg.OpenedBy)
	return scanCashSession(row)
}

const getCashSession = `
SELECT id, responsible, opening_float, counted_cash, expected_balance, variance,
       status, opened_by, opened_at, closed_at
FROM cash_sessions WHERE id = $1
`

func (q *Queries) GetCashSession(ctx context.Context, id uuid.UUID) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, getCashSession, id))
}

const getOpenCashSession = `
SELECT id, responsible, opening_float, counted_cash, expected_balance, variance,
       status, opened_by, opened_at, closed_at
FROM cash_sessions
WHERE status = 'OPEN'
ORDER BY opened_at DESC
LIMIT 1
`

func (q *Queries) GetOpenCashSession(ctx context.Context) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, getOpenCashSession))
}

const closeCashSession = `
UPDATE cash_sessions
SET counted_cash = $2, expected_balance = $3, variance = $4,
    status = 'CLOSED', closed_at = now()
WHERE id = $1 AND status = 'OPEN'
RETURNING id, responsible, opening_float, counted_cash, expected_balance, variance,
          status, opened_by, opened_at, closed_at
`

type CloseCashSessionParams struct {
	ID              uuid.UUID
	CountedCash     pgtype.Numeric
	ExpectedBalance pgtype.Numeric
	Variance        pgtype.Numeric
}

// CloseCashSession records the count and closes the session; pgx.ErrNoRows
// means the session was already closed.
func (q *Queries) CloseCashSession(ctx context.Context, arg CloseCashSessionParams) (CashSession, error) {
	row := q.db.QueryRow(ctx, closeCashSession,
		arg.ID, arg.CountedCash, arg.ExpectedBalance, arg.Variance)
	return scanCashSession(row)
}

const listCashSessions = `
SELECT id, responsible, opening_float, counted_cash, expected_balance, variance,
       status, opened_by, opened_at, closed_at
FROM cash_sessions
ORDER BY opened_at DESC
LIMIT $1 OFFSET $2
`

type ListCashSessionsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListCashSessions(ctx context.Context, arg ListCashSessionsParams) ([]CashSession, error) {
	rows, err := q.db.Query(ctx, listCashSessions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CashSession
	for rows.Next() {
		s, err := scanCashSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func scanCashSession(row scannable) (CashSession, error) {
	var s CashSession
	err := row.Scan(&s.ID, &s.Responsible, &s.OpeningFloat, &s.CountedCash,
		&s.ExpectedBalance, &s.Variance, &s.Status, &s.OpenedBy, &s.OpenedAt, &s.ClosedAt)
	return s, err
}
