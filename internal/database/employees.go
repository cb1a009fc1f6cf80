package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createEmployee = `
INSERT INTO employees (name, position, contract_type, base_salary, commission_rate, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, position, contract_type, base_salary, commission_rate, active, created_at, updated_at
`

type CreateEmployeeParams struct {
	Name           string
	Position       string
	ContractType   string
	BaseSalary     pgtype.Numeric
	CommissionRate pgtype.Numeric
	Active         bool
}

func (q *Queries) CreateEmployee(ctx context.Context, arg CreateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, createEmployee,
		arg.Name, arg.Position, arg.ContractType, arg.BaseSalary, arg.CommissionRate, arg.Active)
	return scanEmployee(row)
}

const getEmployee = `
SELECT id, name, position, contract_type, base_salary, commission_rate, active, created_at, updated_at
FROM employees WHERE id = $1
`

func (q *Queries) GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error) {
	return scanEmployee(q.db.QueryRow(ctx, getEmployee, id))
}

const listEmployees = `
SELECT id, name, position, contract_type, base_salary, commission_rate, active, created_at, updated_at
FROM employees
WHERE (NOT $1::boolean OR active)
ORDER BY name
`

func (q *Queries) ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error) {
	rows, err := q.db.Query(ctx, listEmployees, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const updateEmployee = `
UPDATE employees
SET name = $2, position = $3, contract_type = $4, base_salary = $5,
    commission_rate = $6, active = $7, updated_at = now()
WHERE id = $1
RETURNING id, name, position, contract_type, base_salary, commission_rate, active, created_at, updated_at
`

type UpdateEmployeeParams struct {
	ID             uuid.UUID
	Name           string
	Position       string
	ContractType   string
	BaseSalary     pgtype.Numeric
	CommissionRate pgtype.Numeric
	Active         bool
}

func (q *Queries) UpdateEmployee(ctx context.Context, arg UpdateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, updateEmployee,
		arg.ID, arg.Name, arg.Position, arg.ContractType, arg.BaseSalary,
		arg.CommissionRate, arg.Active)
	return scanEmployee(row)
}

const deleteEmployee = `
DELETE FROM employees WHERE id = $1
`

// DeleteEmployee removes the registration row. Historical payroll events are
// kept (no FK cascade) so consolidated months remain auditable.
func (q *Queries) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteEmployee, id)
	return err
}

const upsertPayrollEvent = `
INSERT INTO payroll_events (employee_id, month, worked_days, worked_hours, custom_rate,
                            extra_hours, sales_amount, bonus, discounts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (employee_id, month) DO UPDATE
SET worked_days = EXCLUDED.worked_days,
    worked_hours = EXCLUDED.worked_hours,
    custom_rate = EXCLUDED.custom_rate,
    extra_hours = EXCLUDED.extra_hours,
    sales_amount = EXCLUDED.sales_amount,
    bonus = EXCLUDED.bonus,
    discounts = EXCLUDED.discounts
RETURNING id, employee_id, month, worked_days, worked_hours, custom_rate,
          extra_hours, sales_amount, bonus, discounts
`

type UpsertPayrollEventParams struct {
	EmployeeID  uuid.UUID
	Month       string
	WorkedDays  pgtype.Numeric
	WorkedHours pgtype.Numeric
	CustomRate  pgtype.Numeric
	ExtraHours  pgtype.Numeric
	SalesAmount pgtype.Numeric
	Bonus       pgtype.Numeric
	Discounts   pgtype.Numeric
}

func (q *Queries) UpsertPayrollEvent(ctx context.Context, arg UpsertPayrollEventParams) (PayrollEvent, error) {
	row := q.db.QueryRow(ctx, upsertPayrollEvent,
		arg.EmployeeID, arg.Month, arg.WorkedDays, arg.WorkedHours, arg.CustomRate,
		arg.ExtraHours, arg.SalesAmount, arg.Bonus, arg.Discounts)
	return scanPayrollEvent(row)
}

const getPayrollEvent = `
SELECT id, employee_id, month, worked_days, worked_hours, custom_rate,
       extra_hours, sales_amount, bonus, discounts
FROM payroll_events
WHERE employee_id = $1 AND month = $2
`

type GetPayrollEventParams struct {
	EmployeeID uuid.UUID
	Month      string
}

func (q *Queries) GetPayrollEvent(ctx context.Context, arg GetPayrollEventParams) (PayrollEvent, error) {
	return scanPayrollEvent(q.db.QueryRow(ctx, getPayrollEvent, arg.EmployeeID, arg.Month))
}

const listPayrollEventsByMonth = `
SELECT id, employee_id, month, worked_days, worked_hours, custom_rate,
       extra_hours, sales_amount, bonus, discounts
FROM payroll_events
WHERE month = $1
`

func (q *Queries) ListPayrollEventsByMonth(ctx context.Context, month string) ([]PayrollEvent, error) {
	rows, err := q.db.Query(ctx, listPayrollEventsByMonth, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PayrollEvent
	for rows.Next() {
		e, err := scanPayrollEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanEmployee(row scannable) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Position, &e.ContractType, &e.BaseSalary,
		&e.CommissionRate, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func scanPayrollEvent(row scannable) (PayrollEvent, error) {
	var p PayrollEvent
	err := row.Scan(&p.ID, &p.EmployeeID, &p.Month, &p.WorkedDays, &p.WorkedHours,
		&p.CustomRate, &p.ExtraHours, &p.SalesAmount, &p.Bonus, &p.Discounts)
	return p, err
}
