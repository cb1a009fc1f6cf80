package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/chegou-pizza/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Mock Employee Store ---

type mockEmployeeStore struct {
	employees    []database.Employee
	events       map[string]database.PayrollEvent // employeeID|month
	transactions []database.Transaction
}

func newMockEmployeeStore() *mockEmployeeStore {
	return &mockEmployeeStore{events: map[string]database.PayrollEvent{}}
}

func eventKey(id uuid.UUID, month string) string {
	return id.String() + "|" + month
}

func (m *mockEmployeeStore) ListEmployees(ctx context.Context, activeOnly bool) ([]database.Employee, error) {
	var out []database.Employee
	for _, e := range m.employees {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEmployeeStore) GetEmployee(ctx context.Context, id uuid.UUID) (database.Employee, error) {
	for _, e := range m.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return database.Employee{}, pgx.ErrNoRows
}

func (m *mockEmployeeStore) CreateEmployee(ctx context.Context, arg database.CreateEmployeeParams) (database.Employee, error) {
	e := database.Employee{
		ID:             uuid.New(),
		Name:           arg.Name,
		Position:       arg.Position,
		ContractType:   arg.ContractType,
		BaseSalary:     arg.BaseSalary,
		CommissionRate: arg.CommissionRate,
		Active:         arg.Active,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.employees = append(m.employees, e)
	return e, nil
}

func (m *mockEmployeeStore) UpdateEmployee(ctx context.Context, arg database.UpdateEmployeeParams) (database.Employee, error) {
	for i, e := range m.employees {
		if e.ID == arg.ID {
			e.Name = arg.Name
			e.Position = arg.Position
			e.ContractType = arg.ContractType
			e.BaseSalary = arg.BaseSalary
			e.CommissionRate = arg.CommissionRate
			e.Active = arg.Active
			m.employees[i] = e
			return e, nil
		}
	}
	return database.Employee{}, pgx.ErrNoRows
}

func (m *mockEmployeeStore) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	for i, e := range m.employees {
		if e.ID == id {
			m.employees = append(m.employees[:i], m.employees[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockEmployeeStore) UpsertPayrollEvent(ctx context.Context, arg database.UpsertPayrollEventParams) (database.PayrollEvent, error) {
	ev := database.PayrollEvent{
		ID:          uuid.New(),
		EmployeeID:  arg.EmployeeID,
		Month:       arg.Month,
		WorkedDays:  arg.WorkedDays,
		WorkedHours: arg.WorkedHours,
		CustomRate:  arg.CustomRate,
		ExtraHours:  arg.ExtraHours,
		SalesAmount: arg.SalesAmount,
		Bonus:       arg.Bonus,
		Discounts:   arg.Discounts,
	}
	m.events[eventKey(arg.EmployeeID, arg.Month)] = ev
	return ev, nil
}

func (m *mockEmployeeStore) GetPayrollEvent(ctx context.Context, arg database.GetPayrollEventParams) (database.PayrollEvent, error) {
	if ev, ok := m.events[eventKey(arg.EmployeeID, arg.Month)]; ok {
		return ev, nil
	}
	return database.PayrollEvent{}, pgx.ErrNoRows
}

func (m *mockEmployeeStore) CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error) {
	t := database.Transaction{
		ID:          uuid.New(),
		Description: arg.Description,
		Amount:      arg.Amount,
		Type:        arg.Type,
		Category:    arg.Category,
		Date:        arg.Date,
		CreatedAt:   time.Now(),
	}
	m.transactions = append(m.transactions, t)
	return t, nil
}

func setupEmployeeRouter(store handler.EmployeeStore) *chi.Mux {
	h := handler.NewEmployeeHandler(store)
	r := chi.NewRouter()
	r.Route("/employees", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestCreateEmployee(t *testing.T) {
	store := newMockEmployeeStore()
	router := setupEmployeeRouter(store)

	rec := doRequest(t, router, "POST", "/employees/", map[string]interface{}{
		"name":          "Joana",
		"position":      "Pizzaiola",
		"contract_type": "salaried",
		"base_salary":   "3000.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if resp["contract_type"] != enum.ContractTypeSalaried {
		t.Errorf("expected contract_type normalized to SALARIED, got %v", resp["contract_type"])
	}
	if resp["active"] != true {
		t.Errorf("expected active default true, got %v", resp["active"])
	}
}

func TestCreateEmployee_UnknownContract(t *testing.T) {
	router := setupEmployeeRouter(newMockEmployeeStore())

	rec := doRequest(t, router, "POST", "/employees/", map[string]interface{}{
		"name":          "Joana",
		"position":      "Pizzaiola",
		"contract_type": "FREELANCE",
		"base_salary":   "3000.00",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestUpsertPayrollEvent(t *testing.T) {
	store := newMockEmployeeStore()
	emp, _ := store.CreateEmployee(context.Background(), database.CreateEmployeeParams{
		Name: "Joana", Position: "Pizzaiola",
		ContractType: enum.ContractTypeSalaried,
		BaseSalary:   makePgNumeric("3000.00"), Active: true,
	})
	router := setupEmployeeRouter(store)

	rec := doRequest(t, router, "PUT", "/employees/"+emp.ID.String()+"/payroll-events", map[string]interface{}{
		"month":       "2026-08",
		"worked_days": "15",
		"bonus":       "200",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	ev, ok := store.events[eventKey(emp.ID, "2026-08")]
	if !ok {
		t.Fatal("expected event stored")
	}
	if !ev.WorkedDays.Valid {
		t.Error("expected worked_days set")
	}
	if ev.WorkedHours.Valid {
		t.Error("expected blank worked_hours to stay NULL")
	}
}

func TestUpsertPayrollEvent_BadMonth(t *testing.T) {
	store := newMockEmployeeStore()
	emp, _ := store.CreateEmployee(context.Background(), database.CreateEmployeeParams{
		Name: "Joana", Position: "Pizzaiola",
		ContractType: enum.ContractTypeSalaried,
		BaseSalary:   makePgNumeric("3000.00"), Active: true,
	})
	router := setupEmployeeRouter(store)

	rec := doRequest(t, router, "PUT", "/employees/"+emp.ID.String()+"/payroll-events", map[string]interface{}{
		"month": "August 2026",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestMonthPayroll(t *testing.T) {
	store := newMockEmployeeStore()
	// Salaried, no event: full month 3000, burden 1200.
	store.CreateEmployee(context.Background(), database.CreateEmployeeParams{
		Name: "Joana", Position: "Pizzaiola",
		ContractType: enum.ContractTypeSalaried,
		BaseSalary:   makePgNumeric("3000.00"), Active: true,
	})
	// Daily with 12 recorded days at 120: 1440, no burden.
	diarista, _ := store.CreateEmployee(context.Background(), database.CreateEmployeeParams{
		Name: "Carlos", Position: "Entregador",
		ContractType: enum.ContractTypeDaily,
		BaseSalary:   makePgNumeric("120.00"), Active: true,
	})
	store.UpsertPayrollEvent(context.Background(), database.UpsertPayrollEventParams{
		EmployeeID: diarista.ID, Month: "2026-08",
		WorkedDays: makePgNumeric("12"),
	})
	// Inactive staff are left out.
	store.CreateEmployee(context.Background(), database.CreateEmployeeParams{
		Name: "Antigo", Position: "Atendente",
		ContractType: enum.ContractTypeSalaried,
		BaseSalary:   makePgNumeric("2000.00"), Active: false,
	})
	router := setupEmployeeRouter(store)

	rec := doRequest(t, router, "GET", "/employees/payroll?month=2026-08", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	payslips := resp["payslips"].([]interface{})
	if len(payslips) != 2 {
		t.Fatalf("expected 2 payslips, got %d", len(payslips))
	}

	totals := resp["totals"].(map[string]interface{})
	// Gross 3000 + 1440 = 4440; net same; burden 1200; total cost 5640.
	if totals["gross_pay"] != "4440.00" {
		t.Errorf("expected gross_pay '4440.00', got %v", totals["gross_pay"])
	}
	if totals["employer_burden"] != "1200.00" {
		t.Errorf("expected employer_burden '1200.00', got %v", totals["employer_burden"])
	}
	if totals["total_cost"] != "5640.00" {
		t.Errorf("expected total_cost '5640.00', got %v", totals["total_cost"])
	}
}

func TestMonthPayroll_MissingMonth(t *testing.T) {
	router := setupEmployeeRouter(newMockEmployeeStore())

	rec := doRequest(t, router, "GET", "/employees/payroll", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestConsolidatePayroll(t *testing.T) {
	store := newMockEmployeeStore()
	store.CreateEmployee(context.Background(), database.CreateEmployeeParams{
		Name: "Joana", Position: "Pizzaiola",
		ContractType: enum.ContractTypeSalaried,
		BaseSalary:   makePgNumeric("3000.00"), Active: true,
	})
	router := setupEmployeeRouter(store)

	rec := doRequest(t, router, "POST", "/employees/payroll/consolidate", map[string]interface{}{
		"month": "2026-08",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(store.transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(store.transactions))
	}
	tx := store.transactions[0]
	if tx.Description != "Payroll: 2026-08" {
		t.Errorf("expected description 'Payroll: 2026-08', got %q", tx.Description)
	}
	if tx.Type != enum.TransactionTypeExpense || tx.Category != enum.CategoryHumanResources {
		t.Errorf("expected HR expense, got %s/%s", tx.Type, tx.Category)
	}
}

func TestConsolidatePayroll_NoEmployees(t *testing.T) {
	router := setupEmployeeRouter(newMockEmployeeStore())

	rec := doRequest(t, router, "POST", "/employees/payroll/consolidate", map[string]interface{}{
		"month": "2026-08",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
