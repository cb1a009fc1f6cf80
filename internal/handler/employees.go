package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var monthPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)

// EmployeeStore defines the database methods needed by employee and payroll
// handlers. Satisfied by *database.Queries.
type EmployeeStore interface {
	ListEmployees(ctx context.Context, activeOnly bool) ([]database.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (database.Employee, error)
	CreateEmployee(ctx context.Context, arg database.CreateEmployeeParams) (database.Employee, error)
	UpdateEmployee(ctx context.Context, arg database.UpdateEmployeeParams) (database.Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
	UpsertPayrollEvent(ctx context.Context, arg database.UpsertPayrollEventParams) (database.PayrollEvent, error)
	GetPayrollEvent(ctx context.Context, arg database.GetPayrollEventParams) (database.PayrollEvent, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
}

// EmployeeHandler handles staff registration and monthly payroll.
type EmployeeHandler struct {
	store EmployeeStore
}

// NewEmployeeHandler creates a new EmployeeHandler.
func NewEmployeeHandler(store EmployeeStore) *EmployeeHandler {
	return &EmployeeHandler{store: store}
}

// RegisterRoutes registers employee and payroll endpoints on the given Chi
// router. Expected to be mounted behind ADMIN role middleware.
func (h *EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Put("/{id}/payroll-events", h.UpsertPayrollEvent)
	r.Get("/payroll", h.MonthPayroll)
	r.Post("/payroll/consolidate", h.ConsolidatePayroll)
}

// --- Request / Response types ---

type employeeRequest struct {
	Name           string `json:"name"`
	Position       string `json:"position"`
	ContractType   string `json:"contract_type"`
	BaseSalary     string `json:"base_salary"`
	CommissionRate string `json:"commission_rate"`
	Active         *bool  `json:"active"`
}

type employeeResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Position       string    `json:"position"`
	ContractType   string    `json:"contract_type"`
	BaseSalary     string    `json:"base_salary"`
	CommissionRate string    `json:"commission_rate"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type payrollEventRequest struct {
	Month       string `json:"month"`
	WorkedDays  string `json:"worked_days"`
	WorkedHours string `json:"worked_hours"`
	CustomRate  string `json:"custom_rate"`
	ExtraHours  string `json:"extra_hours"`
	SalesAmount string `json:"sales_amount"`
	Bonus       string `json:"bonus"`
	Discounts   string `json:"discounts"`
}

type payslipResponse struct {
	EmployeeID     string `json:"employee_id"`
	Name           string `json:"name"`
	ContractType   string `json:"contract_type"`
	BasePay        string `json:"base_pay"`
	HourlyRate     string `json:"hourly_rate"`
	OvertimePay    string `json:"overtime_pay"`
	Commission     string `json:"commission"`
	Bonus          string `json:"bonus"`
	Discounts      string `json:"discounts"`
	GrossPay       string `json:"gross_pay"`
	NetPay         string `json:"net_pay"`
	EmployerBurden string `json:"employer_burden"`
}

type payrollResponse struct {
	Month    string            `json:"month"`
	Payslips []payslipResponse `json:"payslips"`
	Totals   monthTotals       `json:"totals"`
}

type monthTotals struct {
	GrossPay       string `json:"gross_pay"`
	NetPay         string `json:"net_pay"`
	EmployerBurden string `json:"employer_burden"`
	TotalCost      string `json:"total_cost"`
}

func toEmployeeResponse(e database.Employee) employeeResponse {
	return employeeResponse{
		ID:             e.ID,
		Name:           e.Name,
		Position:       e.Position,
		ContractType:   e.ContractType,
		BaseSalary:     numericToString(e.BaseSalary),
		CommissionRate: numericToString(e.CommissionRate),
		Active:         e.Active,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toPayslipResponse(p service.Payslip) payslipResponse {
	return payslipResponse{
		EmployeeID:     p.EmployeeID,
		Name:           p.Name,
		ContractType:   p.ContractType,
		BasePay:        p.BasePay.StringFixed(2),
		HourlyRate:     p.HourlyRate.StringFixed(2),
		OvertimePay:    p.OvertimePay.StringFixed(2),
		Commission:     p.Commission.StringFixed(2),
		Bonus:          p.Bonus.StringFixed(2),
		Discounts:      p.Discounts.StringFixed(2),
		GrossPay:       p.GrossPay.StringFixed(2),
		NetPay:         p.NetPay.StringFixed(2),
		EmployerBurden: p.EmployerBurden.StringFixed(2),
	}
}

func isValidContractType(s string) bool {
	switch s {
	case enum.ContractTypeSalaried, enum.ContractTypeDaily, enum.ContractTypeHourly:
		return true
	}
	return false
}

// --- Handlers ---

// List returns employees. ?active=true narrows to current staff.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	employees, err := h.store.ListEmployees(r.Context(), activeOnly)
	if err != nil {
		log.Printf("ERROR: list employees: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]employeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = toEmployeeResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single employee by ID.
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	employee, err := h.store.GetEmployee(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: get employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// Create registers an employee.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, ok := h.employeeParams(w, req)
	if !ok {
		return
	}

	employee, err := h.store.CreateEmployee(r.Context(), database.CreateEmployeeParams{
		Name:           params.Name,
		Position:       params.Position,
		ContractType:   params.ContractType,
		BaseSalary:     params.BaseSalary,
		CommissionRate: params.CommissionRate,
		Active:         params.Active,
	})
	if err != nil {
		log.Printf("ERROR: create employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeResponse(employee))
}

// Update modifies an employee's registration.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, ok := h.employeeParams(w, req)
	if !ok {
		return
	}
	params.ID = id

	employee, err := h.store.UpdateEmployee(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: update employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// Delete removes an employee. Past payroll events stay for audit.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	if err := h.store.DeleteEmployee(r.Context(), id); err != nil {
		log.Printf("ERROR: delete employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpsertPayrollEvent records the month's worked time and extras for one
// employee. Idempotent per (employee, month).
func (h *EmployeeHandler) UpsertPayrollEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	var req payrollEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !monthPattern.MatchString(req.Month) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
		return
	}

	if _, err := h.store.GetEmployee(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: get employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Blank fields stay NULL so the calculator falls back to a full month.
	params := database.UpsertPayrollEventParams{
		EmployeeID:  id,
		Month:       req.Month,
		WorkedDays:  optionalAmount(req.WorkedDays),
		WorkedHours: optionalAmount(req.WorkedHours),
		CustomRate:  optionalAmount(req.CustomRate),
		ExtraHours:  optionalAmount(req.ExtraHours),
		SalesAmount: optionalAmount(req.SalesAmount),
		Bonus:       optionalAmount(req.Bonus),
		Discounts:   optionalAmount(req.Discounts),
	}

	event, err := h.store.UpsertPayrollEvent(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: upsert payroll event: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          event.ID,
		"employee_id": event.EmployeeID,
		"month":       event.Month,
	})
}

// MonthPayroll computes payslips for every active employee for ?month=YYYY-MM.
func (h *EmployeeHandler) MonthPayroll(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if !monthPattern.MatchString(month) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
		return
	}

	resp, err := h.computeMonth(r.Context(), month)
	if err != nil {
		log.Printf("ERROR: compute payroll: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ConsolidatePayroll books the month's total payroll cost as an expense in
// the ledger.
func (h *EmployeeHandler) ConsolidatePayroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !monthPattern.MatchString(req.Month) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
		return
	}

	payroll, err := h.computeMonth(r.Context(), req.Month)
	if err != nil {
		log.Printf("ERROR: compute payroll: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(payroll.Payslips) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no active employees to consolidate"})
		return
	}

	amount, ok := parseMoney(payroll.Totals.TotalCost)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month total is negative, review discounts"})
		return
	}

	tx, err := h.store.CreateTransaction(r.Context(), database.CreateTransactionParams{
		Description: fmt.Sprintf("Payroll: %s", req.Month),
		Amount:      amount,
		Type:        enum.TransactionTypeExpense,
		Category:    enum.CategoryHumanResources,
		Date:        pgtype.Date{Time: time.Now(), Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: create payroll transaction: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(tx),
		"payroll":     payroll,
	})
}

func (h *EmployeeHandler) computeMonth(ctx context.Context, month string) (payrollResponse, error) {
	employees, err := h.store.ListEmployees(ctx, true)
	if err != nil {
		return payrollResponse{}, fmt.Errorf("list employees: %w", err)
	}

	resp := payrollResponse{Month: month, Payslips: []payslipResponse{}}
	var slips []service.Payslip
	for _, emp := range employees {
		var event *database.PayrollEvent
		ev, err := h.store.GetPayrollEvent(ctx, database.GetPayrollEventParams{
			EmployeeID: emp.ID,
			Month:      month,
		})
		if err == nil {
			event = &ev
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return payrollResponse{}, fmt.Errorf("get payroll event: %w", err)
		}

		slip, err := service.ComputePayslip(emp, event)
		if err != nil {
			return payrollResponse{}, fmt.Errorf("compute payslip for %s: %w", emp.ID, err)
		}
		slips = append(slips, slip)
		resp.Payslips = append(resp.Payslips, toPayslipResponse(slip))
	}

	totals := service.SumPayslips(slips)
	resp.Totals = monthTotals{
		GrossPay:       totals.GrossPay.StringFixed(2),
		NetPay:         totals.NetPay.StringFixed(2),
		EmployerBurden: totals.EmployerBurden.StringFixed(2),
		TotalCost:      totals.TotalCost.StringFixed(2),
	}
	return resp, nil
}

func (h *EmployeeHandler) employeeParams(w http.ResponseWriter, req employeeRequest) (database.UpdateEmployeeParams, bool) {
	if req.Name == "" || req.Position == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and position are required"})
		return database.UpdateEmployeeParams{}, false
	}
	contractType := strings.ToUpper(req.ContractType)
	if !isValidContractType(contractType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contract_type must be SALARIED, DAILY or HOURLY"})
		return database.UpdateEmployeeParams{}, false
	}
	salary, ok := parseMoney(req.BaseSalary)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_salary must be a non-negative number"})
		return database.UpdateEmployeeParams{}, false
	}

	commissionRate := decimal.Zero
	if req.CommissionRate != "" {
		commissionRate = service.ParseAmount(req.CommissionRate)
		if commissionRate.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "commission_rate must be non-negative"})
			return database.UpdateEmployeeParams{}, false
		}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return database.UpdateEmployeeParams{
		Name:           req.Name,
		Position:       req.Position,
		ContractType:   contractType,
		BaseSalary:     salary,
		CommissionRate: decimalToNumeric(commissionRate),
		Active:         active,
	}, true
}

// optionalAmount parses a money-ish request field; blank means NULL.
func optionalAmount(s string) pgtype.Numeric {
	if s == "" {
		return pgtype.Numeric{}
	}
	return decimalToNumeric(service.ParseAmount(s))
}
