package service

import (
	"errors"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Payroll defaults for months with no recorded event.
var (
	defaultWorkedDays  = decimal.NewFromInt(30)
	defaultWorkedHours = decimal.NewFromInt(220)

	overtimeFactor = decimal.RequireFromString("1.5")
	// Employer-side charges on top of gross pay for taxable contracts.
	employerBurdenRate = decimal.RequireFromString("0.4")

	hoursPerDay       = decimal.NewFromInt(8)
	daysPerMonth      = decimal.NewFromInt(30)
	hoursPerMonthBase = decimal.NewFromInt(220)
)

// ErrUnknownContractType is returned for contract types outside the known set.
var ErrUnknownContractType = errors.New("unknown contract_type")

// Payslip is one employee's computed pay for a month.
type Payslip struct {
	EmployeeID   string
	Name         string
	ContractType string

	BasePay        decimal.Decimal
	HourlyRate     decimal.Decimal
	OvertimePay    decimal.Decimal
	Commission     decimal.Decimal
	Bonus          decimal.Decimal
	Discounts      decimal.Decimal
	GrossPay       decimal.Decimal
	NetPay         decimal.Decimal
	EmployerBurden decimal.Decimal
}

// MonthTotals aggregates a month's payslips. TotalCost is what the month
// actually costs the business: net pay out the door plus employer charges.
type MonthTotals struct {
	GrossPay       decimal.Decimal
	NetPay         decimal.Decimal
	EmployerBurden decimal.Decimal
	TotalCost      decimal.Decimal
}

// ComputePayslip calculates one employee's pay from the month's event.
// A nil event falls back to a full standard month (30 days, 220 hours,
// no extras).
func ComputePayslip(emp database.Employee, event *database.PayrollEvent) (Payslip, error) {
	days := defaultWorkedDays
	hours := defaultWorkedHours
	customRate := decimal.Zero
	extraHours := decimal.Zero
	sales := decimal.Zero
	bonus := decimal.Zero
	discounts := decimal.Zero

	if event != nil {
		if event.WorkedDays.Valid {
			days = numericToDecimal(event.WorkedDays)
		}
		if event.WorkedHours.Valid {
			hours = numericToDecimal(event.WorkedHours)
		}
		customRate = numericToDecimal(event.CustomRate)
		extraHours = numericToDecimal(event.ExtraHours)
		sales = numericToDecimal(event.SalesAmount)
		bonus = numericToDecimal(event.Bonus)
		discounts = numericToDecimal(event.Discounts)
	}

	baseSalary := numericToDecimal(emp.BaseSalary)

	var basePay, hourlyRate decimal.Decimal
	switch emp.ContractType {
	case enum.ContractTypeSalaried:
		basePay = baseSalary.Div(daysPerMonth).Mul(days)
		if customRate.IsPositive() {
			hourlyRate = customRate
		} else {
			hourlyRate = baseSalary.Div(hoursPerMonthBase)
		}
	case enum.ContractTypeDaily:
		rate := baseSalary
		if customRate.IsPositive() {
			rate = customRate
		}
		basePay = rate.Mul(days)
		hourlyRate = rate.Div(hoursPerDay)
	case enum.ContractTypeHourly:
		rate := baseSalary
		if customRate.IsPositive() {
			rate = customRate
		}
		basePay = rate.Mul(hours)
		hourlyRate = rate
	default:
		return Payslip{}, ErrUnknownContractType
	}

	overtimePay := extraHours.Mul(hourlyRate).Mul(overtimeFactor)
	commission := sales.Mul(numericToDecimal(emp.CommissionRate)).Div(oneHundred)
	grossPay := basePay.Add(overtimePay).Add(commission).Add(bonus)
	netPay := grossPay.Sub(discounts)

	// Daily contractors are paid per service; no employer charges accrue.
	employerBurden := decimal.Zero
	if emp.ContractType != enum.ContractTypeDaily {
		employerBurden = grossPay.Mul(employerBurdenRate)
	}

	return Payslip{
		EmployeeID:     emp.ID.String(),
		Name:           emp.Name,
		ContractType:   emp.ContractType,
		BasePay:        basePay,
		HourlyRate:     hourlyRate,
		OvertimePay:    overtimePay,
		Commission:     commission,
		Bonus:          bonus,
		Discounts:      discounts,
		GrossPay:       grossPay,
		NetPay:         netPay,
		EmployerBurden: employerBurden,
	}, nil
}

// SumPayslips totals a month of payslips.
func SumPayslips(slips []Payslip) MonthTotals {
	var t MonthTotals
	t.GrossPay = decimal.Zero
	t.NetPay = decimal.Zero
	t.EmployerBurden = decimal.Zero
	for _, s := range slips {
		t.GrossPay = t.GrossPay.Add(s.GrossPay)
		t.NetPay = t.NetPay.Add(s.NetPay)
		t.EmployerBurden = t.EmployerBurden.Add(s.EmployerBurden)
	}
	t.TotalCost = t.NetPay.Add(t.EmployerBurden)
	return t
}
