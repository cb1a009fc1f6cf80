package service

import "github.com/shopspring/decimal"

// varianceThreshold is the smallest count difference worth flagging; anything
// below it is rounding noise.
var varianceThreshold = decimal.RequireFromString("0.01")

// Reconciliation compares a physical cash count against the ledger.
type Reconciliation struct {
	Expected  decimal.Decimal
	Variance  decimal.Decimal
	Divergent bool
}

// Reconcile computes the expected drawer balance from the opening float and
// the day's cash movement, and the variance against what was counted.
func Reconcile(openingFloat, todayIncome, todayExpense, counted decimal.Decimal) Reconciliation {
	expected := openingFloat.Add(todayIncome).Sub(todayExpense)
	variance := counted.Sub(expected)
	return Reconciliation{
		Expected:  expected,
		Variance:  variance,
		Divergent: variance.Abs().GreaterThanOrEqual(varianceThreshold),
	}
}
