package service

import (
	"strings"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ParseAmount reads a quantity or money value typed by a human. Accepts a
// comma decimal separator ("0,35" == "0.35"); anything that still fails to
// parse counts as zero rather than rejecting the whole document.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RecipeCost totals ingredient quantity times current unit cost.
func RecipeCost(ingredients []database.RecipeIngredientDetailRow) decimal.Decimal {
	cost := decimal.Zero
	for _, ing := range ingredients {
		cost = cost.Add(numericToDecimal(ing.Quantity).Mul(numericToDecimal(ing.CostPerUnit)))
	}
	return cost
}

// Profitability describes the margin picture of a single product.
// Uncosted marks products without a recipe (or with zero-cost ingredients):
// the 100% margin they report is an upper bound, not a measurement.
type Profitability struct {
	Profit    decimal.Decimal
	MarginPct decimal.Decimal
	Markup    decimal.Decimal
	Uncosted  bool
}

// ComputeProfitability derives profit, margin and markup from a sale price
// and an ingredient cost.
func ComputeProfitability(price, cost decimal.Decimal) Profitability {
	p := Profitability{
		Profit:   price.Sub(cost),
		Uncosted: cost.IsZero(),
	}
	switch {
	case price.IsZero():
		p.MarginPct = decimal.Zero
	case cost.IsZero():
		p.MarginPct = oneHundred
	default:
		p.MarginPct = price.Sub(cost).Div(price).Mul(oneHundred)
	}
	if cost.IsPositive() {
		p.Markup = price.Div(cost)
	}
	return p
}

// BreakEvenRevenue returns the monthly revenue needed to cover fixed expenses
// at the given average margin. Zero when the margin leaves nothing to cover
// them with.
func BreakEvenRevenue(fixedExpenses, avgMarginPct decimal.Decimal) decimal.Decimal {
	if !avgMarginPct.IsPositive() {
		return decimal.Zero
	}
	return fixedExpenses.Div(avgMarginPct.Div(oneHundred))
}
