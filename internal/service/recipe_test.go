package service

import (
	"testing"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.35", "0.35"},
		{"0,35", "0.35"},
		{"12,50", "12.5"},
		{" 3 ", "3"},
		{"abc", "0"},
		{"", "0"},
	}
	for _, tt := range tests {
		got := ParseAmount(tt.in)
		want, _ := decimal.NewFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, want)
		}
	}
}

func TestRecipeCost(t *testing.T) {
	ingredients := []database.RecipeIngredientDetailRow{
		{Quantity: makeNumeric("0.300"), CostPerUnit: makeNumeric("4.50")},  // 1.35
		{Quantity: makeNumeric("0.200"), CostPerUnit: makeNumeric("32.00")}, // 6.40
		{Quantity: makeNumeric("0.100"), CostPerUnit: makeNumeric("130.00")}, // 13.00
	}
	cost := RecipeCost(ingredients)
	if !cost.Equal(decimal.RequireFromString("20.75")) {
		t.Errorf("cost: got %v, want 20.75", cost)
	}
}

func TestRecipeCost_Empty(t *testing.T) {
	if cost := RecipeCost(nil); !cost.IsZero() {
		t.Errorf("empty recipe cost: got %v, want 0", cost)
	}
}

func TestComputeProfitability(t *testing.T) {
	price := decimal.RequireFromString("76.21")
	cost := decimal.RequireFromString("20.75")

	p := ComputeProfitability(price, cost)
	if p.Uncosted {
		t.Error("costed product flagged as uncosted")
	}
	if !p.Profit.Equal(decimal.RequireFromString("55.46")) {
		t.Errorf("profit: got %v, want 55.46", p.Profit)
	}
	// (76.21 - 20.75) / 76.21 * 100 = 72.77...
	if p.MarginPct.StringFixed(2) != "72.77" {
		t.Errorf("margin: got %v, want 72.77", p.MarginPct.StringFixed(2))
	}
	// 76.21 / 20.75 = 3.67x
	if p.Markup.StringFixed(2) != "3.67" {
		t.Errorf("markup: got %v, want 3.67", p.Markup.StringFixed(2))
	}
}

func TestComputeProfitability_NoRecipe(t *testing.T) {
	p := ComputeProfitability(decimal.RequireFromString("45.00"), decimal.Zero)
	if !p.Uncosted {
		t.Error("zero-cost product should be flagged uncosted")
	}
	if !p.MarginPct.Equal(decimal.NewFromInt(100)) {
		t.Errorf("margin: got %v, want 100", p.MarginPct)
	}
	if !p.Markup.IsZero() {
		t.Errorf("markup without cost: got %v, want 0", p.Markup)
	}
}

func TestComputeProfitability_FreeProduct(t *testing.T) {
	p := ComputeProfitability(decimal.Zero, decimal.RequireFromString("5.00"))
	if !p.MarginPct.IsZero() {
		t.Errorf("margin of zero-price product: got %v, want 0", p.MarginPct)
	}
	if !p.Profit.Equal(decimal.RequireFromString("-5.00")) {
		t.Errorf("profit: got %v, want -5.00", p.Profit)
	}
}

func TestBreakEvenRevenue(t *testing.T) {
	// 10000 fixed expenses at 40% margin => 25000 revenue.
	got := BreakEvenRevenue(decimal.NewFromInt(10000), decimal.NewFromInt(40))
	if !got.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("break-even: got %v, want 25000", got)
	}
}

func TestBreakEvenRevenue_NoMargin(t *testing.T) {
	if got := BreakEvenRevenue(decimal.NewFromInt(10000), decimal.Zero); !got.IsZero() {
		t.Errorf("break-even at zero margin: got %v, want 0", got)
	}
	if got := BreakEvenRevenue(decimal.NewFromInt(10000), decimal.NewFromInt(-5)); !got.IsZero() {
		t.Errorf("break-even at negative margin: got %v, want 0", got)
	}
}
