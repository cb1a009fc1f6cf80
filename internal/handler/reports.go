package handler

import (
	"context"
	"log"
	"net/http"
	"sort"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries.
type ReportStore interface {
	ListProducts(ctx context.Context, availableOnly bool) ([]database.Product, error)
	ListAllRecipeIngredients(ctx context.Context) ([]database.RecipeIngredientDetailRow, error)
	SumExpensesBetween(ctx context.Context, arg database.SumExpensesBetweenParams) (pgtype.Numeric, error)
}

// ReportHandler serves margin and break-even analysis.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted behind ADMIN role middleware.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/recipe-costs", h.RecipeCosts)
	r.Get("/break-even", h.BreakEven)
}

// --- Response types ---

type productCostResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Cost      string    `json:"cost"`
	Profit    string    `json:"profit"`
	MarginPct string    `json:"margin_pct"`
	Markup    string    `json:"markup"`
	Uncosted  bool      `json:"uncosted"`
}

type breakEvenResponse struct {
	FixedExpenses    string `json:"fixed_expenses"`
	AvgMarginPct     string `json:"avg_margin_pct"`
	BreakEvenRevenue string `json:"break_even_revenue"`
	CostedProducts   int    `json:"costed_products"`
}

// --- Handlers ---

// RecipeCosts returns every product's ingredient cost and margin, worst
// margin first so the pricing problems surface at the top of the page.
func (h *ReportHandler) RecipeCosts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.productCosts(r.Context())
	if err != nil {
		log.Printf("ERROR: recipe cost report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// BreakEven estimates the monthly revenue needed to cover fixed expenses at
// the menu's average margin. ?start_date and ?end_date bound the expense
// window; both default to open.
func (h *ReportHandler) BreakEven(w http.ResponseWriter, r *http.Request) {
	var params database.SumExpensesBetweenParams
	if s := r.URL.Query().Get("start_date"); s != "" {
		d, ok := parseDate(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		params.StartDate = d
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		d, ok := parseDate(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		params.EndDate = d
	}

	expenses, err := h.store.SumExpensesBetween(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: sum expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	costs, err := h.productCosts(r.Context())
	if err != nil {
		log.Printf("ERROR: recipe cost report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Average only over products with a real cost; uncosted products would
	// drag the average toward a 100% margin the kitchen never sees.
	sum := decimal.Zero
	costed := 0
	for _, c := range costs {
		if c.Uncosted {
			continue
		}
		sum = sum.Add(service.ParseAmount(c.MarginPct))
		costed++
	}
	avgMargin := decimal.Zero
	if costed > 0 {
		avgMargin = sum.Div(decimal.NewFromInt(int64(costed)))
	}

	fixed := service.ParseAmount(numericToString(expenses))
	writeJSON(w, http.StatusOK, breakEvenResponse{
		FixedExpenses:    fixed.StringFixed(2),
		AvgMarginPct:     avgMargin.StringFixed(2),
		BreakEvenRevenue: service.BreakEvenRevenue(fixed, avgMargin).StringFixed(2),
		CostedProducts:   costed,
	})
}

func (h *ReportHandler) productCosts(ctx context.Context) ([]productCostResponse, error) {
	products, err := h.store.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	ingredients, err := h.store.ListAllRecipeIngredients(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[uuid.UUID][]database.RecipeIngredientDetailRow)
	for _, ing := range ingredients {
		byProduct[ing.ProductID] = append(byProduct[ing.ProductID], ing)
	}

	rows := make([]productCostResponse, 0, len(products))
	for _, p := range products {
		cost := service.RecipeCost(byProduct[p.ID])
		price := service.ParseAmount(numericToString(p.Price))
		prof := service.ComputeProfitability(price, cost)
		rows = append(rows, productCostResponse{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     price.StringFixed(2),
			Cost:      cost.StringFixed(2),
			Profit:    prof.Profit.StringFixed(2),
			MarginPct: prof.MarginPct.StringFixed(2),
			Markup:    prof.Markup.StringFixed(2),
			Uncosted:  prof.Uncosted,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return service.ParseAmount(rows[i].MarginPct).LessThan(service.ParseAmount(rows[j].MarginPct))
	})
	return rows, nil
}
