package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecipeStore defines the database methods needed by recipe handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RecipeStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetStockItem(ctx context.Context, id uuid.UUID) (database.StockItem, error)
	ListRecipeIngredientsByProduct(ctx context.Context, productID uuid.UUID) ([]database.RecipeIngredientDetailRow, error)
	CreateRecipeIngredient(ctx context.Context, arg database.CreateRecipeIngredientParams) (database.RecipeIngredient, error)
	DeleteRecipeIngredient(ctx context.Context, arg database.DeleteRecipeIngredientParams) error
}

// RecipeHandler manages the ingredient list behind each menu item.
type RecipeHandler struct {
	store RecipeStore
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(store RecipeStore) *RecipeHandler {
	return &RecipeHandler{store: store}
}

// RegisterRoutes registers recipe endpoints on the given Chi router.
// Expected to be mounted under /products/{id}/recipe.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Delete("/{ingredientID}", h.Remove)
}

// --- Request / Response types ---

type addIngredientRequest struct {
	StockItemID string `json:"stock_item_id"`
	Quantity    string `json:"quantity"`
}

type ingredientResponse struct {
	ID          uuid.UUID `json:"id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	Quantity    string    `json:"quantity"`
	CostPerUnit string    `json:"cost_per_unit"`
	LineCost    string    `json:"line_cost"`
}

type recipeResponse struct {
	ProductID   uuid.UUID            `json:"product_id"`
	Ingredients []ingredientResponse `json:"ingredients"`
	TotalCost   string               `json:"total_cost"`
}

func toRecipeResponse(productID uuid.UUID, rows []database.RecipeIngredientDetailRow) recipeResponse {
	resp := recipeResponse{
		ProductID:   productID,
		Ingredients: make([]ingredientResponse, len(rows)),
	}
	for i, row := range rows {
		lineCost := service.ParseAmount(quantityToString(row.Quantity)).
			Mul(service.ParseAmount(numericToString(row.CostPerUnit)))
		resp.Ingredients[i] = ingredientResponse{
			ID:          row.ID,
			StockItemID: row.StockItemID,
			Name:        row.StockName,
			Unit:        row.Unit,
			Quantity:    quantityToString(row.Quantity),
			CostPerUnit: numericToString(row.CostPerUnit),
			LineCost:    lineCost.StringFixed(2),
		}
	}
	resp.TotalCost = service.RecipeCost(rows).StringFixed(2)
	return resp
}

// --- Handlers ---

// List returns a product's recipe with per-line and total ingredient cost.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rows, err := h.store.ListRecipeIngredientsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: list recipe ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(productID, rows))
}

// Add links a stock item to the product's recipe. Quantities accept a comma
// decimal separator.
func (h *RecipeHandler) Add(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req addIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	stockItemID, err := uuid.Parse(req.StockItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock_item_id"})
		return
	}

	quantity := service.ParseAmount(req.Quantity)
	if !quantity.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := h.store.GetStockItem(r.Context(), stockItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock item not found"})
			return
		}
		log.Printf("ERROR: get stock item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	_, err = h.store.CreateRecipeIngredient(r.Context(), database.CreateRecipeIngredientParams{
		ProductID:   productID,
		StockItemID: stockItemID,
		Quantity:    decimalToNumeric(quantity),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ingredient already in recipe"})
			return
		}
		log.Printf("ERROR: create recipe ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Return the whole recipe so the client refreshes cost totals in one call.
	rows, err := h.store.ListRecipeIngredientsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: list recipe ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeResponse(productID, rows))
}

// Remove deletes an ingredient link from the recipe.
func (h *RecipeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}
	ingredientID, err := uuid.Parse(chi.URLParam(r, "ingredientID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	err = h.store.DeleteRecipeIngredient(r.Context(), database.DeleteRecipeIngredientParams{
		ID:        ingredientID,
		ProductID: productID,
	})
	if err != nil {
		log.Printf("ERROR: delete recipe ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
