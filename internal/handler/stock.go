package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StockStore defines the database methods needed by stock handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StockStore interface {
	ListStockItems(ctx context.Context) ([]database.StockItem, error)
	ListLowStockItems(ctx context.Context) ([]database.StockItem, error)
	GetStockItem(ctx context.Context, id uuid.UUID) (database.StockItem, error)
	CreateStockItem(ctx context.Context, arg database.CreateStockItemParams) (database.StockItem, error)
	UpdateStockItem(ctx context.Context, arg database.UpdateStockItemParams) (database.StockItem, error)
	DeleteStockItem(ctx context.Context, id uuid.UUID) error
}

// StockHandler handles ingredient inventory endpoints.
type StockHandler struct {
	store StockStore
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(store StockStore) *StockHandler {
	return &StockHandler{store: store}
}

// RegisterRoutes registers stock endpoints on the given Chi router.
func (h *StockHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/low", h.ListLow)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type stockItemRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	CostPerUnit string `json:"cost_per_unit"`
	MinQuantity string `json:"min_quantity"`
	Supplier    string `json:"supplier"`
}

type stockItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        *string   `json:"code"`
	Name        string    `json:"name"`
	Category    *string   `json:"category"`
	Unit        string    `json:"unit"`
	Quantity    string    `json:"quantity"`
	CostPerUnit string    `json:"cost_per_unit"`
	MinQuantity string    `json:"min_quantity"`
	Supplier    *string   `json:"supplier"`
	Low         bool      `json:"low"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toStockItemResponse(s database.StockItem) stockItemResponse {
	quantity := service.ParseAmount(quantityToString(s.Quantity))
	minQuantity := service.ParseAmount(quantityToString(s.MinQuantity))
	return stockItemResponse{
		ID:          s.ID,
		Code:        textOrNil(s.Code),
		Name:        s.Name,
		Category:    textOrNil(s.Category),
		Unit:        s.Unit,
		Quantity:    quantity.String(),
		CostPerUnit: numericToString(s.CostPerUnit),
		MinQuantity: minQuantity.String(),
		Supplier:    textOrNil(s.Supplier),
		Low:         quantity.LessThanOrEqual(minQuantity),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// --- Handlers ---

// List returns every stock item, sorted by name.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListStockItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list stock items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]stockItemResponse, len(items))
	for i, it := range items {
		resp[i] = toStockItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListLow returns items at or below their reorder threshold.
func (h *StockHandler) ListLow(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListLowStockItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]stockItemResponse, len(items))
	for i, it := range items {
		resp[i] = toStockItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single stock item by ID.
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock item ID"})
		return
	}

	item, err := h.store.GetStockItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock item not found"})
			return
		}
		log.Printf("ERROR: get stock item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStockItemResponse(item))
}

// Create adds a stock item. Amounts accept a comma decimal separator because
// supplier invoices in this market use one.
func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req stockItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}

	quantity := service.ParseAmount(req.Quantity)
	if quantity.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be non-negative"})
		return
	}

	item, err := h.store.CreateStockItem(r.Context(), database.CreateStockItemParams{
		Code:        pgText(req.Code),
		Name:        req.Name,
		Category:    pgText(req.Category),
		Unit:        req.Unit,
		Quantity:    decimalToNumeric(quantity),
		CostPerUnit: decimalToNumeric(service.ParseAmount(req.CostPerUnit)),
		MinQuantity: decimalToNumeric(service.ParseAmount(req.MinQuantity)),
		Supplier:    pgText(req.Supplier),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "code already in use"})
			return
		}
		log.Printf("ERROR: create stock item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toStockItemResponse(item))
}

// Update modifies an existing stock item.
func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock item ID"})
		return
	}

	var req stockItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}

	quantity := service.ParseAmount(req.Quantity)
	if quantity.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be non-negative"})
		return
	}

	item, err := h.store.UpdateStockItem(r.Context(), database.UpdateStockItemParams{
		ID:          id,
		Code:        pgText(req.Code),
		Name:        req.Name,
		Category:    pgText(req.Category),
		Unit:        req.Unit,
		Quantity:    decimalToNumeric(quantity),
		CostPerUnit: decimalToNumeric(service.ParseAmount(req.CostPerUnit)),
		MinQuantity: decimalToNumeric(service.ParseAmount(req.MinQuantity)),
		Supplier:    pgText(req.Supplier),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock item not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "code already in use"})
			return
		}
		log.Printf("ERROR: update stock item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toStockItemResponse(item))
}

// Delete removes a stock item along with its recipe links.
func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock item ID"})
		return
	}

	if err := h.store.DeleteStockItem(r.Context(), id); err != nil {
		log.Printf("ERROR: delete stock item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
