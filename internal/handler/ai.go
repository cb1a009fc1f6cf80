package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chegou-pizza/api/internal/ai"
	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const scanReceiptPrompt = `You are reading a supplier receipt or invoice for a pizzeria.
Extract every purchased line item and answer ONLY with a JSON array in this shape:
[{"code":"", "name":"", "category":"", "unit":"", "quantity":"0", "unit_cost":"0.00", "supplier":""}]
Use the item code printed on the receipt when present, otherwise leave "code" empty.
Quantities and costs are plain decimal strings. Do not invent items.`

const scanDocumentPrompt = `You are reading an expense document (bill, invoice or receipt) for a pizzeria.
Answer ONLY with a JSON object in this shape:
{"description":"", "amount":"0.00", "category":"", "date":"YYYY-MM-DD", "due_date":"", "supplier":""}
Pick the category from: "Operational Expense", "Human Resources".
Leave fields you cannot read empty. Do not invent values.`

const advicePromptHeader = `You are a financial advisor for a small pizzeria.
Below is a summary of recent ledger activity, then the owner's question.
Answer in plain language, short and practical.`

// AIStore defines the database methods needed by AI-assisted endpoints.
// Satisfied by *database.Queries.
type AIStore interface {
	GetStockItemByCode(ctx context.Context, code string) (database.StockItem, error)
	AddStockQuantity(ctx context.Context, arg database.AddStockQuantityParams) (database.StockItem, error)
	CreateStockItem(ctx context.Context, arg database.CreateStockItemParams) (database.StockItem, error)
	ListTransactions(ctx context.Context, arg database.ListTransactionsParams) ([]database.Transaction, error)
}

// AIHandler wires document scanning and advice endpoints to the model client.
type AIHandler struct {
	store AIStore
	gen   ai.Generator
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(store AIStore, gen ai.Generator) *AIHandler {
	return &AIHandler{store: store, gen: gen}
}

// RegisterRoutes registers AI endpoints on the given Chi router.
func (h *AIHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scan-receipt", h.ScanReceipt)
	r.Post("/scan-document", h.ScanDocument)
	r.Post("/advice", h.Advice)
}

// --- Request / Response types ---

type scanRequest struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type scannedItem struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
	UnitCost string `json:"unit_cost"`
	Supplier string `json:"supplier"`
}

type scanReceiptResult struct {
	Item    stockItemResponse `json:"item"`
	Action  string            `json:"action"`
	Matched bool              `json:"matched"`
}

type expenseSuggestion struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	DueDate     string `json:"due_date"`
	Supplier    string `json:"supplier"`
}

type adviceRequest struct {
	Question string `json:"question"`
}

// --- Handlers ---

// ScanReceipt reads a photographed supplier receipt and ingests its line
// items into stock. Items whose code matches an existing stock item get
// their quantity topped up; the rest are created.
func (h *AIHandler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	image, ok := decodeScanRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.gen.Generate(r.Context(), scanReceiptPrompt, image)
	if err != nil {
		log.Printf("ERROR: scan receipt generate: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "document analysis failed"})
		return
	}

	payload, err := ai.ExtractJSON(answer)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "could not read items from document"})
		return
	}
	var items []scannedItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "could not read items from document"})
		return
	}

	results := make([]scanReceiptResult, 0, len(items))
	for _, it := range items {
		if it.Name == "" {
			continue
		}
		res, err := h.ingestScannedItem(r.Context(), it)
		if err != nil {
			log.Printf("ERROR: ingest scanned item %q: %v", it.Name, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		results = append(results, res)
	}

	writeJSON(w, http.StatusOK, results)
}

// ScanDocument reads an expense document and suggests a ledger entry. The
// suggestion goes back to the client for review; nothing is booked here.
func (h *AIHandler) ScanDocument(w http.ResponseWriter, r *http.Request) {
	image, ok := decodeScanRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.gen.Generate(r.Context(), scanDocumentPrompt, image)
	if err != nil {
		log.Printf("ERROR: scan document generate: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "document analysis failed"})
		return
	}

	payload, err := ai.ExtractJSON(answer)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "could not read expense from document"})
		return
	}
	var suggestion expenseSuggestion
	if err := json.Unmarshal([]byte(payload), &suggestion); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "could not read expense from document"})
		return
	}
	suggestion.Amount = service.ParseAmount(suggestion.Amount).StringFixed(2)

	writeJSON(w, http.StatusOK, suggestion)
}

// Advice answers a free-form business question grounded on the last 30 days
// of ledger activity.
func (h *AIHandler) Advice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	summary, err := h.ledgerSummary(r.Context())
	if err != nil {
		log.Printf("ERROR: ledger summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	prompt := fmt.Sprintf("%s\n\n%s\n\nQuestion: %s", advicePromptHeader, summary, req.Question)
	answer, err := h.gen.Generate(r.Context(), prompt, nil)
	if err != nil {
		log.Printf("ERROR: advice generate: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "advice generation failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (h *AIHandler) ingestScannedItem(ctx context.Context, it scannedItem) (scanReceiptResult, error) {
	quantity := service.ParseAmount(it.Quantity)
	unitCost := service.ParseAmount(it.UnitCost)

	if it.Code != "" {
		existing, err := h.store.GetStockItemByCode(ctx, it.Code)
		if err == nil {
			updated, err := h.store.AddStockQuantity(ctx, database.AddStockQuantityParams{
				ID:          existing.ID,
				Quantity:    decimalToNumeric(quantity),
				CostPerUnit: decimalToNumeric(unitCost),
			})
			if err != nil {
				return scanReceiptResult{}, err
			}
			return scanReceiptResult{
				Item:    toStockItemResponse(updated),
				Action:  "restocked",
				Matched: true,
			}, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return scanReceiptResult{}, err
		}
	}

	unit := it.Unit
	if unit == "" {
		unit = "un"
	}
	// New items start with the default restock threshold so they show up on
	// the low-stock report once consumed.
	minQuantity := decimalToNumeric(decimal.NewFromInt(10))
	created, err := h.store.CreateStockItem(ctx, database.CreateStockItemParams{
		Code:        pgText(it.Code),
		Name:        it.Name,
		Category:    pgText(it.Category),
		Unit:        unit,
		Quantity:    decimalToNumeric(quantity),
		CostPerUnit: decimalToNumeric(unitCost),
		MinQuantity: minQuantity,
		Supplier:    pgText(it.Supplier),
	})
	if err != nil {
		return scanReceiptResult{}, err
	}
	return scanReceiptResult{
		Item:   toStockItemResponse(created),
		Action: "created",
	}, nil
}

func (h *AIHandler) ledgerSummary(ctx context.Context) (string, error) {
	since := time.Now().AddDate(0, 0, -30)
	transactions, err := h.store.ListTransactions(ctx, database.ListTransactionsParams{
		StartDate: pgtype.Date{Time: since, Valid: true},
		Limit:     200,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Last 30 days of transactions (type | category | amount | description):\n")
	if len(transactions) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range transactions {
		fmt.Fprintf(&b, "%s | %s | %s | %s\n", t.Type, t.Category, numericToString(t.Amount), t.Description)
	}
	return b.String(), nil
}

func decodeScanRequest(w http.ResponseWriter, r *http.Request) (*ai.ImagePart, bool) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	if req.Data == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "data is required"})
		return nil, false
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return &ai.ImagePart{MIMEType: mime, Data: req.Data}, true
}
