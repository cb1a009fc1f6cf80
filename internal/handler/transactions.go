package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TransactionStore defines the database methods needed by transaction handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TransactionStore interface {
	ListTransactions(ctx context.Context, arg database.ListTransactionsParams) ([]database.Transaction, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
}

// TransactionHandler handles the income and expense ledger.
type TransactionHandler struct {
	store TransactionStore
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(store TransactionStore) *TransactionHandler {
	return &TransactionHandler{store: store}
}

// RegisterRoutes registers transaction endpoints on the given Chi router.
func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type transactionRequest struct {
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Type           string `json:"type"`
	Category       string `json:"category"`
	Date           string `json:"date"`
	DueDate        string `json:"due_date"`
	PaymentMethod  string `json:"payment_method"`
	AttachmentName string `json:"attachment_name"`
	AttachmentURL  string `json:"attachment_url"`
}

type transactionResponse struct {
	ID             uuid.UUID `json:"id"`
	Description    string    `json:"description"`
	Amount         string    `json:"amount"`
	Type           string    `json:"type"`
	Category       string    `json:"category"`
	Date           string    `json:"date"`
	DueDate        *string   `json:"due_date"`
	PaymentMethod  *string   `json:"payment_method"`
	AttachmentName *string   `json:"attachment_name"`
	AttachmentURL  *string   `json:"attachment_url"`
	OrderID        *string   `json:"order_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func toTransactionResponse(t database.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:             t.ID,
		Description:    t.Description,
		Amount:         numericToString(t.Amount),
		Type:           t.Type,
		Category:       t.Category,
		PaymentMethod:  textOrNil(t.PaymentMethod),
		AttachmentName: textOrNil(t.AttachmentName),
		AttachmentURL:  textOrNil(t.AttachmentURL),
		CreatedAt:      t.CreatedAt,
	}
	if t.Date.Valid {
		resp.Date = t.Date.Time.Format("2006-01-02")
	}
	if t.DueDate.Valid {
		s := t.DueDate.Time.Format("2006-01-02")
		resp.DueDate = &s
	}
	if t.OrderID.Valid {
		s := uuid.UUID(t.OrderID.Bytes).String()
		resp.OrderID = &s
	}
	return resp
}

// --- Handlers ---

// List returns ledger entries newest first. Filters: ?type=INCOME|EXPENSE,
// ?start_date= and ?end_date= as YYYY-MM-DD.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListTransactionsParams{Limit: limit, Offset: offset}
	if s := strings.ToUpper(r.URL.Query().Get("type")); s != "" {
		if s != enum.TransactionTypeIncome && s != enum.TransactionTypeExpense {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type must be INCOME or EXPENSE"})
			return
		}
		params.Type = pgText(s)
	}
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

	transactions, err := h.store.ListTransactions(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]transactionResponse, len(transactions))
	for i, t := range transactions {
		resp[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create records a manual income or expense entry. Order income is recorded
// automatically on delivery and does not come through here.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return
	}
	txType := strings.ToUpper(req.Type)
	if txType != enum.TransactionTypeIncome && txType != enum.TransactionTypeExpense {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type must be INCOME or EXPENSE"})
		return
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category is required"})
		return
	}
	amount, ok := parseMoney(req.Amount)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be a non-negative number"})
		return
	}

	date := pgtype.Date{Time: time.Now(), Valid: true}
	if req.Date != "" {
		date, ok = parseDate(req.Date)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
	}
	var dueDate pgtype.Date
	if req.DueDate != "" {
		dueDate, ok = parseDate(req.DueDate)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "due_date must be YYYY-MM-DD"})
			return
		}
	}

	tx, err := h.store.CreateTransaction(r.Context(), database.CreateTransactionParams{
		Description:    req.Description,
		Amount:         amount,
		Type:           txType,
		Category:       req.Category,
		Date:           date,
		DueDate:        dueDate,
		PaymentMethod:  pgText(strings.ToUpper(req.PaymentMethod)),
		AttachmentName: pgText(req.AttachmentName),
		AttachmentURL:  pgText(req.AttachmentURL),
	})
	if err != nil {
		log.Printf("ERROR: create transaction: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// Delete removes a ledger entry.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction ID"})
		return
	}

	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		log.Printf("ERROR: delete transaction: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
