package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/chegou-pizza/api/internal/middleware"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CashSessionStore defines the database methods needed by cash register
// handlers. Satisfied by *database.Queries.
type CashSessionStore interface {
	CreateCashSession(ctx context.Context, arg database.CreateCashSessionParams) (database.CashSession, error)
	GetCashSession(ctx context.Context, id uuid.UUID) (database.CashSession, error)
	GetOpenCashSession(ctx context.Context) (database.CashSession, error)
	CloseCashSession(ctx context.Context, arg database.CloseCashSessionParams) (database.CashSession, error)
	ListCashSessions(ctx context.Context, arg database.ListCashSessionsParams) ([]database.CashSession, error)
	SumTransactionsByTypeOn(ctx context.Context, arg database.SumTransactionsByTypeOnParams) (pgtype.Numeric, error)
}

// CashSessionHandler handles register open, close and reconciliation.
type CashSessionHandler struct {
	store CashSessionStore
}

// NewCashSessionHandler creates a new CashSessionHandler.
func NewCashSessionHandler(store CashSessionStore) *CashSessionHandler {
	return &CashSessionHandler{store: store}
}

// RegisterRoutes registers cash session endpoints on the given Chi router.
func (h *CashSessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Open)
	r.Get("/current", h.Current)
	r.Post("/{id}/close", h.Close)
}

// --- Request / Response types ---

type openSessionRequest struct {
	Responsible  string `json:"responsible"`
	OpeningFloat string `json:"opening_float"`
}

type closeSessionRequest struct {
	CountedCash string `json:"counted_cash"`
	Force       bool   `json:"force"`
}

type cashSessionResponse struct {
	ID              uuid.UUID  `json:"id"`
	Responsible     string     `json:"responsible"`
	OpeningFloat    string     `json:"opening_float"`
	CountedCash     *string    `json:"counted_cash"`
	ExpectedBalance *string    `json:"expected_balance"`
	Variance        *string    `json:"variance"`
	Status          string     `json:"status"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at"`
}

func toCashSessionResponse(s database.CashSession) cashSessionResponse {
	resp := cashSessionResponse{
		ID:           s.ID,
		Responsible:  s.Responsible,
		OpeningFloat: numericToString(s.OpeningFloat),
		Status:       s.Status,
		OpenedAt:     s.OpenedAt,
	}
	if s.CountedCash.Valid {
		v := numericToString(s.CountedCash)
		resp.CountedCash = &v
	}
	if s.ExpectedBalance.Valid {
		v := numericToString(s.ExpectedBalance)
		resp.ExpectedBalance = &v
	}
	if s.Variance.Valid {
		v := numericToString(s.Variance)
		resp.Variance = &v
	}
	if s.ClosedAt.Valid {
		t := s.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}

// --- Handlers ---

// List returns past sessions, newest first.
func (h *CashSessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	sessions, err := h.store.ListCashSessions(r.Context(), database.ListCashSessionsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("ERROR: list cash sessions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]cashSessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toCashSessionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Open starts the day's register session. The partial unique index on open
// sessions turns a double open into a conflict.
func (h *CashSessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Responsible == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "responsible is required"})
		return
	}
	openingFloat, ok := parseMoney(req.OpeningFloat)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "opening_float must be a non-negative number"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	session, err := h.store.CreateCashSession(r.Context(), database.CreateCashSessionParams{
		Responsible:  req.Responsible,
		OpeningFloat: openingFloat,
		OpenedBy:     claims.UserID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a cash session is already open"})
			return
		}
		log.Printf("ERROR: open cash session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCashSessionResponse(session))
}

// Current returns the open session, or 404 when the register is closed.
func (h *CashSessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetOpenCashSession(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open cash session"})
			return
		}
		log.Printf("ERROR: get open cash session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCashSessionResponse(session))
}

// Close reconciles the counted cash against today's ledger and closes the
// session. A divergent count is rejected unless force is set, so the operator
// sees the variance before accepting it.
func (h *CashSessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	var req closeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	counted, ok := parseMoney(req.CountedCash)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "counted_cash must be a non-negative number"})
		return
	}

	session, err := h.store.GetCashSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cash session not found"})
			return
		}
		log.Printf("ERROR: get cash session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if session.Status != enum.CashSessionOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cash session is already closed"})
		return
	}

	today := pgtype.Date{Time: time.Now(), Valid: true}
	income, err := h.store.SumTransactionsByTypeOn(r.Context(), database.SumTransactionsByTypeOnParams{
		Type: enum.TransactionTypeIncome,
		Date: today,
	})
	if err != nil {
		log.Printf("ERROR: sum income: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	expense, err := h.store.SumTransactionsByTypeOn(r.Context(), database.SumTransactionsByTypeOnParams{
		Type: enum.TransactionTypeExpense,
		Date: today,
	})
	if err != nil {
		log.Printf("ERROR: sum expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rec := service.Reconcile(
		service.ParseAmount(numericToString(session.OpeningFloat)),
		service.ParseAmount(numericToString(income)),
		service.ParseAmount(numericToString(expense)),
		service.ParseAmount(numericToString(counted)),
	)

	if rec.Divergent && !req.Force {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "counted cash diverges from expected balance",
			"expected": rec.Expected.StringFixed(2),
			"variance": rec.Variance.StringFixed(2),
		})
		return
	}

	closed, err := h.store.CloseCashSession(r.Context(), database.CloseCashSessionParams{
		ID:              id,
		CountedCash:     counted,
		ExpectedBalance: decimalToNumeric(rec.Expected),
		Variance:        decimalToNumeric(rec.Variance),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "cash session is already closed"})
			return
		}
		log.Printf("ERROR: close cash session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCashSessionResponse(closed))
}
