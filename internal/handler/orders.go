package handler

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/middleware"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/chegou-pizza/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderStore defines the read-side database methods needed by order handlers.
// Writes go through the order service so they stay transactional.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// OrderServicer is the slice of the order service the handler needs.
// *service.OrderService satisfies it; tests substitute a mock.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AdvanceOrder(ctx context.Context, orderID uuid.UUID, next string) (*database.Order, error)
}

// OrderHandler handles order lifecycle endpoints and pushes board updates
// over the WebSocket hub after each committed change.
type OrderHandler struct {
	store   OrderStore
	service OrderServicer
	hub     *ws.Hub
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, svc OrderServicer, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{store: store, service: svc, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	CustomerAddress string                   `json:"customer_address"`
	PaymentMethod   string                   `json:"payment_method"`
	DeliveryFee     string                   `json:"delivery_fee"`
	CashGiven       string                   `json:"cash_given"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID    string `json:"product_id"`
	SecondHalfID string `json:"second_half_id"`
	Quantity     int32  `json:"quantity"`
	Notes        string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   *string   `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
	Notes       *string   `json:"notes"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     int32               `json:"order_number"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   *string             `json:"customer_phone"`
	CustomerAddress *string             `json:"customer_address"`
	PaymentMethod   *string             `json:"payment_method"`
	DeliveryFee     string              `json:"delivery_fee"`
	ChangeDue       string              `json:"change_due"`
	TotalAmount     string              `json:"total_amount"`
	Status          string              `json:"status"`
	CompletedAt     *time.Time          `json:"completed_at"`
	CreatedAt       time.Time           `json:"created_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:          it.ID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		UnitPrice:   numericToString(it.UnitPrice),
		Subtotal:    numericToString(it.Subtotal),
		Notes:       textOrNil(it.Notes),
	}
	if it.ProductID.Valid {
		s := uuid.UUID(it.ProductID.Bytes).String()
		resp.ProductID = &s
	}
	return resp
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerName:    o.CustomerName,
		CustomerPhone:   textOrNil(o.CustomerPhone),
		CustomerAddress: textOrNil(o.CustomerAddress),
		PaymentMethod:   textOrNil(o.PaymentMethod),
		DeliveryFee:     numericToString(o.DeliveryFee),
		ChangeDue:       numericToString(o.ChangeDue),
		TotalAmount:     numericToString(o.TotalAmount),
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
	if o.CompletedAt.Valid {
		t := o.CompletedAt.Time
		resp.CompletedAt = &t
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			resp.Items[i] = toOrderItemResponse(it)
		}
	}
	return resp
}

// --- Handlers ---

// List returns orders newest first. ?status= filters by stage and
// ?active=true hides cancelled orders, the view the kitchen board uses.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		ExcludeCancel: r.URL.Query().Get("active") == "true",
		Limit:         limit,
		Offset:        offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgText(s)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order with its line items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, items, ok := h.loadOrder(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Create takes a new order through the service layer and announces it to
// the board.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	svcReq := service.CreateOrderRequest{
		CreatedBy:       claims.UserID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PaymentMethod:   req.PaymentMethod,
		DeliveryFee:     req.DeliveryFee,
		CashGiven:       req.CashGiven,
	}
	for _, it := range req.Items {
		svcReq.Items = append(svcReq.Items, service.CreateOrderItemRequest{
			ProductID:    it.ProductID,
			SecondHalfID: it.SecondHalfID,
			Quantity:     it.Quantity,
			Notes:        it.Notes,
		})
	}

	result, err := h.service.CreateOrder(r.Context(), svcReq)
	if err != nil {
		status, msg := mapOrderServiceError(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: create order: %v", err)
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.hub.BroadcastJSON(ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateStatus advances an order to the requested stage.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.service.AdvanceOrder(r.Context(), id, req.Status)
	if err != nil {
		status, msg := mapOrderServiceError(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: advance order: %v", err)
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	resp := toOrderResponse(*order, nil)
	h.hub.BroadcastJSON(ws.EventOrderStatusUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes an order entirely. Meant for mistaken entries, not for
// cancellation, which is a status transition.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := h.store.DeleteOrder(r.Context(), id); err != nil {
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.hub.BroadcastJSON(ws.EventOrderDeleted, map[string]uuid.UUID{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Receipt renders the order as a printable HTML ticket sized for 80mm
// thermal printers.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, items, ok := h.loadOrder(w, r, id)
	if !ok {
		return
	}

	data := receiptData{
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		CreatedAt:    order.CreatedAt.Format("02/01/2006 15:04"),
		DeliveryFee:  numericToString(order.DeliveryFee),
		ChangeDue:    numericToString(order.ChangeDue),
		Total:        numericToString(order.TotalAmount),
	}
	if order.CustomerPhone.Valid {
		data.CustomerPhone = order.CustomerPhone.String
	}
	if order.CustomerAddress.Valid {
		data.CustomerAddress = order.CustomerAddress.String
	}
	if order.PaymentMethod.Valid {
		data.PaymentMethod = order.PaymentMethod.String
	}
	for _, it := range items {
		line := receiptLine{
			Quantity: it.Quantity,
			Name:     it.ProductName,
			Subtotal: numericToString(it.Subtotal),
		}
		if it.Notes.Valid {
			line.Notes = it.Notes.String
		}
		data.Items = append(data.Items, line)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := receiptTmpl.Execute(w, data); err != nil {
		log.Printf("ERROR: render receipt: %v", err)
	}
}

func (h *OrderHandler) loadOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID) (database.Order, []database.OrderItem, bool) {
	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return database.Order{}, nil, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, nil, false
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Order{}, nil, false
	}
	return order, items, true
}

func mapOrderServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusBadRequest, "product not found"
	case errors.Is(err, service.ErrProductUnavailable):
		return http.StatusBadRequest, "product is not available"
	case errors.Is(err, service.ErrEmptyItems):
		return http.StatusBadRequest, "order must have at least one item"
	case errors.Is(err, service.ErrCustomerNameRequired):
		return http.StatusBadRequest, "customer_name is required"
	case errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusBadRequest, "item quantity must be positive"
	case errors.Is(err, service.ErrInvalidProductID):
		return http.StatusBadRequest, "invalid product ID"
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, "invalid payment method"
	case errors.Is(err, service.ErrInvalidDeliveryFee):
		return http.StatusBadRequest, "delivery fee must be a non-negative number"
	case errors.Is(err, service.ErrInvalidCashGiven):
		return http.StatusBadRequest, "cash given must cover the order total"
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest, "invalid status transition"
	case errors.Is(err, service.ErrOrderFinalized):
		return http.StatusConflict, "order is already finalized"
	case errors.Is(err, service.ErrStatusConflict):
		return http.StatusConflict, "order was updated concurrently, refresh and retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// --- Receipt template ---

type receiptLine struct {
	Quantity int32
	Name     string
	Notes    string
	Subtotal string
}

type receiptData struct {
	OrderNumber     int32
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	PaymentMethod   string
	CreatedAt       string
	Items           []receiptLine
	DeliveryFee     string
	ChangeDue       string
	Total           string
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Pedido #{{printf "%03d" .OrderNumber}}</title>
<style>
  body { font-family: 'Courier New', monospace; font-size: 12px; width: 280px; margin: 0 auto; }
  h1 { font-size: 16px; text-align: center; margin: 8px 0 2px; }
  .sub { text-align: center; margin: 0 0 8px; }
  hr { border: none; border-top: 1px dashed #000; }
  table { width: 100%; border-collapse: collapse; }
  td { vertical-align: top; padding: 1px 0; }
  td.amount { text-align: right; white-space: nowrap; }
  .notes { font-size: 10px; padding-left: 14px; }
  .total td { font-weight: bold; font-size: 14px; padding-top: 4px; }
  .footer { text-align: center; margin-top: 10px; }
  @media print { body { width: auto; } }
</style>
</head>
<body onload="window.print()">
<h1>CHEGOU PIZZA</h1>
<p class="sub">Pedido #{{printf "%03d" .OrderNumber}}<br>{{.CreatedAt}}</p>
<hr>
<p>
Cliente: {{.CustomerName}}<br>
{{if .CustomerPhone}}Telefone: {{.CustomerPhone}}<br>{{end}}
{{if .CustomerAddress}}Endere&ccedil;o: {{.CustomerAddress}}<br>{{end}}
{{if .PaymentMethod}}Pagamento: {{.PaymentMethod}}{{end}}
</p>
<hr>
<table>
{{range .Items}}
<tr><td>{{.Quantity}}x {{.Name}}</td><td class="amount">{{.Subtotal}}</td></tr>
{{if .Notes}}<tr><td class="notes" colspan="2">{{.Notes}}</td></tr>{{end}}
{{end}}
{{if ne .DeliveryFee "0.00"}}<tr><td>Taxa de entrega</td><td class="amount">{{.DeliveryFee}}</td></tr>{{end}}
<tr class="total"><td>TOTAL</td><td class="amount">{{.Total}}</td></tr>
{{if ne .ChangeDue "0.00"}}<tr><td>Troco</td><td class="amount">{{.ChangeDue}}</td></tr>{{end}}
</table>
<hr>
<p class="footer">Obrigado pela prefer&ecirc;ncia!</p>
</body>
</html>
`))
