package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrCustomerNameRequired = errors.New("customer_name is required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductUnavailable   = errors.New("product is not available")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidDeliveryFee   = errors.New("invalid delivery_fee")
	ErrInvalidCashGiven     = errors.New("cash_given must cover the order total")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOrderFinalized       = errors.New("order is already finalized")
	ErrStatusConflict       = errors.New("order status changed concurrently")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatusIfCurrent(ctx context.Context, arg database.UpdateOrderStatusIfCurrentParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListRecipeIngredientsByProduct(ctx context.Context, productID uuid.UUID) ([]database.RecipeIngredientDetailRow, error)
	DecrementStockFloor(ctx context.Context, arg database.DecrementStockFloorParams) error
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CreatedBy       uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	PaymentMethod   string
	DeliveryFee     string
	CashGiven       string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order. SecondHalfID marks a
// half-and-half pizza: the line is priced at the average of the two halves
// and carries no product reference of its own.
type CreateOrderItemRequest struct {
	ProductID    string
	SecondHalfID string
	Quantity     int32
	Notes        string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// processedItem holds a prepared order item insert.
type processedItem struct {
	params database.CreateOrderItemParams
}

// CreateOrder validates, prices the items, and creates an order atomically.
// Retries up to maxOrderNumberRetries times on order_number unique constraint
// violations (race condition where concurrent transactions get the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.CustomerName == "" {
		return nil, ErrCustomerNameRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.PaymentMethod != "" && !isValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the per-day order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_day_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	orderNumber, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	// --- Process items: validate + price ---
	itemsTotal := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		first, err := s.fetchAvailableProduct(ctx, store, productID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		name := first.Name
		unitPrice := numericToDecimal(first.Price)
		itemProductID := pgtype.UUID{Bytes: productID, Valid: true}

		if item.SecondHalfID != "" {
			secondID, err := uuid.Parse(item.SecondHalfID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
			}
			second, err := s.fetchAvailableProduct(ctx, store, secondID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, err)
			}
			// Half-and-half lines keep no product reference: neither half's
			// recipe describes the combined pizza.
			name = "1/2 " + first.Name + " + 1/2 " + second.Name
			unitPrice = unitPrice.Add(numericToDecimal(second.Price)).Div(decimal.NewFromInt(2))
			itemProductID = pgtype.UUID{}
		}

		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		itemsTotal = itemsTotal.Add(subtotal)

		notes := pgtype.Text{}
		if item.Notes != "" {
			notes = pgtype.Text{String: item.Notes, Valid: true}
		}

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				ProductID:   itemProductID,
				ProductName: name,
				Quantity:    item.Quantity,
				UnitPrice:   decimalToNumeric(unitPrice),
				Subtotal:    decimalToNumeric(subtotal),
				Notes:       notes,
			},
		})
	}

	// --- Delivery fee + total ---
	deliveryFee := decimal.Zero
	if req.DeliveryFee != "" {
		deliveryFee, err = decimal.NewFromString(req.DeliveryFee)
		if err != nil || deliveryFee.IsNegative() {
			return nil, ErrInvalidDeliveryFee
		}
	}
	totalAmount := itemsTotal.Add(deliveryFee)

	// --- Change due ---
	changeDue := decimal.Zero
	if req.CashGiven != "" {
		cashGiven, err := decimal.NewFromString(req.CashGiven)
		if err != nil || cashGiven.LessThan(totalAmount) {
			return nil, ErrInvalidCashGiven
		}
		changeDue = cashGiven.Sub(totalAmount)
	}

	paymentMethod := pgtype.Text{}
	if req.PaymentMethod != "" {
		paymentMethod = pgtype.Text{String: req.PaymentMethod, Valid: true}
	}
	customerPhone := pgtype.Text{}
	if req.CustomerPhone != "" {
		customerPhone = pgtype.Text{String: req.CustomerPhone, Valid: true}
	}
	customerAddress := pgtype.Text{}
	if req.CustomerAddress != "" {
		customerAddress = pgtype.Text{String: req.CustomerAddress, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     orderNumber,
		CustomerName:    req.CustomerName,
		CustomerPhone:   customerPhone,
		CustomerAddress: customerAddress,
		PaymentMethod:   paymentMethod,
		DeliveryFee:     decimalToNumeric(deliveryFee),
		ChangeDue:       decimalToNumeric(changeDue),
		TotalAmount:     decimalToNumeric(totalAmount),
		Status:          enum.OrderStatusNew,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemResults []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemResults = append(itemResults, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order: order,
		Items: itemResults,
	}, nil
}

func (s *OrderService) fetchAvailableProduct(ctx context.Context, store OrderStore, id uuid.UUID) (database.Product, error) {
	product, err := store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Product{}, ErrProductNotFound
		}
		return database.Product{}, fmt.Errorf("get product: %w", err)
	}
	if !product.Available {
		return database.Product{}, ErrProductUnavailable
	}
	return product, nil
}

// AdvanceOrder moves an order to the next stage. The whole transition runs in
// one transaction with the order row locked, so the DELIVERED side effects
// (income ledger entry, stock consumption) happen exactly once no matter how
// many concurrent or repeated calls arrive.
//
// Allowed transitions: the immediate next stage in the forward flow, or
// CANCELLED from any non-terminal stage. Repeating the order's current status
// is a no-op.
func (s *OrderService) AdvanceOrder(ctx context.Context, orderID uuid.UUID, next string) (*database.Order, error) {
	if !isValidOrderStatus(next) {
		return nil, ErrInvalidTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	// Re-requesting the current status is idempotent: no transition, no
	// side effects. Delivery confirmations get retried by flaky clients.
	if order.Status == next {
		return &order, nil
	}
	if isTerminalStatus(order.Status) {
		return nil, ErrOrderFinalized
	}
	if next != enum.OrderStatusCancelled && next != stageAfter(order.Status) {
		return nil, ErrInvalidTransition
	}

	updated, err := store.UpdateOrderStatusIfCurrent(ctx, database.UpdateOrderStatusIfCurrentParams{
		ID:            orderID,
		Status:        next,
		CurrentStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if next == enum.OrderStatusDelivered {
		if err := s.applyCompletionEffects(ctx, store, updated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// applyCompletionEffects records the sale in the ledger and consumes recipe
// ingredients from stock. Runs inside the transition transaction.
func (s *OrderService) applyCompletionEffects(ctx context.Context, store OrderStore, order database.Order) error {
	_, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
		Description:   fmt.Sprintf("Order #%03d - %s", order.OrderNumber, order.CustomerName),
		Amount:        order.TotalAmount,
		Type:          enum.TransactionTypeIncome,
		Category:      enum.CategoryDirectSales,
		Date:          pgtype.Date{Time: time.Now(), Valid: true},
		PaymentMethod: order.PaymentMethod,
		OrderID:       pgtype.UUID{Bytes: order.ID, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("record order income: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		// Half-and-half lines have no product reference, so no recipe to
		// consume.
		if !item.ProductID.Valid {
			continue
		}
		ingredients, err := store.ListRecipeIngredientsByProduct(ctx, uuid.UUID(item.ProductID.Bytes))
		if err != nil {
			return fmt.Errorf("list recipe ingredients: %w", err)
		}
		qty := decimal.NewFromInt32(item.Quantity)
		for _, ing := range ingredients {
			amount := numericToDecimal(ing.Quantity).Mul(qty)
			err := store.DecrementStockFloor(ctx, database.DecrementStockFloorParams{
				ID:     ing.StockItemID,
				Amount: quantityToNumeric(amount),
			})
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}
	}
	return nil
}

// --- Helpers ---

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusNew, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusOutForDelivery, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func isTerminalStatus(s string) bool {
	return s == enum.OrderStatusDelivered || s == enum.OrderStatusCancelled
}

// stageAfter returns the next stage in the forward flow, or "" when there is
// none.
func stageAfter(current string) string {
	for i, s := range enum.StageFlow {
		if s == current && i+1 < len(enum.StageFlow) {
			return enum.StageFlow[i+1]
		}
	}
	return ""
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodPix, enum.PaymentMethodTransfer:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// quantityToNumeric keeps the decimal's own scale. Stock and recipe
// quantities carry three decimal places and must not be rounded to money
// precision.
func quantityToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
