package service

import (
	"context"
	"errors"
	"testing"

	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn func(ctx context.Context) (int32, error)
	getProductFn         func(ctx context.Context, id uuid.UUID) (database.Product, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn    func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderForUpdateFn  func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateStatusFn       func(ctx context.Context, arg database.UpdateOrderStatusIfCurrentParams) (database.Order, error)
	listOrderItemsFn     func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listIngredientsFn    func(ctx context.Context, productID uuid.UUID) ([]database.RecipeIngredientDetailRow, error)
	decrementStockFn     func(ctx context.Context, arg database.DecrementStockFloorParams) error
	createTransactionFn  func(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context) (int32, error) {
	return m.getNextOrderNumberFn(ctx)
}
func (m *mockOrderStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderStatusIfCurrent(ctx context.Context, arg database.UpdateOrderStatusIfCurrentParams) (database.Order, error) {
	return m.updateStatusFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) ListRecipeIngredientsByProduct(ctx context.Context, productID uuid.UUID) ([]database.RecipeIngredientDetailRow, error) {
	return m.listIngredientsFn(ctx, productID)
}
func (m *mockOrderStore) DecrementStockFloor(ctx context.Context, arg database.DecrementStockFloorParams) error {
	return m.decrementStockFn(ctx, arg)
}
func (m *mockOrderStore) CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error) {
	return m.createTransactionFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// defaultStore returns a mockOrderStore with sensible defaults for a basic
// order. Individual tests override the functions they care about.
func defaultStore(products map[uuid.UUID]database.Product) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context) (int32, error) {
			return 1, nil
		},
		getProductFn: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			if p, ok := products[id]; ok {
				return p, nil
			}
			return database.Product{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:            uuid.New(),
				OrderNumber:   arg.OrderNumber,
				CustomerName:  arg.CustomerName,
				PaymentMethod: arg.PaymentMethod,
				DeliveryFee:   arg.DeliveryFee,
				ChangeDue:     arg.ChangeDue,
				TotalAmount:   arg.TotalAmount,
				Status:        arg.Status,
				CreatedBy:     arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:          uuid.New(),
				OrderID:     arg.OrderID,
				ProductID:   arg.ProductID,
				ProductName: arg.ProductName,
				Quantity:    arg.Quantity,
				UnitPrice:   arg.UnitPrice,
				Subtotal:    arg.Subtotal,
				Notes:       arg.Notes,
			}, nil
		},
	}
}

func pizzaProduct(id uuid.UUID, name, price string) database.Product {
	return database.Product{ID: id, Name: name, Price: makeNumeric(price), Available: true}
}

func basicReq(productID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Maria",
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	store := defaultStore(nil)
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Maria",
		Items:        nil,
	})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestCreateOrder_MissingCustomerName(t *testing.T) {
	store := defaultStore(nil)
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy: uuid.New(),
		Items: []CreateOrderItemRequest{
			{ProductID: uuid.New().String(), Quantity: 1},
		},
	})
	if !errors.Is(err, ErrCustomerNameRequired) {
		t.Fatalf("expected ErrCustomerNameRequired, got: %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Margherita", "45.00"),
	})
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Maria",
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 0},
		},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_InvalidPaymentMethod(t *testing.T) {
	store := defaultStore(nil)
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:     uuid.New(),
		CustomerName:  "Maria",
		PaymentMethod: "BARTER",
		Items: []CreateOrderItemRequest{
			{ProductID: uuid.New().String(), Quantity: 1},
		},
	})
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got: %v", err)
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	store := defaultStore(nil) // store knows no products
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(uuid.New()))
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestCreateOrder_ProductUnavailable(t *testing.T) {
	productID := uuid.New()
	p := pizzaProduct(productID, "Calabresa", "50.00")
	p.Available = false
	store := defaultStore(map[uuid.UUID]database.Product{productID: p})
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(productID))
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got: %v", err)
	}
}

// =====================
// Price calculation tests
// =====================

func TestCreateOrder_BasicPrice(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Margherita", "45.00"),
	})

	var capturedOrder database.CreateOrderParams
	prevCreate := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		capturedOrder = arg
		return prevCreate(ctx, arg)
	}
	var capturedItem database.CreateOrderItemParams
	prevItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		capturedItem = arg
		return prevItem(ctx, arg)
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), basicReq(productID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(capturedItem.UnitPrice, "45.00") {
		t.Errorf("item unit_price: got %v, want 45.00", numericToDecimal(capturedItem.UnitPrice))
	}
	// subtotal = 45 * 2 = 90
	if !numericEquals(capturedItem.Subtotal, "90.00") {
		t.Errorf("item subtotal: got %v, want 90.00", numericToDecimal(capturedItem.Subtotal))
	}
	if !numericEquals(capturedOrder.TotalAmount, "90.00") {
		t.Errorf("order total: got %v, want 90.00", numericToDecimal(capturedOrder.TotalAmount))
	}
	if capturedOrder.Status != enum.OrderStatusNew {
		t.Errorf("order status: got %v, want NEW", capturedOrder.Status)
	}
}

func TestCreateOrder_HalfAndHalf(t *testing.T) {
	firstID := uuid.New()
	secondID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		firstID:  pizzaProduct(firstID, "Margherita", "45.00"),
		secondID: pizzaProduct(secondID, "Quatro Queijos", "55.00"),
	})

	var capturedItem database.CreateOrderItemParams
	prevItem := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		capturedItem = arg
		return prevItem(ctx, arg)
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Maria",
		Items: []CreateOrderItemRequest{
			{ProductID: firstID.String(), SecondHalfID: secondID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedItem.ProductName != "1/2 Margherita + 1/2 Quatro Queijos" {
		t.Errorf("item name: got %q", capturedItem.ProductName)
	}
	// unit price = (45 + 55) / 2 = 50
	if !numericEquals(capturedItem.UnitPrice, "50.00") {
		t.Errorf("unit_price: got %v, want 50.00", numericToDecimal(capturedItem.UnitPrice))
	}
	// half-and-half lines carry no product reference
	if capturedItem.ProductID.Valid {
		t.Error("half-and-half item should have NULL product_id")
	}
}

func TestCreateOrder_DeliveryFeeAndChange(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Calabresa", "50.00"),
	})

	var capturedOrder database.CreateOrderParams
	prevCreate := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		capturedOrder = arg
		return prevCreate(ctx, arg)
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:     uuid.New(),
		CustomerName:  "Maria",
		PaymentMethod: enum.PaymentMethodCash,
		DeliveryFee:   "8.00",
		CashGiven:     "100.00",
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// total = 50 + 8 delivery = 58
	if !numericEquals(capturedOrder.TotalAmount, "58.00") {
		t.Errorf("order total: got %v, want 58.00", numericToDecimal(capturedOrder.TotalAmount))
	}
	// change = 100 - 58 = 42
	if !numericEquals(capturedOrder.ChangeDue, "42.00") {
		t.Errorf("change_due: got %v, want 42.00", numericToDecimal(capturedOrder.ChangeDue))
	}
}

func TestCreateOrder_CashGivenBelowTotal(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Calabresa", "50.00"),
	})
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Maria",
		CashGiven:    "30.00",
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 1},
		},
	})
	if !errors.Is(err, ErrInvalidCashGiven) {
		t.Fatalf("expected ErrInvalidCashGiven, got: %v", err)
	}
}

func TestCreateOrder_NegativeDeliveryFee(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Calabresa", "50.00"),
	})
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Maria",
		DeliveryFee:  "-5",
		Items: []CreateOrderItemRequest{
			{ProductID: productID.String(), Quantity: 1},
		},
	})
	if !errors.Is(err, ErrInvalidDeliveryFee) {
		t.Fatalf("expected ErrInvalidDeliveryFee, got: %v", err)
	}
}

// =====================
// Order number generation tests
// =====================

func TestCreateOrder_SequentialNumber(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Margherita", "45.00"),
	})
	store.getNextOrderNumberFn = func(ctx context.Context) (int32, error) {
		return 42, nil
	}

	var capturedOrder database.CreateOrderParams
	prevCreate := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		capturedOrder = arg
		return prevCreate(ctx, arg)
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(productID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedOrder.OrderNumber != 42 {
		t.Errorf("order number: got %d, want 42", capturedOrder.OrderNumber)
	}
	if result.Order.OrderNumber != 42 {
		t.Errorf("result order number: got %d, want 42", result.Order.OrderNumber)
	}
}

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Margherita", "45.00"),
	})

	createCallCount := 0
	prevCreate := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCallCount++
		if createCallCount == 1 {
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_day_order_number_key",
			}
		}
		return prevCreate(ctx, arg)
	}

	orderNumCallCount := 0
	store.getNextOrderNumberFn = func(ctx context.Context) (int32, error) {
		orderNumCallCount++
		return int32(orderNumCallCount), nil
	}

	svc, _ := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), basicReq(productID))
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if createCallCount != 2 {
		t.Errorf("expected 2 CreateOrder calls (1 fail + 1 success), got %d", createCallCount)
	}
	if orderNumCallCount != 2 {
		t.Errorf("expected 2 GetNextOrderNumber calls, got %d", orderNumCallCount)
	}
}

func TestCreateOrder_NonUniqueErrorNotRetried(t *testing.T) {
	productID := uuid.New()
	store := defaultStore(map[uuid.UUID]database.Product{
		productID: pizzaProduct(productID, "Margherita", "45.00"),
	})

	callCount := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		callCount++
		return database.Order{}, errors.New("some other DB error")
	}

	svc, _ := newTestService(store)
	_, err := svc.CreateOrder(context.Background(), basicReq(productID))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("non-unique errors should not retry: expected 1 call, got %d", callCount)
	}
}

// =====================
// Status transition tests
// =====================

// advanceStore wires an in-memory order through the transition path and
// counts side effects.
type advanceStore struct {
	*mockOrderStore
	order            database.Order
	transactionCount int
	decrements       []database.DecrementStockFloorParams
}

func newAdvanceStore(order database.Order, items []database.OrderItem,
	ingredients map[uuid.UUID][]database.RecipeIngredientDetailRow) *advanceStore {
	as := &advanceStore{order: order}
	as.mockOrderStore = &mockOrderStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id != as.order.ID {
				return database.Order{}, pgx.ErrNoRows
			}
			return as.order, nil
		},
		updateStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusIfCurrentParams) (database.Order, error) {
			if arg.ID != as.order.ID || as.order.Status != arg.CurrentStatus {
				return database.Order{}, pgx.ErrNoRows
			}
			as.order.Status = arg.Status
			return as.order, nil
		},
		listOrderItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return items, nil
		},
		listIngredientsFn: func(ctx context.Context, productID uuid.UUID) ([]database.RecipeIngredientDetailRow, error) {
			return ingredients[productID], nil
		},
		decrementStockFn: func(ctx context.Context, arg database.DecrementStockFloorParams) error {
			as.decrements = append(as.decrements, arg)
			return nil
		},
		createTransactionFn: func(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error) {
			as.transactionCount++
			return database.Transaction{ID: uuid.New(), Description: arg.Description,
				Amount: arg.Amount, Type: arg.Type, Category: arg.Category}, nil
		},
	}
	return as
}

func testOrder(status string) database.Order {
	return database.Order{
		ID:           uuid.New(),
		OrderNumber:  7,
		CustomerName: "Maria",
		TotalAmount:  makeNumeric("58.00"),
		Status:       status,
	}
}

func TestAdvanceOrder_ForwardStep(t *testing.T) {
	store := newAdvanceStore(testOrder(enum.OrderStatusNew), nil, nil)
	svc, _ := newTestService(store.mockOrderStore)

	updated, err := svc.AdvanceOrder(context.Background(), store.order.ID, enum.OrderStatusPreparing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enum.OrderStatusPreparing {
		t.Errorf("status: got %v, want PREPARING", updated.Status)
	}
	if store.transactionCount != 0 {
		t.Errorf("no income should be recorded before delivery, got %d entries", store.transactionCount)
	}
}

func TestAdvanceOrder_SkipStageRejected(t *testing.T) {
	store := newAdvanceStore(testOrder(enum.OrderStatusNew), nil, nil)
	svc, _ := newTestService(store.mockOrderStore)

	_, err := svc.AdvanceOrder(context.Background(), store.order.ID, enum.OrderStatusReady)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestAdvanceOrder_BackwardRejected(t *testing.T) {
	store := newAdvanceStore(testOrder(enum.OrderStatusReady), nil, nil)
	svc, _ := newTestService(store.mockOrderStore)

	_, err := svc.AdvanceOrder(context.Background(), store.order.ID, enum.OrderStatusPreparing)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestAdvanceOrder_CancelFromAnyActiveStage(t *testing.T) {
	for _, status := range []string{enum.OrderStatusNew, enum.OrderStatusPreparing,
		enum.OrderStatusReady, enum.OrderStatusOutForDelivery} {
		store := newAdvanceStore(testOrder(status), nil, nil)
		svc, _ := newTestService(store.mockOrderStore)

		updated, err := svc.AdvanceOrder(context.Background(), store.order.ID, enum.OrderStatusCancelled)
		if err != nil {
			t.Fatalf("cancel from %s: unexpected error: %v", status, err)
		}
		if updated.Status != enum.OrderStatusCancelled {
			t.Errorf("cancel from %s: status got %v", status, updated.Status)
		}
		if store.transactionCount != 0 {
			t.Errorf("cancel from %s: cancellation must not record income", status)
		}
	}
}

func TestAdvanceOrder_CancelledStaysCancelled(t *testing.T) {
	store := newAdvanceStore(testOrder(enum.OrderStatusCancelled), nil, nil)
	svc, _ := newTestService(store.mockOrderStore)

	_, err := svc.AdvanceOrder(context.Background(), store.order.ID, enum.OrderStatusPreparing)
	if !errors.Is(err, ErrOrderFinalized) {
		t.Fatalf("expected ErrOrderFinalized, got: %v", err)
	}
}

func TestAdvanceOrder_NotFound(t *testing.T) {
	store := newAdvanceStore(testOrder(enum.OrderStatusNew), nil, nil)
	svc, _ := newTestService(store.mockOrderStore)

	_, err := svc.AdvanceOrder(context.Background(), uuid.New(), enum.OrderStatusPreparing)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

// =====================
// Completion side effect tests
// =====================

func TestAdvanceOrder_DeliveredRecordsIncomeAndConsumesStock(t *testing.T) {
	order := testOrder(enum.OrderStatusOutForDelivery)
	productID := uuid.New()
	flourID := uuid.New()
	cheeseID := uuid.New()

	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID,
			ProductID: pgtype.UUID{Bytes: productID, Valid: true},
			Quantity:  2},
	}
	ingredients := map[uuid.UUID][]database.RecipeIngredientDetailRow{
		productID: {
			{StockItemID: flourID, Quantity: makeNumeric("0.300")},
			{StockItemID: cheeseID, Quantity: makeNumeric("0.150")},
		},
	}

	store := newAdvanceStore(order, items, ingredients)
	svc, _ := newTestService(store.mockOrderStore)

	updated, err := svc.AdvanceOrder(context.Background(), order.ID, enum.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enum.OrderStatusDelivered {
		t.Errorf("status: got %v, want DELIVERED", updated.Status)
	}
	if store.transactionCount != 1 {
		t.Fatalf("expected exactly 1 income entry, got %d", store.transactionCount)
	}

	// 2 pizzas: flour 0.3*2=0.6, cheese 0.15*2=0.3
	if len(store.decrements) != 2 {
		t.Fatalf("expected 2 stock decrements, got %d", len(store.decrements))
	}
	byItem := map[uuid.UUID]string{}
	for _, d := range store.decrements {
		byItem[d.ID] = numericToDecimal(d.Amount).String()
	}
	if byItem[flourID] != "0.6" {
		t.Errorf("flour decrement: got %v, want 0.6", byItem[flourID])
	}
	if byItem[cheeseID] != "0.3" {
		t.Errorf("cheese decrement: got %v, want 0.3", byItem[cheeseID])
	}
}

func TestAdvanceOrder_DeliveredKeepsFractionalQuantities(t *testing.T) {
	order := testOrder(enum.OrderStatusOutForDelivery)
	productID := uuid.New()
	yeastID := uuid.New()

	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID,
			ProductID: pgtype.UUID{Bytes: productID, Valid: true},
			Quantity:  3},
	}
	ingredients := map[uuid.UUID][]database.RecipeIngredientDetailRow{
		productID: {{StockItemID: yeastID, Quantity: makeNumeric("0.125")}},
	}

	store := newAdvanceStore(order, items, ingredients)
	svc, _ := newTestService(store.mockOrderStore)

	if _, err := svc.AdvanceOrder(context.Background(), order.ID, enum.OrderStatusDelivered); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.decrements) != 1 {
		t.Fatalf("expected 1 stock decrement, got %d", len(store.decrements))
	}
	// 0.125 * 3 = 0.375; quantities carry three decimal places and must not
	// round to money precision.
	if got := numericToDecimal(store.decrements[0].Amount).String(); got != "0.375" {
		t.Errorf("yeast decrement: got %v, want 0.375", got)
	}
}

func TestAdvanceOrder_DeliveredTwiceIsIdempotent(t *testing.T) {
	order := testOrder(enum.OrderStatusOutForDelivery)
	productID := uuid.New()
	flourID := uuid.New()

	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID,
			ProductID: pgtype.UUID{Bytes: productID, Valid: true},
			Quantity:  1},
	}
	ingredients := map[uuid.UUID][]database.RecipeIngredientDetailRow{
		productID: {{StockItemID: flourID, Quantity: makeNumeric("0.300")}},
	}

	store := newAdvanceStore(order, items, ingredients)
	svc, _ := newTestService(store.mockOrderStore)

	if _, err := svc.AdvanceOrder(context.Background(), order.ID, enum.OrderStatusDelivered); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	// Second confirmation must not repeat the side effects.
	updated, err := svc.AdvanceOrder(context.Background(), order.ID, enum.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if updated.Status != enum.OrderStatusDelivered {
		t.Errorf("status: got %v, want DELIVERED", updated.Status)
	}
	if store.transactionCount != 1 {
		t.Errorf("income recorded %d times, want exactly 1", store.transactionCount)
	}
	if len(store.decrements) != 1 {
		t.Errorf("stock consumed %d times, want exactly 1", len(store.decrements))
	}
}

func TestAdvanceOrder_HalfAndHalfSkipsStockDeduction(t *testing.T) {
	order := testOrder(enum.OrderStatusOutForDelivery)

	// Half-and-half line: NULL product reference.
	items := []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, ProductID: pgtype.UUID{},
			ProductName: "1/2 Margherita + 1/2 Calabresa", Quantity: 1},
	}

	store := newAdvanceStore(order, items, nil)
	svc, _ := newTestService(store.mockOrderStore)

	_, err := svc.AdvanceOrder(context.Background(), order.ID, enum.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.decrements) != 0 {
		t.Errorf("half-and-half lines must not consume stock, got %d decrements", len(store.decrements))
	}
	if store.transactionCount != 1 {
		t.Errorf("income should still be recorded once, got %d", store.transactionCount)
	}
}

func TestAdvanceOrder_ConcurrentTransitionConflict(t *testing.T) {
	store := newAdvanceStore(testOrder(enum.OrderStatusNew), nil, nil)
	// Simulate another transaction winning between the read and the update.
	store.updateStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusIfCurrentParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store.mockOrderStore)

	_, err := svc.AdvanceOrder(context.Background(), store.order.ID, enum.OrderStatusPreparing)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got: %v", err)
	}
}
