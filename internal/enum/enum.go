package enum

// ── Group A: State machines (CHECK constrained in DB) ──

// Order fulfillment stages, in forward order. CANCELLED sits outside the
// forward flow and is excluded from active board listings.
const (
	OrderStatusNew            = "NEW"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// StageFlow is the forward-advance sequence. Advance moves an order from
// StageFlow[i] to StageFlow[i+1]; the last entry is terminal.
var StageFlow = []string{
	OrderStatusNew,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

const (
	CashSessionOpen   = "OPEN"
	CashSessionClosed = "CLOSED"
)

const (
	TransactionTypeIncome  = "INCOME"
	TransactionTypeExpense = "EXPENSE"
)

const (
	ContractTypeSalaried = "SALARIED"
	ContractTypeDaily    = "DAILY"
	ContractTypeHourly   = "HOURLY"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin = "ADMIN"
	UserRoleStaff = "STAFF"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodPix      = "PIX"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	CategoryDirectSales    = "Direct Sales"
	CategoryHumanResources = "Human Resources"
	CategoryExtraIncome    = "Extra Income"
	CategoryOperational    = "Operational Expense"
)
