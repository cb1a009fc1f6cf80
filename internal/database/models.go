package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	CreatedAt      time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Category    pgtype.Text
	Available   bool
	ImageURL    pgtype.Text
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type StockItem struct {
	ID          uuid.UUID
	Code        pgtype.Text
	Name        string
	Category    pgtype.Text
	Unit        string
	Quantity    pgtype.Numeric
	CostPerUnit pgtype.Numeric
	MinQuantity pgtype.Numeric
	Supplier    pgtype.Text
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RecipeIngredient struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	StockItemID uuid.UUID
	Quantity    pgtype.Numeric
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     int32
	CustomerName    string
	CustomerPhone   pgtype.Text
	CustomerAddress pgtype.Text
	PaymentMethod   pgtype.Text
	DeliveryFee     pgtype.Numeric
	ChangeDue       pgtype.Numeric
	TotalAmount     pgtype.Numeric
	Status          string
	CompletedAt     pgtype.Timestamptz
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   pgtype.UUID
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Notes       pgtype.Text
}

type Transaction struct {
	ID             uuid.UUID
	Description    string
	Amount         pgtype.Numeric
	Type           string
	Category       string
	Date           pgtype.Date
	DueDate        pgtype.Date
	PaymentMethod  pgtype.Text
	AttachmentName pgtype.Text
	AttachmentURL  pgtype.Text
	OrderID        pgtype.UUID
	CreatedAt      time.Time
}

type Employee struct {
	ID             uuid.UUID
	Name           string
	Position       string
	ContractType   string
	BaseSalary     pgtype.Numeric
	CommissionRate pgtype.Numeric
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PayrollEvent struct {
	ID          uuid.UUID
	EmployeeID  uuid.UUID
	Month       string
	WorkedDays  pgtype.Numeric
	WorkedHours pgtype.Numeric
	CustomRate  pgtype.Numeric
	ExtraHours  pgtype.Numeric
	SalesAmount pgtype.Numeric
	Bonus       pgtype.Numeric
	Discounts   pgtype.Numeric
}

type CashSession struct {
	ID              uuid.UUID
	Responsible     string
	OpeningFloat    pgtype.Numeric
	CountedCash     pgtype.Numeric
	ExpectedBalance pgtype.Numeric
	Variance        pgtype.Numeric
	Status          string
	OpenedBy        uuid.UUID
	OpenedAt        time.Time
	ClosedAt        pgtype.Timestamptz
}
