package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID when none was set by the caller
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Client is a customer developments and orders are billed to
type Client struct {
	BaseModel
	Name       string  `gorm:"type:varchar(200);not null;index"`
	Email      string  `gorm:"type:varchar(255)"`
	Phone      string  `gorm:"type:varchar(50)"`
	Address    string  `gorm:"type:varchar(500)"`
	City       string  `gorm:"type:varchar(100)"`
	TaxID      string  `gorm:"type:varchar(20);column:tax_id"`
	ExternalID *string `gorm:"type:varchar(50);uniqueIndex;column:external_id"`
	Notes      string  `gorm:"type:text"`
	IsActive   bool    `gorm:"not null;column:is_active"`
}

// DevelopmentStatus represents the contract state of a development
type DevelopmentStatus string

const (
	DevelopmentStatusActive    DevelopmentStatus = "active"
	DevelopmentStatusSuspended DevelopmentStatus = "suspended"
	DevelopmentStatusCancelled DevelopmentStatus = "cancelled"
	DevelopmentStatusCompleted DevelopmentStatus = "completed"
)

func (s DevelopmentStatus) IsValid() bool {
	switch s {
	case DevelopmentStatusActive, DevelopmentStatusSuspended, DevelopmentStatusCancelled, DevelopmentStatusCompleted:
		return true
	}
	return false
}

// IsClosed reports whether the contract has ended for good
func (s DevelopmentStatus) IsClosed() bool {
	return s == DevelopmentStatusCancelled || s == DevelopmentStatusCompleted
}

// Development is a contracted installation site paying a recurring monthly fee
type Development struct {
	BaseModel
	Name                  string            `gorm:"type:varchar(200);not null;index"`
	Address               string            `gorm:"type:varchar(500)"`
	ClientID              *uuid.UUID        `gorm:"type:uuid;column:client_id;index"`
	Client                *Client           `gorm:"foreignKey:ClientID"`
	ContactName           string            `gorm:"type:varchar(200);column:contact_name"`
	ContactPhone          string            `gorm:"type:varchar(50);column:contact_phone"`
	ContactEmail          string            `gorm:"type:varchar(255);column:contact_email"`
	ContractStartDate     time.Time         `gorm:"type:date;not null;column:contract_start_date"`
	DurationMonths        int               `gorm:"not null;column:duration_months"`
	MonthlyPayment        decimal.Decimal   `gorm:"type:decimal(14,2);not null;column:monthly_payment"`
	PaymentDay            int               `gorm:"not null;column:payment_day"`
	ServiceDay            int               `gorm:"not null;column:service_day"`
	AutoGenerateOrders    bool              `gorm:"not null;column:auto_generate_orders"`
	HasInvestor           bool              `gorm:"not null;default:false;column:has_investor"`
	InvestorName          string            `gorm:"type:varchar(200);column:investor_name"`
	InvestorAmount        decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0;column:investor_amount"`
	InvestorProfitPercent decimal.Decimal   `gorm:"type:decimal(5,2);not null;default:0;column:investor_profit_percent"`
	Status                DevelopmentStatus `gorm:"type:varchar(50);not null;default:'active';index"`
	Notes                 string            `gorm:"type:text"`
	LeadID                *uuid.UUID        `gorm:"type:uuid;column:lead_id"`
	CreatedByID           string            `gorm:"type:varchar(100);column:created_by_id"`
	CreatedByName         string            `gorm:"type:varchar(200);column:created_by_name"`
	Loan                  *InvestorLoan     `gorm:"foreignKey:DevelopmentID"`
}

// LoanStatus is the lifecycle of an investor loan: active -> recovered -> earning -> completed
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusRecovered LoanStatus = "recovered"
	LoanStatusEarning   LoanStatus = "earning"
	LoanStatusCompleted LoanStatus = "completed"
)

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusActive, LoanStatusRecovered, LoanStatusEarning, LoanStatusCompleted:
		return true
	}
	return false
}

// InvestorLoan tracks the principal an investor put into a development.
// There is exactly one per development with HasInvestor set.
type InvestorLoan struct {
	BaseModel
	DevelopmentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex;column:development_id"`
	Development       *Development    `gorm:"foreignKey:DevelopmentID"`
	InvestorName      string          `gorm:"type:varchar(200);column:investor_name"`
	Principal         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ProfitPercent     decimal.Decimal `gorm:"type:decimal(5,2);not null;column:profit_percent"`
	MonthlyPayment    decimal.Decimal `gorm:"type:decimal(14,2);not null;column:monthly_payment"`
	RecoveryMonths    int             `gorm:"not null;column:recovery_months"`
	RecoveredAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:recovered_amount"`
	EarnedAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:earned_amount"`
	ProfitCollections int             `gorm:"not null;default:0;column:profit_collections"`
	Status            LoanStatus      `gorm:"type:varchar(50);not null;default:'active';index"`
	RecoveredAt       *time.Time      `gorm:"column:recovered_at"`
	CompletedAt       *time.Time      `gorm:"column:completed_at"`
}

// PaymentStatus of a scheduled payment. Overdue is never stored: it is derived
// from a pending payment whose due date has passed.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod records how a payment was collected
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodCard     PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodCard:
		return true
	}
	return false
}

// ScheduledPayment is the monthly fee of one contract month, split between investor and company
type ScheduledPayment struct {
	BaseModel
	DevelopmentID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_scheduled_payments_development_period;column:development_id"`
	Development     *Development    `gorm:"foreignKey:DevelopmentID"`
	Period          string          `gorm:"type:varchar(7);not null;uniqueIndex:idx_scheduled_payments_development_period"`
	PeriodIndex     int             `gorm:"not null;column:period_index"`
	DueDate         time.Time       `gorm:"type:date;not null;index;column:due_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	InvestorPortion decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:investor_portion"`
	CompanyPortion  decimal.Decimal `gorm:"type:decimal(14,2);not null;column:company_portion"`
	IsRecovery      bool            `gorm:"not null;default:false;column:is_recovery"`
	Status          PaymentStatus   `gorm:"type:varchar(50);not null;default:'pending';index"`
	PaidAt          *time.Time      `gorm:"type:date;column:paid_at"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(50);column:payment_method"`
	Reference       string          `gorm:"type:varchar(100)"`
	IncomeID        *uuid.UUID      `gorm:"type:uuid;column:income_id"`
	CollectedByID   string          `gorm:"type:varchar(100);column:collected_by_id"`
	CollectedByName string          `gorm:"type:varchar(200);column:collected_by_name"`
	Notes           string          `gorm:"type:text"`
}

// ServiceOrderStatus of a scheduled service visit
type ServiceOrderStatus string

const (
	ServiceOrderStatusPending   ServiceOrderStatus = "pending"
	ServiceOrderStatusGenerated ServiceOrderStatus = "generated"
	ServiceOrderStatusCancelled ServiceOrderStatus = "cancelled"
	// ServiceOrderStatusSkipped marks visits whose date had passed when the schedule was generated
	ServiceOrderStatusSkipped ServiceOrderStatus = "skipped"
)

// ScheduledServiceOrder is the monthly maintenance visit of a contract month.
// It links to an Order once materialized.
type ScheduledServiceOrder struct {
	BaseModel
	DevelopmentID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_scheduled_orders_development_period;column:development_id"`
	Development   *Development       `gorm:"foreignKey:DevelopmentID"`
	Period        string             `gorm:"type:varchar(7);not null;uniqueIndex:idx_scheduled_orders_development_period"`
	PeriodIndex   int                `gorm:"not null;column:period_index"`
	ServiceDate   time.Time          `gorm:"type:date;not null;index;column:service_date"`
	Status        ServiceOrderStatus `gorm:"type:varchar(50);not null;default:'pending';index"`
	OrderID       *uuid.UUID         `gorm:"type:uuid;column:order_id"`
}

// OrderStatus is the lifecycle of a field-service order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusScheduled  OrderStatus = "scheduled"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusScheduled, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusScheduled, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusScheduled:  {OrderStatusInProgress, OrderStatusPending, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransitionTo reports whether an order may move from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderType classifies field-service work
type OrderType string

const (
	OrderTypeMaintenance  OrderType = "maintenance"
	OrderTypeInstallation OrderType = "installation"
	OrderTypeRepair       OrderType = "repair"
	OrderTypeInspection   OrderType = "inspection"
)

func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeMaintenance, OrderTypeInstallation, OrderTypeRepair, OrderTypeInspection:
		return true
	}
	return false
}

// Order is a unit of field-service work identified by a yearly sequential number
type Order struct {
	BaseModel
	OrderNumber             string          `gorm:"type:varchar(50);not null;uniqueIndex;column:order_number"`
	Type                    OrderType       `gorm:"type:varchar(50);not null;default:'maintenance';index"`
	Title                   string          `gorm:"type:varchar(200);not null"`
	Description             string          `gorm:"type:text"`
	Status                  OrderStatus     `gorm:"type:varchar(50);not null;default:'pending';index"`
	ClientID                *uuid.UUID      `gorm:"type:uuid;column:client_id;index"`
	Client                  *Client         `gorm:"foreignKey:ClientID"`
	DevelopmentID           *uuid.UUID      `gorm:"type:uuid;column:development_id;index"`
	Development             *Development    `gorm:"foreignKey:DevelopmentID"`
	ScheduledServiceOrderID *uuid.UUID      `gorm:"type:uuid;uniqueIndex;column:scheduled_service_order_id"`
	ScheduledDate           *time.Time      `gorm:"type:date;column:scheduled_date;index"`
	CompletedAt             *time.Time      `gorm:"column:completed_at"`
	AssignedTo              string          `gorm:"type:varchar(200);column:assigned_to"`
	Address                 string          `gorm:"type:varchar(500)"`
	Amount                  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedByID             string          `gorm:"type:varchar(100);column:created_by_id"`
	CreatedByName           string          `gorm:"type:varchar(200);column:created_by_name"`
}

// Income is a billing record. Collected development payments post one each.
type Income struct {
	BaseModel
	Date          time.Time       `gorm:"type:date;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Category      string          `gorm:"type:varchar(50);not null;index"`
	Description   string          `gorm:"type:varchar(500)"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;column:client_id;index"`
	DevelopmentID *uuid.UUID      `gorm:"type:uuid;column:development_id;index"`
	PaymentID     *uuid.UUID      `gorm:"type:uuid;uniqueIndex;column:payment_id"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(50);column:payment_method"`
	Reference     string          `gorm:"type:varchar(100)"`
	CreatedByID   string          `gorm:"type:varchar(100);column:created_by_id"`
}

// NumberSequence is a per-prefix, per-year counter for human readable numbers
type NumberSequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix       string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_number_sequences_prefix_year"`
	Year         int       `gorm:"not null;uniqueIndex:idx_number_sequences_prefix_year"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionCollect AuditAction = "collect"
	AuditActionReverse AuditAction = "reverse"
	AuditActionConvert AuditAction = "convert"
	AuditActionExport  AuditAction = "export"
	AuditActionImport  AuditAction = "import"
	AuditActionAPICall AuditAction = "api_call"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID      string      `gorm:"type:varchar(100);column:user_id;index"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email"`
	UserName    string      `gorm:"type:varchar(200);column:user_name"`
	Action      AuditAction `gorm:"type:varchar(50);not null;index"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type;index"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id;index"`
	EntityName  string      `gorm:"type:varchar(200);column:entity_name"`
	NewValues   string      `gorm:"type:text;column:new_values"`
	IPAddress   string      `gorm:"type:varchar(64);column:ip_address"`
	UserAgent   string      `gorm:"type:text;column:user_agent"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	Metadata    string      `gorm:"type:text"`
	PerformedAt time.Time   `gorm:"not null;column:performed_at;index"`
	CreatedAt   time.Time   `gorm:"not null"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
