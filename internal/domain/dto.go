package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dates are exchanged as YYYY-MM-DD strings, timestamps as ISO 8601.
// Money is exchanged as decimal strings ("1500.00") and accepted as strings or numbers.

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps list results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Clients

type ClientDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	TaxID      string    `json:"taxId,omitempty"`
	ExternalID string    `json:"externalId,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

type CreateClientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	City    string `json:"city,omitempty" validate:"max=100"`
	TaxID   string `json:"taxId,omitempty" validate:"max=20"`
	Notes   string `json:"notes,omitempty"`
}

type UpdateClientRequest struct {
	CreateClientRequest
	IsActive *bool `json:"isActive,omitempty"`
}

// ClientImportResultDTO reports an ERP customer import
type ClientImportResultDTO struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Developments

type DevelopmentDTO struct {
	ID                    uuid.UUID           `json:"id"`
	Name                  string              `json:"name"`
	Address               string              `json:"address,omitempty"`
	ClientID              *uuid.UUID          `json:"clientId,omitempty"`
	ClientName            string              `json:"clientName,omitempty"`
	ContactName           string              `json:"contactName,omitempty"`
	ContactPhone          string              `json:"contactPhone,omitempty"`
	ContactEmail          string              `json:"contactEmail,omitempty"`
	ContractStartDate     string              `json:"contractStartDate"`
	ContractEndDate       string              `json:"contractEndDate"`
	DurationMonths        int                 `json:"durationMonths"`
	MonthlyPayment        decimal.Decimal     `json:"monthlyPayment"`
	PaymentDay            int                 `json:"paymentDay"`
	ServiceDay            int                 `json:"serviceDay"`
	AutoGenerateOrders    bool                `json:"autoGenerateOrders"`
	HasInvestor           bool                `json:"hasInvestor"`
	InvestorName          string              `json:"investorName,omitempty"`
	InvestorAmount        decimal.Decimal     `json:"investorAmount"`
	InvestorProfitPercent decimal.Decimal     `json:"investorProfitPercent"`
	Status                DevelopmentStatus   `json:"status"`
	Notes                 string              `json:"notes,omitempty"`
	LeadID                *uuid.UUID          `json:"leadId,omitempty"`
	Loan                  *InvestorLoanDTO    `json:"loan,omitempty"`
	Schedule              *ScheduleSummaryDTO `json:"schedule,omitempty"`
	CreatedAt             string              `json:"createdAt"`
	UpdatedAt             string              `json:"updatedAt"`
}

type CreateDevelopmentRequest struct {
	Name                  string          `json:"name" validate:"required,max=200"`
	Address               string          `json:"address,omitempty" validate:"max=500"`
	ClientID              *uuid.UUID      `json:"clientId,omitempty"`
	ContactName           string          `json:"contactName,omitempty" validate:"max=200"`
	ContactPhone          string          `json:"contactPhone,omitempty" validate:"max=50"`
	ContactEmail          string          `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContractStartDate     string          `json:"contractStartDate" validate:"required,datetime=2006-01-02"`
	DurationMonths        int             `json:"durationMonths" validate:"required,gte=1,lte=600"`
	MonthlyPayment        decimal.Decimal `json:"monthlyPayment"`
	PaymentDay            int             `json:"paymentDay" validate:"required,gte=1,lte=31"`
	ServiceDay            int             `json:"serviceDay" validate:"required,gte=1,lte=31"`
	AutoGenerateOrders    *bool           `json:"autoGenerateOrders,omitempty"`
	HasInvestor           bool            `json:"hasInvestor"`
	InvestorName          string          `json:"investorName,omitempty" validate:"required_if=HasInvestor true,max=200"`
	InvestorAmount        decimal.Decimal `json:"investorAmount"`
	InvestorProfitPercent decimal.Decimal `json:"investorProfitPercent"`
	Notes                 string          `json:"notes,omitempty"`
}

// UpdateDevelopmentRequest edits a development. Changing the monthly payment or
// duration regenerates only the pending payments due from today on.
type UpdateDevelopmentRequest struct {
	Name               string           `json:"name" validate:"required,max=200"`
	Address            string           `json:"address,omitempty" validate:"max=500"`
	ClientID           *uuid.UUID       `json:"clientId,omitempty"`
	ContactName        string           `json:"contactName,omitempty" validate:"max=200"`
	ContactPhone       string           `json:"contactPhone,omitempty" validate:"max=50"`
	ContactEmail       string           `json:"contactEmail,omitempty" validate:"omitempty,email"`
	DurationMonths     int              `json:"durationMonths" validate:"required,gte=1,lte=600"`
	MonthlyPayment     decimal.Decimal  `json:"monthlyPayment"`
	AutoGenerateOrders *bool            `json:"autoGenerateOrders,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	InvestorName       *string          `json:"investorName,omitempty" validate:"omitempty,max=200"`
	ProfitPercent      *decimal.Decimal `json:"investorProfitPercent,omitempty"`
}

type UpdateDevelopmentStatusRequest struct {
	Status DevelopmentStatus `json:"status" validate:"required,oneof=active suspended cancelled completed"`
	Reason string            `json:"reason,omitempty" validate:"max=500"`
}

// ScheduleSummaryDTO aggregates a development's payments as seen today
type ScheduleSummaryDTO struct {
	TotalPayments     int             `json:"totalPayments"`
	Paid              int             `json:"paid"`
	Pending           int             `json:"pending"`
	Overdue           int             `json:"overdue"`
	Cancelled         int             `json:"cancelled"`
	CollectedAmount   decimal.Decimal `json:"collectedAmount"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
	OverdueAmount     decimal.Decimal `json:"overdueAmount"`
	NextDueDate       string          `json:"nextDueDate,omitempty"`
}

// DevelopmentScheduleDTO is the full payment and service calendar of a development
type DevelopmentScheduleDTO struct {
	DevelopmentID uuid.UUID                  `json:"developmentId"`
	Summary       ScheduleSummaryDTO         `json:"summary"`
	Payments      []ScheduledPaymentDTO      `json:"payments"`
	ServiceOrders []ScheduledServiceOrderDTO `json:"serviceOrders"`
}

// ScheduleGenerationDTO reports an idempotent schedule generation
type ScheduleGenerationDTO struct {
	DevelopmentID        uuid.UUID `json:"developmentId"`
	Periods              int       `json:"periods"`
	PaymentsCreated      int64     `json:"paymentsCreated"`
	ServiceOrdersCreated int64     `json:"serviceOrdersCreated"`
}

// Financing

type InvestorLoanDTO struct {
	ID                 uuid.UUID       `json:"id"`
	DevelopmentID      uuid.UUID       `json:"developmentId"`
	DevelopmentName    string          `json:"developmentName,omitempty"`
	InvestorName       string          `json:"investorName"`
	Principal          decimal.Decimal `json:"principal"`
	ProfitPercent      decimal.Decimal `json:"profitPercent"`
	MonthlyPayment     decimal.Decimal `json:"monthlyPayment"`
	RecoveryMonths     int             `json:"recoveryMonths"`
	RecoveredAmount    decimal.Decimal `json:"recoveredAmount"`
	EarnedAmount       decimal.Decimal `json:"earnedAmount"`
	RemainingPrincipal decimal.Decimal `json:"remainingPrincipal"`
	ProgressPercent    decimal.Decimal `json:"progressPercent"`
	Status             LoanStatus      `json:"status"`
	RecoveredAt        string          `json:"recoveredAt,omitempty"`
	CompletedAt        string          `json:"completedAt,omitempty"`
	CreatedAt          string          `json:"createdAt"`
}

// InvestorPositionDTO is one loan in the investor overview with its projection
type InvestorPositionDTO struct {
	InvestorLoanDTO
	DurationMonths      int             `json:"durationMonths"`
	MonthsElapsed       int             `json:"monthsElapsed"`
	PaymentsCollected   int             `json:"paymentsCollected"`
	ProjectedEarnings   decimal.Decimal `json:"projectedEarnings"`
	ProjectedTotal      decimal.Decimal `json:"projectedTotal"`
	RecoveredWithinTerm bool            `json:"recoveredWithinTerm"`
}

// InvestorOverviewDTO is the portfolio of all investor loans
type InvestorOverviewDTO struct {
	Positions      []InvestorPositionDTO `json:"positions"`
	TotalPrincipal decimal.Decimal       `json:"totalPrincipal"`
	TotalRecovered decimal.Decimal       `json:"totalRecovered"`
	TotalEarned    decimal.Decimal       `json:"totalEarned"`
	TotalRemaining decimal.Decimal       `json:"totalRemaining"`
	TotalProjected decimal.Decimal       `json:"totalProjectedEarnings"`
	LoansByStatus  map[LoanStatus]int    `json:"loansByStatus"`
	GeneratedAt    string                `json:"generatedAt"`
}

// RecoveryPlanRequest previews a plan before a development is saved
type RecoveryPlanRequest struct {
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	InvestorAmount decimal.Decimal `json:"investorAmount"`
	ProfitPercent  decimal.Decimal `json:"profitPercent"`
	DurationMonths int             `json:"durationMonths" validate:"required,gte=1,lte=600"`
}

type RecoveryPlanMonthDTO struct {
	Month              int             `json:"month"`
	Phase              string          `json:"phase"`
	InvestorPortion    decimal.Decimal `json:"investorPortion"`
	CompanyPortion     decimal.Decimal `json:"companyPortion"`
	CumulativeInvestor decimal.Decimal `json:"cumulativeInvestor"`
	RemainingPrincipal decimal.Decimal `json:"remainingPrincipal"`
}

type RecoveryPlanDTO struct {
	MonthlyPayment      decimal.Decimal        `json:"monthlyPayment"`
	InvestorAmount      decimal.Decimal        `json:"investorAmount"`
	ProfitPercent       decimal.Decimal        `json:"profitPercent"`
	DurationMonths      int                    `json:"durationMonths"`
	RecoveryMonths      int                    `json:"recoveryMonths"`
	RecoveredWithinTerm bool                   `json:"recoveredWithinTerm"`
	TotalContract       decimal.Decimal        `json:"totalContract"`
	TotalInvestor       decimal.Decimal        `json:"totalInvestor"`
	TotalCompany        decimal.Decimal        `json:"totalCompany"`
	InvestorProfit      decimal.Decimal        `json:"investorProfit"`
	Months              []RecoveryPlanMonthDTO `json:"months"`
}

// Payments

type ScheduledPaymentDTO struct {
	ID              uuid.UUID       `json:"id"`
	DevelopmentID   uuid.UUID       `json:"developmentId"`
	DevelopmentName string          `json:"developmentName,omitempty"`
	Period          string          `json:"period"`
	PeriodIndex     int             `json:"periodIndex"`
	DueDate         string          `json:"dueDate"`
	Amount          decimal.Decimal `json:"amount"`
	InvestorPortion decimal.Decimal `json:"investorPortion"`
	CompanyPortion  decimal.Decimal `json:"companyPortion"`
	IsRecovery      bool            `json:"isRecovery"`
	// Status is the effective status: pending payments past due read as overdue
	Status        PaymentStatus `json:"status"`
	IsOverdue     bool          `json:"isOverdue"`
	PaidAt        string        `json:"paidAt,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	Reference     string        `json:"reference,omitempty"`
	IncomeID      *uuid.UUID    `json:"incomeId,omitempty"`
	CollectedBy   string        `json:"collectedBy,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

type CollectPaymentRequest struct {
	PaidAt        string        `json:"paidAt" validate:"required,datetime=2006-01-02"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash transfer check card"`
	Reference     string        `json:"reference,omitempty" validate:"max=100"`
	Notes         string        `json:"notes,omitempty" validate:"max=1000"`
}

// PaymentCollectionDTO is the outcome of collecting a payment
type PaymentCollectionDTO struct {
	Payment ScheduledPaymentDTO `json:"payment"`
	Income  IncomeDTO           `json:"income"`
	Loan    *InvestorLoanDTO    `json:"loan,omitempty"`
}

type ScheduledServiceOrderDTO struct {
	ID            uuid.UUID          `json:"id"`
	DevelopmentID uuid.UUID          `json:"developmentId"`
	Period        string             `json:"period"`
	PeriodIndex   int                `json:"periodIndex"`
	ServiceDate   string             `json:"serviceDate"`
	Status        ServiceOrderStatus `json:"status"`
	OrderID       *uuid.UUID         `json:"orderId,omitempty"`
}

// Orders

type OrderDTO struct {
	ID                      uuid.UUID       `json:"id"`
	OrderNumber             string          `json:"orderNumber"`
	Type                    OrderType       `json:"type"`
	Title                   string          `json:"title"`
	Description             string          `json:"description,omitempty"`
	Status                  OrderStatus     `json:"status"`
	ClientID                *uuid.UUID      `json:"clientId,omitempty"`
	ClientName              string          `json:"clientName,omitempty"`
	DevelopmentID           *uuid.UUID      `json:"developmentId,omitempty"`
	DevelopmentName         string          `json:"developmentName,omitempty"`
	ScheduledServiceOrderID *uuid.UUID      `json:"scheduledServiceOrderId,omitempty"`
	ScheduledDate           string          `json:"scheduledDate,omitempty"`
	CompletedAt             string          `json:"completedAt,omitempty"`
	AssignedTo              string          `json:"assignedTo,omitempty"`
	Address                 string          `json:"address,omitempty"`
	Amount                  decimal.Decimal `json:"amount"`
	CreatedAt               string          `json:"createdAt"`
	UpdatedAt               string          `json:"updatedAt"`
}

type CreateOrderRequest struct {
	Type          OrderType       `json:"type" validate:"required,oneof=maintenance installation repair inspection"`
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description,omitempty"`
	ClientID      *uuid.UUID      `json:"clientId,omitempty"`
	DevelopmentID *uuid.UUID      `json:"developmentId,omitempty"`
	ScheduledDate string          `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AssignedTo    string          `json:"assignedTo,omitempty" validate:"max=200"`
	Address       string          `json:"address,omitempty" validate:"max=500"`
	Amount        decimal.Decimal `json:"amount"`
}

type UpdateOrderStatusRequest struct {
	Status     OrderStatus `json:"status" validate:"required,oneof=pending scheduled in_progress completed cancelled"`
	AssignedTo *string     `json:"assignedTo,omitempty" validate:"omitempty,max=200"`
}

// MaterializationResultDTO reports scheduled service orders turned into orders
type MaterializationResultDTO struct {
	Due     int      `json:"due"`
	Created int      `json:"created"`
	Orders  []string `json:"orderNumbers,omitempty"`
}

// Leads

type LeadDTO struct {
	ID                     uuid.UUID        `json:"id"`
	Name                   string           `json:"name"`
	ContactName            string           `json:"contactName,omitempty"`
	Phone                  string           `json:"phone,omitempty"`
	Email                  string           `json:"email,omitempty"`
	Address                string           `json:"address,omitempty"`
	Source                 string           `json:"source,omitempty"`
	EstimatedMonthlyAmount decimal.Decimal  `json:"estimatedMonthlyAmount"`
	Status                 LeadStatus       `json:"status"`
	ReminderDate           string           `json:"reminderDate,omitempty"`
	AssignedTo             string           `json:"assignedTo,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
	ConvertedDevelopmentID *uuid.UUID       `json:"convertedDevelopmentId,omitempty"`
	Comments               []LeadCommentDTO `json:"comments,omitempty"`
	CreatedAt              string           `json:"createdAt"`
	UpdatedAt              string           `json:"updatedAt"`
}

type LeadCommentDTO struct {
	ID         uuid.UUID  `json:"id"`
	Body       string     `json:"body"`
	StatusFrom LeadStatus `json:"statusFrom,omitempty"`
	StatusTo   LeadStatus `json:"statusTo,omitempty"`
	AuthorName string     `json:"authorName,omitempty"`
	CreatedAt  string     `json:"createdAt"`
}

type CreateLeadRequest struct {
	Name                   string          `json:"name" validate:"required,max=200"`
	ContactName            string          `json:"contactName,omitempty" validate:"max=200"`
	Phone                  string          `json:"phone,omitempty" validate:"max=50"`
	Email                  string          `json:"email,omitempty" validate:"omitempty,email"`
	Address                string          `json:"address,omitempty" validate:"max=500"`
	Source                 string          `json:"source,omitempty" validate:"max=100"`
	EstimatedMonthlyAmount decimal.Decimal `json:"estimatedMonthlyAmount"`
	ReminderDate           string          `json:"reminderDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AssignedTo             string          `json:"assignedTo,omitempty" validate:"max=200"`
	Notes                  string          `json:"notes,omitempty"`
}

type UpdateLeadRequest = CreateLeadRequest

type UpdateLeadStatusRequest struct {
	Status  LeadStatus `json:"status" validate:"required"`
	Comment string     `json:"comment,omitempty" validate:"max=2000"`
}

type AddLeadCommentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// ConvertLeadRequest turns an accepted lead into a development. ClientID takes
// precedence over development.clientId; when both are empty a client is created
// from the lead's contact data.
type ConvertLeadRequest struct {
	ClientID    *uuid.UUID               `json:"clientId,omitempty"`
	Development CreateDevelopmentRequest `json:"development"`
}

// Income

type IncomeDTO struct {
	ID            uuid.UUID       `json:"id"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	ClientID      *uuid.UUID      `json:"clientId,omitempty"`
	DevelopmentID *uuid.UUID      `json:"developmentId,omitempty"`
	PaymentID     *uuid.UUID      `json:"paymentId,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     string          `json:"createdAt"`
}

type IncomeSummaryDTO struct {
	From       string                     `json:"from,omitempty"`
	To         string                     `json:"to,omitempty"`
	Count      int64                      `json:"count"`
	Total      decimal.Decimal            `json:"total"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
}

// Audit

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"userId,omitempty"`
	UserEmail   string      `json:"userEmail,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    *uuid.UUID  `json:"entityId,omitempty"`
	EntityName  string      `json:"entityName,omitempty"`
	NewValues   string      `json:"newValues,omitempty"`
	IPAddress   string      `json:"ipAddress,omitempty"`
	RequestID   string      `json:"requestId,omitempty"`
	PerformedAt string      `json:"performedAt"`
}

// ArchivedDocumentDTO describes a rendered notice or receipt written to storage
type ArchivedDocumentDTO struct {
	PaymentID uuid.UUID `json:"paymentId"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
}
