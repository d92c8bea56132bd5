package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeadStatus is the sales workflow of a prospective development
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "nuevo"
	LeadStatusContacted    LeadStatus = "contactado"
	LeadStatusNegotiating  LeadStatus = "negociando"
	LeadStatusProposalSent LeadStatus = "propuesta_enviada"
	LeadStatusAccepted     LeadStatus = "aceptado"
	LeadStatusRejected     LeadStatus = "rechazado"
	LeadStatusPaused       LeadStatus = "pausado"
)

func (s LeadStatus) IsValid() bool {
	_, ok := leadTransitions[s]
	return ok
}

// leadTransitions lists the statuses reachable from each status. A paused lead
// resumes where the conversation left off, so it may go back to any open stage.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNew:          {LeadStatusContacted, LeadStatusRejected, LeadStatusPaused},
	LeadStatusContacted:    {LeadStatusNegotiating, LeadStatusProposalSent, LeadStatusRejected, LeadStatusPaused},
	LeadStatusNegotiating:  {LeadStatusProposalSent, LeadStatusRejected, LeadStatusPaused},
	LeadStatusProposalSent: {LeadStatusNegotiating, LeadStatusAccepted, LeadStatusRejected, LeadStatusPaused},
	LeadStatusPaused:       {LeadStatusContacted, LeadStatusNegotiating, LeadStatusProposalSent, LeadStatusRejected},
	LeadStatusRejected:     {LeadStatusContacted},
	LeadStatusAccepted:     {},
}

// CanTransitionTo reports whether a lead may move from s to next
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	for _, allowed := range leadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Lead is a pre-contract prospect. It is soft-deleted once converted into a development.
type Lead struct {
	BaseModel
	Name                   string          `gorm:"type:varchar(200);not null;index"`
	ContactName            string          `gorm:"type:varchar(200);column:contact_name"`
	Phone                  string          `gorm:"type:varchar(50)"`
	Email                  string          `gorm:"type:varchar(255)"`
	Address                string          `gorm:"type:varchar(500)"`
	Source                 string          `gorm:"type:varchar(100)"`
	EstimatedMonthlyAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;column:estimated_monthly_amount"`
	Status                 LeadStatus      `gorm:"type:varchar(50);not null;default:'nuevo';index"`
	ReminderDate           *time.Time      `gorm:"type:date;column:reminder_date;index"`
	AssignedTo             string          `gorm:"type:varchar(200);column:assigned_to"`
	Notes                  string          `gorm:"type:text"`
	ConvertedDevelopmentID *uuid.UUID      `gorm:"type:uuid;column:converted_development_id"`
	ConvertedAt            *time.Time      `gorm:"column:converted_at"`
	CreatedByID            string          `gorm:"type:varchar(100);column:created_by_id"`
	Comments               []LeadComment   `gorm:"foreignKey:LeadID"`
	DeletedAt              gorm.DeletedAt  `gorm:"index"`
}

// LeadComment is one entry of a lead's history: a free-text note and, for
// status changes, the transition it recorded.
type LeadComment struct {
	BaseModel
	LeadID     uuid.UUID  `gorm:"type:uuid;not null;index;column:lead_id"`
	Body       string     `gorm:"type:text;not null"`
	StatusFrom LeadStatus `gorm:"type:varchar(50);column:status_from"`
	StatusTo   LeadStatus `gorm:"type:varchar(50);column:status_to"`
	AuthorID   string     `gorm:"type:varchar(100);column:author_id"`
	AuthorName string     `gorm:"type:varchar(200);column:author_name"`
}
