package mapper

import (
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// ToClientDTO converts Client to ClientDTO
func ToClientDTO(client *domain.Client) domain.ClientDTO {
	dto := domain.ClientDTO{
		ID:        client.ID,
		Name:      client.Name,
		Email:     client.Email,
		Phone:     client.Phone,
		Address:   client.Address,
		City:      client.City,
		TaxID:     client.TaxID,
		Notes:     client.Notes,
		IsActive:  client.IsActive,
		CreatedAt: formatTimestamp(client.CreatedAt),
		UpdatedAt: formatTimestamp(client.UpdatedAt),
	}
	if client.ExternalID != nil {
		dto.ExternalID = *client.ExternalID
	}
	return dto
}

// ToDevelopmentDTO converts Development to DevelopmentDTO. The loan is included when preloaded.
func ToDevelopmentDTO(dev *domain.Development) domain.DevelopmentDTO {
	dto := domain.DevelopmentDTO{
		ID:                    dev.ID,
		Name:                  dev.Name,
		Address:               dev.Address,
		ClientID:              dev.ClientID,
		ContactName:           dev.ContactName,
		ContactPhone:          dev.ContactPhone,
		ContactEmail:          dev.ContactEmail,
		ContractStartDate:     dev.ContractStartDate.Format(dateLayout),
		ContractEndDate:       dev.EndDate().AddDate(0, 0, -1).Format(dateLayout),
		DurationMonths:        dev.DurationMonths,
		MonthlyPayment:        dev.MonthlyPayment,
		PaymentDay:            dev.PaymentDay,
		ServiceDay:            dev.ServiceDay,
		AutoGenerateOrders:    dev.AutoGenerateOrders,
		HasInvestor:           dev.HasInvestor,
		InvestorName:          dev.InvestorName,
		InvestorAmount:        dev.InvestorAmount,
		InvestorProfitPercent: dev.InvestorProfitPercent,
		Status:                dev.Status,
		Notes:                 dev.Notes,
		LeadID:                dev.LeadID,
		CreatedAt:             formatTimestamp(dev.CreatedAt),
		UpdatedAt:             formatTimestamp(dev.UpdatedAt),
	}
	if dev.Client != nil {
		dto.ClientName = dev.Client.Name
	}
	if dev.Loan != nil {
		loan := ToInvestorLoanDTO(dev.Loan)
		loan.DevelopmentName = dev.Name
		dto.Loan = &loan
	}
	return dto
}

// ToInvestorLoanDTO converts InvestorLoan to InvestorLoanDTO
func ToInvestorLoanDTO(loan *domain.InvestorLoan) domain.InvestorLoanDTO {
	ledger := loan.Ledger()
	dto := domain.InvestorLoanDTO{
		ID:                 loan.ID,
		DevelopmentID:      loan.DevelopmentID,
		InvestorName:       loan.InvestorName,
		Principal:          loan.Principal,
		ProfitPercent:      loan.ProfitPercent,
		MonthlyPayment:     loan.MonthlyPayment,
		RecoveryMonths:     loan.RecoveryMonths,
		RecoveredAmount:    loan.RecoveredAmount,
		EarnedAmount:       loan.EarnedAmount,
		RemainingPrincipal: ledger.Remaining(),
		ProgressPercent:    ledger.Progress(),
		Status:             loan.Status,
		RecoveredAt:        formatOptionalTimestamp(loan.RecoveredAt),
		CompletedAt:        formatOptionalTimestamp(loan.CompletedAt),
		CreatedAt:          formatTimestamp(loan.CreatedAt),
	}
	if loan.Development != nil {
		dto.DevelopmentName = loan.Development.Name
	}
	return dto
}

// ToScheduledPaymentDTO converts a payment, projecting its status onto today
func ToScheduledPaymentDTO(p *domain.ScheduledPayment, today time.Time) domain.ScheduledPaymentDTO {
	status := p.EffectiveStatus(today)
	dto := domain.ScheduledPaymentDTO{
		ID:              p.ID,
		DevelopmentID:   p.DevelopmentID,
		Period:          p.Period,
		PeriodIndex:     p.PeriodIndex,
		DueDate:         p.DueDate.Format(dateLayout),
		Amount:          p.Amount,
		InvestorPortion: p.InvestorPortion,
		CompanyPortion:  p.CompanyPortion,
		IsRecovery:      p.IsRecovery,
		Status:          status,
		IsOverdue:       status == domain.PaymentStatusOverdue,
		PaidAt:          formatOptionalDate(p.PaidAt),
		PaymentMethod:   p.PaymentMethod,
		Reference:       p.Reference,
		IncomeID:        p.IncomeID,
		CollectedBy:     p.CollectedByName,
		Notes:           p.Notes,
	}
	if p.Development != nil {
		dto.DevelopmentName = p.Development.Name
	}
	return dto
}

// ToScheduledPaymentDTOs converts a slice of payments
func ToScheduledPaymentDTOs(payments []domain.ScheduledPayment, today time.Time) []domain.ScheduledPaymentDTO {
	dtos := make([]domain.ScheduledPaymentDTO, len(payments))
	for i := range payments {
		dtos[i] = ToScheduledPaymentDTO(&payments[i], today)
	}
	return dtos
}

func ToScheduledServiceOrderDTO(o *domain.ScheduledServiceOrder) domain.ScheduledServiceOrderDTO {
	return domain.ScheduledServiceOrderDTO{
		ID:            o.ID,
		DevelopmentID: o.DevelopmentID,
		Period:        o.Period,
		PeriodIndex:   o.PeriodIndex,
		ServiceDate:   o.ServiceDate.Format(dateLayout),
		Status:        o.Status,
		OrderID:       o.OrderID,
	}
}

// ToOrderDTO converts Order to OrderDTO
func ToOrderDTO(order *domain.Order) domain.OrderDTO {
	dto := domain.OrderDTO{
		ID:                      order.ID,
		OrderNumber:             order.OrderNumber,
		Type:                    order.Type,
		Title:                   order.Title,
		Description:             order.Description,
		Status:                  order.Status,
		ClientID:                order.ClientID,
		DevelopmentID:           order.DevelopmentID,
		ScheduledServiceOrderID: order.ScheduledServiceOrderID,
		ScheduledDate:           formatOptionalDate(order.ScheduledDate),
		CompletedAt:             formatOptionalTimestamp(order.CompletedAt),
		AssignedTo:              order.AssignedTo,
		Address:                 order.Address,
		Amount:                  order.Amount,
		CreatedAt:               formatTimestamp(order.CreatedAt),
		UpdatedAt:               formatTimestamp(order.UpdatedAt),
	}
	if order.Client != nil {
		dto.ClientName = order.Client.Name
	}
	if order.Development != nil {
		dto.DevelopmentName = order.Development.Name
	}
	return dto
}

// ToLeadDTO converts Lead to LeadDTO, including preloaded comments
func ToLeadDTO(lead *domain.Lead) domain.LeadDTO {
	dto := domain.LeadDTO{
		ID:                     lead.ID,
		Name:                   lead.Name,
		ContactName:            lead.ContactName,
		Phone:                  lead.Phone,
		Email:                  lead.Email,
		Address:                lead.Address,
		Source:                 lead.Source,
		EstimatedMonthlyAmount: lead.EstimatedMonthlyAmount,
		Status:                 lead.Status,
		ReminderDate:           formatOptionalDate(lead.ReminderDate),
		AssignedTo:             lead.AssignedTo,
		Notes:                  lead.Notes,
		ConvertedDevelopmentID: lead.ConvertedDevelopmentID,
		CreatedAt:              formatTimestamp(lead.CreatedAt),
		UpdatedAt:              formatTimestamp(lead.UpdatedAt),
	}
	if len(lead.Comments) > 0 {
		dto.Comments = make([]domain.LeadCommentDTO, len(lead.Comments))
		for i := range lead.Comments {
			dto.Comments[i] = ToLeadCommentDTO(&lead.Comments[i])
		}
	}
	return dto
}

func ToLeadCommentDTO(c *domain.LeadComment) domain.LeadCommentDTO {
	return domain.LeadCommentDTO{
		ID:         c.ID,
		Body:       c.Body,
		StatusFrom: c.StatusFrom,
		StatusTo:   c.StatusTo,
		AuthorName: c.AuthorName,
		CreatedAt:  formatTimestamp(c.CreatedAt),
	}
}

// ToIncomeDTO converts Income to IncomeDTO
func ToIncomeDTO(income *domain.Income) domain.IncomeDTO {
	return domain.IncomeDTO{
		ID:            income.ID,
		Date:          income.Date.Format(dateLayout),
		Amount:        income.Amount,
		Category:      income.Category,
		Description:   income.Description,
		ClientID:      income.ClientID,
		DevelopmentID: income.DevelopmentID,
		PaymentID:     income.PaymentID,
		PaymentMethod: income.PaymentMethod,
		Reference:     income.Reference,
		CreatedAt:     formatTimestamp(income.CreatedAt),
	}
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(entry *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          entry.ID,
		UserID:      entry.UserID,
		UserEmail:   entry.UserEmail,
		UserName:    entry.UserName,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		EntityName:  entry.EntityName,
		NewValues:   entry.NewValues,
		IPAddress:   entry.IPAddress,
		RequestID:   entry.RequestID,
		PerformedAt: formatTimestamp(entry.PerformedAt),
	}
}

// ToRecoveryPlanDTO converts a financing plan
func ToRecoveryPlanDTO(plan *financing.Plan) domain.RecoveryPlanDTO {
	months := make([]domain.RecoveryPlanMonthDTO, len(plan.Months))
	for i, m := range plan.Months {
		months[i] = domain.RecoveryPlanMonthDTO{
			Month:              m.Index + 1,
			Phase:              string(m.Phase),
			InvestorPortion:    m.Investor,
			CompanyPortion:     m.Company,
			CumulativeInvestor: m.CumulativeInvestor,
			RemainingPrincipal: m.RemainingPrincipal,
		}
	}
	return domain.RecoveryPlanDTO{
		MonthlyPayment:      plan.Terms.MonthlyPayment,
		InvestorAmount:      plan.Terms.InvestorAmount,
		ProfitPercent:       plan.Terms.ProfitPercent,
		DurationMonths:      plan.DurationMonths,
		RecoveryMonths:      plan.RecoveryMonths,
		RecoveredWithinTerm: plan.RecoveredWithinTerm,
		TotalContract:       plan.TotalContract,
		TotalInvestor:       plan.TotalInvestor,
		TotalCompany:        plan.TotalCompany,
		InvestorProfit:      plan.InvestorProfit,
		Months:              months,
	}
}
