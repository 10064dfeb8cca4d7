package models

import (
	"time"

	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationModel stores payables and receivables in one table, told apart by Kind.
type ObligationModel struct {
	OrganizationAggregateModel
	Kind           string          `gorm:"type:varchar(20);not null;index"`
	CounterpartyID uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentNumber string          `gorm:"type:varchar(50);not null;index"`
	Description    string          `gorm:"type:varchar(500)"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	DueDate        time.Time       `gorm:"type:date;not null;index"`
	FineRate       decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	FineGraceDays  int             `gorm:"not null"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID               `gorm:"type:uuid"`
	CancelReason   string                   `gorm:"type:varchar(500)"`
	Payments       []ObligationPaymentModel `gorm:"foreignKey:ObligationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ObligationModel) TableName() string {
	return "obligations"
}

// ObligationPaymentModel is one payment registered against an obligation
type ObligationPaymentModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ObligationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	Method       string          `gorm:"type:varchar(20);not null"`
	Interest     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Fine         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Discount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BankFee      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExternalRef  string          `gorm:"type:varchar(100)"`
	Status       string          `gorm:"type:varchar(20);not null"`
	PaidAt       time.Time       `gorm:"not null"`
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string    `gorm:"type:varchar(500)"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ObligationPaymentModel) TableName() string {
	return "obligation_payments"
}

// ToState converts the model into the state the finance aggregates restore from
func (m *ObligationModel) ToState() (finance.ObligationState, error) {
	currency := valueobject.Currency(m.Currency)
	amount, err := valueobject.NewMoney(m.Amount, currency)
	if err != nil {
		return finance.ObligationState{}, err
	}
	fineRate, err := valueobject.NewRate(m.FineRate)
	if err != nil {
		return finance.ObligationState{}, err
	}
	interestRate, err := valueobject.NewRate(m.InterestRate)
	if err != nil {
		return finance.ObligationState{}, err
	}
	terms, err := valueobject.NewPaymentTerms(valueobject.PaymentTermsParams{
		DueDate:       m.DueDate,
		Amount:        amount,
		FineRate:      fineRate,
		InterestRate:  interestRate,
		FineGraceDays: m.FineGraceDays,
	})
	if err != nil {
		return finance.ObligationState{}, err
	}

	payments := make([]*finance.Payment, len(m.Payments))
	for i := range m.Payments {
		p, err := m.Payments[i].ToDomain()
		if err != nil {
			return finance.ObligationState{}, err
		}
		payments[i] = p
	}

	var cancelledBy uuid.UUID
	if m.CancelledBy != nil {
		cancelledBy = *m.CancelledBy
	}

	return finance.ObligationState{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		BranchID:       m.BranchID,
		CounterpartyID: m.CounterpartyID,
		DocumentNumber: m.DocumentNumber,
		Description:    m.Description,
		Terms:          terms,
		Payments:       payments,
		Status:         finance.ObligationStatus(m.Status),
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CancelledAt:    m.CancelledAt,
		CancelledBy:    cancelledBy,
		CancelReason:   m.CancelReason,
	}, nil
}

// FromDomain populates the model from an obligation of the given kind
func (m *ObligationModel) FromDomain(kind finance.ObligationKind, o *finance.Obligation) {
	m.FromDomainAggregateRoot(o.OrganizationAggregateRoot)
	m.Kind = string(kind)
	m.CounterpartyID = o.CounterpartyID
	m.DocumentNumber = o.DocumentNumber
	m.Description = o.Description
	m.Amount = o.Terms.Amount().Amount()
	m.Currency = string(o.Currency())
	m.DueDate = o.Terms.DueDate()
	m.FineRate = o.Terms.FineRate().Percent()
	m.InterestRate = o.Terms.InterestRate().Percent()
	m.FineGraceDays = o.Terms.FineGraceDays()
	m.Status = string(o.Status())
	m.CancelledAt = o.CancelledAt
	m.CancelledBy = nil
	if o.CancelledBy != uuid.Nil {
		by := o.CancelledBy
		m.CancelledBy = &by
	}
	m.CancelReason = o.CancelReason

	payments := o.Payments()
	m.Payments = make([]ObligationPaymentModel, len(payments))
	for i := range payments {
		m.Payments[i] = ObligationPaymentModelFromDomain(&payments[i])
	}
}

// ObligationModelFromDomain creates a new persistence model from an obligation
func ObligationModelFromDomain(kind finance.ObligationKind, o *finance.Obligation) *ObligationModel {
	m := &ObligationModel{}
	m.FromDomain(kind, o)
	return m
}

// ObligationPaymentModelFromDomain converts a domain payment
func ObligationPaymentModelFromDomain(p *finance.Payment) ObligationPaymentModel {
	return ObligationPaymentModel{
		ID:           p.ID,
		ObligationID: p.ObligationID,
		Amount:       p.Amount.Amount(),
		Currency:     string(p.Amount.Currency()),
		Method:       string(p.Method),
		Interest:     p.Charges.Interest.Amount(),
		Fine:         p.Charges.Fine.Amount(),
		Discount:     p.Charges.Discount.Amount(),
		BankFee:      p.Charges.BankFee.Amount(),
		ExternalRef:  p.ExternalRef,
		Status:       string(p.Status()),
		PaidAt:       p.PaidAt,
		ConfirmedAt:  p.ConfirmedAt,
		CancelledAt:  p.CancelledAt,
		CancelReason: p.CancelReason,
		CreatedAt:    p.CreatedAt,
	}
}

// ToDomain rebuilds the payment
func (m *ObligationPaymentModel) ToDomain() (*finance.Payment, error) {
	currency := valueobject.Currency(m.Currency)
	amounts := make([]valueobject.Money, 5)
	for i, d := range []decimal.Decimal{m.Amount, m.Interest, m.Fine, m.Discount, m.BankFee} {
		money, err := valueobject.NewMoney(d, currency)
		if err != nil {
			return nil, err
		}
		amounts[i] = money
	}
	return finance.RestorePayment(finance.Payment{
		ID:           m.ID,
		ObligationID: m.ObligationID,
		Amount:       amounts[0],
		Method:       finance.PaymentMethod(m.Method),
		Charges: finance.PaymentCharges{
			Interest: amounts[1],
			Fine:     amounts[2],
			Discount: amounts[3],
			BankFee:  amounts[4],
		},
		ExternalRef:  m.ExternalRef,
		PaidAt:       m.PaidAt,
		ConfirmedAt:  m.ConfirmedAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		CreatedAt:    m.CreatedAt,
	}, finance.PaymentStatus(m.Status)), nil
}
