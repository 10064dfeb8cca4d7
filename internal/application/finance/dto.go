package finance

import (
	"time"

	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateObligationRequest is the input for creating a payable or receivable.
// CounterpartyID is the supplier of a payable or the customer of a receivable.
type CreateObligationRequest struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" binding:"required"`
	BranchID       uuid.UUID       `json:"branch_id" binding:"required"`
	CounterpartyID uuid.UUID       `json:"counterparty_id" binding:"required"`
	DocumentNumber string          `json:"document_number" binding:"required,max=50"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Currency       string          `json:"currency" binding:"required,len=3"`
	DueDate        time.Time       `json:"due_date" binding:"required"`
	FineRate       decimal.Decimal `json:"fine_rate"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	FineGraceDays  int             `json:"fine_grace_days"`
}

func (r CreateObligationRequest) params() (finance.ObligationParams, error) {
	currency, err := valueobject.ParseCurrency(r.Currency)
	if err != nil {
		return finance.ObligationParams{}, err
	}
	amount, err := valueobject.NewMoney(r.Amount, currency)
	if err != nil {
		return finance.ObligationParams{}, err
	}
	fine, err := valueobject.NewRate(r.FineRate)
	if err != nil {
		return finance.ObligationParams{}, err
	}
	interest, err := valueobject.NewRate(r.InterestRate)
	if err != nil {
		return finance.ObligationParams{}, err
	}
	terms, err := valueobject.NewPaymentTerms(valueobject.PaymentTermsParams{
		DueDate:       r.DueDate,
		Amount:        amount,
		FineRate:      fine,
		InterestRate:  interest,
		FineGraceDays: r.FineGraceDays,
	})
	if err != nil {
		return finance.ObligationParams{}, err
	}
	return finance.ObligationParams{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		BranchID:       r.BranchID,
		CounterpartyID: r.CounterpartyID,
		DocumentNumber: r.DocumentNumber,
		Description:    r.Description,
		Terms:          terms,
	}, nil
}

// RegisterPaymentRequest registers a pending payment. When AccrueCharges is
// set, fine and interest are computed from the terms as of PaidAt and the
// explicit Interest and Fine values are ignored.
type RegisterPaymentRequest struct {
	OrganizationID uuid.UUID       `json:"organization_id" binding:"required"`
	ObligationID   uuid.UUID       `json:"obligation_id" binding:"required"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Method         string          `json:"method" binding:"required"`
	Interest       decimal.Decimal `json:"interest"`
	Fine           decimal.Decimal `json:"fine"`
	Discount       decimal.Decimal `json:"discount"`
	BankFee        decimal.Decimal `json:"bank_fee"`
	AccrueCharges  bool            `json:"accrue_charges"`
	PaidAt         time.Time       `json:"paid_at"`
}

func (r RegisterPaymentRequest) payment(o *finance.Obligation) (*finance.Payment, error) {
	currency := o.Currency()
	amount, err := valueobject.NewMoney(r.Amount, currency)
	if err != nil {
		return nil, err
	}
	paidAt := r.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	charges := finance.ZeroCharges(currency)
	if r.AccrueCharges {
		charges = o.AccruedCharges(paidAt)
	} else {
		if charges.Interest, err = valueobject.NewMoney(r.Interest, currency); err != nil {
			return nil, err
		}
		if charges.Fine, err = valueobject.NewMoney(r.Fine, currency); err != nil {
			return nil, err
		}
	}
	if charges.Discount, err = valueobject.NewMoney(r.Discount, currency); err != nil {
		return nil, err
	}
	if charges.BankFee, err = valueobject.NewMoney(r.BankFee, currency); err != nil {
		return nil, err
	}

	return finance.NewPayment(finance.PaymentParams{
		ID:           r.PaymentID,
		ObligationID: o.ID,
		Amount:       amount,
		Method:       finance.PaymentMethod(r.Method),
		Charges:      charges,
		PaidAt:       paidAt,
	})
}

// ConfirmPaymentRequest confirms a pending payment. ReceivedBy is only used
// for receivables.
type ConfirmPaymentRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	ObligationID   uuid.UUID `json:"obligation_id" binding:"required"`
	PaymentID      uuid.UUID `json:"payment_id" binding:"required"`
	ExternalRef    string    `json:"external_ref"`
	ReceivedBy     uuid.UUID `json:"received_by"`
}

// CancelPaymentRequest cancels a pending payment
type CancelPaymentRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	ObligationID   uuid.UUID `json:"obligation_id" binding:"required"`
	PaymentID      uuid.UUID `json:"payment_id" binding:"required"`
	Reason         string    `json:"reason"`
}

// CancelObligationRequest cancels a whole payable or receivable
type CancelObligationRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	ObligationID   uuid.UUID `json:"obligation_id" binding:"required"`
	Reason         string    `json:"reason" binding:"required"`
	CancelledBy    uuid.UUID `json:"cancelled_by"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID           uuid.UUID       `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	Status       string          `json:"status"`
	Interest     decimal.Decimal `json:"interest"`
	Fine         decimal.Decimal `json:"fine"`
	Discount     decimal.Decimal `json:"discount"`
	BankFee      decimal.Decimal `json:"bank_fee"`
	ExternalRef  string          `json:"external_ref,omitempty"`
	PaidAt       time.Time       `json:"paid_at"`
	ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
}

// ObligationResponse represents a payable or receivable in API responses
type ObligationResponse struct {
	ID             uuid.UUID         `json:"id"`
	Kind           string            `json:"kind"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	BranchID       uuid.UUID         `json:"branch_id"`
	CounterpartyID uuid.UUID         `json:"counterparty_id"`
	DocumentNumber string            `json:"document_number"`
	Description    string            `json:"description,omitempty"`
	Status         string            `json:"status"`
	Currency       string            `json:"currency"`
	Amount         decimal.Decimal   `json:"amount"`
	DueDate        time.Time         `json:"due_date"`
	TotalPaid      decimal.Decimal   `json:"total_paid"`
	Remaining      decimal.Decimal   `json:"remaining"`
	Payments       []PaymentResponse `json:"payments,omitempty"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	Version        int               `json:"version"`
}

func toObligationResponse(kind finance.ObligationKind, o *finance.Obligation, asOf time.Time) (ObligationResponse, error) {
	paid, err := o.TotalPaid()
	if err != nil {
		return ObligationResponse{}, err
	}
	remaining, err := o.RemainingAmount(asOf)
	if err != nil {
		return ObligationResponse{}, err
	}

	payments := o.Payments()
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentResponse{
			ID:           p.ID,
			Amount:       p.Amount.Amount(),
			Method:       string(p.Method),
			Status:       p.Status().String(),
			Interest:     p.Charges.Interest.Amount(),
			Fine:         p.Charges.Fine.Amount(),
			Discount:     p.Charges.Discount.Amount(),
			BankFee:      p.Charges.BankFee.Amount(),
			ExternalRef:  p.ExternalRef,
			PaidAt:       p.PaidAt,
			ConfirmedAt:  p.ConfirmedAt,
			CancelledAt:  p.CancelledAt,
			CancelReason: p.CancelReason,
		})
	}

	return ObligationResponse{
		ID:             o.ID,
		Kind:           string(kind),
		OrganizationID: o.OrganizationID,
		BranchID:       o.BranchID,
		CounterpartyID: o.CounterpartyID,
		DocumentNumber: o.DocumentNumber,
		Description:    o.Description,
		Status:         o.Status().String(),
		Currency:       string(o.Currency()),
		Amount:         o.Terms.Amount().Amount(),
		DueDate:        o.Terms.DueDate(),
		TotalPaid:      paid.Amount(),
		Remaining:      remaining.Amount(),
		Payments:       out,
		CancelReason:   o.CancelReason,
		CancelledAt:    o.CancelledAt,
		Version:        o.Version,
	}, nil
}

func requireIDs(organizationID, obligationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "organization_id is required")
	}
	if obligationID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "obligation_id is required")
	}
	return nil
}
