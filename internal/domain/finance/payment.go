package finance

import (
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus represents the status of a single payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod is how the money moved
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodPix          PaymentMethod = "PIX"
	PaymentMethodBoleto       PaymentMethod = "BOLETO"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodPix, PaymentMethodBoleto,
		PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentCharges is the breakdown of amounts paid on top of (or deducted from)
// the principal. Each one is posted to the ledger as its own entry.
type PaymentCharges struct {
	Interest valueobject.Money
	Fine     valueobject.Money
	Discount valueobject.Money
	BankFee  valueobject.Money
}

// ZeroCharges returns a breakdown with every component at zero
func ZeroCharges(currency valueobject.Currency) PaymentCharges {
	zero := valueobject.Zero(currency)
	return PaymentCharges{Interest: zero, Fine: zero, Discount: zero, BankFee: zero}
}

func (c PaymentCharges) normalize(currency valueobject.Currency) (PaymentCharges, error) {
	out := c
	for _, field := range []*valueobject.Money{&out.Interest, &out.Fine, &out.Discount, &out.BankFee} {
		if field.Currency() == "" {
			*field = valueobject.Zero(currency)
			continue
		}
		if field.Currency() != currency {
			return PaymentCharges{}, shared.NewDomainError("CURRENCY_MISMATCH",
				fmt.Sprintf("charge currency %s does not match payment currency %s", field.Currency(), currency))
		}
	}
	return out, nil
}

// PaymentParams holds the inputs of NewPayment
type PaymentParams struct {
	ID           uuid.UUID
	ObligationID uuid.UUID
	Amount       valueobject.Money
	Method       PaymentMethod
	Charges      PaymentCharges
	PaidAt       time.Time
}

// Payment is a single money movement against an obligation. It is created
// PENDING and only ever moves forward through Confirm or Cancel; payments are
// never deleted so the obligation keeps a full audit trail.
type Payment struct {
	ID           uuid.UUID
	ObligationID uuid.UUID
	Amount       valueobject.Money
	Method       PaymentMethod
	Charges      PaymentCharges
	ExternalRef  string
	PaidAt       time.Time
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	status       PaymentStatus
}

// NewPayment creates a pending payment
func NewPayment(p PaymentParams) (*Payment, error) {
	if p.ObligationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OBLIGATION", "Obligation ID cannot be empty")
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !p.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unsupported payment method: %s", p.Method))
	}
	charges, err := p.Charges.normalize(p.Amount.Currency())
	if err != nil {
		return nil, err
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	paidAt := p.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	return &Payment{
		ID:           id,
		ObligationID: p.ObligationID,
		Amount:       p.Amount,
		Method:       p.Method,
		Charges:      charges,
		PaidAt:       paidAt,
		CreatedAt:    now,
		status:       PaymentStatusPending,
	}, nil
}

// Status returns the current payment status
func (p *Payment) Status() PaymentStatus {
	return p.status
}

// IsConfirmed returns true once the payment is confirmed
func (p *Payment) IsConfirmed() bool {
	return p.status == PaymentStatusConfirmed
}

// IsPending returns true while the payment awaits confirmation
func (p *Payment) IsPending() bool {
	return p.status == PaymentStatusPending
}

// Confirm moves PENDING to CONFIRMED. Confirmation is irreversible.
func (p *Payment) Confirm(externalRef string, at time.Time) error {
	if p.status != PaymentStatusPending {
		return shared.NewDomainError("PAYMENT_NOT_PENDING",
			fmt.Sprintf("Cannot confirm payment in %s status", p.status))
	}
	p.status = PaymentStatusConfirmed
	p.ExternalRef = externalRef
	p.ConfirmedAt = &at
	return nil
}

// Cancel moves PENDING to CANCELLED. A confirmed payment can never be cancelled.
func (p *Payment) Cancel(reason string, at time.Time) error {
	switch p.status {
	case PaymentStatusConfirmed:
		return shared.NewDomainError("PAYMENT_ALREADY_CONFIRMED", "Cannot cancel a confirmed payment")
	case PaymentStatusCancelled:
		return shared.NewDomainError("PAYMENT_NOT_PENDING", "Payment is already cancelled")
	}
	p.status = PaymentStatusCancelled
	p.CancelReason = reason
	p.CancelledAt = &at
	return nil
}

// RestorePayment rebuilds a payment from persisted state
func RestorePayment(p Payment, status PaymentStatus) *Payment {
	restored := p
	restored.status = status
	return &restored
}
