package finance

import (
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ObligationStatus is derived from confirmed payments, except CANCELLED
// which only Cancel sets.
type ObligationStatus string

const (
	ObligationStatusOpen      ObligationStatus = "OPEN"
	ObligationStatusPartial   ObligationStatus = "PARTIAL"
	ObligationStatusPaid      ObligationStatus = "PAID"
	ObligationStatusCancelled ObligationStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ObligationStatus
func (s ObligationStatus) IsValid() bool {
	switch s {
	case ObligationStatusOpen, ObligationStatusPartial, ObligationStatusPaid, ObligationStatusCancelled:
		return true
	}
	return false
}

func (s ObligationStatus) String() string {
	return string(s)
}

// ObligationKind distinguishes payables from receivables in shared storage
type ObligationKind string

const (
	ObligationKindPayable    ObligationKind = "PAYABLE"
	ObligationKindReceivable ObligationKind = "RECEIVABLE"
)

const maxDocumentNumberLength = 50

// ObligationParams holds the inputs shared by NewAccountPayable and NewAccountReceivable
type ObligationParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	CounterpartyID uuid.UUID
	DocumentNumber string
	Description    string
	Terms          valueobject.PaymentTerms
}

// Obligation is the state and behaviour common to payables and receivables:
// an amount owed with payment terms and the payments registered against it.
// The obligation owns its payments exclusively.
type Obligation struct {
	shared.OrganizationAggregateRoot
	CounterpartyID uuid.UUID
	DocumentNumber string
	Description    string
	Terms          valueobject.PaymentTerms
	CancelledAt    *time.Time
	CancelledBy    uuid.UUID
	CancelReason   string

	payments         []*Payment
	status           ObligationStatus
	persistedVersion int
}

func newObligation(p ObligationParams) (Obligation, error) {
	if p.OrganizationID == uuid.Nil {
		return Obligation{}, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if p.BranchID == uuid.Nil {
		return Obligation{}, shared.NewDomainError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	if p.CounterpartyID == uuid.Nil {
		return Obligation{}, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if p.DocumentNumber == "" {
		return Obligation{}, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if len(p.DocumentNumber) > maxDocumentNumberLength {
		return Obligation{}, shared.NewDomainError("INVALID_DOCUMENT_NUMBER",
			fmt.Sprintf("Document number cannot exceed %d characters", maxDocumentNumberLength))
	}
	if !p.Terms.Amount().IsPositive() {
		return Obligation{}, shared.NewDomainError("INVALID_TERMS", "Payment terms with a positive amount are required")
	}

	return Obligation{
		OrganizationAggregateRoot: shared.NewOrganizationAggregateRoot(p.ID, p.OrganizationID, p.BranchID),
		CounterpartyID:            p.CounterpartyID,
		DocumentNumber:            p.DocumentNumber,
		Description:               p.Description,
		Terms:                     p.Terms,
		payments:                  make([]*Payment, 0),
		status:                    ObligationStatusOpen,
	}, nil
}

// Status returns the current status
func (o *Obligation) Status() ObligationStatus {
	return o.status
}

// IsCancelled returns true if the obligation was cancelled
func (o *Obligation) IsCancelled() bool {
	return o.status == ObligationStatusCancelled
}

// Currency returns the currency the obligation is denominated in
func (o *Obligation) Currency() valueobject.Currency {
	return o.Terms.Currency()
}

// Payments returns copies of the registered payments in registration order
func (o *Obligation) Payments() []Payment {
	out := make([]Payment, len(o.payments))
	for i, p := range o.payments {
		out[i] = *p
	}
	return out
}

// Payment returns a copy of the payment with the given ID
func (o *Obligation) Payment(paymentID uuid.UUID) (Payment, bool) {
	p := o.findPayment(paymentID)
	if p == nil {
		return Payment{}, false
	}
	return *p, true
}

// TotalPaid sums confirmed payments. Pending and cancelled payments never count.
func (o *Obligation) TotalPaid() (valueobject.Money, error) {
	total := valueobject.Zero(o.Currency())
	for _, p := range o.payments {
		if !p.IsConfirmed() {
			continue
		}
		var err error
		if total, err = total.Add(p.Amount); err != nil {
			return valueobject.Money{}, err
		}
	}
	return total, nil
}

// RemainingAmount is max(0, amount + fine + interest - totalPaid) as of asOf
func (o *Obligation) RemainingAmount(asOf time.Time) (valueobject.Money, error) {
	due, err := o.Terms.TotalDue(asOf)
	if err != nil {
		return valueobject.Money{}, err
	}
	paid, err := o.TotalPaid()
	if err != nil {
		return valueobject.Money{}, err
	}
	remaining, err := due.Subtract(paid)
	if err != nil {
		return valueobject.Money{}, err
	}
	return remaining.ZeroIfNegative(), nil
}

// AccruedCharges returns the fine and interest owed as of asOf, ready to be
// attached to a payment made on that date.
func (o *Obligation) AccruedCharges(asOf time.Time) PaymentCharges {
	charges := ZeroCharges(o.Currency())
	charges.Fine = o.Terms.AccruedFine(asOf)
	charges.Interest = o.Terms.AccruedInterest(asOf)
	return charges
}

// HasConfirmedPayment reports whether any payment is confirmed
func (o *Obligation) HasConfirmedPayment() bool {
	for _, p := range o.payments {
		if p.IsConfirmed() {
			return true
		}
	}
	return false
}

// PersistedVersion is the version the repository last stored, used for the
// optimistic lock check.
func (o *Obligation) PersistedVersion() int {
	return o.persistedVersion
}

// MarkPersisted records that the current version has been stored
func (o *Obligation) MarkPersisted() {
	o.persistedVersion = o.Version
}

func (o *Obligation) findPayment(paymentID uuid.UUID) *Payment {
	for _, p := range o.payments {
		if p.ID == paymentID {
			return p
		}
	}
	return nil
}

func (o *Obligation) touch(at time.Time) {
	o.Touch(at)
	o.IncrementVersion()
}

// recomputeStatus derives the status from confirmed payments against the base amount
func (o *Obligation) recomputeStatus() error {
	if o.status == ObligationStatusCancelled {
		return nil
	}
	paid, err := o.TotalPaid()
	if err != nil {
		return err
	}
	switch {
	case paid.IsZero():
		o.status = ObligationStatusOpen
	case paid.Amount().LessThan(o.Terms.Amount().Amount()):
		o.status = ObligationStatusPartial
	default:
		o.status = ObligationStatusPaid
	}
	return nil
}

func (o *Obligation) registerPayment(p *Payment) error {
	if o.IsCancelled() {
		return shared.NewDomainError("OBLIGATION_CANCELLED", "Cannot register a payment on a cancelled obligation")
	}
	if p == nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if p.ObligationID != o.ID {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment belongs to another obligation")
	}
	if p.Amount.Currency() != o.Currency() {
		return shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("Payment currency %s does not match obligation currency %s", p.Amount.Currency(), o.Currency()))
	}
	if o.findPayment(p.ID) != nil {
		return shared.NewDomainError("DUPLICATE_PAYMENT", fmt.Sprintf("Payment %s is already registered", p.ID))
	}

	o.payments = append(o.payments, p)
	if err := o.recomputeStatus(); err != nil {
		return err
	}
	o.touch(time.Now())
	return nil
}

func (o *Obligation) confirmPayment(paymentID uuid.UUID, externalRef string, at time.Time) (*Payment, error) {
	p := o.findPayment(paymentID)
	if p == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", fmt.Sprintf("Payment %s not found", paymentID))
	}
	if err := p.Confirm(externalRef, at); err != nil {
		return nil, err
	}
	if err := o.recomputeStatus(); err != nil {
		return nil, err
	}
	o.touch(at)
	return p, nil
}

func (o *Obligation) cancelPayment(paymentID uuid.UUID, reason string, at time.Time) (*Payment, error) {
	p := o.findPayment(paymentID)
	if p == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", fmt.Sprintf("Payment %s not found", paymentID))
	}
	if err := p.Cancel(reason, at); err != nil {
		return nil, err
	}
	if err := o.recomputeStatus(); err != nil {
		return nil, err
	}
	o.touch(at)
	return p, nil
}

func (o *Obligation) cancel(reason string, actor uuid.UUID, at time.Time) error {
	if o.IsCancelled() {
		return shared.NewDomainError("OBLIGATION_CANCELLED", "Obligation is already cancelled")
	}
	if o.HasConfirmedPayment() {
		return shared.NewDomainError("HAS_CONFIRMED_PAYMENT", "Cannot cancel obligation with confirmed payment")
	}
	for _, p := range o.payments {
		if p.IsPending() {
			if err := p.Cancel("obligation cancelled: "+reason, at); err != nil {
				return err
			}
		}
	}
	o.status = ObligationStatusCancelled
	o.CancelledAt = &at
	o.CancelledBy = actor
	o.CancelReason = reason
	o.touch(at)
	return nil
}

// ObligationState is the persisted form of an obligation used to rebuild it
type ObligationState struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	CounterpartyID uuid.UUID
	DocumentNumber string
	Description    string
	Terms          valueobject.PaymentTerms
	Payments       []*Payment
	Status         ObligationStatus
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CancelledAt    *time.Time
	CancelledBy    uuid.UUID
	CancelReason   string
}

// restoreObligation rebuilds an obligation. Status is recomputed from the
// payments unless the stored status is CANCELLED.
func restoreObligation(s ObligationState) (Obligation, error) {
	o := Obligation{
		OrganizationAggregateRoot: shared.OrganizationAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
				Version:    s.Version,
			},
			OrganizationID: s.OrganizationID,
			BranchID:       s.BranchID,
		},
		CounterpartyID:   s.CounterpartyID,
		DocumentNumber:   s.DocumentNumber,
		Description:      s.Description,
		Terms:            s.Terms,
		CancelledAt:      s.CancelledAt,
		CancelledBy:      s.CancelledBy,
		CancelReason:     s.CancelReason,
		payments:         append([]*Payment(nil), s.Payments...),
		status:           ObligationStatusOpen,
		persistedVersion: s.Version,
	}
	if s.Status == ObligationStatusCancelled {
		o.status = ObligationStatusCancelled
		return o, nil
	}
	if err := o.recomputeStatus(); err != nil {
		return Obligation{}, err
	}
	return o, nil
}
