package finance

import (
	"time"

	"github.com/google/uuid"
)

// AccountPayable is money the organization owes a supplier
type AccountPayable struct {
	Obligation
}

// NewAccountPayable creates an OPEN payable at version 1
func NewAccountPayable(p ObligationParams) (*AccountPayable, error) {
	o, err := newObligation(p)
	if err != nil {
		return nil, err
	}
	ap := &AccountPayable{Obligation: o}
	ap.AddDomainEvent(NewAccountPayableCreatedEvent(ap))
	return ap, nil
}

// RestoreAccountPayable rebuilds a payable from persisted state
func RestoreAccountPayable(s ObligationState) (*AccountPayable, error) {
	o, err := restoreObligation(s)
	if err != nil {
		return nil, err
	}
	return &AccountPayable{Obligation: o}, nil
}

// SupplierID returns the supplier owed
func (ap *AccountPayable) SupplierID() uuid.UUID {
	return ap.CounterpartyID
}

// RegisterPayment attaches a pending payment
func (ap *AccountPayable) RegisterPayment(p *Payment) error {
	return ap.registerPayment(p)
}

// ConfirmPayment confirms a registered payment and emits PaymentCompleted
func (ap *AccountPayable) ConfirmPayment(paymentID uuid.UUID, externalRef string, at time.Time) error {
	p, err := ap.confirmPayment(paymentID, externalRef, at)
	if err != nil {
		return err
	}
	ap.AddDomainEvent(NewPaymentCompletedEvent(ap, p))
	return nil
}

// CancelPayment cancels a pending payment
func (ap *AccountPayable) CancelPayment(paymentID uuid.UUID, reason string, at time.Time) error {
	_, err := ap.cancelPayment(paymentID, reason, at)
	return err
}

// Cancel cancels the payable and its pending payments and emits PayableCancelled.
// It fails when any payment is confirmed.
func (ap *AccountPayable) Cancel(reason string, actor uuid.UUID, at time.Time) error {
	if err := ap.cancel(reason, actor, at); err != nil {
		return err
	}
	ap.AddDomainEvent(NewPayableCancelledEvent(ap))
	return nil
}
