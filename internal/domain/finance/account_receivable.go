package finance

import (
	"time"

	"github.com/google/uuid"
)

// AccountReceivable is money a customer owes the organization
type AccountReceivable struct {
	Obligation
}

// NewAccountReceivable creates an OPEN receivable at version 1
func NewAccountReceivable(p ObligationParams) (*AccountReceivable, error) {
	o, err := newObligation(p)
	if err != nil {
		return nil, err
	}
	ar := &AccountReceivable{Obligation: o}
	ar.AddDomainEvent(NewAccountReceivableCreatedEvent(ar))
	return ar, nil
}

// RestoreAccountReceivable rebuilds a receivable from persisted state
func RestoreAccountReceivable(s ObligationState) (*AccountReceivable, error) {
	o, err := restoreObligation(s)
	if err != nil {
		return nil, err
	}
	return &AccountReceivable{Obligation: o}, nil
}

// CustomerID returns the customer who owes
func (ar *AccountReceivable) CustomerID() uuid.UUID {
	return ar.CounterpartyID
}

// RegisterPayment attaches a pending payment
func (ar *AccountReceivable) RegisterPayment(p *Payment) error {
	return ar.registerPayment(p)
}

// ConfirmPayment confirms a registered payment and emits ReceivableReceived
func (ar *AccountReceivable) ConfirmPayment(paymentID uuid.UUID, externalRef string, receivedBy uuid.UUID, at time.Time) error {
	p, err := ar.confirmPayment(paymentID, externalRef, at)
	if err != nil {
		return err
	}
	ar.AddDomainEvent(NewReceivableReceivedEvent(ar, p, receivedBy))
	return nil
}

// CancelPayment cancels a pending payment
func (ar *AccountReceivable) CancelPayment(paymentID uuid.UUID, reason string, at time.Time) error {
	_, err := ar.cancelPayment(paymentID, reason, at)
	return err
}

// Cancel cancels the receivable and its pending payments and emits ReceivableCancelled
func (ar *AccountReceivable) Cancel(reason string, actor uuid.UUID, at time.Time) error {
	if err := ar.cancel(reason, actor, at); err != nil {
		return err
	}
	ar.AddDomainEvent(NewReceivableCancelledEvent(ar))
	return nil
}
