package finance

import (
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeAccountPayableCreated    = "AccountPayableCreated"
	EventTypePaymentCompleted         = "PaymentCompleted"
	EventTypePayableCancelled         = "PayableCancelled"
	EventTypeAccountReceivableCreated = "AccountReceivableCreated"
	EventTypeReceivableReceived       = "ReceivableReceived"
	EventTypeReceivableCancelled      = "ReceivableCancelled"
)

// Aggregate type names
const (
	AggregateTypeAccountPayable    = "AccountPayable"
	AggregateTypeAccountReceivable = "AccountReceivable"
)

// AccountPayableCreatedEvent is raised when a new payable is recognized
type AccountPayableCreatedEvent struct {
	shared.BaseDomainEvent
	PayableID      uuid.UUID       `json:"payable_id"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	DocumentNumber string          `json:"document_number"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DueDate        time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *AccountPayableCreatedEvent) EventType() string {
	return EventTypeAccountPayableCreated
}

// NewAccountPayableCreatedEvent creates a new AccountPayableCreatedEvent
func NewAccountPayableCreatedEvent(ap *AccountPayable) *AccountPayableCreatedEvent {
	return &AccountPayableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountPayableCreated, AggregateTypeAccountPayable,
			ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:      ap.ID,
		SupplierID:     ap.SupplierID(),
		DocumentNumber: ap.DocumentNumber,
		Amount:         ap.Terms.Amount().Amount(),
		Currency:       string(ap.Currency()),
		DueDate:        ap.Terms.DueDate(),
	}
}

// PaymentCompletedEvent is raised when a payment against a payable is
// confirmed. It carries the principal and the ancillary charges so the ledger
// can post each one separately.
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PayableID      uuid.UUID       `json:"payable_id" validate:"required"`
	PaymentID      uuid.UUID       `json:"payment_id" validate:"required"`
	SupplierID     uuid.UUID       `json:"supplier_id" validate:"required"`
	DocumentNumber string          `json:"document_number,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	PaidAt         time.Time       `json:"paid_at" validate:"required"`
	Interest       decimal.Decimal `json:"interest"`
	Fine           decimal.Decimal `json:"fine"`
	Discount       decimal.Decimal `json:"discount"`
	BankFee        decimal.Decimal `json:"bank_fee"`
}

// EventType returns the event type name
func (e *PaymentCompletedEvent) EventType() string {
	return EventTypePaymentCompleted
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(ap *AccountPayable, p *Payment) *PaymentCompletedEvent {
	paidAt := p.PaidAt
	if p.ConfirmedAt != nil && paidAt.IsZero() {
		paidAt = *p.ConfirmedAt
	}
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypeAccountPayable,
			ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:      ap.ID,
		PaymentID:      p.ID,
		SupplierID:     ap.SupplierID(),
		DocumentNumber: ap.DocumentNumber,
		Amount:         p.Amount.Amount(),
		Currency:       string(p.Amount.Currency()),
		PaidAt:         paidAt,
		Interest:       p.Charges.Interest.Amount(),
		Fine:           p.Charges.Fine.Amount(),
		Discount:       p.Charges.Discount.Amount(),
		BankFee:        p.Charges.BankFee.Amount(),
	}
}

// PayableCancelledEvent is raised when a payable is cancelled
type PayableCancelledEvent struct {
	shared.BaseDomainEvent
	PayableID   uuid.UUID `json:"payable_id" validate:"required"`
	CancelledAt time.Time `json:"cancelled_at" validate:"required"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	Reason      string    `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *PayableCancelledEvent) EventType() string {
	return EventTypePayableCancelled
}

// NewPayableCancelledEvent creates a new PayableCancelledEvent
func NewPayableCancelledEvent(ap *AccountPayable) *PayableCancelledEvent {
	cancelledAt := time.Now()
	if ap.CancelledAt != nil {
		cancelledAt = *ap.CancelledAt
	}
	return &PayableCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayableCancelled, AggregateTypeAccountPayable,
			ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:   ap.ID,
		CancelledAt: cancelledAt,
		CancelledBy: ap.CancelledBy,
		Reason:      ap.CancelReason,
	}
}

// AccountReceivableCreatedEvent is raised when a new receivable is recognized
type AccountReceivableCreatedEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID       `json:"receivable_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	DocumentNumber string          `json:"document_number"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DueDate        time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *AccountReceivableCreatedEvent) EventType() string {
	return EventTypeAccountReceivableCreated
}

// NewAccountReceivableCreatedEvent creates a new AccountReceivableCreatedEvent
func NewAccountReceivableCreatedEvent(ar *AccountReceivable) *AccountReceivableCreatedEvent {
	return &AccountReceivableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountReceivableCreated, AggregateTypeAccountReceivable,
			ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:   ar.ID,
		CustomerID:     ar.CustomerID(),
		DocumentNumber: ar.DocumentNumber,
		Amount:         ar.Terms.Amount().Amount(),
		Currency:       string(ar.Currency()),
		DueDate:        ar.Terms.DueDate(),
	}
}

// ReceivableReceivedEvent is raised when a payment from a customer is confirmed
type ReceivableReceivedEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID       `json:"receivable_id" validate:"required"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	CustomerID     uuid.UUID       `json:"customer_id" validate:"required"`
	DocumentNumber string          `json:"document_number,omitempty"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	ReceivedAt     time.Time       `json:"received_at" validate:"required"`
	ReceivedBy     uuid.UUID       `json:"received_by"`
	Interest       decimal.Decimal `json:"interest"`
	Fine           decimal.Decimal `json:"fine"`
	Discount       decimal.Decimal `json:"discount"`
}

// EventType returns the event type name
func (e *ReceivableReceivedEvent) EventType() string {
	return EventTypeReceivableReceived
}

// NewReceivableReceivedEvent creates a new ReceivableReceivedEvent
func NewReceivableReceivedEvent(ar *AccountReceivable, p *Payment, receivedBy uuid.UUID) *ReceivableReceivedEvent {
	return &ReceivableReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableReceived, AggregateTypeAccountReceivable,
			ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:   ar.ID,
		PaymentID:      p.ID,
		CustomerID:     ar.CustomerID(),
		DocumentNumber: ar.DocumentNumber,
		AmountReceived: p.Amount.Amount(),
		Currency:       string(p.Amount.Currency()),
		ReceivedAt:     p.PaidAt,
		ReceivedBy:     receivedBy,
		Interest:       p.Charges.Interest.Amount(),
		Fine:           p.Charges.Fine.Amount(),
		Discount:       p.Charges.Discount.Amount(),
	}
}

// ReceivableCancelledEvent is raised when a receivable is cancelled
type ReceivableCancelledEvent struct {
	shared.BaseDomainEvent
	ReceivableID uuid.UUID `json:"receivable_id" validate:"required"`
	CancelledAt  time.Time `json:"cancelled_at" validate:"required"`
	CancelledBy  uuid.UUID `json:"cancelled_by"`
	Reason       string    `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *ReceivableCancelledEvent) EventType() string {
	return EventTypeReceivableCancelled
}

// NewReceivableCancelledEvent creates a new ReceivableCancelledEvent
func NewReceivableCancelledEvent(ar *AccountReceivable) *ReceivableCancelledEvent {
	cancelledAt := time.Now()
	if ar.CancelledAt != nil {
		cancelledAt = *ar.CancelledAt
	}
	return &ReceivableCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableCancelled, AggregateTypeAccountReceivable,
			ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID: ar.ID,
		CancelledAt:  cancelledAt,
		CancelledBy:  ar.CancelledBy,
		Reason:       ar.CancelReason,
	}
}
