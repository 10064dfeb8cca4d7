package billing

import (
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeBillingFinalized = "BillingFinalized"
	AggregateTypeInvoice      = "Invoice"
)

// Withholdings are the taxes retained at source on an invoice. Zero means not withheld.
type Withholdings struct {
	IRRF   decimal.Decimal `json:"withholding_irrf"`
	PIS    decimal.Decimal `json:"withholding_pis"`
	COFINS decimal.Decimal `json:"withholding_cofins"`
	CSLL   decimal.Decimal `json:"withholding_csll"`
	ISS    decimal.Decimal `json:"withholding_iss"`
}

// Total sums all withholdings
func (w Withholdings) Total() decimal.Decimal {
	return w.IRRF.Add(w.PIS).Add(w.COFINS).Add(w.CSLL).Add(w.ISS)
}

// BillingFinalizedEvent is raised when an invoice is finalized and revenue can be recognized
type BillingFinalizedEvent struct {
	shared.BaseDomainEvent
	Withholdings
	InvoiceID     uuid.UUID       `json:"invoice_id" validate:"required"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	ReceivableID  uuid.UUID       `json:"receivable_id" validate:"required"`
	CustomerID    uuid.UUID       `json:"customer_id" validate:"required"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	FinalizedAt   time.Time       `json:"finalized_at" validate:"required"`
}

// EventType returns the event type name
func (e *BillingFinalizedEvent) EventType() string {
	return EventTypeBillingFinalized
}

// BillingFinalizedParams holds the inputs of NewBillingFinalizedEvent
type BillingFinalizedParams struct {
	InvoiceID      uuid.UUID
	InvoiceNumber  string
	ReceivableID   uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	CustomerID     uuid.UUID
	GrossAmount    decimal.Decimal
	Currency       string
	Withholdings   Withholdings
	FinalizedAt    time.Time
}

// NewBillingFinalizedEvent creates the event; the net amount is gross minus withholdings
func NewBillingFinalizedEvent(p BillingFinalizedParams) *BillingFinalizedEvent {
	return &BillingFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingFinalized, AggregateTypeInvoice,
			p.InvoiceID, p.OrganizationID, p.BranchID),
		Withholdings:  p.Withholdings,
		InvoiceID:     p.InvoiceID,
		InvoiceNumber: p.InvoiceNumber,
		ReceivableID:  p.ReceivableID,
		CustomerID:    p.CustomerID,
		GrossAmount:   p.GrossAmount,
		NetAmount:     p.GrossAmount.Sub(p.Withholdings.Total()),
		Currency:      p.Currency,
		FinalizedAt:   p.FinalizedAt,
	}
}
