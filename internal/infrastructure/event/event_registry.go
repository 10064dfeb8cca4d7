package event

import (
	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/billing"
	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
)

// RegisterAllEvents registers every event the service stores in the outbox or
// accepts at its boundary. The outbox processor can only redeliver registered types.
func RegisterAllEvents(s *EventSerializer) {
	// Finance: payables
	s.Register(finance.EventTypeAccountPayableCreated, 1, func() shared.DomainEvent { return &finance.AccountPayableCreatedEvent{} })
	s.Register(finance.EventTypePaymentCompleted, 1, func() shared.DomainEvent { return &finance.PaymentCompletedEvent{} })
	s.Register(finance.EventTypePayableCancelled, 1, func() shared.DomainEvent { return &finance.PayableCancelledEvent{} })

	// Finance: receivables
	s.Register(finance.EventTypeAccountReceivableCreated, 1, func() shared.DomainEvent { return &finance.AccountReceivableCreatedEvent{} })
	s.Register(finance.EventTypeReceivableReceived, 1, func() shared.DomainEvent { return &finance.ReceivableReceivedEvent{} })
	s.Register(finance.EventTypeReceivableCancelled, 1, func() shared.DomainEvent { return &finance.ReceivableCancelledEvent{} })

	// Billing
	s.Register(billing.EventTypeBillingFinalized, 1, func() shared.DomainEvent { return &billing.BillingFinalizedEvent{} })

	// Ledger
	s.Register(accounting.EventTypeJournalEntryPosted, 1, func() shared.DomainEvent { return &accounting.JournalEntryPostedEvent{} })
	s.Register(accounting.EventTypeJournalEntryReversed, 1, func() shared.DomainEvent { return &accounting.JournalEntryReversedEvent{} })
}
