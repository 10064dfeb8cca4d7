package accounting

import (
	"context"
	"fmt"

	"github.com/erp/accounting/internal/domain/billing"
	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"go.uber.org/zap"
)

// AccountingEventHandler subscribes the IntegrationService to the event bus.
// Each event is its own failure boundary: an error handling one event is
// returned to the bus for that event only.
type AccountingEventHandler struct {
	service *IntegrationService
	logger  *zap.Logger
}

// NewAccountingEventHandler creates a new AccountingEventHandler
func NewAccountingEventHandler(service *IntegrationService, logger *zap.Logger) *AccountingEventHandler {
	return &AccountingEventHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AccountingEventHandler) EventTypes() []string {
	return []string{
		finance.EventTypePaymentCompleted,
		finance.EventTypeReceivableReceived,
		finance.EventTypePayableCancelled,
		finance.EventTypeReceivableCancelled,
		billing.EventTypeBillingFinalized,
	}
}

// Handle dispatches event to the matching IntegrationService method
func (h *AccountingEventHandler) Handle(ctx context.Context, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while posting event to ledger",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("panic while handling %s: %v", event.EventType(), r)
		}
	}()

	switch e := event.(type) {
	case *finance.PaymentCompletedEvent:
		_, err = h.service.OnPaymentCompleted(ctx, e)
	case *finance.ReceivableReceivedEvent:
		_, err = h.service.OnReceivableReceived(ctx, e)
	case *billing.BillingFinalizedEvent:
		_, err = h.service.OnBillingFinalized(ctx, e)
	case *finance.PayableCancelledEvent:
		_, err = h.service.OnPayableCancelled(ctx, e)
	case *finance.ReceivableCancelledEvent:
		_, err = h.service.OnReceivableCancelled(ctx, e)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return err
}

// Ensure AccountingEventHandler implements shared.EventHandler
var _ shared.EventHandler = (*AccountingEventHandler)(nil)
