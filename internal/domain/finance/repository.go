package finance

import (
	"context"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountPayableRepository persists payables
type AccountPayableRepository interface {
	// FindByID returns shared.ErrNotFound when the payable does not exist in the organization
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*AccountPayable, error)
	FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*AccountPayable, error)
	// SaveWithEvents inserts a new payable and its events in one transaction
	SaveWithEvents(ctx context.Context, ap *AccountPayable, events []shared.DomainEvent) error
	// SaveWithLockAndEvents updates a payable if its stored version still matches
	// PersistedVersion, writing the events to the outbox in the same transaction
	SaveWithLockAndEvents(ctx context.Context, ap *AccountPayable, events []shared.DomainEvent) error
}

// AccountReceivableRepository persists receivables
type AccountReceivableRepository interface {
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*AccountReceivable, error)
	FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*AccountReceivable, error)
	SaveWithEvents(ctx context.Context, ar *AccountReceivable, events []shared.DomainEvent) error
	SaveWithLockAndEvents(ctx context.Context, ar *AccountReceivable, events []shared.DomainEvent) error
}
