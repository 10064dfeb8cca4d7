package accounting

import (
	"context"

	"github.com/google/uuid"
)

// AccountDeterminationRepository loads the rule table of an organization and branch
type AccountDeterminationRepository interface {
	// FindAll returns every rule (active or not) ordered by priority
	FindAll(ctx context.Context, organizationID, branchID uuid.UUID) (RuleSet, error)
	Save(ctx context.Context, rule *AccountDeterminationRule) error
}

// JournalEntryRepository persists journal entries
type JournalEntryRepository interface {
	// NextEntryNumber allocates the next entry number for the organization and
	// branch. Numbers are unique and increase monotonically.
	NextEntryNumber(ctx context.Context, organizationID, branchID uuid.UUID) (string, error)
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*JournalEntry, error)
	// FindBySourceID returns every entry recorded for the source ordered by
	// entry number. uuid.Nil as branchID spans every branch of the
	// organization. An empty slice means none.
	FindBySourceID(ctx context.Context, organizationID, branchID, sourceID uuid.UUID) ([]*JournalEntry, error)
	ExistsByIdempotencyKey(ctx context.Context, organizationID uuid.UUID, key string) (bool, error)
	Save(ctx context.Context, entry *JournalEntry) error
	// SaveMany persists all entries in one transaction
	SaveMany(ctx context.Context, entries ...*JournalEntry) error
}
