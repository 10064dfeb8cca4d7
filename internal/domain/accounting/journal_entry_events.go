package accounting

import (
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeJournalEntryPosted   = "JournalEntryPosted"
	EventTypeJournalEntryReversed = "JournalEntryReversed"
)

// JournalEntryPostedEvent is raised when an entry moves to POSTED
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	JournalEntryID    uuid.UUID       `json:"journal_entry_id"`
	EntryNumber       string          `json:"entry_number"`
	Source            JournalSource   `json:"source"`
	SourceID          uuid.UUID       `json:"source_id"`
	OperationType     OperationType   `json:"operation_type"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Currency          string          `json:"currency"`
	ReversalOfEntryID *uuid.UUID      `json:"reversal_of_entry_id,omitempty"`
	PostedAt          time.Time       `json:"posted_at"`
}

// EventType returns the event type name
func (e *JournalEntryPostedEvent) EventType() string {
	return EventTypeJournalEntryPosted
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	var postedAt time.Time
	if e.PostedAt != nil {
		postedAt = *e.PostedAt
	}
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, AggregateTypeJournalEntry,
			e.ID, e.OrganizationID, e.BranchID),
		JournalEntryID:    e.ID,
		EntryNumber:       e.EntryNumber,
		Source:            e.Source,
		SourceID:          e.SourceID,
		OperationType:     e.OperationType,
		TotalAmount:       e.TotalDebit(),
		Currency:          string(e.Currency()),
		ReversalOfEntryID: e.ReversalOfEntryID,
		PostedAt:          postedAt,
	}
}

// JournalEntryReversedEvent is raised when a posted entry is marked reversed
type JournalEntryReversedEvent struct {
	shared.BaseDomainEvent
	JournalEntryID    uuid.UUID `json:"journal_entry_id"`
	EntryNumber       string    `json:"entry_number"`
	ReversedByEntryID uuid.UUID `json:"reversed_by_entry_id"`
	ReversedAt        time.Time `json:"reversed_at"`
}

// EventType returns the event type name
func (e *JournalEntryReversedEvent) EventType() string {
	return EventTypeJournalEntryReversed
}

// NewJournalEntryReversedEvent creates a new JournalEntryReversedEvent
func NewJournalEntryReversedEvent(e *JournalEntry) *JournalEntryReversedEvent {
	event := &JournalEntryReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryReversed, AggregateTypeJournalEntry,
			e.ID, e.OrganizationID, e.BranchID),
		JournalEntryID: e.ID,
		EntryNumber:    e.EntryNumber,
	}
	if e.ReversedByEntryID != nil {
		event.ReversedByEntryID = *e.ReversedByEntryID
	}
	if e.ReversedAt != nil {
		event.ReversedAt = *e.ReversedAt
	}
	return event
}
