package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEntry is a serialized domain event committed in the same transaction
// as the aggregate change that produced it. The outbox processor delivers it
// at least once to the event bus.
type OutboxEntry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EventID        uuid.UUID
	EventType      string
	SchemaVersion  int
	AggregateID    uuid.UUID
	AggregateType  string
	Payload        []byte
	Status         OutboxStatus
	RetryCount     int
	MaxRetries     int
	LastError      string
	NextRetryAt    *time.Time
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOutboxEntry creates a pending outbox entry for a serialized event
func NewOutboxEntry(event DomainEvent, version int, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:             uuid.New(),
		OrganizationID: event.OrganizationID(),
		EventID:        event.EventID(),
		EventType:      event.EventType(),
		SchemaVersion:  version,
		AggregateID:    event.AggregateID(),
		AggregateType:  event.AggregateType(),
		Payload:        payload,
		Status:         OutboxStatusPending,
		MaxRetries:     DefaultMaxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MarkSent marks the entry as delivered
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure and schedules the next attempt with
// exponential backoff (1s, 2s, 4s, ...). After MaxRetries the entry is dead.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := e.UpdatedAt.Add(DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1)))
	e.NextRetryAt = &next
}

// IsDead returns true if the entry exhausted its retries
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// ResetForRetry puts a dead entry back in the queue with a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return NewDomainError("INVALID_STATE", fmt.Sprintf("outbox entry %s is %s, only DEAD entries can be retried", e.ID, e.Status))
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// OutboxRepository defines outbox persistence
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindDeliverable returns pending entries and failed entries due before now
	FindDeliverable(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// ClaimForProcessing atomically moves entries to PROCESSING and returns the ones claimed
	ClaimForProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
}
