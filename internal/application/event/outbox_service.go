// Package event holds the operator-facing services around event delivery.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDeadLetterLimit = 20
	maxDeadLetterLimit     = 100
)

// OutboxAdminRepository is the outbox access the dead-letter service needs
type OutboxAdminRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	FindDead(ctx context.Context, limit int) ([]*shared.OutboxEntry, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
}

// OutboxService inspects and requeues outbox entries that exhausted their retries
type OutboxService struct {
	repo   OutboxAdminRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo OutboxAdminRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryDTO represents an outbox entry data transfer object
type OutboxEntryDTO struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	EventID        uuid.UUID  `json:"event_id"`
	EventType      string     `json:"event_type"`
	SchemaVersion  int        `json:"schema_version"`
	AggregateID    uuid.UUID  `json:"aggregate_id"`
	AggregateType  string     `json:"aggregate_type"`
	Status         string     `json:"status"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	LastError      string     `json:"last_error,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OutboxStatsDTO represents outbox statistics
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// DeadLetters returns up to limit dead entries, most recently failed first
func (s *OutboxService) DeadLetters(ctx context.Context, limit int) ([]OutboxEntryDTO, error) {
	if limit < 1 {
		limit = defaultDeadLetterLimit
	}
	if limit > maxDeadLetterLimit {
		limit = maxDeadLetterLimit
	}

	entries, err := s.repo.FindDead(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to find dead letter entries", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}
	return dtos, nil
}

// GetEntry retrieves a single outbox entry by ID
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry puts a dead entry back in the delivery queue
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retry entry")
	}

	s.logger.Info("Dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead entry and returns how many were reset
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	var count int64
	for {
		entries, err := s.repo.FindDead(ctx, maxDeadLetterLimit)
		if err != nil {
			s.logger.Error("Failed to find dead letter entries", zap.Error(err))
			return count, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries")
		}

		reset := 0
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", entry.ID.String()))
				continue
			}
			reset++
		}
		count += int64(reset)

		// a page where nothing could be reset would be returned again forever
		if len(entries) < maxDeadLetterLimit || reset == 0 {
			break
		}
	}

	s.logger.Info("Retried dead letter entries", zap.Int64("count", count))
	return count, nil
}

// GetStats returns outbox statistics
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to get outbox stats", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get outbox stats")
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	return &OutboxStatsDTO{
		Pending:    counts[string(shared.OutboxStatusPending)],
		Processing: counts[string(shared.OutboxStatusProcessing)],
		Sent:       counts[string(shared.OutboxStatusSent)],
		Failed:     counts[string(shared.OutboxStatusFailed)],
		Dead:       counts[string(shared.OutboxStatusDead)],
		Total:      total,
	}, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("NOT_FOUND", "Outbox entry not found")
	}
	if err != nil {
		s.logger.Error("Failed to find outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to retrieve outbox entry")
	}
	return entry, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:             entry.ID,
		OrganizationID: entry.OrganizationID,
		EventID:        entry.EventID,
		EventType:      entry.EventType,
		SchemaVersion:  entry.SchemaVersion,
		AggregateID:    entry.AggregateID,
		AggregateType:  entry.AggregateType,
		Status:         string(entry.Status),
		RetryCount:     entry.RetryCount,
		MaxRetries:     entry.MaxRetries,
		LastError:      entry.LastError,
		NextRetryAt:    entry.NextRetryAt,
		ProcessedAt:    entry.ProcessedAt,
		CreatedAt:      entry.CreatedAt,
		UpdatedAt:      entry.UpdatedAt,
	}
}
