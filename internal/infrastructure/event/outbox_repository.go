package event

import (
	"context"
	"errors"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxEventModel is the outbox_events row
type OutboxEventModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	EventID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EventType      string    `gorm:"type:varchar(100);not null"`
	SchemaVersion  int       `gorm:"not null"`
	AggregateID    uuid.UUID `gorm:"type:uuid;not null"`
	AggregateType  string    `gorm:"type:varchar(100);not null"`
	Payload        []byte    `gorm:"type:jsonb;not null"`
	Status         string    `gorm:"type:varchar(20);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount     int       `gorm:"not null"`
	MaxRetries     int       `gorm:"not null"`
	LastError      string    `gorm:"type:text"`
	NextRetryAt    *time.Time
	ProcessedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboxEventModel) TableName() string {
	return "outbox_events"
}

func outboxModelFromEntry(e *shared.OutboxEntry) *OutboxEventModel {
	return &OutboxEventModel{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		EventID:        e.EventID,
		EventType:      e.EventType,
		SchemaVersion:  e.SchemaVersion,
		AggregateID:    e.AggregateID,
		AggregateType:  e.AggregateType,
		Payload:        e.Payload,
		Status:         string(e.Status),
		RetryCount:     e.RetryCount,
		MaxRetries:     e.MaxRetries,
		LastError:      e.LastError,
		NextRetryAt:    e.NextRetryAt,
		ProcessedAt:    e.ProcessedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func (m *OutboxEventModel) toEntry() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EventID:        m.EventID,
		EventType:      m.EventType,
		SchemaVersion:  m.SchemaVersion,
		AggregateID:    m.AggregateID,
		AggregateType:  m.AggregateType,
		Payload:        m.Payload,
		Status:         shared.OutboxStatus(m.Status),
		RetryCount:     m.RetryCount,
		MaxRetries:     m.MaxRetries,
		LastError:      m.LastError,
		NextRetryAt:    m.NextRetryAt,
		ProcessedAt:    m.ProcessedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toEntries(models []OutboxEventModel) []*shared.OutboxEntry {
	entries := make([]*shared.OutboxEntry, len(models))
	for i := range models {
		entries[i] = models[i].toEntry()
	}
	return entries
}

// GormOutboxRepository implements shared.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save inserts outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]*OutboxEventModel, len(entries))
	for i, e := range entries {
		models[i] = outboxModelFromEntry(e)
	}
	return r.db.WithContext(ctx).Create(models).Error
}

// FindDeliverable returns pending entries and failed entries due for retry, oldest first
func (r *GormOutboxRepository) FindDeliverable(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var models []OutboxEventModel
	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND next_retry_at <= ?)",
			shared.OutboxStatusPending, shared.OutboxStatusFailed, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toEntries(models), nil
}

// ClaimForProcessing moves the given entries to PROCESSING. Rows locked by
// another processor are skipped, so each entry is claimed by one worker.
func (r *GormOutboxRepository) ClaimForProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []OutboxEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids, []string{
				string(shared.OutboxStatusPending),
				string(shared.OutboxStatusFailed),
			}).
			Find(&models).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}

		claimed := make([]uuid.UUID, len(models))
		for i := range models {
			claimed[i] = models[i].ID
		}
		now := time.Now()
		if err := tx.Model(&OutboxEventModel{}).
			Where("id IN ?", claimed).
			Updates(map[string]any{
				"status":     string(shared.OutboxStatusProcessing),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		for i := range models {
			models[i].Status = string(shared.OutboxStatusProcessing)
			models[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toEntries(models), nil
}

// Update stores the delivery state of an entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Model(&OutboxEventModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]any{
			"status":        string(entry.Status),
			"retry_count":   entry.RetryCount,
			"last_error":    entry.LastError,
			"next_retry_at": entry.NextRetryAt,
			"processed_at":  entry.ProcessedAt,
			"updated_at":    entry.UpdatedAt,
		}).Error
}

// DeleteSentBefore removes delivered entries processed before the cutoff
func (r *GormOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&OutboxEventModel{})
	return result.RowsAffected, result.Error
}

// FindByID returns one entry or shared.ErrNotFound
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var model OutboxEventModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.toEntry(), nil
}

// FindDead returns dead-lettered entries, most recent first
func (r *GormOutboxRepository) FindDead(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var models []OutboxEventModel
	err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusDead).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toEntries(models), nil
}

// CountByStatus returns the number of entries per status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&OutboxEventModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
