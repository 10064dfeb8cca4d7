package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entryNumberPeriodLayout = "200601"

// GormJournalEntryRepository implements accounting.JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
	now         func() time.Time
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db, now: time.Now}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormJournalEntryRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// NextEntryNumber increments the sequence of the current period under a row
// lock and formats it as YYYYMM-NNNNNNNNNN.
func (r *GormJournalEntryRepository) NextEntryNumber(ctx context.Context, organizationID, branchID uuid.UUID) (string, error) {
	now := r.now()
	period := now.Format(entryNumberPeriodLayout)

	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.JournalEntrySequenceModel{
			OrganizationID: organizationID,
			BranchID:       branchID,
			Period:         period,
			UpdatedAt:      now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var seq models.JournalEntrySequenceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND branch_id = ? AND period = ?", organizationID, branchID, period).
			Take(&seq).Error; err != nil {
			return err
		}

		next = seq.LastValue + 1
		return tx.Model(&models.JournalEntrySequenceModel{}).
			Where("organization_id = ? AND branch_id = ? AND period = ?", organizationID, branchID, period).
			Updates(map[string]any{"last_value": next, "updated_at": now}).Error
	})
	if err != nil {
		return "", fmt.Errorf("allocate journal entry number: %w", err)
	}
	return fmt.Sprintf("%s-%010d", period, next), nil
}

// FindByID finds a journal entry with its lines
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderLines).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindBySourceID returns the entries recorded for a source document ordered by entry number
func (r *GormJournalEntryRepository) FindBySourceID(ctx context.Context, organizationID, branchID, sourceID uuid.UUID) ([]*accounting.JournalEntry, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", orderLines).
		Where("organization_id = ? AND source_id = ?", organizationID, sourceID)
	if branchID != uuid.Nil {
		query = query.Where("branch_id = ?", branchID)
	}

	var rows []models.JournalEntryModel
	if err := query.
		Order("entry_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*accounting.JournalEntry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ExistsByIdempotencyKey reports whether an entry with the key was already recorded
func (r *GormJournalEntryRepository) ExistsByIdempotencyKey(ctx context.Context, organizationID uuid.UUID, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("organization_id = ? AND idempotency_key = ?", organizationID, key).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts or updates a journal entry
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *accounting.JournalEntry) error {
	return r.SaveMany(ctx, entry)
}

// SaveMany persists the entries and their events in one transaction
func (r *GormJournalEntryRepository) SaveMany(ctx context.Context, entries ...*accounting.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []shared.DomainEvent
		for _, entry := range entries {
			if err := saveJournalEntry(tx, entry); err != nil {
				return err
			}
			events = append(events, entry.GetDomainEvents()...)
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "journal entry already recorded")
		}
		return err
	}
	for _, entry := range entries {
		entry.ClearDomainEvents()
	}
	return nil
}

// saveJournalEntry upserts the header. Lines never change after posting, so
// existing ones are left alone.
func saveJournalEntry(tx *gorm.DB, entry *accounting.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	lines := model.Lines
	model.Lines = nil

	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "status", "reversed_by_entry_id", "posted_at", "posted_by",
			"reversed_at", "version", "updated_at",
		}),
	}).Create(model).Error; err != nil {
		return err
	}

	if len(lines) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lines).Error
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_number ASC")
}

// Ensure GormJournalEntryRepository implements accounting.JournalEntryRepository
var _ accounting.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
