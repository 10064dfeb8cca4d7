package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// obligationStore holds the storage logic shared by payables and receivables.
// Both live in the obligations table and are told apart by kind.
type obligationStore struct {
	db          *gorm.DB
	kind        finance.ObligationKind
	outboxSaver shared.OutboxEventSaver
}

func (s *obligationStore) find(ctx context.Context, query string, args ...any) (*models.ObligationModel, error) {
	var model models.ObligationModel
	if err := s.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("kind = ?", s.kind).
		Where(query, args...).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &model, nil
}

func (s *obligationStore) insert(ctx context.Context, o *finance.Obligation, events []shared.DomainEvent) error {
	model := models.ObligationModelFromDomain(s.kind, o)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewDomainError(shared.ErrAlreadyExists.Code,
					fmt.Sprintf("document %s is already registered", o.DocumentNumber))
			}
			return err
		}
		return s.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return err
	}
	o.MarkPersisted()
	return nil
}

// update writes the obligation only if the stored version still equals the
// version it was loaded at, then upserts its payments and events.
func (s *obligationStore) update(ctx context.Context, o *finance.Obligation, events []shared.DomainEvent) error {
	model := models.ObligationModelFromDomain(s.kind, o)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ObligationModel{}).
			Where("id = ? AND kind = ? AND version = ?", o.ID, s.kind, o.PersistedVersion()).
			Updates(map[string]any{
				"description":     model.Description,
				"amount":          model.Amount,
				"currency":        model.Currency,
				"due_date":        model.DueDate,
				"fine_rate":       model.FineRate,
				"interest_rate":   model.InterestRate,
				"fine_grace_days": model.FineGraceDays,
				"status":          model.Status,
				"cancelled_at":    model.CancelledAt,
				"cancelled_by":    model.CancelledBy,
				"cancel_reason":   model.CancelReason,
				"version":         model.Version,
				"updated_at":      model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.ObligationModel{}).
				Where("id = ? AND kind = ?", o.ID, s.kind).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}

		if len(model.Payments) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"status", "external_ref", "confirmed_at", "cancelled_at", "cancel_reason",
				}),
			}).Create(&model.Payments).Error; err != nil {
				return err
			}
		}
		return s.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return err
	}
	o.MarkPersisted()
	return nil
}

func (s *obligationStore) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if s.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := s.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// GormAccountPayableRepository implements finance.AccountPayableRepository using GORM
type GormAccountPayableRepository struct {
	store obligationStore
}

// NewGormAccountPayableRepository creates a new GormAccountPayableRepository
func NewGormAccountPayableRepository(db *gorm.DB) *GormAccountPayableRepository {
	return &GormAccountPayableRepository{store: obligationStore{db: db, kind: finance.ObligationKindPayable}}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormAccountPayableRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.store.outboxSaver = saver
}

// FindByID finds a payable of the organization
func (r *GormAccountPayableRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*finance.AccountPayable, error) {
	model, err := r.store.find(ctx, "organization_id = ? AND id = ?", organizationID, id)
	if err != nil {
		return nil, err
	}
	return toPayable(model)
}

// FindByDocumentNumber finds a payable by its document number within a branch
func (r *GormAccountPayableRepository) FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*finance.AccountPayable, error) {
	model, err := r.store.find(ctx, "organization_id = ? AND branch_id = ? AND document_number = ?",
		organizationID, branchID, documentNumber)
	if err != nil {
		return nil, err
	}
	return toPayable(model)
}

// SaveWithEvents inserts a new payable and its events atomically
func (r *GormAccountPayableRepository) SaveWithEvents(ctx context.Context, ap *finance.AccountPayable, events []shared.DomainEvent) error {
	return r.store.insert(ctx, &ap.Obligation, events)
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain events atomically
func (r *GormAccountPayableRepository) SaveWithLockAndEvents(ctx context.Context, ap *finance.AccountPayable, events []shared.DomainEvent) error {
	return r.store.update(ctx, &ap.Obligation, events)
}

func toPayable(model *models.ObligationModel) (*finance.AccountPayable, error) {
	state, err := model.ToState()
	if err != nil {
		return nil, fmt.Errorf("restore payable %s: %w", model.ID, err)
	}
	return finance.RestoreAccountPayable(state)
}

// GormAccountReceivableRepository implements finance.AccountReceivableRepository using GORM
type GormAccountReceivableRepository struct {
	store obligationStore
}

// NewGormAccountReceivableRepository creates a new GormAccountReceivableRepository
func NewGormAccountReceivableRepository(db *gorm.DB) *GormAccountReceivableRepository {
	return &GormAccountReceivableRepository{store: obligationStore{db: db, kind: finance.ObligationKindReceivable}}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormAccountReceivableRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.store.outboxSaver = saver
}

// FindByID finds a receivable of the organization
func (r *GormAccountReceivableRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*finance.AccountReceivable, error) {
	model, err := r.store.find(ctx, "organization_id = ? AND id = ?", organizationID, id)
	if err != nil {
		return nil, err
	}
	return toReceivable(model)
}

// FindByDocumentNumber finds a receivable by its document number within a branch
func (r *GormAccountReceivableRepository) FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*finance.AccountReceivable, error) {
	model, err := r.store.find(ctx, "organization_id = ? AND branch_id = ? AND document_number = ?",
		organizationID, branchID, documentNumber)
	if err != nil {
		return nil, err
	}
	return toReceivable(model)
}

// SaveWithEvents inserts a new receivable and its events atomically
func (r *GormAccountReceivableRepository) SaveWithEvents(ctx context.Context, ar *finance.AccountReceivable, events []shared.DomainEvent) error {
	return r.store.insert(ctx, &ar.Obligation, events)
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain events atomically
func (r *GormAccountReceivableRepository) SaveWithLockAndEvents(ctx context.Context, ar *finance.AccountReceivable, events []shared.DomainEvent) error {
	return r.store.update(ctx, &ar.Obligation, events)
}

func toReceivable(model *models.ObligationModel) (*finance.AccountReceivable, error) {
	state, err := model.ToState()
	if err != nil {
		return nil, fmt.Errorf("restore receivable %s: %w", model.ID, err)
	}
	return finance.RestoreAccountReceivable(state)
}

var (
	_ finance.AccountPayableRepository    = (*GormAccountPayableRepository)(nil)
	_ finance.AccountReceivableRepository = (*GormAccountReceivableRepository)(nil)
)
