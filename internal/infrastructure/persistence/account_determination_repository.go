package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountDeterminationRepository implements accounting.AccountDeterminationRepository using GORM
type GormAccountDeterminationRepository struct {
	db *gorm.DB
}

// NewGormAccountDeterminationRepository creates a new GormAccountDeterminationRepository
func NewGormAccountDeterminationRepository(db *gorm.DB) *GormAccountDeterminationRepository {
	return &GormAccountDeterminationRepository{db: db}
}

// FindAll loads every rule of the organization and branch. A stored condition
// that no longer compiles fails the whole load rather than silently dropping
// the rule.
func (r *GormAccountDeterminationRepository) FindAll(ctx context.Context, organizationID, branchID uuid.UUID) (accounting.RuleSet, error) {
	var rows []models.AccountDeterminationRuleModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND branch_id = ?", organizationID, branchID).
		Order("priority ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return accounting.RuleSet{}, err
	}

	rules := make([]accounting.AccountDeterminationRule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].ToDomain()
		if err != nil {
			return accounting.RuleSet{}, fmt.Errorf("load account rule %s: %w", rows[i].ID, err)
		}
		rules = append(rules, rule)
	}
	return accounting.NewRuleSet(rules...), nil
}

// Save inserts or updates a rule
func (r *GormAccountDeterminationRepository) Save(ctx context.Context, rule *accounting.AccountDeterminationRule) error {
	model := models.AccountDeterminationRuleModelFromDomain(rule)
	now := time.Now()
	model.CreatedAt = now
	model.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"operation_type", "debit_account_id", "debit_account_code", "credit_account_id",
			"credit_account_code", "priority", "condition", "active", "description", "updated_at",
		}),
	}).Create(model).Error
}

// Ensure GormAccountDeterminationRepository implements accounting.AccountDeterminationRepository
var _ accounting.AccountDeterminationRepository = (*GormAccountDeterminationRepository)(nil)
