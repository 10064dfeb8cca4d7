package accounting

import (
	"context"
	"fmt"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRuleRepository is a mock implementation of AccountDeterminationRepository
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindAll(ctx context.Context, organizationID, branchID uuid.UUID) (accounting.RuleSet, error) {
	args := m.Called(ctx, organizationID, branchID)
	return args.Get(0).(accounting.RuleSet), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *accounting.AccountDeterminationRule) error {
	return m.Called(ctx, rule).Error(0)
}

// MockJournalEntryRepository is a mock implementation of JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
	numbers int
}

func (m *MockJournalEntryRepository) NextEntryNumber(ctx context.Context, organizationID, branchID uuid.UUID) (string, error) {
	args := m.Called(ctx, organizationID, branchID)
	if args.Error(1) != nil {
		return "", args.Error(1)
	}
	m.numbers++
	return fmt.Sprintf("%s%010d", args.String(0), m.numbers), nil
}

func (m *MockJournalEntryRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*accounting.JournalEntry, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindBySourceID(ctx context.Context, organizationID, branchID, sourceID uuid.UUID) ([]*accounting.JournalEntry, error) {
	args := m.Called(ctx, organizationID, branchID, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) ExistsByIdempotencyKey(ctx context.Context, organizationID uuid.UUID, key string) (bool, error) {
	args := m.Called(ctx, organizationID, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockJournalEntryRepository) Save(ctx context.Context, entry *accounting.JournalEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockJournalEntryRepository) SaveMany(ctx context.Context, entries ...*accounting.JournalEntry) error {
	return m.Called(ctx, entries).Error(0)
}

// MockLedgerReportRepository is a mock implementation of LedgerReportRepository
type MockLedgerReportRepository struct {
	mock.Mock
}

func (m *MockLedgerReportRepository) TrialBalance(ctx context.Context, filter accounting.TrialBalanceFilter) ([]accounting.TrialBalanceLine, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.TrialBalanceLine), args.Error(1)
}

func brl(amount string) valueobject.Money {
	return valueobject.MustNewMoneyFromString(amount, valueobject.BRL)
}
