package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/erp/accounting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var entryDate = time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)

// setupTestDB opens an in-memory SQLite database with the accounting schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.JournalEntryModel{},
		&models.JournalEntryLineModel{},
		&models.JournalEntrySequenceModel{},
		&models.AccountDeterminationRuleModel{},
		&models.ObligationModel{},
		&models.ObligationPaymentModel{},
	))
	return db
}

// recordingOutboxSaver captures the events handed to the outbox
type recordingOutboxSaver struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (s *recordingOutboxSaver) SaveEvents(_ context.Context, txProvider any, events ...shared.DomainEvent) error {
	if _, ok := txProvider.(*gorm.DB); !ok {
		return errors.New("outbox saver needs a *gorm.DB transaction")
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingOutboxSaver) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType()
	}
	return out
}

func brl(t *testing.T, amount string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(amount, valueobject.BRL)
	require.NoError(t, err)
	return m
}

type journalFixture struct {
	orgID    uuid.UUID
	branchID uuid.UUID
	accounts accounting.AccountPair
}

func newJournalFixture() journalFixture {
	return journalFixture{
		orgID:    uuid.New(),
		branchID: uuid.New(),
		accounts: accounting.AccountPair{
			DebitAccountID:    uuid.New(),
			DebitAccountCode:  "2.1.1.01",
			CreditAccountID:   uuid.New(),
			CreditAccountCode: "1.1.1.01",
		},
	}
}

func (f journalFixture) postedEntry(t *testing.T, number string, sourceID uuid.UUID, amount, key string) *accounting.JournalEntry {
	t.Helper()
	entry, err := accounting.NewBalancedEntry(accounting.BalancedEntryParams{
		Entry: accounting.JournalEntryParams{
			OrganizationID: f.orgID,
			BranchID:       f.branchID,
			EntryNumber:    number,
			EntryDate:      entryDate,
			Description:    "Supplier payment",
			Source:         accounting.JournalSourcePayment,
			SourceID:       sourceID,
			OperationType:  accounting.OperationPaymentSupplier,
			IdempotencyKey: key,
		},
		Accounts: f.accounts,
		Amount:   brl(t, amount),
	})
	require.NoError(t, err)
	require.NoError(t, entry.Post("accounting-integration", entryDate))
	return entry
}
