//go:build integration

package persistence

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/infrastructure/event"
	"github.com/erp/accounting/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newPostgresDB starts a PostgreSQL container and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("accounting_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Positive(t, version)
	return db
}

func TestPostgres_Repositories(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer, 5)

	journals := NewGormJournalEntryRepository(db)
	journals.SetOutboxEventSaver(publisher)
	payables := NewGormAccountPayableRepository(db)
	payables.SetOutboxEventSaver(publisher)
	reports := NewGormLedgerReportRepository(db)
	outbox := event.NewGormOutboxRepository(db)

	t.Run("concurrent entry numbers are unique and gapless", func(t *testing.T) {
		orgID, branchID := uuid.New(), uuid.New()
		const workers = 12

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			numbers []string
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := journals.NextEntryNumber(ctx, orgID, branchID)
				assert.NoError(t, err)
				mu.Lock()
				numbers = append(numbers, n)
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, numbers, workers)
		sort.Strings(numbers)
		period := time.Now().UTC().Format("200601")
		assert.Equal(t, period+"-0000000001", numbers[0])
		assert.Equal(t, period+"-0000000012", numbers[workers-1])
		for i := 1; i < workers; i++ {
			assert.NotEqual(t, numbers[i-1], numbers[i])
		}
	})

	t.Run("journal entries with outbox and idempotency index", func(t *testing.T) {
		f := newJournalFixture()
		sourceID := uuid.New()
		key := "PAYMENT_CONFIRMED:" + sourceID.String()

		entry := f.postedEntry(t, "202407-0000000001", sourceID, "321.09", key)
		require.NoError(t, journals.Save(ctx, entry))

		found, err := journals.FindByID(ctx, f.orgID, entry.ID)
		require.NoError(t, err)
		assert.True(t, found.TotalDebit().Equal(decimal.RequireFromString("321.09")))

		duplicate := f.postedEntry(t, "202407-0000000002", sourceID, "321.09", key)
		err = journals.Save(ctx, duplicate)
		assert.True(t, shared.HasCode(err, shared.ErrAlreadyExists.Code), "got %v", err)

		pending, err := outbox.FindDeliverable(ctx, time.Now().Add(time.Minute), 100)
		require.NoError(t, err)
		var posted int
		for _, e := range pending {
			if e.AggregateID == entry.ID && e.EventType == accounting.EventTypeJournalEntryPosted {
				posted++
			}
		}
		assert.Equal(t, 1, posted)

		lines, err := reports.TrialBalance(ctx, accounting.TrialBalanceFilter{
			OrganizationID: f.orgID,
			BranchID:       f.branchID,
			From:           entryDate.AddDate(0, 0, -1),
			To:             entryDate.AddDate(0, 0, 1),
		})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.True(t, accounting.NewTrialBalance(lines).IsBalanced())
	})

	t.Run("payable document numbers are unique per branch", func(t *testing.T) {
		params := obligationParams(t, "900.00", "NF-77")
		ap, err := finance.NewAccountPayable(params)
		require.NoError(t, err)
		require.NoError(t, payables.SaveWithEvents(ctx, ap, ap.PullDomainEvents()))

		again, err := finance.NewAccountPayable(params)
		require.NoError(t, err)
		err = payables.SaveWithEvents(ctx, again, again.PullDomainEvents())
		assert.True(t, shared.HasCode(err, shared.ErrAlreadyExists.Code), "got %v", err)

		loaded, err := payables.FindByID(ctx, ap.OrganizationID, ap.ID)
		require.NoError(t, err)
		payment := registerPayment(t, loaded.ID, "900.00")
		require.NoError(t, loaded.RegisterPayment(payment))
		require.NoError(t, loaded.ConfirmPayment(payment.ID, "E2E-9", time.Now()))
		require.NoError(t, payables.SaveWithLockAndEvents(ctx, loaded, loaded.PullDomainEvents()))

		reloaded, err := payables.FindByID(ctx, ap.OrganizationID, ap.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.ObligationStatusPaid, reloaded.Status())
	})
}
