package event

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

var outboxColumns = []string{
	"id", "organization_id", "event_id", "event_type", "schema_version", "aggregate_id",
	"aggregate_type", "payload", "status", "retry_count", "max_retries",
	"last_error", "next_retry_at", "processed_at", "created_at", "updated_at",
}

func addOutboxRow(rows *sqlmock.Rows, id uuid.UUID, status shared.OutboxStatus, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id.String(), uuid.NewString(), uuid.NewString(), "TestEvent", 1, uuid.NewString(),
		"TestAggregate", []byte(`{}`), string(status), 0, 5,
		"", nil, nil, now, now,
	)
}

func TestGormOutboxRepository_Save(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	entry := shared.NewOutboxEntry(newTestEvent("TestEvent"), 1, []byte(`{"test":true}`))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_Save_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	require.NoError(t, repo.Save(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindDeliverable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	now := time.Now()
	entryID := uuid.New()

	rows := addOutboxRow(sqlmock.NewRows(outboxColumns), entryID, shared.OutboxStatusPending, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE`)).
		WithArgs(shared.OutboxStatusPending, shared.OutboxStatusFailed, now, 10).
		WillReturnRows(rows)

	entries, err := repo.FindDeliverable(context.Background(), now, 10)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, shared.OutboxStatusPending, entries[0].Status)
	assert.Equal(t, 1, entries[0].SchemaVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindDeliverable_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindDeliverable(context.Background(), time.Now(), 10)
	assert.EqualError(t, err, "connection reset")
}

func TestGormOutboxRepository_ClaimForProcessing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	now := time.Now()
	claimedID := uuid.New()
	takenID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE .* FOR UPDATE SKIP LOCKED`).
		WillReturnRows(addOutboxRow(sqlmock.NewRows(outboxColumns), claimedID, shared.OutboxStatusPending, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := repo.ClaimForProcessing(context.Background(), []uuid.UUID{claimedID, takenID})

	require.NoError(t, err)
	require.Len(t, claimed, 1, "rows locked elsewhere are skipped")
	assert.Equal(t, claimedID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_ClaimForProcessing_NothingClaimable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(outboxColumns))
	mock.ExpectCommit()

	claimed, err := repo.ClaimForProcessing(context.Background(), []uuid.UUID{uuid.New()})

	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_ClaimForProcessing_NoIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	claimed, err := repo.ClaimForProcessing(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_Update(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	entry := shared.NewOutboxEntry(newTestEvent("TestEvent"), 1, []byte(`{}`))
	entry.MarkSent()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_DeleteSentBefore(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	before := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "outbox_events" WHERE status = $1 AND processed_at < $2`)).
		WithArgs(shared.OutboxStatusSent, before).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	deleted, err := repo.DeleteSentBefore(context.Background(), before)

	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindDead(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	deadID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 ORDER BY updated_at DESC`)).
		WithArgs(shared.OutboxStatusDead, 20).
		WillReturnRows(addOutboxRow(sqlmock.NewRows(outboxColumns), deadID, shared.OutboxStatusDead, time.Now()))

	entries, err := repo.FindDead(context.Background(), 20)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDead())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_CountByStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, count(*) as count FROM "outbox_events" GROUP BY "status"`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 4).
			AddRow("DEAD", 1))

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"PENDING": 4, "DEAD": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
