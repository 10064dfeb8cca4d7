package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormJournalEntryRepository_NextEntryNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers increase per organization and branch", func(t *testing.T) {
		repo := NewGormJournalEntryRepository(setupTestDB(t))
		repo.now = func() time.Time { return entryDate }
		orgID, branchID := uuid.New(), uuid.New()

		first, err := repo.NextEntryNumber(ctx, orgID, branchID)
		require.NoError(t, err)
		second, err := repo.NextEntryNumber(ctx, orgID, branchID)
		require.NoError(t, err)
		otherBranch, err := repo.NextEntryNumber(ctx, orgID, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, "202407-0000000001", first)
		assert.Equal(t, "202407-0000000002", second)
		assert.Equal(t, "202407-0000000001", otherBranch)
	})

	t.Run("a new period restarts the sequence", func(t *testing.T) {
		repo := NewGormJournalEntryRepository(setupTestDB(t))
		orgID, branchID := uuid.New(), uuid.New()

		repo.now = func() time.Time { return entryDate }
		_, err := repo.NextEntryNumber(ctx, orgID, branchID)
		require.NoError(t, err)

		repo.now = func() time.Time { return entryDate.AddDate(0, 1, 0) }
		number, err := repo.NextEntryNumber(ctx, orgID, branchID)
		require.NoError(t, err)
		assert.Equal(t, "202408-0000000001", number)
	})

	t.Run("locks the sequence row", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormJournalEntryRepository(db.DB)
		repo.now = func() time.Time { return entryDate }
		orgID, branchID := uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "journal_entry_sequences" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "journal_entry_sequences" WHERE .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"organization_id", "branch_id", "period", "last_value", "updated_at"}).
				AddRow(orgID.String(), branchID.String(), "202407", 41, entryDate))
		mock.ExpectExec(`UPDATE "journal_entry_sequences" SET "last_value"=\$1,"updated_at"=\$2`).
			WithArgs(int64(42), entryDate, orgID, branchID, "202407").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		number, err := repo.NextEntryNumber(ctx, orgID, branchID)
		require.NoError(t, err)
		assert.Equal(t, "202407-0000000042", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure is wrapped", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewGormJournalEntryRepository(db.DB)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "journal_entry_sequences"`).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := repo.NextEntryNumber(ctx, uuid.New(), uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "allocate journal entry number")
	})
}

func TestGormJournalEntryRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	f := newJournalFixture()
	repo := NewGormJournalEntryRepository(setupTestDB(t))
	sourceID := uuid.New()

	entry := f.postedEntry(t, "202407-0000000001", sourceID, "1250.40", "PAYMENT_CONFIRMED:"+sourceID.String())
	require.NoError(t, repo.Save(ctx, entry))

	found, err := repo.FindByID(ctx, f.orgID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EntryNumber, found.EntryNumber)
	assert.Equal(t, accounting.JournalEntryStatusPosted, found.Status())
	assert.Equal(t, accounting.JournalSourcePayment, found.Source)
	assert.Equal(t, accounting.OperationPaymentSupplier, found.OperationType)
	assert.Equal(t, entry.IdempotencyKey, found.IdempotencyKey)
	assert.Equal(t, "accounting-integration", found.PostedBy)
	require.NotNil(t, found.PostedAt)
	assert.True(t, entryDate.Equal(*found.PostedAt))
	assert.Equal(t, entry.Version, found.Version)

	lines := found.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].LineNumber)
	assert.Equal(t, accounting.EntryTypeDebit, lines[0].EntryType)
	assert.Equal(t, "2.1.1.01", lines[0].AccountCode)
	assert.True(t, lines[0].Amount.Equals(brl(t, "1250.40")))
	assert.Equal(t, accounting.EntryTypeCredit, lines[1].EntryType)
	assert.True(t, found.IsBalanced())

	t.Run("other organization does not see it", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), entry.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, f.orgID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormJournalEntryRepository_FindBySourceID(t *testing.T) {
	ctx := context.Background()
	f := newJournalFixture()
	repo := NewGormJournalEntryRepository(setupTestDB(t))
	sourceID := uuid.New()

	second := f.postedEntry(t, "202407-0000000002", sourceID, "10.00", "")
	first := f.postedEntry(t, "202407-0000000001", sourceID, "20.00", "")
	unrelated := f.postedEntry(t, "202407-0000000003", uuid.New(), "30.00", "")
	require.NoError(t, repo.SaveMany(ctx, second, first, unrelated))

	entries, err := repo.FindBySourceID(ctx, f.orgID, uuid.Nil, sourceID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, second.ID, entries[1].ID)

	none, err := repo.FindBySourceID(ctx, f.orgID, uuid.Nil, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGormJournalEntryRepository_FindBySourceIDScopedToBranch(t *testing.T) {
	ctx := context.Background()
	f := newJournalFixture()
	repo := NewGormJournalEntryRepository(setupTestDB(t))
	sourceID := uuid.New()

	local := f.postedEntry(t, "202407-0000000001", sourceID, "10.00", "")
	other := f
	other.branchID = uuid.New()
	remote := other.postedEntry(t, "202407-0000000001", sourceID, "20.00", "")
	require.NoError(t, repo.SaveMany(ctx, local, remote))

	entries, err := repo.FindBySourceID(ctx, f.orgID, f.branchID, sourceID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, local.ID, entries[0].ID)

	entries, err = repo.FindBySourceID(ctx, f.orgID, other.branchID, sourceID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, remote.ID, entries[0].ID)

	all, err := repo.FindBySourceID(ctx, f.orgID, uuid.Nil, sourceID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGormJournalEntryRepository_Idempotency(t *testing.T) {
	ctx := context.Background()
	f := newJournalFixture()
	repo := NewGormJournalEntryRepository(setupTestDB(t))
	sourceID := uuid.New()
	key := "PAYMENT_CONFIRMED:" + sourceID.String()

	exists, err := repo.ExistsByIdempotencyKey(ctx, f.orgID, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Save(ctx, f.postedEntry(t, "202407-0000000001", sourceID, "100.00", key)))

	exists, err = repo.ExistsByIdempotencyKey(ctx, f.orgID, key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByIdempotencyKey(ctx, uuid.New(), key)
	require.NoError(t, err)
	assert.False(t, exists, "keys are scoped to the organization")

	exists, err = repo.ExistsByIdempotencyKey(ctx, f.orgID, "")
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("entries without a key never collide", func(t *testing.T) {
		require.NoError(t, repo.SaveMany(ctx,
			f.postedEntry(t, "202407-0000000010", uuid.New(), "1.00", ""),
			f.postedEntry(t, "202407-0000000011", uuid.New(), "2.00", ""),
		))
	})

	t.Run("a second entry with the same key is rejected", func(t *testing.T) {
		duplicate := f.postedEntry(t, "202407-0000000002", sourceID, "100.00", key)
		err := repo.Save(ctx, duplicate)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrAlreadyExists.Code))

		_, err = repo.FindByID(ctx, f.orgID, duplicate.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormJournalEntryRepository_Reversal(t *testing.T) {
	ctx := context.Background()
	f := newJournalFixture()
	repo := NewGormJournalEntryRepository(setupTestDB(t))
	sourceID := uuid.New()

	original := f.postedEntry(t, "202407-0000000001", sourceID, "500.00", "PAYMENT_CONFIRMED:"+sourceID.String())
	require.NoError(t, repo.Save(ctx, original))

	loaded, err := repo.FindByID(ctx, f.orgID, original.ID)
	require.NoError(t, err)
	reversal, err := accounting.CreateReversal(loaded, accounting.ReversalParams{
		EntryNumber: "202407-0000000002",
		EntryDate:   entryDate.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.NoError(t, reversal.Post("accounting-integration", entryDate.AddDate(0, 0, 1)))
	require.NoError(t, loaded.MarkAsReversed(reversal.ID, entryDate.AddDate(0, 0, 1)))

	require.NoError(t, repo.SaveMany(ctx, loaded, reversal))

	entries, err := repo.FindBySourceID(ctx, f.orgID, uuid.Nil, sourceID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, accounting.JournalEntryStatusReversed, entries[0].Status())
	require.NotNil(t, entries[0].ReversedByEntryID)
	assert.Equal(t, reversal.ID, *entries[0].ReversedByEntryID)
	require.Len(t, entries[0].Lines(), 2, "reversing keeps the original lines")

	assert.True(t, entries[1].IsReversal())
	assert.Equal(t, original.IdempotencyKey+":REVERSAL", entries[1].IdempotencyKey)
	assert.Equal(t, accounting.EntryTypeCredit, entries[1].Lines()[0].EntryType)
}

func TestGormJournalEntryRepository_Outbox(t *testing.T) {
	ctx := context.Background()
	f := newJournalFixture()

	t.Run("events are written with the entry and cleared", func(t *testing.T) {
		saver := &recordingOutboxSaver{}
		repo := NewGormJournalEntryRepository(setupTestDB(t))
		repo.SetOutboxEventSaver(saver)

		entry := f.postedEntry(t, "202407-0000000001", uuid.New(), "75.00", "")
		require.NoError(t, repo.Save(ctx, entry))

		assert.Equal(t, []string{accounting.EventTypeJournalEntryPosted}, saver.eventTypes())
		assert.Empty(t, entry.GetDomainEvents())
	})

	t.Run("an outbox failure rolls the entry back", func(t *testing.T) {
		saver := &recordingOutboxSaver{err: errors.New("outbox unavailable")}
		repo := NewGormJournalEntryRepository(setupTestDB(t))
		repo.SetOutboxEventSaver(saver)

		entry := f.postedEntry(t, "202407-0000000001", uuid.New(), "75.00", "")
		err := repo.Save(ctx, entry)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outbox")
		assert.Len(t, entry.GetDomainEvents(), 1, "events stay pending for the retry")

		_, err = repo.FindByID(ctx, f.orgID, entry.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
