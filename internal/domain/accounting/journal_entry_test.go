package accounting

import (
	"testing"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postedAt = time.Date(2024, time.July, 10, 14, 0, 0, 0, time.UTC)

func brl(amount string) valueobject.Money {
	return valueobject.MustNewMoneyFromString(amount, valueobject.BRL)
}

func entryParams() JournalEntryParams {
	return JournalEntryParams{
		OrganizationID: uuid.New(),
		BranchID:       uuid.New(),
		EntryNumber:    "202407-0000000001",
		EntryDate:      postedAt,
		Description:    "Payment NF-1001",
		Source:         JournalSourcePayment,
		SourceID:       uuid.New(),
		OperationType:  OperationPaymentSupplier,
		IdempotencyKey: "PAYMENT:abc:PAYMENT_SUPPLIER",
	}
}

func testPair() AccountPair {
	return AccountPair{
		DebitAccountID:    uuid.New(),
		DebitAccountCode:  "2.1.1.01",
		CreditAccountID:   uuid.New(),
		CreditAccountCode: "1.1.1.01",
	}
}

func line(t *testing.T, side EntryType, amount string) JournalEntryLine {
	t.Helper()
	l, err := NewJournalEntryLine(JournalLineParams{
		AccountID:   uuid.New(),
		AccountCode: "1.1.1.01",
		EntryType:   side,
		Amount:      brl(amount),
	})
	require.NoError(t, err)
	return l
}

func postedEntry(t *testing.T, amount string) *JournalEntry {
	t.Helper()
	entry, err := NewBalancedEntry(BalancedEntryParams{Entry: entryParams(), Accounts: testPair(), Amount: brl(amount)})
	require.NoError(t, err)
	require.NoError(t, entry.Post("accounting-integration", postedAt))
	return entry
}

func TestNewJournalEntry(t *testing.T) {
	entry, err := NewJournalEntry(entryParams())
	require.NoError(t, err)
	assert.Equal(t, JournalEntryStatusDraft, entry.Status())
	assert.Empty(t, entry.Lines())
	assert.False(t, entry.IsBalanced())

	tests := []struct {
		name   string
		mutate func(*JournalEntryParams)
		code   string
	}{
		{"missing organization", func(p *JournalEntryParams) { p.OrganizationID = uuid.Nil }, "INVALID_ORGANIZATION"},
		{"missing branch", func(p *JournalEntryParams) { p.BranchID = uuid.Nil }, "INVALID_BRANCH"},
		{"missing number", func(p *JournalEntryParams) { p.EntryNumber = "" }, "INVALID_ENTRY_NUMBER"},
		{"missing date", func(p *JournalEntryParams) { p.EntryDate = time.Time{} }, "INVALID_ENTRY_DATE"},
		{"unknown source", func(p *JournalEntryParams) { p.Source = "MANUAL" }, "INVALID_SOURCE"},
		{"missing source id", func(p *JournalEntryParams) { p.SourceID = uuid.Nil }, "INVALID_SOURCE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := entryParams()
			tt.mutate(&p)
			_, err := NewJournalEntry(p)
			assert.Equal(t, tt.code, shared.ErrorCode(err))
		})
	}
}

func TestNewJournalEntryLine(t *testing.T) {
	_, err := NewJournalEntryLine(JournalLineParams{AccountID: uuid.New(), AccountCode: "1", EntryType: EntryTypeDebit, Amount: brl("0")})
	assert.Equal(t, "INVALID_AMOUNT", shared.ErrorCode(err))

	_, err = NewJournalEntryLine(JournalLineParams{AccountID: uuid.New(), AccountCode: "1", EntryType: "BOTH", Amount: brl("1")})
	assert.Equal(t, "INVALID_ENTRY_TYPE", shared.ErrorCode(err))

	_, err = NewJournalEntryLine(JournalLineParams{EntryType: EntryTypeCredit, Amount: brl("1")})
	assert.Equal(t, "INVALID_ACCOUNT", shared.ErrorCode(err))
}

func TestJournalEntry_Post(t *testing.T) {
	t.Run("balanced entry posts", func(t *testing.T) {
		entry := postedEntry(t, "1000.00")
		assert.Equal(t, JournalEntryStatusPosted, entry.Status())
		assert.Equal(t, "accounting-integration", entry.PostedBy)
		require.NotNil(t, entry.PostedAt)
		assert.True(t, entry.TotalDebit().Equal(entry.TotalCredit()))
		assert.Equal(t, "1000", entry.TotalDebit().String())

		events := entry.GetDomainEvents()
		require.Len(t, events, 1)
		posted, ok := events[0].(*JournalEntryPostedEvent)
		require.True(t, ok)
		assert.Equal(t, entry.EntryNumber, posted.EntryNumber)
		assert.Equal(t, "BRL", posted.Currency)
	})

	t.Run("unbalanced entry stays draft", func(t *testing.T) {
		entry, err := NewJournalEntry(entryParams())
		require.NoError(t, err)
		require.NoError(t, entry.AddLine(line(t, EntryTypeDebit, "100.00")))
		require.NoError(t, entry.AddLine(line(t, EntryTypeCredit, "99.99")))

		err = entry.Post("x", postedAt)
		require.Error(t, err)
		assert.Equal(t, "JOURNAL_UNBALANCED", shared.ErrorCode(err))
		assert.Contains(t, err.Error(), "journal unbalanced")
		assert.Equal(t, JournalEntryStatusDraft, entry.Status())
		assert.Nil(t, entry.PostedAt)
	})

	t.Run("single line is unbalanced", func(t *testing.T) {
		entry, err := NewJournalEntry(entryParams())
		require.NoError(t, err)
		require.NoError(t, entry.AddLine(line(t, EntryTypeDebit, "10.00")))
		assert.Equal(t, "JOURNAL_UNBALANCED", shared.ErrorCode(entry.Post("x", postedAt)))
	})

	t.Run("posted entry cannot post again or take lines", func(t *testing.T) {
		entry := postedEntry(t, "50.00")
		assert.Equal(t, "JOURNAL_NOT_DRAFT", shared.ErrorCode(entry.Post("x", postedAt)))
		assert.Equal(t, "JOURNAL_NOT_DRAFT", shared.ErrorCode(entry.AddLine(line(t, EntryTypeDebit, "1.00"))))
		assert.Len(t, entry.Lines(), 2)
	})

	t.Run("lines must share a currency", func(t *testing.T) {
		entry, err := NewJournalEntry(entryParams())
		require.NoError(t, err)
		require.NoError(t, entry.AddLine(line(t, EntryTypeDebit, "10.00")))
		usd, err := NewJournalEntryLine(JournalLineParams{
			AccountID: uuid.New(), AccountCode: "1", EntryType: EntryTypeCredit,
			Amount: valueobject.MustNewMoneyFromString("10.00", valueobject.USD),
		})
		require.NoError(t, err)
		assert.Equal(t, "CURRENCY_MISMATCH", shared.ErrorCode(entry.AddLine(usd)))
	})

	t.Run("lines are numbered in order", func(t *testing.T) {
		entry, err := NewJournalEntry(entryParams())
		require.NoError(t, err)
		require.NoError(t, entry.AddLine(line(t, EntryTypeDebit, "10.00")))
		require.NoError(t, entry.AddLine(line(t, EntryTypeCredit, "4.00")))
		require.NoError(t, entry.AddLine(line(t, EntryTypeCredit, "6.00")))
		lines := entry.Lines()
		for i, l := range lines {
			assert.Equal(t, i+1, l.LineNumber)
			assert.Equal(t, entry.ID, l.JournalEntryID)
		}
		require.NoError(t, entry.Post("x", postedAt))
	})
}

func TestCreateReversal(t *testing.T) {
	t.Run("mirrors every line", func(t *testing.T) {
		original := postedEntry(t, "1000.00")
		reversal, err := CreateReversal(original, ReversalParams{EntryNumber: "202407-0000000002", EntryDate: postedAt})
		require.NoError(t, err)

		assert.Equal(t, JournalEntryStatusDraft, reversal.Status())
		assert.True(t, reversal.IsReversal())
		assert.Equal(t, original.ID, *reversal.ReversalOfEntryID)
		assert.Equal(t, "Reversal of "+original.EntryNumber, reversal.Description)
		assert.Equal(t, original.IdempotencyKey+":REVERSAL", reversal.IdempotencyKey)
		assert.Equal(t, original.SourceID, reversal.SourceID)

		origLines, revLines := original.Lines(), reversal.Lines()
		require.Len(t, revLines, len(origLines))
		for i := range origLines {
			assert.Equal(t, origLines[i].AccountID, revLines[i].AccountID)
			assert.Equal(t, origLines[i].EntryType.Opposite(), revLines[i].EntryType)
			assert.True(t, origLines[i].Amount.Equals(revLines[i].Amount))
			assert.NotEqual(t, origLines[i].ID, revLines[i].ID)
			assert.Equal(t, reversal.ID, revLines[i].JournalEntryID)
		}
		assert.True(t, original.TotalDebit().Equal(reversal.TotalCredit()))
		assert.Equal(t, JournalEntryStatusPosted, original.Status())

		require.NoError(t, reversal.Post("x", postedAt))
		require.NoError(t, original.MarkAsReversed(reversal.ID, postedAt))
		assert.Equal(t, JournalEntryStatusReversed, original.Status())
		assert.Equal(t, reversal.ID, *original.ReversedByEntryID)
	})

	t.Run("draft entry cannot be reversed", func(t *testing.T) {
		draft, err := NewJournalEntry(entryParams())
		require.NoError(t, err)
		_, err = CreateReversal(draft, ReversalParams{EntryNumber: "N"})
		assert.Equal(t, "JOURNAL_NOT_POSTED", shared.ErrorCode(err))
	})

	t.Run("reversed entry cannot be reversed again", func(t *testing.T) {
		original := postedEntry(t, "10.00")
		require.NoError(t, original.MarkAsReversed(uuid.New(), postedAt))
		_, err := CreateReversal(original, ReversalParams{EntryNumber: "N"})
		assert.Equal(t, "JOURNAL_NOT_POSTED", shared.ErrorCode(err))
	})

	t.Run("a reversal cannot itself be reversed", func(t *testing.T) {
		original := postedEntry(t, "10.00")
		reversal, err := CreateReversal(original, ReversalParams{EntryNumber: "N2"})
		require.NoError(t, err)
		require.NoError(t, reversal.Post("x", postedAt))
		_, err = CreateReversal(reversal, ReversalParams{EntryNumber: "N3"})
		assert.Equal(t, "JOURNAL_IS_REVERSAL", shared.ErrorCode(err))
	})
}

func TestJournalEntry_MarkAsReversed(t *testing.T) {
	t.Run("twice fails", func(t *testing.T) {
		entry := postedEntry(t, "10.00")
		require.NoError(t, entry.MarkAsReversed(uuid.New(), postedAt))
		assert.Equal(t, "JOURNAL_ALREADY_REVERSED", shared.ErrorCode(entry.MarkAsReversed(uuid.New(), postedAt)))
	})

	t.Run("draft fails", func(t *testing.T) {
		draft, err := NewJournalEntry(entryParams())
		require.NoError(t, err)
		assert.Equal(t, "JOURNAL_NOT_POSTED", shared.ErrorCode(draft.MarkAsReversed(uuid.New(), postedAt)))
	})

	t.Run("emits reversed event", func(t *testing.T) {
		entry := postedEntry(t, "10.00")
		entry.ClearDomainEvents()
		reversalID := uuid.New()
		require.NoError(t, entry.MarkAsReversed(reversalID, postedAt))
		events := entry.PullDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, reversalID, events[0].(*JournalEntryReversedEvent).ReversedByEntryID)
	})
}

func TestRestoreJournalEntry(t *testing.T) {
	entry := postedEntry(t, "75.50")
	restored := RestoreJournalEntry(JournalEntryState{
		ID:             entry.ID,
		OrganizationID: entry.OrganizationID,
		BranchID:       entry.BranchID,
		EntryNumber:    entry.EntryNumber,
		EntryDate:      entry.EntryDate,
		Source:         entry.Source,
		SourceID:       entry.SourceID,
		OperationType:  entry.OperationType,
		Status:         JournalEntryStatusPosted,
		Version:        entry.GetVersion(),
		Lines:          entry.Lines(),
	})
	assert.True(t, restored.IsPosted())
	assert.True(t, restored.IsBalanced())
	assert.Empty(t, restored.GetDomainEvents())
	assert.Equal(t, entry.GetVersion(), restored.GetVersion())
}

func TestTrialBalance(t *testing.T) {
	tb := NewTrialBalance([]TrialBalanceLine{
		{AccountCode: "1.1.1.01", Debit: brl("0").Amount(), Credit: brl("100.00").Amount()},
		{AccountCode: "2.1.1.01", Debit: brl("100.00").Amount(), Credit: brl("0").Amount()},
	})
	assert.True(t, tb.IsBalanced())
	assert.Equal(t, "-100", tb.Lines[0].Balance().String())
	assert.Empty(t, NewTrialBalance(nil).Lines)
}
