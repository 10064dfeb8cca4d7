package valueobject

import (
	"testing"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var due = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func newTerms(t *testing.T, grace int) PaymentTerms {
	t.Helper()
	terms, err := NewPaymentTerms(PaymentTermsParams{
		DueDate:       due,
		Amount:        MustNewMoneyFromString("1000.00", BRL),
		FineRate:      MustRate(2),
		InterestRate:  MustRate(1),
		FineGraceDays: grace,
	})
	require.NoError(t, err)
	return terms
}

func TestNewPaymentTerms(t *testing.T) {
	t.Run("rates default to zero", func(t *testing.T) {
		terms, err := NewPaymentTerms(PaymentTermsParams{DueDate: due, Amount: MustNewMoneyFromString("10", BRL)})
		require.NoError(t, err)
		late := due.AddDate(0, 0, 45)
		assert.True(t, terms.AccruedFine(late).IsZero())
		assert.True(t, terms.AccruedInterest(late).IsZero())
	})

	t.Run("requires due date", func(t *testing.T) {
		_, err := NewPaymentTerms(PaymentTermsParams{Amount: MustNewMoneyFromString("10", BRL)})
		assert.Equal(t, "INVALID_DUE_DATE", shared.ErrorCode(err))
	})

	t.Run("requires positive amount", func(t *testing.T) {
		_, err := NewPaymentTerms(PaymentTermsParams{DueDate: due, Amount: Zero(BRL)})
		assert.Equal(t, "INVALID_AMOUNT", shared.ErrorCode(err))
	})
}

func TestPaymentTerms_Accrual(t *testing.T) {
	terms := newTerms(t, 0)

	tests := []struct {
		name     string
		asOf     time.Time
		days     int
		fine     string
		interest string
		total    string
	}{
		{"before due date", due.AddDate(0, 0, -5), 0, "0.00", "0.00", "1000.00"},
		{"on due date", due.Add(15 * time.Hour), 0, "20.00", "0.00", "1020.00"},
		{"one day late", due.AddDate(0, 0, 1), 1, "20.00", "0.33", "1020.33"},
		{"thirty days late", due.AddDate(0, 0, 30), 30, "20.00", "10.00", "1030.00"},
		{"forty five days late", due.AddDate(0, 0, 45), 45, "20.00", "15.00", "1035.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.days, terms.DaysLate(tt.asOf))
			assert.Equal(t, tt.days > 0, terms.IsOverdue(tt.asOf))
			assert.Equal(t, tt.fine, terms.AccruedFine(tt.asOf).StringFixed())
			assert.Equal(t, tt.interest, terms.AccruedInterest(tt.asOf).StringFixed())
			total, err := terms.TotalDue(tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total.StringFixed())
		})
	}
}

func TestPaymentTerms_FineGracePeriod(t *testing.T) {
	terms := newTerms(t, 3)

	assert.True(t, terms.AccruedFine(due).IsZero())
	assert.True(t, terms.AccruedFine(due.AddDate(0, 0, 3)).IsZero())
	assert.Equal(t, "20.00", terms.AccruedFine(due.AddDate(0, 0, 4)).StringFixed())
	assert.Equal(t, "1.00", terms.AccruedInterest(due.AddDate(0, 0, 3)).StringFixed())
}

func TestPaymentTerms_CopyOnWrite(t *testing.T) {
	terms := newTerms(t, 0)

	moved, err := terms.WithDueDate(due.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, due, terms.DueDate())
	assert.Equal(t, due.AddDate(0, 1, 0), moved.DueDate())

	noPenalty := terms.WithRates(ZeroRate(), ZeroRate())
	assert.True(t, noPenalty.AccruedFine(due.AddDate(0, 0, 10)).IsZero())
	assert.False(t, terms.AccruedFine(due.AddDate(0, 0, 10)).IsZero())
}

func TestPaymentTerms_FineFromDueDate(t *testing.T) {
	terms := newTerms(t, 0)

	assert.True(t, terms.AccruedFine(due.Add(-time.Second)).IsZero())
	assert.Equal(t, "20.00", terms.AccruedFine(due).StringFixed())
	assert.Equal(t, "20.00", terms.AccruedFine(due.Add(23*time.Hour)).StringFixed())
	assert.False(t, terms.IsOverdue(due))

	total, err := terms.TotalDue(due)
	require.NoError(t, err)
	assert.Equal(t, "1020.00", total.StringFixed())
}
