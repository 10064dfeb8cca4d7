package valueobject

import (
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DaysPerInterestMonth is the month length used to prorate monthly interest
const DaysPerInterestMonth = 30

// PaymentTermsParams holds the inputs of NewPaymentTerms. Zero rates mean no
// fine or interest.
type PaymentTermsParams struct {
	DueDate      time.Time
	Amount       Money
	FineRate     Rate
	InterestRate Rate // per month
	// FineGraceDays delays the fine until the obligation is more than this many days late
	FineGraceDays int
}

// PaymentTerms describes when an obligation is due and the penalties for late
// payment: a flat one-time fine and simple interest prorated by day.
// It is immutable.
type PaymentTerms struct {
	dueDate       time.Time
	amount        Money
	fineRate      Rate
	interestRate  Rate
	fineGraceDays int
}

// NewPaymentTerms validates and creates payment terms
func NewPaymentTerms(p PaymentTermsParams) (PaymentTerms, error) {
	if p.DueDate.IsZero() {
		return PaymentTerms{}, shared.NewDomainError("INVALID_DUE_DATE", "due date is required")
	}
	if p.Amount.Currency() == "" || !p.Amount.IsPositive() {
		return PaymentTerms{}, shared.NewDomainError("INVALID_AMOUNT", "amount must be positive")
	}
	if p.FineGraceDays < 0 {
		return PaymentTerms{}, shared.NewDomainError("INVALID_GRACE_PERIOD", "fine grace days cannot be negative")
	}
	return PaymentTerms{
		dueDate:       dateOnly(p.DueDate),
		amount:        p.Amount,
		fineRate:      p.FineRate,
		interestRate:  p.InterestRate,
		fineGraceDays: p.FineGraceDays,
	}, nil
}

// DueDate returns the due date (truncated to the day)
func (t PaymentTerms) DueDate() time.Time { return t.dueDate }

// Amount returns the base amount owed
func (t PaymentTerms) Amount() Money { return t.amount }

// FineRate returns the one-time late fine rate
func (t PaymentTerms) FineRate() Rate { return t.fineRate }

// InterestRate returns the monthly interest rate
func (t PaymentTerms) InterestRate() Rate { return t.interestRate }

// FineGraceDays returns the grace period before the fine applies
func (t PaymentTerms) FineGraceDays() int { return t.fineGraceDays }

// Currency returns the currency of the base amount
func (t PaymentTerms) Currency() Currency { return t.amount.Currency() }

// DaysLate returns the number of whole calendar days asOf is past the due date,
// or 0 when asOf is on or before it.
func (t PaymentTerms) DaysLate(asOf time.Time) int {
	ref := dateOnly(asOf)
	if !ref.After(t.dueDate) {
		return 0
	}
	return int(ref.Sub(t.dueDate).Hours() / 24)
}

// IsOverdue reports whether asOf is past the due date
func (t PaymentTerms) IsOverdue(asOf time.Time) bool {
	return t.DaysLate(asOf) > 0
}

// AccruedFine returns the flat fine owed as of asOf. The fine is due from the
// due date itself unless a grace period pushes it past daysLate > graceDays.
func (t PaymentTerms) AccruedFine(asOf time.Time) Money {
	if t.fineRate.IsZero() || dateOnly(asOf).Before(t.dueDate) {
		return Zero(t.amount.Currency())
	}
	if t.fineGraceDays > 0 && t.DaysLate(asOf) <= t.fineGraceDays {
		return Zero(t.amount.Currency())
	}
	return t.amount.MultiplyByRate(t.fineRate)
}

// AccruedInterest returns simple interest owed as of asOf:
// amount × monthlyRate × daysLate/30
func (t PaymentTerms) AccruedInterest(asOf time.Time) Money {
	days := t.DaysLate(asOf)
	if days == 0 || t.interestRate.IsZero() {
		return Zero(t.amount.Currency())
	}
	factor := t.interestRate.Fraction().
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(DaysPerInterestMonth))
	return t.amount.MultiplyByFactor(factor)
}

// TotalDue returns amount + fine + interest as of asOf
func (t PaymentTerms) TotalDue(asOf time.Time) (Money, error) {
	return Sum(t.amount.Currency(), t.amount, t.AccruedFine(asOf), t.AccruedInterest(asOf))
}

// WithDueDate returns a copy with a new due date
func (t PaymentTerms) WithDueDate(dueDate time.Time) (PaymentTerms, error) {
	return NewPaymentTerms(PaymentTermsParams{
		DueDate:       dueDate,
		Amount:        t.amount,
		FineRate:      t.fineRate,
		InterestRate:  t.interestRate,
		FineGraceDays: t.fineGraceDays,
	})
}

// WithRates returns a copy with new fine and interest rates
func (t PaymentTerms) WithRates(fineRate, interestRate Rate) PaymentTerms {
	c := t
	c.fineRate = fineRate
	c.interestRate = interestRate
	return c
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
