package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrialBalanceLine is the posted movement of one account over a period
type TrialBalanceLine struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Currency    string          `json:"currency"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Balance returns debit minus credit
func (l TrialBalanceLine) Balance() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// TrialBalanceFilter scopes a trial balance. Zero From/To leave that side open.
type TrialBalanceFilter struct {
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	From           time.Time
	To             time.Time
	AccountCodes   []string
}

// TrialBalance is the result of a trial balance query
type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// IsBalanced reports whether total debits equal total credits
func (tb TrialBalance) IsBalanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// NewTrialBalance totals the given lines
func NewTrialBalance(lines []TrialBalanceLine) TrialBalance {
	tb := TrialBalance{Lines: lines, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	if tb.Lines == nil {
		tb.Lines = []TrialBalanceLine{}
	}
	for _, l := range lines {
		tb.TotalDebit = tb.TotalDebit.Add(l.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(l.Credit)
	}
	return tb
}

// LedgerReportRepository runs read-only ledger aggregations. Both POSTED and
// REVERSED entries count: a reversal is its own posted entry, so the pair nets out.
type LedgerReportRepository interface {
	TrialBalance(ctx context.Context, filter TrialBalanceFilter) ([]TrialBalanceLine, error)
}
