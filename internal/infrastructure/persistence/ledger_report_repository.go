package persistence

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerReportRepository runs ledger aggregations as plain SQL built with
// squirrel and scanned with scany, bypassing the ORM on the read path.
type GormLedgerReportRepository struct {
	db      *gorm.DB
	builder sq.StatementBuilderType
}

// NewGormLedgerReportRepository creates a report repository. Placeholders
// follow the dialect of db.
func NewGormLedgerReportRepository(db *gorm.DB) *GormLedgerReportRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if db.Dialector.Name() == "postgres" {
		placeholder = sq.Dollar
	}
	return &GormLedgerReportRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

type trialBalanceRow struct {
	AccountID   uuid.UUID       `db:"account_id"`
	AccountCode string          `db:"account_code"`
	Currency    string          `db:"currency"`
	Debit       decimal.Decimal `db:"debit"`
	Credit      decimal.Decimal `db:"credit"`
}

// TrialBalance sums posted debits and credits per account and currency
func (r *GormLedgerReportRepository) TrialBalance(ctx context.Context, filter accounting.TrialBalanceFilter) ([]accounting.TrialBalanceLine, error) {
	query, args, err := r.trialBalanceQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build trial balance query: %w", err)
	}

	sqlDB, err := r.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	var rows []trialBalanceRow
	if err := sqlscan.Select(ctx, sqlDB, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("trial balance: %w", err)
	}

	lines := make([]accounting.TrialBalanceLine, len(rows))
	for i, row := range rows {
		lines[i] = accounting.TrialBalanceLine{
			AccountID:   row.AccountID,
			AccountCode: row.AccountCode,
			Currency:    row.Currency,
			Debit:       row.Debit.Round(2),
			Credit:      row.Credit.Round(2),
		}
	}
	return lines, nil
}

func (r *GormLedgerReportRepository) trialBalanceQuery(filter accounting.TrialBalanceFilter) sq.SelectBuilder {
	q := r.builder.
		Select("l.account_id", "l.account_code", "l.currency").
		Column(sq.Expr("COALESCE(SUM(CASE WHEN l.entry_type = ? THEN l.amount ELSE 0 END), 0) AS debit",
			string(accounting.EntryTypeDebit))).
		Column(sq.Expr("COALESCE(SUM(CASE WHEN l.entry_type = ? THEN l.amount ELSE 0 END), 0) AS credit",
			string(accounting.EntryTypeCredit))).
		From("journal_entry_lines l").
		Join("journal_entries e ON e.id = l.journal_entry_id").
		Where(sq.Eq{"e.organization_id": filter.OrganizationID}).
		Where(sq.Eq{"e.status": []string{
			string(accounting.JournalEntryStatusPosted),
			string(accounting.JournalEntryStatusReversed),
		}})

	if filter.BranchID != uuid.Nil {
		q = q.Where(sq.Eq{"e.branch_id": filter.BranchID})
	}
	if !filter.From.IsZero() {
		q = q.Where(sq.GtOrEq{"e.entry_date": filter.From})
	}
	if !filter.To.IsZero() {
		q = q.Where(sq.LtOrEq{"e.entry_date": filter.To})
	}
	if len(filter.AccountCodes) > 0 {
		q = q.Where(sq.Eq{"l.account_code": filter.AccountCodes})
	}

	return q.GroupBy("l.account_id", "l.account_code", "l.currency").
		OrderBy("l.account_code ASC", "l.currency ASC")
}

// Ensure GormLedgerReportRepository implements accounting.LedgerReportRepository
var _ accounting.LedgerReportRepository = (*GormLedgerReportRepository)(nil)
