package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerQueryService answers read-only questions about the ledger
type LedgerQueryService struct {
	journals accounting.JournalEntryRepository
	reports  accounting.LedgerReportRepository
	logger   *zap.Logger
}

// NewLedgerQueryService creates a new LedgerQueryService
func NewLedgerQueryService(
	journals accounting.JournalEntryRepository,
	reports accounting.LedgerReportRepository,
	logger *zap.Logger,
) *LedgerQueryService {
	return &LedgerQueryService{journals: journals, reports: reports, logger: logger}
}

// EntriesBySource returns every entry recorded for a business object,
// reversals included, ordered by entry number. A nil branch spans the organization.
func (s *LedgerQueryService) EntriesBySource(ctx context.Context, organizationID, branchID, sourceID uuid.UUID) ([]*accounting.JournalEntry, error) {
	if organizationID == uuid.Nil || sourceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "organization_id and source_id are required")
	}
	entries, err := s.journals.FindBySourceID(ctx, organizationID, branchID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	return entries, nil
}

// EntryByID returns one entry
func (s *LedgerQueryService) EntryByID(ctx context.Context, organizationID, id uuid.UUID) (*accounting.JournalEntry, error) {
	return s.journals.FindByID(ctx, organizationID, id)
}

// TrialBalance totals posted movements per account over [from, to]
func (s *LedgerQueryService) TrialBalance(ctx context.Context, organizationID, branchID uuid.UUID, from, to time.Time) (accounting.TrialBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_query", "trial_balance",
		telemetry.SpanAttrOrganizationID, organizationID.String(),
		telemetry.SpanAttrBranchID, branchID.String(),
	)
	defer span.End()

	if organizationID == uuid.Nil {
		return accounting.TrialBalance{}, shared.NewDomainError("INVALID_INPUT", "organization_id is required")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return accounting.TrialBalance{}, shared.NewDomainError("INVALID_INPUT", "to must not be before from")
	}

	lines, err := s.reports.TrialBalance(ctx, accounting.TrialBalanceFilter{
		OrganizationID: organizationID,
		BranchID:       branchID,
		From:           from,
		To:             to,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return accounting.TrialBalance{}, fmt.Errorf("failed to compute trial balance: %w", err)
	}

	tb := accounting.NewTrialBalance(lines)
	if !tb.IsBalanced() {
		s.logger.Error("trial balance does not balance",
			zap.String("organization_id", organizationID.String()),
			zap.String("total_debit", tb.TotalDebit.String()),
			zap.String("total_credit", tb.TotalCredit.String()),
		)
	}
	return tb, nil
}
