package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/billing"
	"github.com/erp/accounting/internal/domain/finance"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/erp/accounting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultPostedBy is recorded as the poster of entries generated from events
const DefaultPostedBy = "accounting-integration"

// SkipReason explains why a sub-entry was not posted
type SkipReason string

const (
	SkipReasonRuleNotFound SkipReason = "rule_not_found"
	SkipReasonDuplicate    SkipReason = "duplicate"
	SkipReasonInvalid      SkipReason = "invalid"
	SkipReasonNotPosted    SkipReason = "not_posted"
)

// SkippedPosting records a sub-entry that was deliberately not posted
type SkippedPosting struct {
	OperationType accounting.OperationType
	Reason        SkipReason
	Err           error
}

// PostingResult is the outcome of handling one event. Posted holds every entry
// written, including reversals.
type PostingResult struct {
	Posted  []*accounting.JournalEntry
	Skipped []SkippedPosting
}

func (r *PostingResult) skip(op accounting.OperationType, reason SkipReason, err error) {
	r.Skipped = append(r.Skipped, SkippedPosting{OperationType: op, Reason: reason, Err: err})
}

// IntegrationService turns finance and billing events into posted journal
// entries. Every sub-entry is attempted on its own: a missing rule or an
// invalid amount skips that entry only, and infrastructure failures are
// collected and returned after all siblings have run.
type IntegrationService struct {
	rules         accounting.AccountDeterminationRepository
	journals      accounting.JournalEntryRepository
	determination *accounting.AccountDeterminationService
	metrics       *telemetry.AccountingMetrics
	logger        *zap.Logger
	clock         func() time.Time
	postedBy      string
}

// Option configures an IntegrationService
type Option func(*IntegrationService)

// WithMetrics records posting metrics
func WithMetrics(m *telemetry.AccountingMetrics) Option {
	return func(s *IntegrationService) { s.metrics = m }
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *IntegrationService) { s.clock = clock }
}

// WithPostedBy overrides the recorded poster
func WithPostedBy(postedBy string) Option {
	return func(s *IntegrationService) { s.postedBy = postedBy }
}

// NewIntegrationService creates a new IntegrationService
func NewIntegrationService(
	rules accounting.AccountDeterminationRepository,
	journals accounting.JournalEntryRepository,
	logger *zap.Logger,
	opts ...Option,
) *IntegrationService {
	s := &IntegrationService{
		rules:         rules,
		journals:      journals,
		determination: accounting.NewAccountDeterminationService(),
		logger:        logger,
		clock:         time.Now,
		postedBy:      DefaultPostedBy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// posting is one balanced sub-entry to attempt
type posting struct {
	op          accounting.OperationType
	amount      decimal.Decimal
	description string
}

// postingBatch is the shared context of the sub-entries of one event
type postingBatch struct {
	organizationID uuid.UUID
	branchID       uuid.UUID
	source         accounting.JournalSource
	sourceID       uuid.UUID
	sourceRef      string
	counterpartyID uuid.UUID
	currency       string
	entryDate      time.Time
	required       accounting.OperationType
	postings       []posting
}

// IdempotencyKey builds the SOURCE:ref:OPERATION key of a sub-entry
func IdempotencyKey(source accounting.JournalSource, ref string, op accounting.OperationType) string {
	return fmt.Sprintf("%s:%s:%s", source, ref, op)
}

func optional(postings []posting, op accounting.OperationType, amount decimal.Decimal, description string) []posting {
	if !amount.IsPositive() {
		return postings
	}
	return append(postings, posting{op: op, amount: amount, description: description})
}

func documentLabel(doc string, id uuid.UUID) string {
	if doc != "" {
		return doc
	}
	return id.String()
}

// OnPaymentCompleted posts the supplier payment and one entry per non-zero
// interest, fine, discount and bank fee.
func (s *IntegrationService) OnPaymentCompleted(ctx context.Context, event *finance.PaymentCompletedEvent) (PostingResult, error) {
	doc := documentLabel(event.DocumentNumber, event.PayableID)
	postings := []posting{{op: accounting.OperationPaymentSupplier, amount: event.Amount, description: "Payment of payable " + doc}}
	postings = optional(postings, accounting.OperationPaymentInterest, event.Interest, "Interest paid on payable "+doc)
	postings = optional(postings, accounting.OperationPaymentFine, event.Fine, "Fine paid on payable "+doc)
	postings = optional(postings, accounting.OperationPaymentDiscount, event.Discount, "Discount obtained on payable "+doc)
	postings = optional(postings, accounting.OperationPaymentBankFee, event.BankFee, "Bank fee on payment of payable "+doc)

	return s.handle(ctx, event, postingBatch{
		organizationID: event.OrganizationID(),
		branchID:       event.BranchID(),
		source:         accounting.JournalSourcePayment,
		sourceID:       event.PayableID,
		sourceRef:      event.PaymentID.String(),
		counterpartyID: event.SupplierID,
		currency:       event.Currency,
		entryDate:      event.PaidAt,
		required:       accounting.OperationPaymentSupplier,
		postings:       postings,
	})
}

// OnReceivableReceived posts the customer receipt and one entry per non-zero
// interest, fine and discount.
func (s *IntegrationService) OnReceivableReceived(ctx context.Context, event *finance.ReceivableReceivedEvent) (PostingResult, error) {
	doc := documentLabel(event.DocumentNumber, event.ReceivableID)
	postings := []posting{{op: accounting.OperationReceiptCustomer, amount: event.AmountReceived, description: "Receipt of receivable " + doc}}
	postings = optional(postings, accounting.OperationReceiptInterest, event.Interest, "Interest received on receivable "+doc)
	postings = optional(postings, accounting.OperationReceiptFine, event.Fine, "Fine received on receivable "+doc)
	postings = optional(postings, accounting.OperationReceiptDiscount, event.Discount, "Discount granted on receivable "+doc)

	ref := event.PaymentID
	if ref == uuid.Nil {
		ref = event.EventID()
	}
	return s.handle(ctx, event, postingBatch{
		organizationID: event.OrganizationID(),
		branchID:       event.BranchID(),
		source:         accounting.JournalSourceReceipt,
		sourceID:       event.ReceivableID,
		sourceRef:      ref.String(),
		counterpartyID: event.CustomerID,
		currency:       event.Currency,
		entryDate:      event.ReceivedAt,
		required:       accounting.OperationReceiptCustomer,
		postings:       postings,
	})
}

// OnBillingFinalized recognizes the gross revenue and posts one entry per
// positive withholding tax.
func (s *IntegrationService) OnBillingFinalized(ctx context.Context, event *billing.BillingFinalizedEvent) (PostingResult, error) {
	doc := documentLabel(event.InvoiceNumber, event.InvoiceID)
	postings := []posting{{op: accounting.OperationBillingRevenue, amount: event.GrossAmount, description: "Revenue of invoice " + doc}}
	postings = optional(postings, accounting.OperationWithholdingIRRF, event.IRRF, "IRRF withheld on invoice "+doc)
	postings = optional(postings, accounting.OperationWithholdingPIS, event.PIS, "PIS withheld on invoice "+doc)
	postings = optional(postings, accounting.OperationWithholdingCOFINS, event.COFINS, "COFINS withheld on invoice "+doc)
	postings = optional(postings, accounting.OperationWithholdingCSLL, event.CSLL, "CSLL withheld on invoice "+doc)
	postings = optional(postings, accounting.OperationWithholdingISS, event.ISS, "ISS withheld on invoice "+doc)

	return s.handle(ctx, event, postingBatch{
		organizationID: event.OrganizationID(),
		branchID:       event.BranchID(),
		source:         accounting.JournalSourceFiscalDoc,
		sourceID:       event.InvoiceID,
		sourceRef:      event.InvoiceID.String(),
		counterpartyID: event.CustomerID,
		currency:       event.Currency,
		entryDate:      event.FinalizedAt,
		required:       accounting.OperationBillingRevenue,
		postings:       postings,
	})
}

// OnPayableCancelled reverses every posted entry of the payable. A payable
// that never reached the ledger is a no-op.
func (s *IntegrationService) OnPayableCancelled(ctx context.Context, event *finance.PayableCancelledEvent) (PostingResult, error) {
	return s.reverseSource(ctx, event, accounting.JournalSourcePayment, event.PayableID, event.CancelledAt, event.Reason)
}

// OnReceivableCancelled reverses every posted receipt entry of the receivable.
func (s *IntegrationService) OnReceivableCancelled(ctx context.Context, event *finance.ReceivableCancelledEvent) (PostingResult, error) {
	return s.reverseSource(ctx, event, accounting.JournalSourceReceipt, event.ReceivableID, event.CancelledAt, event.Reason)
}

func (s *IntegrationService) handle(ctx context.Context, event shared.DomainEvent, batch postingBatch) (result PostingResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "accounting_integration", "post",
		telemetry.SpanAttrEventType, event.EventType(),
		telemetry.SpanAttrEventID, event.EventID().String(),
		telemetry.SpanAttrSourceID, batch.sourceID.String(),
		telemetry.SpanAttrOrganizationID, batch.organizationID.String(),
	)
	defer span.End()
	started := s.clock()
	defer func() {
		telemetry.SetAttributes(span,
			telemetry.SpanAttrEntriesPosted, len(result.Posted),
			telemetry.SpanAttrEntriesSkipped, len(result.Skipped),
		)
		telemetry.RecordError(span, err)
		s.metrics.RecordHandled(ctx, event.EventType(), s.clock().Sub(started), err)
	}()

	log := s.logger.With(
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("source", string(batch.source)),
		zap.String("source_id", batch.sourceID.String()),
	)

	currency, cerr := valueobject.ParseCurrency(batch.currency)
	if cerr != nil {
		log.Warn("skipping event with invalid currency", zap.String("currency", batch.currency), zap.Error(cerr))
		for _, p := range batch.postings {
			result.skip(p.op, SkipReasonInvalid, cerr)
		}
		return result, nil
	}

	rules, err := s.rules.FindAll(ctx, batch.organizationID, batch.branchID)
	if err != nil {
		log.Error("failed to load account determination rules", zap.Error(err))
		return result, fmt.Errorf("failed to load account determination rules: %w", err)
	}

	entryDate := batch.entryDate
	if entryDate.IsZero() {
		entryDate = s.clock()
	}

	var errs error
	for _, p := range batch.postings {
		errs = multierr.Append(errs, s.postOne(ctx, log, &result, rules, batch, currency, entryDate, p))
	}

	if len(result.Posted) == 0 {
		for _, sk := range result.Skipped {
			if sk.OperationType == batch.required && sk.Reason != SkipReasonDuplicate {
				log.Warn("principal entry was not posted", zap.String("operation_type", string(sk.OperationType)),
					zap.String("reason", string(sk.Reason)))
			}
		}
	}
	log.Info("event posted to ledger",
		zap.Int("posted", len(result.Posted)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Bool("has_errors", errs != nil),
	)
	return result, errs
}

func (s *IntegrationService) postOne(
	ctx context.Context,
	log *zap.Logger,
	result *PostingResult,
	rules accounting.RuleSet,
	batch postingBatch,
	currency valueobject.Currency,
	entryDate time.Time,
	p posting,
) error {
	log = log.With(zap.String("operation_type", string(p.op)), zap.String("amount", p.amount.String()))

	amount, err := valueobject.NewMoney(p.amount, currency)
	if err != nil || !amount.IsPositive() {
		if err == nil {
			err = shared.NewDomainError("INVALID_AMOUNT", "posting amount must be positive")
		}
		log.Warn("skipping entry with invalid amount", zap.Error(err))
		result.skip(p.op, SkipReasonInvalid, err)
		s.metrics.RecordSkipped(ctx, batch.organizationID, string(p.op), string(SkipReasonInvalid))
		return nil
	}

	key := IdempotencyKey(batch.source, batch.sourceRef, p.op)
	exists, err := s.journals.ExistsByIdempotencyKey(ctx, batch.organizationID, key)
	if err != nil {
		log.Error("failed to check idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		return fmt.Errorf("%s: failed to check idempotency key: %w", p.op, err)
	}
	if exists {
		log.Info("entry already posted, skipping", zap.String("idempotency_key", key))
		result.skip(p.op, SkipReasonDuplicate, nil)
		s.metrics.RecordSkipped(ctx, batch.organizationID, string(p.op), string(SkipReasonDuplicate))
		return nil
	}

	pair, err := s.determination.DetermineAccountsFor(rules, p.op, accounting.RuleContext{
		Amount:         p.amount.InexactFloat64(),
		Currency:       string(currency),
		CounterpartyID: batch.counterpartyID.String(),
	})
	if err != nil {
		reason := SkipReasonInvalid
		if accounting.IsRuleNotFound(err) {
			reason = SkipReasonRuleNotFound
		}
		log.Warn("skipping entry, no account determination", zap.Error(err))
		result.skip(p.op, reason, err)
		s.metrics.RecordSkipped(ctx, batch.organizationID, string(p.op), string(reason))
		return nil
	}

	number, err := s.journals.NextEntryNumber(ctx, batch.organizationID, batch.branchID)
	if err != nil {
		log.Error("failed to allocate entry number", zap.Error(err))
		return fmt.Errorf("%s: failed to allocate entry number: %w", p.op, err)
	}

	counterparty := batch.counterpartyID
	entry, err := accounting.NewBalancedEntry(accounting.BalancedEntryParams{
		Entry: accounting.JournalEntryParams{
			OrganizationID: batch.organizationID,
			BranchID:       batch.branchID,
			EntryNumber:    number,
			EntryDate:      entryDate,
			Description:    p.description,
			Source:         batch.source,
			SourceID:       batch.sourceID,
			OperationType:  p.op,
			IdempotencyKey: key,
		},
		Accounts:       pair,
		Amount:         amount,
		CounterpartyID: &counterparty,
	})
	if err == nil {
		err = entry.Post(s.postedBy, s.clock())
	}
	if err != nil {
		log.Warn("skipping entry that could not be built", zap.String("entry_number", number), zap.Error(err))
		result.skip(p.op, SkipReasonInvalid, err)
		s.metrics.RecordSkipped(ctx, batch.organizationID, string(p.op), string(SkipReasonInvalid))
		return nil
	}

	if err := s.journals.Save(ctx, entry); err != nil {
		if shared.HasCode(err, shared.ErrAlreadyExists.Code) {
			log.Info("entry posted concurrently, skipping", zap.String("idempotency_key", key))
			result.skip(p.op, SkipReasonDuplicate, nil)
			s.metrics.RecordSkipped(ctx, batch.organizationID, string(p.op), string(SkipReasonDuplicate))
			return nil
		}
		log.Error("failed to save journal entry", zap.String("entry_number", number), zap.Error(err))
		return fmt.Errorf("%s: failed to save journal entry %s: %w", p.op, number, err)
	}

	result.Posted = append(result.Posted, entry)
	s.metrics.RecordPosted(ctx, batch.organizationID, string(p.op), string(currency), entry.TotalDebit())
	log.Info("journal entry posted",
		zap.String("entry_number", number),
		zap.String("debit_account", pair.DebitAccountCode),
		zap.String("credit_account", pair.CreditAccountCode),
	)
	return nil
}

func (s *IntegrationService) reverseSource(
	ctx context.Context,
	event shared.DomainEvent,
	source accounting.JournalSource,
	sourceID uuid.UUID,
	cancelledAt time.Time,
	reason string,
) (result PostingResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "accounting_integration", "reverse",
		telemetry.SpanAttrEventType, event.EventType(),
		telemetry.SpanAttrSourceID, sourceID.String(),
		telemetry.SpanAttrOrganizationID, event.OrganizationID().String(),
	)
	defer span.End()
	started := s.clock()
	defer func() {
		telemetry.SetAttributes(span, telemetry.SpanAttrEntriesPosted, len(result.Posted))
		telemetry.RecordError(span, err)
		s.metrics.RecordHandled(ctx, event.EventType(), s.clock().Sub(started), err)
	}()

	orgID := event.OrganizationID()
	log := s.logger.With(
		zap.String("event_type", event.EventType()),
		zap.String("source", string(source)),
		zap.String("source_id", sourceID.String()),
	)

	entries, err := s.journals.FindBySourceID(ctx, orgID, event.BranchID(), sourceID)
	if err != nil {
		log.Error("failed to load journal entries for source", zap.Error(err))
		return result, fmt.Errorf("failed to load journal entries for source %s: %w", sourceID, err)
	}

	candidates := make([]*accounting.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if e.Source == source && !e.IsReversal() {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		log.Info("nothing posted for source, no reversal needed")
		return result, nil
	}

	reversalDate := cancelledAt
	if reversalDate.IsZero() {
		reversalDate = s.clock()
	}

	var errs error
	for _, original := range candidates {
		elog := log.With(zap.String("entry_number", original.EntryNumber), zap.String("operation_type", string(original.OperationType)))
		if !original.IsPosted() {
			elog.Warn("entry is not posted, skipping reversal", zap.String("status", original.Status().String()))
			result.skip(original.OperationType, SkipReasonNotPosted, nil)
			s.metrics.RecordSkipped(ctx, orgID, string(original.OperationType), string(SkipReasonNotPosted))
			continue
		}
		if rerr := s.reverseOne(ctx, elog, &result, original, reversalDate, reason); rerr != nil {
			errs = multierr.Append(errs, rerr)
		}
	}

	log.Info("source reversed in ledger",
		zap.Int("reversed", len(result.Posted)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, errs
}

func (s *IntegrationService) reverseOne(
	ctx context.Context,
	log *zap.Logger,
	result *PostingResult,
	original *accounting.JournalEntry,
	reversalDate time.Time,
	reason string,
) error {
	number, err := s.journals.NextEntryNumber(ctx, original.OrganizationID, original.BranchID)
	if err != nil {
		log.Error("failed to allocate reversal entry number", zap.Error(err))
		return fmt.Errorf("reverse %s: failed to allocate entry number: %w", original.EntryNumber, err)
	}

	description := "Reversal of " + original.EntryNumber
	if reason != "" {
		description += ": " + reason
	}
	now := s.clock()

	reversal, err := accounting.CreateReversal(original, accounting.ReversalParams{
		EntryNumber: number,
		EntryDate:   reversalDate,
		Description: description,
	})
	if err == nil {
		err = reversal.Post(s.postedBy, now)
	}
	if err == nil {
		err = original.MarkAsReversed(reversal.ID, now)
	}
	if err != nil {
		log.Warn("entry cannot be reversed, skipping", zap.Error(err))
		result.skip(original.OperationType, SkipReasonInvalid, err)
		s.metrics.RecordSkipped(ctx, original.OrganizationID, string(original.OperationType), string(SkipReasonInvalid))
		return nil
	}

	if err := s.journals.SaveMany(ctx, original, reversal); err != nil {
		log.Error("failed to save reversal pair", zap.String("reversal_entry_number", number), zap.Error(err))
		return fmt.Errorf("reverse %s: failed to save reversal pair: %w", original.EntryNumber, err)
	}

	result.Posted = append(result.Posted, reversal)
	s.metrics.RecordReversed(ctx, original.OrganizationID, string(original.OperationType))
	log.Info("journal entry reversed", zap.String("reversal_entry_number", number))
	return nil
}
