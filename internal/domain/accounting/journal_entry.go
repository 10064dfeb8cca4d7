package accounting

import (
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeJournalEntry is the aggregate type name used in events
const AggregateTypeJournalEntry = "JournalEntry"

// EntryType is the side of a journal line
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// IsValid checks if the entry type is DEBIT or CREDIT
func (t EntryType) IsValid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// Opposite returns the other side
func (t EntryType) Opposite() EntryType {
	if t == EntryTypeDebit {
		return EntryTypeCredit
	}
	return EntryTypeDebit
}

// JournalSource is the kind of business object a journal entry records
type JournalSource string

const (
	JournalSourcePayment   JournalSource = "PAYMENT"
	JournalSourceReceipt   JournalSource = "RECEIPT"
	JournalSourceFiscalDoc JournalSource = "FISCAL_DOC"
)

// IsValid checks if the source is known
func (s JournalSource) IsValid() bool {
	switch s {
	case JournalSourcePayment, JournalSourceReceipt, JournalSourceFiscalDoc:
		return true
	}
	return false
}

// JournalEntryStatus is the lifecycle state of a journal entry
type JournalEntryStatus string

const (
	JournalEntryStatusDraft    JournalEntryStatus = "DRAFT"
	JournalEntryStatusPosted   JournalEntryStatus = "POSTED"
	JournalEntryStatusReversed JournalEntryStatus = "REVERSED"
)

// IsValid checks if the status is known
func (s JournalEntryStatus) IsValid() bool {
	switch s {
	case JournalEntryStatusDraft, JournalEntryStatusPosted, JournalEntryStatusReversed:
		return true
	}
	return false
}

func (s JournalEntryStatus) String() string {
	return string(s)
}

// JournalEntryLine is one debit or credit posting. Lines are values: once the
// entry is posted they can no longer change.
type JournalEntryLine struct {
	ID             uuid.UUID
	JournalEntryID uuid.UUID
	LineNumber     int
	AccountID      uuid.UUID
	AccountCode    string
	EntryType      EntryType
	Amount         valueobject.Money
	Description    string
	CounterpartyID *uuid.UUID
	CostCenterID   *uuid.UUID
}

// JournalLineParams holds the inputs of NewJournalEntryLine
type JournalLineParams struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	AccountCode    string
	EntryType      EntryType
	Amount         valueobject.Money
	Description    string
	CounterpartyID *uuid.UUID
	CostCenterID   *uuid.UUID
}

// NewJournalEntryLine validates a line
func NewJournalEntryLine(p JournalLineParams) (JournalEntryLine, error) {
	if p.AccountID == uuid.Nil || p.AccountCode == "" {
		return JournalEntryLine{}, shared.NewDomainError("INVALID_ACCOUNT", "journal line account is required")
	}
	if !p.EntryType.IsValid() {
		return JournalEntryLine{}, shared.NewDomainError("INVALID_ENTRY_TYPE",
			fmt.Sprintf("invalid entry type: %s", p.EntryType))
	}
	if !p.Amount.IsPositive() {
		return JournalEntryLine{}, shared.NewDomainError("INVALID_AMOUNT", "journal line amount must be positive")
	}
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return JournalEntryLine{
		ID:             id,
		AccountID:      p.AccountID,
		AccountCode:    p.AccountCode,
		EntryType:      p.EntryType,
		Amount:         p.Amount,
		Description:    p.Description,
		CounterpartyID: p.CounterpartyID,
		CostCenterID:   p.CostCenterID,
	}, nil
}

// JournalEntryParams holds the inputs of NewJournalEntry
type JournalEntryParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	EntryNumber    string
	EntryDate      time.Time
	Description    string
	Source         JournalSource
	SourceID       uuid.UUID
	OperationType  OperationType
	IdempotencyKey string
}

// JournalEntry is a balanced set of debit and credit lines recorded as one
// accounting fact. It is built in DRAFT, frozen by Post, and can only be
// undone by a separate reversal entry.
type JournalEntry struct {
	shared.OrganizationAggregateRoot
	EntryNumber       string
	EntryDate         time.Time
	Description       string
	Source            JournalSource
	SourceID          uuid.UUID
	OperationType     OperationType
	IdempotencyKey    string
	ReversalOfEntryID *uuid.UUID
	ReversedByEntryID *uuid.UUID
	PostedAt          *time.Time
	PostedBy          string
	ReversedAt        *time.Time

	lines  []JournalEntryLine
	status JournalEntryStatus
}

// NewJournalEntry creates an empty DRAFT entry
func NewJournalEntry(p JournalEntryParams) (*JournalEntry, error) {
	if p.OrganizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if p.BranchID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	if p.EntryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot be empty")
	}
	if p.EntryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ENTRY_DATE", "Entry date is required")
	}
	if !p.Source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", fmt.Sprintf("invalid journal source: %s", p.Source))
	}
	if p.SourceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source ID cannot be empty")
	}

	return &JournalEntry{
		OrganizationAggregateRoot: shared.NewOrganizationAggregateRoot(p.ID, p.OrganizationID, p.BranchID),
		EntryNumber:               p.EntryNumber,
		EntryDate:                 p.EntryDate,
		Description:               p.Description,
		Source:                    p.Source,
		SourceID:                  p.SourceID,
		OperationType:             p.OperationType,
		IdempotencyKey:            p.IdempotencyKey,
		lines:                     make([]JournalEntryLine, 0, 2),
		status:                    JournalEntryStatusDraft,
	}, nil
}

// Status returns the lifecycle state
func (e *JournalEntry) Status() JournalEntryStatus {
	return e.status
}

// IsPosted returns true if the entry is POSTED
func (e *JournalEntry) IsPosted() bool {
	return e.status == JournalEntryStatusPosted
}

// IsReversal reports whether this entry reverses another one
func (e *JournalEntry) IsReversal() bool {
	return e.ReversalOfEntryID != nil
}

// Lines returns a copy of the lines in order
func (e *JournalEntry) Lines() []JournalEntryLine {
	out := make([]JournalEntryLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// AddLine appends a line. Lines can only be added while the entry is DRAFT and
// must share one currency.
func (e *JournalEntry) AddLine(line JournalEntryLine) error {
	if e.status != JournalEntryStatusDraft {
		return shared.NewDomainError("JOURNAL_NOT_DRAFT",
			fmt.Sprintf("cannot add lines to a %s journal entry", e.status))
	}
	if len(e.lines) > 0 && e.lines[0].Amount.Currency() != line.Amount.Currency() {
		return shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("journal line currency %s differs from entry currency %s", line.Amount.Currency(), e.lines[0].Amount.Currency()))
	}
	line.JournalEntryID = e.ID
	line.LineNumber = len(e.lines) + 1
	e.lines = append(e.lines, line)
	return nil
}

// TotalDebit sums the debit lines
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	return e.sum(EntryTypeDebit)
}

// TotalCredit sums the credit lines
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	return e.sum(EntryTypeCredit)
}

func (e *JournalEntry) sum(side EntryType) decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.lines {
		if l.EntryType == side {
			total = total.Add(l.Amount.Amount())
		}
	}
	return total
}

// IsBalanced reports whether the entry has at least two lines and debits equal credits
func (e *JournalEntry) IsBalanced() bool {
	return len(e.lines) >= 2 && e.TotalDebit().Equal(e.TotalCredit())
}

// Currency returns the currency of the lines, or "" for an empty entry
func (e *JournalEntry) Currency() valueobject.Currency {
	if len(e.lines) == 0 {
		return ""
	}
	return e.lines[0].Amount.Currency()
}

// Post validates the balance and moves DRAFT to POSTED. An unbalanced entry
// stays DRAFT.
func (e *JournalEntry) Post(postedBy string, at time.Time) error {
	if e.status != JournalEntryStatusDraft {
		return shared.NewDomainError("JOURNAL_NOT_DRAFT",
			fmt.Sprintf("cannot post a %s journal entry", e.status))
	}
	if !e.IsBalanced() {
		return shared.NewDomainError("JOURNAL_UNBALANCED",
			fmt.Sprintf("journal unbalanced: %d lines, debit %s, credit %s",
				len(e.lines), e.TotalDebit().StringFixed(2), e.TotalCredit().StringFixed(2)))
	}
	e.status = JournalEntryStatusPosted
	e.PostedAt = &at
	e.PostedBy = postedBy
	e.Touch(at)
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryPostedEvent(e))
	return nil
}

// ReversalParams holds the identity of a new reversal entry
type ReversalParams struct {
	ID          uuid.UUID
	EntryNumber string
	EntryDate   time.Time
	Description string
}

// CreateReversal builds a DRAFT entry that mirrors every line of original with
// debit and credit swapped. The original must be POSTED and must not itself be
// a reversal. The original is not modified; call MarkAsReversed once the
// reversal is posted.
func CreateReversal(original *JournalEntry, p ReversalParams) (*JournalEntry, error) {
	if original == nil {
		return nil, shared.NewDomainError("JOURNAL_NOT_FOUND", "original journal entry is required")
	}
	if original.status != JournalEntryStatusPosted {
		return nil, shared.NewDomainError("JOURNAL_NOT_POSTED",
			fmt.Sprintf("cannot reverse journal entry %s in %s status", original.EntryNumber, original.status))
	}
	if original.IsReversal() {
		return nil, shared.NewDomainError("JOURNAL_IS_REVERSAL",
			fmt.Sprintf("journal entry %s is itself a reversal", original.EntryNumber))
	}

	entryDate := p.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}
	description := p.Description
	if description == "" {
		description = "Reversal of " + original.EntryNumber
	}
	idempotencyKey := ""
	if original.IdempotencyKey != "" {
		idempotencyKey = original.IdempotencyKey + ":REVERSAL"
	}

	reversal, err := NewJournalEntry(JournalEntryParams{
		ID:             p.ID,
		OrganizationID: original.OrganizationID,
		BranchID:       original.BranchID,
		EntryNumber:    p.EntryNumber,
		EntryDate:      entryDate,
		Description:    description,
		Source:         original.Source,
		SourceID:       original.SourceID,
		OperationType:  original.OperationType,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	originalID := original.ID
	reversal.ReversalOfEntryID = &originalID

	for _, l := range original.lines {
		mirrored := l
		mirrored.ID = uuid.New()
		mirrored.EntryType = l.EntryType.Opposite()
		if err := reversal.AddLine(mirrored); err != nil {
			return nil, err
		}
	}
	return reversal, nil
}

// MarkAsReversed moves POSTED to REVERSED and records the reversal entry
func (e *JournalEntry) MarkAsReversed(reversalEntryID uuid.UUID, at time.Time) error {
	switch e.status {
	case JournalEntryStatusReversed:
		return shared.NewDomainError("JOURNAL_ALREADY_REVERSED",
			fmt.Sprintf("journal entry %s is already reversed", e.EntryNumber))
	case JournalEntryStatusDraft:
		return shared.NewDomainError("JOURNAL_NOT_POSTED",
			fmt.Sprintf("journal entry %s is not posted", e.EntryNumber))
	}
	if reversalEntryID == uuid.Nil {
		return shared.NewDomainError("INVALID_REVERSAL", "reversal entry ID is required")
	}
	e.status = JournalEntryStatusReversed
	e.ReversedByEntryID = &reversalEntryID
	e.ReversedAt = &at
	e.Touch(at)
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryReversedEvent(e))
	return nil
}

// BalancedEntryParams describes a two-line entry moving one amount between an account pair
type BalancedEntryParams struct {
	Entry           JournalEntryParams
	Accounts        AccountPair
	Amount          valueobject.Money
	LineDescription string
	CounterpartyID  *uuid.UUID
}

// NewBalancedEntry builds a DRAFT entry with one debit and one credit line for the same amount
func NewBalancedEntry(p BalancedEntryParams) (*JournalEntry, error) {
	entry, err := NewJournalEntry(p.Entry)
	if err != nil {
		return nil, err
	}
	description := p.LineDescription
	if description == "" {
		description = p.Entry.Description
	}
	debit, err := NewJournalEntryLine(JournalLineParams{
		AccountID:      p.Accounts.DebitAccountID,
		AccountCode:    p.Accounts.DebitAccountCode,
		EntryType:      EntryTypeDebit,
		Amount:         p.Amount,
		Description:    description,
		CounterpartyID: p.CounterpartyID,
	})
	if err != nil {
		return nil, err
	}
	credit, err := NewJournalEntryLine(JournalLineParams{
		AccountID:      p.Accounts.CreditAccountID,
		AccountCode:    p.Accounts.CreditAccountCode,
		EntryType:      EntryTypeCredit,
		Amount:         p.Amount,
		Description:    description,
		CounterpartyID: p.CounterpartyID,
	})
	if err != nil {
		return nil, err
	}
	if err := entry.AddLine(debit); err != nil {
		return nil, err
	}
	if err := entry.AddLine(credit); err != nil {
		return nil, err
	}
	return entry, nil
}

// JournalEntryState is the persisted form of a journal entry
type JournalEntryState struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	BranchID          uuid.UUID
	EntryNumber       string
	EntryDate         time.Time
	Description       string
	Source            JournalSource
	SourceID          uuid.UUID
	OperationType     OperationType
	IdempotencyKey    string
	Status            JournalEntryStatus
	ReversalOfEntryID *uuid.UUID
	ReversedByEntryID *uuid.UUID
	PostedAt          *time.Time
	PostedBy          string
	ReversedAt        *time.Time
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Lines             []JournalEntryLine
}

// RestoreJournalEntry rebuilds an entry from persisted state without re-validating it
func RestoreJournalEntry(s JournalEntryState) *JournalEntry {
	lines := make([]JournalEntryLine, len(s.Lines))
	copy(lines, s.Lines)
	return &JournalEntry{
		OrganizationAggregateRoot: shared.OrganizationAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
				Version:    s.Version,
			},
			OrganizationID: s.OrganizationID,
			BranchID:       s.BranchID,
		},
		EntryNumber:       s.EntryNumber,
		EntryDate:         s.EntryDate,
		Description:       s.Description,
		Source:            s.Source,
		SourceID:          s.SourceID,
		OperationType:     s.OperationType,
		IdempotencyKey:    s.IdempotencyKey,
		ReversalOfEntryID: s.ReversalOfEntryID,
		ReversedByEntryID: s.ReversedByEntryID,
		PostedAt:          s.PostedAt,
		PostedBy:          s.PostedBy,
		ReversedAt:        s.ReversedAt,
		lines:             lines,
		status:            s.Status,
	}
}
