package models

import (
	"fmt"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalEntryModel is the persistence model for the JournalEntry aggregate root.
// Entry numbers are unique per organization and branch; idempotency keys per
// organization. An entry without a key stores NULL so keys never collide on empty.
type JournalEntryModel struct {
	ID                uuid.UUID               `gorm:"type:uuid;primaryKey"`
	OrganizationID    uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_journal_entries_number,priority:1;uniqueIndex:idx_journal_entries_idempotency,priority:1"`
	BranchID          uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_journal_entries_number,priority:2"`
	EntryNumber       string                  `gorm:"type:varchar(30);not null;uniqueIndex:idx_journal_entries_number,priority:3"`
	EntryDate         time.Time               `gorm:"not null;index"`
	Description       string                  `gorm:"type:varchar(500)"`
	Source            string                  `gorm:"type:varchar(20);not null"`
	SourceID          uuid.UUID               `gorm:"type:uuid;not null;index"`
	OperationType     string                  `gorm:"type:varchar(40)"`
	IdempotencyKey    *string                 `gorm:"type:varchar(200);uniqueIndex:idx_journal_entries_idempotency,priority:2"`
	Status            string                  `gorm:"type:varchar(20);not null;index"`
	ReversalOfEntryID *uuid.UUID              `gorm:"type:uuid;index"`
	ReversedByEntryID *uuid.UUID              `gorm:"type:uuid"`
	PostedAt          *time.Time
	PostedBy          string                  `gorm:"type:varchar(100)"`
	ReversedAt        *time.Time
	Version           int                     `gorm:"not null"`
	CreatedAt         time.Time               `gorm:"not null"`
	UpdatedAt         time.Time               `gorm:"not null"`
	Lines             []JournalEntryLineModel `gorm:"foreignKey:JournalEntryID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalEntryLineModel is one debit or credit line of a journal entry
type JournalEntryLineModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JournalEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNumber     int             `gorm:"not null"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null"`
	AccountCode    string          `gorm:"type:varchar(30);not null;index"`
	EntryType      string          `gorm:"type:varchar(10);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	Description    string          `gorm:"type:varchar(500)"`
	CounterpartyID *uuid.UUID      `gorm:"type:uuid"`
	CostCenterID   *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (JournalEntryLineModel) TableName() string {
	return "journal_entry_lines"
}

// JournalEntrySequenceModel holds the last entry number handed out for an
// organization, branch and accounting period (YYYYMM).
type JournalEntrySequenceModel struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Period         string    `gorm:"type:varchar(6);primaryKey"`
	LastValue      int64     `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalEntrySequenceModel) TableName() string {
	return "journal_entry_sequences"
}

// ToDomain rebuilds the journal entry and its lines
func (m *JournalEntryModel) ToDomain() (*accounting.JournalEntry, error) {
	lines := make([]accounting.JournalEntryLine, len(m.Lines))
	for i := range m.Lines {
		line, err := m.Lines[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("journal entry %s line %d: %w", m.EntryNumber, m.Lines[i].LineNumber, err)
		}
		lines[i] = line
	}

	idempotencyKey := ""
	if m.IdempotencyKey != nil {
		idempotencyKey = *m.IdempotencyKey
	}

	return accounting.RestoreJournalEntry(accounting.JournalEntryState{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		BranchID:          m.BranchID,
		EntryNumber:       m.EntryNumber,
		EntryDate:         m.EntryDate,
		Description:       m.Description,
		Source:            accounting.JournalSource(m.Source),
		SourceID:          m.SourceID,
		OperationType:     accounting.OperationType(m.OperationType),
		IdempotencyKey:    idempotencyKey,
		Status:            accounting.JournalEntryStatus(m.Status),
		ReversalOfEntryID: m.ReversalOfEntryID,
		ReversedByEntryID: m.ReversedByEntryID,
		PostedAt:          m.PostedAt,
		PostedBy:          m.PostedBy,
		ReversedAt:        m.ReversedAt,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		Lines:             lines,
	}), nil
}

// FromDomain populates the persistence model from a domain JournalEntry
func (m *JournalEntryModel) FromDomain(e *accounting.JournalEntry) {
	m.ID = e.ID
	m.OrganizationID = e.OrganizationID
	m.BranchID = e.BranchID
	m.EntryNumber = e.EntryNumber
	m.EntryDate = e.EntryDate
	m.Description = e.Description
	m.Source = string(e.Source)
	m.SourceID = e.SourceID
	m.OperationType = string(e.OperationType)
	m.IdempotencyKey = nil
	if e.IdempotencyKey != "" {
		key := e.IdempotencyKey
		m.IdempotencyKey = &key
	}
	m.Status = string(e.Status())
	m.ReversalOfEntryID = e.ReversalOfEntryID
	m.ReversedByEntryID = e.ReversedByEntryID
	m.PostedAt = e.PostedAt
	m.PostedBy = e.PostedBy
	m.ReversedAt = e.ReversedAt
	m.Version = e.Version
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt

	lines := e.Lines()
	m.Lines = make([]JournalEntryLineModel, len(lines))
	for i, l := range lines {
		m.Lines[i] = JournalEntryLineModel{
			ID:             l.ID,
			JournalEntryID: e.ID,
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID,
			AccountCode:    l.AccountCode,
			EntryType:      string(l.EntryType),
			Amount:         l.Amount.Amount(),
			Currency:       string(l.Amount.Currency()),
			Description:    l.Description,
			CounterpartyID: l.CounterpartyID,
			CostCenterID:   l.CostCenterID,
		}
	}
}

// JournalEntryModelFromDomain creates a new persistence model from a domain JournalEntry
func JournalEntryModelFromDomain(e *accounting.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{}
	m.FromDomain(e)
	return m
}

// ToDomain converts the line model to a domain line
func (m *JournalEntryLineModel) ToDomain() (accounting.JournalEntryLine, error) {
	amount, err := valueobject.NewMoney(m.Amount, valueobject.Currency(m.Currency))
	if err != nil {
		return accounting.JournalEntryLine{}, err
	}
	return accounting.JournalEntryLine{
		ID:             m.ID,
		JournalEntryID: m.JournalEntryID,
		LineNumber:     m.LineNumber,
		AccountID:      m.AccountID,
		AccountCode:    m.AccountCode,
		EntryType:      accounting.EntryType(m.EntryType),
		Amount:         amount,
		Description:    m.Description,
		CounterpartyID: m.CounterpartyID,
		CostCenterID:   m.CostCenterID,
	}, nil
}

// AccountDeterminationRuleModel stores one account determination rule. The
// condition is kept as its source expression and compiled on load.
type AccountDeterminationRuleModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID    uuid.UUID `gorm:"type:uuid;not null;index:idx_rules_scope,priority:1"`
	BranchID          uuid.UUID `gorm:"type:uuid;not null;index:idx_rules_scope,priority:2"`
	OperationType     string    `gorm:"type:varchar(40);not null;index:idx_rules_scope,priority:3"`
	DebitAccountID    uuid.UUID `gorm:"type:uuid;not null"`
	DebitAccountCode  string    `gorm:"type:varchar(30);not null"`
	CreditAccountID   uuid.UUID `gorm:"type:uuid;not null"`
	CreditAccountCode string    `gorm:"type:varchar(30);not null"`
	Priority          int       `gorm:"not null"`
	Condition         string    `gorm:"type:text"`
	Active            bool      `gorm:"not null"`
	Description       string    `gorm:"type:varchar(500)"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountDeterminationRuleModel) TableName() string {
	return "account_determination_rules"
}

// ToDomain compiles the stored rule
func (m *AccountDeterminationRuleModel) ToDomain() (accounting.AccountDeterminationRule, error) {
	return accounting.NewAccountDeterminationRule(accounting.AccountRuleParams{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		BranchID:          m.BranchID,
		OperationType:     accounting.OperationType(m.OperationType),
		DebitAccountID:    m.DebitAccountID,
		DebitAccountCode:  m.DebitAccountCode,
		CreditAccountID:   m.CreditAccountID,
		CreditAccountCode: m.CreditAccountCode,
		Priority:          m.Priority,
		Condition:         m.Condition,
		Active:            m.Active,
		Description:       m.Description,
	})
}

// AccountDeterminationRuleModelFromDomain creates a new persistence model from a domain rule
func AccountDeterminationRuleModelFromDomain(r *accounting.AccountDeterminationRule) *AccountDeterminationRuleModel {
	m := &AccountDeterminationRuleModel{
		ID:                r.ID,
		OrganizationID:    r.OrganizationID,
		BranchID:          r.BranchID,
		OperationType:     string(r.OperationType),
		DebitAccountID:    r.DebitAccountID,
		DebitAccountCode:  r.DebitAccountCode,
		CreditAccountID:   r.CreditAccountID,
		CreditAccountCode: r.CreditAccountCode,
		Priority:          r.Priority,
		Active:            r.Active,
		Description:       r.Description,
	}
	if r.Condition != nil {
		m.Condition = r.Condition.Expression()
	}
	return m
}
