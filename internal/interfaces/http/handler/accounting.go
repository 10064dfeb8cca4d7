package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/accounting/internal/domain/accounting"
	"github.com/erp/accounting/internal/domain/shared"
	"github.com/erp/accounting/internal/infrastructure/event"
	"github.com/erp/accounting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dateLayout is the layout of date-only query parameters
const dateLayout = "2006-01-02"

// EnvelopeOpener decodes an event envelope into a domain event
type EnvelopeOpener interface {
	Open(env event.Envelope) (shared.DomainEvent, error)
}

// LedgerReader answers ledger queries
type LedgerReader interface {
	EntriesBySource(ctx context.Context, organizationID, branchID, sourceID uuid.UUID) ([]*accounting.JournalEntry, error)
	EntryByID(ctx context.Context, organizationID, id uuid.UUID) (*accounting.JournalEntry, error)
	TrialBalance(ctx context.Context, organizationID, branchID uuid.UUID, from, to time.Time) (accounting.TrialBalance, error)
}

// AccountingHandler serves event intake and ledger queries
type AccountingHandler struct {
	BaseHandler
	opener    EnvelopeOpener
	publisher shared.EventPublisher
	ledger    LedgerReader
}

// NewAccountingHandler creates a new AccountingHandler
func NewAccountingHandler(opener EnvelopeOpener, publisher shared.EventPublisher, ledger LedgerReader) *AccountingHandler {
	return &AccountingHandler{opener: opener, publisher: publisher, ledger: ledger}
}

// EventAcceptedResponse acknowledges an accepted event
type EventAcceptedResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType string    `json:"event_type"`
}

// JournalLineResponse represents a journal entry line in API responses
type JournalLineResponse struct {
	LineNumber     int             `json:"line_number"`
	AccountID      uuid.UUID       `json:"account_id"`
	AccountCode    string          `json:"account_code"`
	EntryType      string          `json:"entry_type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description,omitempty"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID                uuid.UUID             `json:"id"`
	OrganizationID    uuid.UUID             `json:"organization_id"`
	BranchID          uuid.UUID             `json:"branch_id"`
	EntryNumber       string                `json:"entry_number"`
	EntryDate         string                `json:"entry_date"`
	Description       string                `json:"description"`
	Source            string                `json:"source"`
	SourceID          uuid.UUID             `json:"source_id"`
	OperationType     string                `json:"operation_type"`
	Status            string                `json:"status"`
	IdempotencyKey    string                `json:"idempotency_key,omitempty"`
	ReversalOfEntryID *uuid.UUID            `json:"reversal_of_entry_id,omitempty"`
	ReversedByEntryID *uuid.UUID            `json:"reversed_by_entry_id,omitempty"`
	PostedAt          *time.Time            `json:"posted_at,omitempty"`
	PostedBy          string                `json:"posted_by,omitempty"`
	TotalDebit        decimal.Decimal       `json:"total_debit"`
	TotalCredit       decimal.Decimal       `json:"total_credit"`
	Lines             []JournalLineResponse `json:"lines"`
}

// TrialBalanceLineResponse is one account of a trial balance
type TrialBalanceLineResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Currency    string          `json:"currency"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalanceResponse represents a trial balance in API responses
type TrialBalanceResponse struct {
	OrganizationID uuid.UUID                  `json:"organization_id"`
	BranchID       *uuid.UUID                 `json:"branch_id,omitempty"`
	From           string                     `json:"from,omitempty"`
	To             string                     `json:"to,omitempty"`
	Lines          []TrialBalanceLineResponse `json:"lines"`
	TotalDebit     decimal.Decimal            `json:"total_debit"`
	TotalCredit    decimal.Decimal            `json:"total_credit"`
	Balanced       bool                       `json:"balanced"`
}

// ReceiveEvent accepts a versioned event envelope and publishes it to the
// event bus.
// POST /api/v1/accounting/events
func (h *AccountingHandler) ReceiveEvent(c *gin.Context) {
	var env event.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not a valid event envelope")
		return
	}

	evt, err := h.opener.Open(env)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if evt.EventID() == uuid.Nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidEvent, "event id is required")
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), evt); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, EventAcceptedResponse{EventID: evt.EventID(), EventType: evt.EventType()})
}

// ListEntries returns the journal entries recorded for a source document.
// GET /api/v1/accounting/entries?organization_id=&source_id=&branch_id=
func (h *AccountingHandler) ListEntries(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	sourceID, err := uuid.Parse(c.Query("source_id"))
	if err != nil {
		h.BadRequest(c, "source_id must be a UUID")
		return
	}
	branchID, err := parseOptionalUUID(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "branch_id must be a UUID")
		return
	}

	entries, err := h.ledger.EntriesBySource(c.Request.Context(), orgID, branchID, sourceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toJournalEntryResponse(e))
	}
	h.Success(c, out)
}

// GetEntry returns one journal entry.
// GET /api/v1/accounting/entries/:id?organization_id=
func (h *AccountingHandler) GetEntry(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.ledger.EntryByID(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toJournalEntryResponse(entry))
}

// GetTrialBalance totals posted movements per account. from and to are
// inclusive dates (YYYY-MM-DD) and both optional.
// GET /api/v1/accounting/trial-balance?organization_id=&branch_id=&from=&to=
func (h *AccountingHandler) GetTrialBalance(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	branchID, err := parseOptionalUUID(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "branch_id must be a UUID")
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		h.BadRequest(c, "from must be a date in the format YYYY-MM-DD")
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		h.BadRequest(c, "to must be a date in the format YYYY-MM-DD")
		return
	}

	tb, err := h.ledger.TrialBalance(c.Request.Context(), orgID, branchID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := TrialBalanceResponse{
		OrganizationID: orgID,
		Lines:          make([]TrialBalanceLineResponse, 0, len(tb.Lines)),
		TotalDebit:     tb.TotalDebit,
		TotalCredit:    tb.TotalCredit,
		Balanced:       tb.IsBalanced(),
	}
	if branchID != uuid.Nil {
		resp.BranchID = &branchID
	}
	if !from.IsZero() {
		resp.From = from.Format(dateLayout)
	}
	if !to.IsZero() {
		resp.To = to.Format(dateLayout)
	}
	for _, l := range tb.Lines {
		resp.Lines = append(resp.Lines, TrialBalanceLineResponse{
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			Currency:    l.Currency,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Balance:     l.Balance(),
		})
	}
	h.Success(c, resp)
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func toJournalEntryResponse(e *accounting.JournalEntry) JournalEntryResponse {
	lines := e.Lines()
	out := make([]JournalLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, JournalLineResponse{
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID,
			AccountCode:    l.AccountCode,
			EntryType:      string(l.EntryType),
			Amount:         l.Amount.Amount(),
			Currency:       string(l.Amount.Currency()),
			Description:    l.Description,
			CounterpartyID: l.CounterpartyID,
		})
	}

	return JournalEntryResponse{
		ID:                e.ID,
		OrganizationID:    e.OrganizationID,
		BranchID:          e.BranchID,
		EntryNumber:       e.EntryNumber,
		EntryDate:         e.EntryDate.Format(dateLayout),
		Description:       e.Description,
		Source:            string(e.Source),
		SourceID:          e.SourceID,
		OperationType:     string(e.OperationType),
		Status:            e.Status().String(),
		IdempotencyKey:    e.IdempotencyKey,
		ReversalOfEntryID: e.ReversalOfEntryID,
		ReversedByEntryID: e.ReversedByEntryID,
		PostedAt:          e.PostedAt,
		PostedBy:          e.PostedBy,
		TotalDebit:        e.TotalDebit(),
		TotalCredit:       e.TotalCredit(),
		Lines:             out,
	}
}
