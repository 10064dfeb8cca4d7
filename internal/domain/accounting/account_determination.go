package accounting

import (
	"fmt"
	"sort"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountPair is the resolved debit and credit accounts for an operation
type AccountPair struct {
	DebitAccountID    uuid.UUID
	DebitAccountCode  string
	CreditAccountID   uuid.UUID
	CreditAccountCode string
}

// AccountDeterminationRule maps an operation type to a debit/credit account
// pair for one organization and branch. Lower Priority wins when several
// active rules match.
type AccountDeterminationRule struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	BranchID          uuid.UUID
	OperationType     OperationType
	DebitAccountID    uuid.UUID
	DebitAccountCode  string
	CreditAccountID   uuid.UUID
	CreditAccountCode string
	Priority          int
	Condition         *RuleCondition
	Active            bool
	Description       string
}

// AccountRuleParams holds the inputs of NewAccountDeterminationRule
type AccountRuleParams struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	BranchID          uuid.UUID
	OperationType     OperationType
	DebitAccountID    uuid.UUID
	DebitAccountCode  string
	CreditAccountID   uuid.UUID
	CreditAccountCode string
	Priority          int
	Condition         string
	Active            bool
	Description       string
}

// NewAccountDeterminationRule validates a rule and compiles its condition
func NewAccountDeterminationRule(p AccountRuleParams) (AccountDeterminationRule, error) {
	if !p.OperationType.IsValid() {
		return AccountDeterminationRule{}, shared.NewDomainError("INVALID_OPERATION_TYPE",
			fmt.Sprintf("unknown operation type: %s", p.OperationType))
	}
	if p.DebitAccountID == uuid.Nil || p.DebitAccountCode == "" {
		return AccountDeterminationRule{}, shared.NewDomainError("INVALID_ACCOUNT", "debit account is required")
	}
	if p.CreditAccountID == uuid.Nil || p.CreditAccountCode == "" {
		return AccountDeterminationRule{}, shared.NewDomainError("INVALID_ACCOUNT", "credit account is required")
	}
	if p.DebitAccountID == p.CreditAccountID {
		return AccountDeterminationRule{}, shared.NewDomainError("INVALID_ACCOUNT", "debit and credit accounts must differ")
	}

	var condition *RuleCondition
	if p.Condition != "" {
		var err error
		if condition, err = CompileRuleCondition(p.Condition); err != nil {
			return AccountDeterminationRule{}, err
		}
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return AccountDeterminationRule{
		ID:                id,
		OrganizationID:    p.OrganizationID,
		BranchID:          p.BranchID,
		OperationType:     p.OperationType,
		DebitAccountID:    p.DebitAccountID,
		DebitAccountCode:  p.DebitAccountCode,
		CreditAccountID:   p.CreditAccountID,
		CreditAccountCode: p.CreditAccountCode,
		Priority:          p.Priority,
		Condition:         condition,
		Active:            p.Active,
		Description:       p.Description,
	}, nil
}

// Accounts returns the rule's account pair
func (r AccountDeterminationRule) Accounts() AccountPair {
	return AccountPair{
		DebitAccountID:    r.DebitAccountID,
		DebitAccountCode:  r.DebitAccountCode,
		CreditAccountID:   r.CreditAccountID,
		CreditAccountCode: r.CreditAccountCode,
	}
}

// RuleSet is the ordered rule table of one organization and branch
type RuleSet struct {
	rules []AccountDeterminationRule
}

// NewRuleSet orders rules by priority, keeping the given order among equals
func NewRuleSet(rules ...AccountDeterminationRule) RuleSet {
	sorted := make([]AccountDeterminationRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return RuleSet{rules: sorted}
}

// Rules returns the rules in evaluation order
func (rs RuleSet) Rules() []AccountDeterminationRule {
	out := make([]AccountDeterminationRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules
func (rs RuleSet) Len() int {
	return len(rs.rules)
}

// NewRuleNotFoundError builds the error returned when no rule applies
func NewRuleNotFoundError(op OperationType) *shared.DomainError {
	return shared.NewDomainError("ACCOUNT_RULE_NOT_FOUND", fmt.Sprintf("no rule configured for operation %s", op))
}

// IsRuleNotFound reports whether err means no rule was configured
func IsRuleNotFound(err error) bool {
	return shared.HasCode(err, "ACCOUNT_RULE_NOT_FOUND")
}

// AccountDeterminationService resolves the accounts for an operation from a
// rule table. It holds no state; the rule table is loaded by the caller.
type AccountDeterminationService struct{}

// NewAccountDeterminationService creates the service
func NewAccountDeterminationService() *AccountDeterminationService {
	return &AccountDeterminationService{}
}

// DetermineAccounts returns the accounts of the first active rule for op.
// Conditional rules are evaluated against an empty context.
func (s *AccountDeterminationService) DetermineAccounts(rules RuleSet, op OperationType) (AccountPair, error) {
	return s.DetermineAccountsFor(rules, op, RuleContext{Operation: op})
}

// DetermineAccountsFor returns the accounts of the first active rule for op
// whose condition holds for rc.
func (s *AccountDeterminationService) DetermineAccountsFor(rules RuleSet, op OperationType, rc RuleContext) (AccountPair, error) {
	rc.Operation = op
	for _, rule := range rules.rules {
		if !rule.Active || rule.OperationType != op {
			continue
		}
		matched, err := rule.Condition.Matches(rc)
		if err != nil {
			return AccountPair{}, err
		}
		if matched {
			return rule.Accounts(), nil
		}
	}
	return AccountPair{}, NewRuleNotFoundError(op)
}
