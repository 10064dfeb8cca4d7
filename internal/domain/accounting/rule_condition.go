package accounting

import (
	"fmt"
	"sync"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/google/cel-go/cel"
)

// RuleContext carries the facts a rule condition may reference
type RuleContext struct {
	Amount         float64
	Currency       string
	CounterpartyID string
	Operation      OperationType
}

func (c RuleContext) activation() map[string]any {
	return map[string]any{
		"amount":          c.Amount,
		"currency":        c.Currency,
		"counterparty_id": c.CounterpartyID,
		"operation":       string(c.Operation),
	}
}

var ruleEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("counterparty_id", cel.StringType),
		cel.Variable("operation", cel.StringType),
	)
})

// RuleCondition is a compiled CEL predicate that narrows when a rule applies,
// e.g. `amount >= 10000.0` or `currency == "USD"`.
type RuleCondition struct {
	expression string
	program    cel.Program
}

// CompileRuleCondition parses and type-checks a condition. The expression must
// evaluate to a bool.
func CompileRuleCondition(expression string) (*RuleCondition, error) {
	env, err := ruleEnv()
	if err != nil {
		return nil, fmt.Errorf("build rule environment: %w", err)
	}
	ast, iss := env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, shared.NewDomainError("INVALID_RULE_CONDITION",
			fmt.Sprintf("invalid rule condition %q: %v", expression, iss.Err()))
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, shared.NewDomainError("INVALID_RULE_CONDITION",
			fmt.Sprintf("rule condition %q must evaluate to bool, got %s", expression, ast.OutputType()))
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_RULE_CONDITION",
			fmt.Sprintf("invalid rule condition %q: %v", expression, err))
	}
	return &RuleCondition{expression: expression, program: program}, nil
}

// Expression returns the source text
func (c *RuleCondition) Expression() string {
	if c == nil {
		return ""
	}
	return c.expression
}

// Matches evaluates the condition. A nil condition always matches.
func (c *RuleCondition) Matches(rc RuleContext) (bool, error) {
	if c == nil {
		return true, nil
	}
	out, _, err := c.program.Eval(rc.activation())
	if err != nil {
		return false, fmt.Errorf("evaluate rule condition %q: %w", c.expression, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule condition %q returned %T", c.expression, out.Value())
	}
	return matched, nil
}
