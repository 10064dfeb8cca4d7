package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	BRL Currency = "BRL" // Brazilian Real (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = BRL

// MoneyScale is the number of decimal places a Money amount may carry
const MoneyScale int32 = 2

var knownCurrencies = map[Currency]struct{}{
	BRL: {},
	USD: {},
	EUR: {},
}

// IsKnown reports whether the currency is accepted by the ledger
func (c Currency) IsKnown() bool {
	_, ok := knownCurrencies[c]
	return ok
}

// ParseCurrency validates a currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(code)
	if c == "" {
		return "", shared.NewDomainError("UNKNOWN_CURRENCY", "currency cannot be empty")
	}
	if !c.IsKnown() {
		return "", shared.NewDomainError("UNKNOWN_CURRENCY", fmt.Sprintf("unknown currency: %s", code))
	}
	return c, nil
}

// Money is a value object representing monetary amounts.
// It is immutable: all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a Money. The amount must be non-negative with at most two
// decimal places, and the currency must be known.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if _, err := ParseCurrency(string(currency)); err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("amount cannot be negative: %s", amount.String()))
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return Money{}, shared.NewDomainError("INVALID_PRECISION",
			fmt.Sprintf("amount %s has more than %d decimal places", amount.String(), MoneyScale))
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromInt creates Money from a whole amount
func NewMoneyFromInt(amount int64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromInt(amount), currency)
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("invalid amount string %q", amount))
	}
	return NewMoney(d, currency)
}

// MustNewMoneyFromString is NewMoneyFromString for literals known to be valid.
// It panics on error.
func MustNewMoneyFromString(amount string, currency Currency) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("currency mismatch: %s and %s", m.currency, other.currency))
	}
	return nil
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference. The result may be negative; callers that
// need a balance clamp it with ZeroIfNegative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// MultiplyByRate applies a percentage rate, rounding half-up to cents
func (m Money) MultiplyByRate(rate Rate) Money {
	return m.MultiplyByFactor(rate.Fraction())
}

// MultiplyByFactor multiplies by an arbitrary factor, rounding half-up to cents
func (m Money) MultiplyByFactor(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).Round(MoneyScale), currency: m.currency}
}

// ZeroIfNegative clamps a negative amount to zero
func (m Money) ZeroIfNegative() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

// Max returns the larger of the two values
func (m Money) Max(other Money) (Money, error) {
	gt, err := m.GreaterThanOrEqual(other)
	if err != nil {
		return Money{}, err
	}
	if gt {
		return m, nil
	}
	return other, nil
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual returns true if this Money is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// Sum adds values that all share currency. An empty list sums to zero.
func Sum(currency Currency, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(MoneyScale), m.currency)
}

// StringFixed returns the amount with two decimal places
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MoneyScale)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(MoneyScale), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded value goes through
// NewMoney so a payload can never smuggle in an invalid amount.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
