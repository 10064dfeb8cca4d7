package valueobject

import (
	"fmt"

	"github.com/erp/accounting/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rate is a non-negative percentage, e.g. 2 means 2%.
type Rate struct {
	percent decimal.Decimal
}

// NewRate creates a Rate from a percentage value
func NewRate(percent decimal.Decimal) (Rate, error) {
	if percent.IsNegative() {
		return Rate{}, shared.NewDomainError("INVALID_RATE", fmt.Sprintf("rate cannot be negative: %s%%", percent.String()))
	}
	return Rate{percent: percent}, nil
}

// NewRateFromString parses a percentage such as "2.5"
func NewRateFromString(percent string) (Rate, error) {
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return Rate{}, shared.NewDomainError("INVALID_RATE", fmt.Sprintf("invalid rate %q", percent))
	}
	return NewRate(d)
}

// MustRate creates a Rate from an integer percentage; it panics on negatives.
func MustRate(percent int64) Rate {
	r, err := NewRate(decimal.NewFromInt(percent))
	if err != nil {
		panic(err)
	}
	return r
}

// ZeroRate is 0%
func ZeroRate() Rate {
	return Rate{percent: decimal.Zero}
}

// Percent returns the percentage value (2 for 2%)
func (r Rate) Percent() decimal.Decimal {
	return r.percent
}

// Fraction returns the rate as a multiplier (0.02 for 2%)
func (r Rate) Fraction() decimal.Decimal {
	return r.percent.Div(hundred)
}

// IsZero reports whether the rate is 0%
func (r Rate) IsZero() bool {
	return r.percent.IsZero()
}

func (r Rate) String() string {
	return r.percent.String() + "%"
}
