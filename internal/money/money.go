// Package money holds fixed-point amounts in integer minor units.
//
// All ledger and optimizer arithmetic happens on Cents. Decimal strings such as
// "12.34" only appear at the JSON boundary.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Cents is an amount in minor units (two decimal places).
type Cents int64

var (
	ErrTooPrecise    = errors.New("amount must have at most 2 decimal places")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrOutOfRange    = errors.New("amount out of range")
)

var hundred = decimal.NewFromInt(100)

// Parse converts a decimal string ("12.34", "-5", "0.5") to Cents.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts d to Cents, rejecting sub-cent precision.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrOutOfRange
	}
	return Cents(scaled.IntPart()), nil
}


// Decimal returns c as a decimal with two places.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats c with exactly two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Abs returns the absolute value of c.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// MarshalJSON encodes c as a decimal string to keep precision across clients.
func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Sum adds all values.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}

// ValidateCurrency checks that code is an ISO 4217 currency code. The code is
// otherwise treated as an opaque tag; nothing is ever converted.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("invalid currency %q", code)
	}
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("invalid currency %q", code)
	}
	return nil
}
