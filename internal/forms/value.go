// Package forms is the input boundary of the application.
//
// Every raw value submitted by a client passes through here once and comes
// out typed: money in cents, calendar dates, decimal quantities and closed
// enums. Anything that cannot be converted is rejected with a
// core.ValidationError naming the field; nothing is silently coerced except
// the documented quantity default.
package forms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"confeitaria/internal/core"
	"confeitaria/internal/pricing"

	"github.com/shopspring/decimal"
)

// Value is a raw form field. It decodes from a JSON string or number so
// clients may send either "12,50" or 12.5.
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*v = Value(data)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Value(data)
	default:
		return fmt.Errorf("unsupported form value %s", data)
	}
	return nil
}

// String returns the trimmed raw text.
func (v Value) String() string { return strings.TrimSpace(string(v)) }

// Blank reports whether nothing was submitted.
func (v Value) Blank() bool { return v.String() == "" }

func wrap(field string, err error) error {
	if ve, ok := core.AsValidation(err); ok {
		return &core.ValidationError{Field: field, Msg: ve.Msg}
	}
	return core.NewValidationError(field, "%s", err.Error())
}

// Text returns the trimmed value, rejecting it when blank.
func Text(field string, v Value) (string, error) {
	if v.Blank() {
		return "", core.NewValidationError(field, "required")
	}
	return v.String(), nil
}

// Money parses a strictly positive amount.
func Money(field string, v Value) (core.Money, error) {
	c, err := core.ParseDecimalToCents(v.String())
	if err != nil {
		return core.Money{}, wrap(field, err)
	}
	return core.Cents(c), nil
}

// NonNegativeMoney parses an amount that may be zero; blank means zero.
func NonNegativeMoney(field string, v Value) (core.Money, error) {
	if v.Blank() {
		return core.Money{}, nil
	}
	c, err := core.ParseNonNegativeCents(v.String())
	if err != nil {
		return core.Money{}, wrap(field, err)
	}
	return core.Cents(c), nil
}

// OptionalMoney is NonNegativeMoney that tells blank apart from zero.
func OptionalMoney(field string, v Value) (*core.Money, error) {
	if v.Blank() {
		return nil, nil
	}
	m, err := NonNegativeMoney(field, v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Date parses a required YYYY-MM-DD date.
func Date(field string, v Value) (core.Date, error) {
	if v.Blank() {
		return core.Date{}, core.NewValidationError(field, "required")
	}
	d, err := core.ParseDate(v.String())
	if err != nil {
		return core.Date{}, wrap(field, err)
	}
	return d, nil
}

// OptionalDate returns the zero date when blank.
func OptionalDate(field string, v Value) (core.Date, error) {
	if v.Blank() {
		return core.Date{}, nil
	}
	return Date(field, v)
}

// DateOrToday falls back to the current date when blank.
func DateOrToday(field string, v Value) (core.Date, error) {
	if v.Blank() {
		return core.Today(), nil
	}
	return Date(field, v)
}

// Quantity parses a decimal quantity. A blank field and a non-positive number
// fall back to pricing.DefaultQuantity; text that is not a number and anything
// above pricing.MaxQuantity are rejected.
func Quantity(field string, v Value) (decimal.Decimal, error) {
	if v.Blank() {
		return pricing.DefaultQuantity(decimal.Zero), nil
	}
	q, err := decimal.NewFromString(strings.ReplaceAll(v.String(), ",", "."))
	if err != nil {
		return decimal.Decimal{}, core.NewValidationError(field, "quantity must be a number")
	}
	if q.GreaterThan(pricing.MaxQuantity) {
		return decimal.Decimal{}, core.NewValidationError(field, "quantity must not exceed %s", pricing.MaxQuantity)
	}
	return pricing.DefaultQuantity(q), nil
}

// Int parses a whole number; blank means zero.
func Int(field string, v Value) (int, error) {
	if v.Blank() {
		return 0, nil
	}
	n, err := strconv.Atoi(v.String())
	if err != nil {
		return 0, core.NewValidationError(field, "must be a whole number")
	}
	return n, nil
}

// ID parses a record identifier; blank means none (0).
func ID(field string, v Value) (int64, error) {
	if v.Blank() {
		return 0, nil
	}
	n, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(field, "invalid identifier")
	}
	return n, nil
}

// Bool accepts true/false, 1/0 and on/off; blank means false.
func Bool(field string, v Value) (bool, error) {
	switch strings.ToLower(v.String()) {
	case "", "false", "0", "off", "nao", "não":
		return false, nil
	case "true", "1", "on", "sim":
		return true, nil
	}
	return false, core.NewValidationError(field, "must be true or false")
}
