package core

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected input value. It is surfaced to the user
// as-is and never committed to the store.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// NewValidationError builds a ValidationError for field with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AsValidation extracts the ValidationError carried by err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

var (
	ErrInvalidDay       = &ValidationError{Field: "date", Msg: "invalid day"}
	ErrInvalidMonth     = &ValidationError{Field: "date", Msg: "invalid month"}
	ErrInvalidDate      = &ValidationError{Field: "date", Msg: "date must be YYYY-MM-DD"}
	ErrZeroDate         = &ValidationError{Field: "date", Msg: "date cannot be zero"}
	ErrInvalidAmount    = &ValidationError{Field: "amount", Msg: "invalid amount"}
	ErrAmountTooLarge   = &ValidationError{Field: "amount", Msg: "amount is too large"}
	ErrNegativeAmount   = &ValidationError{Field: "amount", Msg: "amount cannot be negative"}
	ErrEmptyName        = &ValidationError{Field: "name", Msg: "name cannot be empty"}
	ErrEmptyClient      = &ValidationError{Field: "client", Msg: "client name cannot be empty"}
	ErrEmptyVendor      = &ValidationError{Field: "vendor", Msg: "vendor cannot be empty"}
	ErrNoLines          = &ValidationError{Field: "lines", Msg: "order needs at least one product"}
	ErrInvalidQuantity  = &ValidationError{Field: "quantity", Msg: "quantity must be a positive number"}
	ErrQuantityTooLarge = &ValidationError{Field: "quantity", Msg: "quantity is too large"}
	ErrInvalidCategory  = &ValidationError{Field: "category", Msg: "category must be cake, sweet or add-on"}
	ErrInvalidStatus    = &ValidationError{Field: "status", Msg: "unknown order status"}
	ErrInvalidPayStatus = &ValidationError{Field: "payment_status", Msg: "unknown payment status"}
	ErrInvalidMethod    = &ValidationError{Field: "method", Msg: "payment method must be cash, credit-card, instant-transfer or bill"}
	ErrMissingCardName  = &ValidationError{Field: "card_name", Msg: "card name is required for credit-card payments"}
	ErrInvalidCutoffDay = &ValidationError{Field: "cutoff_day", Msg: "billing cutoff day must be between 1 and 28"}
	ErrInvalidInstall   = &ValidationError{Field: "installments", Msg: "invalid installment plan"}
	ErrOverpayment      = &ValidationError{Field: "amount_paid", Msg: "amount paid exceeds the order total"}
)
