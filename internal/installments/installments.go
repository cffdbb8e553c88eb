// Package installments expands one payment intent into the scheduled payments
// recorded on an expense.
//
// Due dates follow a per-method rule. Card payments fall on the billing cutoff
// day: a purchase made after the cutoff rolls into the next month's bill, and
// each further installment lands one calendar month later. Every other method
// is due on the purchase date.
package installments

import (
	"strings"

	"confeitaria/internal/core"
)

const (
	MinCutoffDay = 1
	// MaxCutoffDay keeps due dates valid in every month, February included.
	MaxCutoffDay    = 28
	MaxInstallments = 24
)

// Intent is a single payment as entered on the expense form, before it is
// split into installments.
type Intent struct {
	Method       core.PaymentMethod `json:"method"`
	Amount       core.Money         `json:"amount"`
	CardName     string             `json:"card_name,omitempty"`
	CutoffDay    int                `json:"cutoff_day,omitempty"`
	Installments int                `json:"installments,omitempty"`
}

// DueDateRule places the n-th (0-based) payment of a plan on the calendar.
type DueDateRule interface {
	DueDate(purchase core.Date, n int) core.Date
}

// Immediate is due on the purchase date.
type Immediate struct{}

func (Immediate) DueDate(purchase core.Date, _ int) core.Date {
	return purchase
}

// BillingCycle is due on CutoffDay of the bill that contains the purchase,
// then monthly.
type BillingCycle struct {
	CutoffDay int
}

func (c BillingCycle) DueDate(purchase core.Date, n int) core.Date {
	month := purchase.Month() + n
	if purchase.Day() > c.CutoffDay {
		month++
	}
	// time.Date normalises month overflow into the following years.
	return core.NewDate(purchase.Year(), month, c.CutoffDay)
}

// RuleFor returns the due date rule for a payment method.
func RuleFor(method core.PaymentMethod, cutoffDay int) DueDateRule {
	if method == core.CreditCard {
		return BillingCycle{CutoffDay: cutoffDay}
	}
	return Immediate{}
}

// Split divides total into count parts. Each part is floor(total/count) and
// the last one also takes the remainder, so the parts always add up to total.
// Every part must be at least one centavo.
func Split(total core.Money, count int) ([]core.Money, error) {
	if count < 1 || count > MaxInstallments {
		return nil, core.ErrInvalidInstall
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}
	n := int64(count)
	if total.Cents < n {
		return nil, core.ErrInvalidInstall
	}
	each := total.Cents / n
	parts := make([]core.Money, count)
	for i := range parts {
		parts[i] = core.Cents(each)
	}
	parts[count-1] = core.Cents(each + total.Cents%n)
	return parts, nil
}

func validateCard(cardName string, cutoffDay int) error {
	if strings.TrimSpace(cardName) == "" {
		return core.ErrMissingCardName
	}
	if cutoffDay < MinCutoffDay || cutoffDay > MaxCutoffDay {
		return core.ErrInvalidCutoffDay
	}
	return nil
}

// Schedule builds a credit-card installment plan of count payments.
func Schedule(purchase core.Date, cutoffDay int, total core.Money, count int, cardName string) ([]core.Payment, error) {
	if err := purchase.Validate(); err != nil {
		return nil, err
	}
	if err := validateCard(cardName, cutoffDay); err != nil {
		return nil, err
	}
	parts, err := Split(total, count)
	if err != nil {
		return nil, err
	}

	rule := BillingCycle{CutoffDay: cutoffDay}
	card := strings.TrimSpace(cardName)
	payments := make([]core.Payment, 0, count)
	for i, amount := range parts {
		payments = append(payments, core.Payment{
			Method:      core.CreditCard,
			Amount:      amount,
			CardName:    card,
			DueDate:     rule.DueDate(purchase, i),
			Installment: &core.Installment{Index: i + 1, Count: count},
		})
	}
	return payments, nil
}

// SchedulePayment expands an intent made on purchase into stored payments.
// A card intent with more than one installment becomes a plan; anything else
// is a single payment.
func SchedulePayment(in Intent, purchase core.Date) ([]core.Payment, error) {
	if !in.Method.Valid() {
		return nil, core.ErrInvalidMethod
	}
	if err := in.Amount.Validate(); err != nil {
		return nil, err
	}
	if err := purchase.Validate(); err != nil {
		return nil, err
	}
	if in.Installments < 0 || in.Installments > MaxInstallments {
		return nil, core.ErrInvalidInstall
	}

	if in.Method != core.CreditCard {
		if in.Installments > 1 {
			return nil, core.NewValidationError("installments", "only credit-card payments can be split")
		}
		return []core.Payment{{
			Method:  in.Method,
			Amount:  in.Amount,
			DueDate: Immediate{}.DueDate(purchase, 0),
		}}, nil
	}

	if in.Installments > 1 {
		return Schedule(purchase, in.CutoffDay, in.Amount, in.Installments, in.CardName)
	}
	if err := validateCard(in.CardName, in.CutoffDay); err != nil {
		return nil, err
	}
	return []core.Payment{{
		Method:   core.CreditCard,
		Amount:   in.Amount,
		CardName: strings.TrimSpace(in.CardName),
		DueDate:  RuleFor(in.Method, in.CutoffDay).DueDate(purchase, 0),
	}}, nil
}

// ScheduleAll expands every intent of an expense form.
func ScheduleAll(intents []Intent, purchase core.Date) ([]core.Payment, error) {
	var out []core.Payment
	for _, in := range intents {
		p, err := SchedulePayment(in, purchase)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	return out, nil
}
