// Package summary filters records by period and reduces them to the figures
// shown on the dashboard and printed on reports.
package summary

import (
	"fmt"

	"confeitaria/internal/core"
)

// CanceledScope selects which orders the canceled counter looks at.
type CanceledScope string

const (
	// CanceledAllTime counts canceled orders over every order, ignoring the
	// period. Other counters are always period-bound.
	CanceledAllTime CanceledScope = "all_time"
	// CanceledInPeriod counts canceled orders within the period only.
	CanceledInPeriod CanceledScope = "in_period"
)

// ParseCanceledScope maps a configuration value to a scope.
func ParseCanceledScope(s string) (CanceledScope, error) {
	switch CanceledScope(s) {
	case CanceledAllTime, CanceledInPeriod:
		return CanceledScope(s), nil
	case "":
		return CanceledAllTime, nil
	}
	return "", fmt.Errorf("unknown canceled count scope %q", s)
}

// Period is an inclusive date range. A zero bound leaves that side open.
type Period struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether d falls within the period.
func (p Period) Contains(d core.Date) bool {
	if !p.Start.IsZero() && d.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && d.After(p.End) {
		return false
	}
	return true
}

// Unbounded reports whether neither bound is set.
func (p Period) Unbounded() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

func (p Period) Validate() error {
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return core.NewValidationError("end", "end date is before start date")
	}
	return nil
}

// String renders the period for report headers and cache keys.
func (p Period) String() string {
	switch {
	case p.Unbounded():
		return "todo o período"
	case p.Start.IsZero():
		return "até " + p.End.String()
	case p.End.IsZero():
		return "desde " + p.Start.String()
	}
	return p.Start.String() + " a " + p.End.String()
}

// FilterOrders keeps orders whose date is in the period.
func FilterOrders(orders []core.Order, p Period) []core.Order {
	out := make([]core.Order, 0, len(orders))
	for _, o := range orders {
		if p.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out
}

// FilterExpenses keeps expenses whose purchase date is in the period.
func FilterExpenses(expenses []core.Expense, p Period) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if p.Contains(e.PurchaseDate) {
			out = append(out, e)
		}
	}
	return out
}

// PaymentDate is the date a payment is compared on: its due date, or the
// purchase date of its expense when it has none.
func PaymentDate(e core.Expense, pay core.Payment) core.Date {
	if !pay.DueDate.IsZero() {
		return pay.DueDate
	}
	return e.PurchaseDate
}

// ExpensePayment pairs a payment with the expense it settles.
type ExpensePayment struct {
	Expense core.Expense
	Payment core.Payment
}

// FilterPayments flattens the payments of every expense that fall in the
// period.
func FilterPayments(expenses []core.Expense, p Period) []ExpensePayment {
	var out []ExpensePayment
	for _, e := range expenses {
		for _, pay := range e.Payments {
			if p.Contains(PaymentDate(e, pay)) {
				out = append(out, ExpensePayment{Expense: e, Payment: pay})
			}
		}
	}
	return out
}

type Orders struct {
	Period      Period     `json:"period"`
	Sold        core.Money `json:"sold"`
	Received    core.Money `json:"received"`
	Outstanding core.Money `json:"outstanding"`
	InProgress  int        `json:"in_progress"`
	Delivered   int        `json:"delivered"`
	Canceled    int        `json:"canceled"`
	Count       int        `json:"count"`
}

// SummarizeOrders reduces all orders for period p. Sold and received skip
// canceled orders; the canceled count follows scope.
func SummarizeOrders(all []core.Order, p Period, scope CanceledScope) Orders {
	s := Orders{Period: p}
	for _, o := range FilterOrders(all, p) {
		s.Count++
		switch o.Status {
		case core.InProgress:
			s.InProgress++
		case core.Delivered:
			s.Delivered++
		case core.Canceled:
			if scope == CanceledInPeriod {
				s.Canceled++
			}
			continue
		}
		s.Sold = s.Sold.Add(o.Total())
		s.Received = s.Received.Add(o.AmountPaid)
	}
	if scope != CanceledInPeriod {
		for _, o := range all {
			if o.Status == core.Canceled {
				s.Canceled++
			}
		}
	}
	s.Outstanding = s.Sold.Sub(s.Received)
	return s
}

type Expenses struct {
	Period    Period     `json:"period"`
	ByExpense core.Money `json:"by_expense"`
	ByPayment core.Money `json:"by_payment"`
	Count     int        `json:"count"`
	Payments  int        `json:"payments"`
}

// SummarizeExpenses computes the two expense totals. ByExpense adds the
// declared amount of expenses bought in the period; ByPayment adds the
// payments that fall in the period, whenever the expense was bought.
func SummarizeExpenses(all []core.Expense, p Period) Expenses {
	s := Expenses{Period: p}
	for _, e := range FilterExpenses(all, p) {
		s.Count++
		s.ByExpense = s.ByExpense.Add(e.Amount)
	}
	for _, ep := range FilterPayments(all, p) {
		s.Payments++
		s.ByPayment = s.ByPayment.Add(ep.Payment.Amount)
	}
	return s
}
