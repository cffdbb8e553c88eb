package services

import (
	"io"

	"confeitaria/internal/export"
	"confeitaria/internal/summary"
)

// CanceledScope is the rule used when counting canceled orders.
func (s *Service) CanceledScope() summary.CanceledScope { return s.canceledScope }

func (s *Service) OrderSummary(p summary.Period) summary.Orders {
	return summary.SummarizeOrders(s.Orders(), p, s.canceledScope)
}

func (s *Service) ExpenseSummary(p summary.Period) summary.Expenses {
	return summary.SummarizeExpenses(s.Expenses(), p)
}

// ExportOrders writes the orders dated within p, headed by their summary.
func (s *Service) ExportOrders(w io.Writer, p summary.Period, f export.Format) error {
	all := s.Orders()
	return export.ExportOrders(w, summary.FilterOrders(all, p), summary.SummarizeOrders(all, p, s.canceledScope), f)
}

// ExportExpenses writes the expenses purchased within p, headed by their summary.
func (s *Service) ExportExpenses(w io.Writer, p summary.Period, f export.Format) error {
	all := s.Expenses()
	return export.ExportExpenses(w, summary.FilterExpenses(all, p), summary.SummarizeExpenses(all, p), f)
}
