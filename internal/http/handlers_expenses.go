package http

import (
	"net/http"

	"confeitaria/internal/core"
	"confeitaria/internal/forms"
	"confeitaria/internal/installments"
	"confeitaria/internal/summary"
)

// scheduleForm previews the payments of a purchase before it is saved.
type scheduleForm struct {
	PurchaseDate forms.Value         `json:"purchase_date"`
	Payments     []forms.PaymentForm `json:"payments"`
}

type scheduleView struct {
	Payments []core.Payment `json:"payments"`
	Total    core.Money     `json:"total"`
}

func (s *Server) handleSchedulePayments(w http.ResponseWriter, r *http.Request) {
	var f scheduleForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	purchase, err := forms.DateOrToday("purchase_date", f.PurchaseDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	intents := make([]installments.Intent, 0, len(f.Payments))
	for _, pf := range f.Payments {
		in, err := pf.Intent()
		if err != nil {
			writeError(w, r, err)
			return
		}
		intents = append(intents, in)
	}
	payments, err := s.svc.PreviewPayments(intents, purchase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	writeJSON(w, http.StatusOK, scheduleView{Payments: payments, Total: core.Expense{Payments: payments}.PaymentsTotal()})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses := summary.FilterExpenses(s.svc.Expenses(), p)
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var f forms.ExpenseForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := f.Draft()
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.CreateExpense(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.ExpenseForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := f.Draft()
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.UpdateExpense(r.Context(), id, d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
