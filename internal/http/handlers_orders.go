package http

import (
	"net/http"

	"confeitaria/internal/core"
	"confeitaria/internal/forms"
	"confeitaria/internal/summary"
)

// orderView adds the derived totals clients would otherwise recompute.
type orderView struct {
	core.Order
	Total       core.Money `json:"total"`
	Outstanding core.Money `json:"outstanding"`
}

func viewOrder(o core.Order) orderView {
	return orderView{Order: o, Total: o.Total(), Outstanding: o.Outstanding()}
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var f forms.LineForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := f.Draft()
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := s.svc.QuoteLine(d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleListOrders lists orders, newest first, optionally within start/end.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders := summary.FilterOrders(s.svc.Orders(), p)
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, viewOrder(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var f forms.OrderForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := f.Draft()
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.svc.CreateOrder(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOrder(o))
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.StatusForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := f.OrderStatus()
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.svc.SetOrderStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}

func (s *Server) handleSetOrderPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.PaymentUpdateForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := f.Update()
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.svc.SetOrderPayment(r.Context(), id, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}

func periodFromQuery(r *http.Request) (summary.Period, error) {
	q := r.URL.Query()
	return forms.Period(forms.Value(q.Get("start")), forms.Value(q.Get("end")))
}
