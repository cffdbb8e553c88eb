package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"confeitaria/internal/export"
	"confeitaria/internal/log"
	"confeitaria/internal/summary"
)

func (s *Server) handleOrderSummary(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveReport(w, r, "summary|orders|"+p.String(), func() (cachedReport, error) {
		body, err := json.Marshal(s.svc.OrderSummary(p))
		return cachedReport{contentType: "application/json; charset=utf-8", body: body}, err
	})
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveReport(w, r, "summary|expenses|"+p.String(), func() (cachedReport, error) {
		body, err := json.Marshal(s.svc.ExpenseSummary(p))
		return cachedReport{contentType: "application/json; charset=utf-8", body: body}, err
	})
}

func (s *Server) handleOrdersReport(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, export.OrdersReport, s.svc.ExportOrders)
}

func (s *Server) handleExpensesReport(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, export.ExpensesReport, s.svc.ExportExpenses)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, kind export.Kind, write func(io.Writer, summary.Period, export.Format) error) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := fmt.Sprintf("report|%s|%s|%s", kind, f, p.String())
	s.serveReport(w, r, key, func() (cachedReport, error) {
		var buf bytes.Buffer
		if err := write(&buf, p, f); err != nil {
			return cachedReport{}, fmt.Errorf("export %s as %s: %w", kind, f, err)
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
			log.FieldOperation, log.OpExport, log.FieldFormat, string(f), log.FieldPeriod, p.String(), "bytes", buf.Len())
		return cachedReport{contentType: f.ContentType(), filename: export.Filename(kind, f), body: buf.Bytes()}, nil
	})
}

// serveReport answers from the report cache, rendering on a miss.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, key string, render func() (cachedReport, error)) {
	rep, ok := s.reports.get(key)
	if !ok {
		gen := s.reports.generation()
		var err error
		if rep, err = render(); err != nil {
			writeError(w, r, err)
			return
		}
		s.reports.set(key, rep, gen)
	}
	w.Header().Set("Content-Type", rep.contentType)
	if rep.filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code, storeCheck := "ready", http.StatusOK, "ok"
	if err := s.svc.Ping(ctx); err != nil {
		status, code, storeCheck = "not_ready", http.StatusServiceUnavailable, "failed: "+err.Error()
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]any{
			"store":        storeCheck,
			"report_cache": map[string]any{"entries": s.reports.Size()},
			"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients()},
		},
	})
}

// handleMetrics exposes counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "confeitaria_uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
	fmt.Fprintf(w, "confeitaria_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "confeitaria_http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "confeitaria_http_last_response_microseconds %d\n", tm.LastResponseTime)
	fmt.Fprintf(w, "confeitaria_rate_limit_hits_total %d\n", rl.TotalHits)
	fmt.Fprintf(w, "confeitaria_rate_limit_clients %d\n", rl.ClientCount)
	fmt.Fprintf(w, "confeitaria_suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	fmt.Fprintf(w, "confeitaria_report_cache_entries %d\n", s.reports.Size())
	fmt.Fprintf(w, "confeitaria_products %d\n", len(s.svc.Products()))
	fmt.Fprintf(w, "confeitaria_orders %d\n", len(s.svc.Orders()))
	fmt.Fprintf(w, "confeitaria_expenses %d\n", len(s.svc.Expenses()))
}
