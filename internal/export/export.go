// Package export renders orders and expenses as downloadable reports.
//
// Every report is first flattened into a Table, then written by the renderer
// for the requested format. CSV and XLSX carry the table only; PDF adds a
// title and the period totals above it.
package export

import (
	"fmt"
	"io"
	"strings"

	"confeitaria/internal/core"
	"confeitaria/internal/summary"
)

type Format string

const (
	CSV  Format = "csv"
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
)

// Kind names the collection a report is built from.
type Kind string

const (
	OrdersReport   Kind = "orders"
	ExpensesReport Kind = "expenses"
)

// ParseFormat accepts a format name in any case; an empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, PDF, XLSX:
		return f, nil
	case "":
		return CSV, nil
	}
	return "", core.NewValidationError("format", "unsupported report format %q", s)
}

// ContentType is the MIME type served for a format.
func (f Format) ContentType() string {
	switch f {
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the default download name of a report.
func Filename(k Kind, f Format) string {
	base := "encomendas"
	if k == ExpensesReport {
		base = "gastos"
	}
	if f == PDF {
		return "relatorio_" + base + ".pdf"
	}
	return base + "." + string(f)
}

// Column describes one report column. Money columns hold amounts formatted by
// core.Money.String and are written as numbers where the format allows it.
type Column struct {
	Title string
	Width float64 // relative width on the PDF page
	Money bool
}

// Figure is one labelled total printed above the table.
type Figure struct {
	Label string
	Value core.Money
}

type Table struct {
	Title   string
	Period  summary.Period
	Figures []Figure
	Columns []Column
	Rows    [][]string
}

// Header returns the column titles.
func (t Table) Header() []string {
	h := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Title
	}
	return h
}

// Write renders t in format f.
func Write(w io.Writer, t Table, f Format) error {
	switch f {
	case CSV:
		return writeCSV(w, t)
	case PDF:
		return writePDF(w, t)
	case XLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("unsupported report format %q", f)
}

// ExportOrders writes the orders report. The caller filters orders and builds
// s over the same period.
func ExportOrders(w io.Writer, orders []core.Order, s summary.Orders, f Format) error {
	return Write(w, OrdersTable(orders, s), f)
}

// ExportExpenses writes the expenses report.
func ExportExpenses(w io.Writer, expenses []core.Expense, s summary.Expenses, f Format) error {
	return Write(w, ExpensesTable(expenses, s), f)
}

func OrdersTable(orders []core.Order, s summary.Orders) Table {
	t := Table{
		Title:  "Relatório de Encomendas",
		Period: s.Period,
		Figures: []Figure{
			{Label: "Total vendido", Value: s.Sold},
			{Label: "Total recebido", Value: s.Received},
		},
		Columns: []Column{
			{Title: "Data", Width: 10},
			{Title: "Cliente", Width: 14},
			{Title: "Produtos", Width: 36},
			{Title: "Total", Width: 8, Money: true},
			{Title: "Valor Pago", Width: 8, Money: true},
			{Title: "Status Pagamento", Width: 10},
			{Title: "Status Encomenda", Width: 9},
			{Title: "Observação", Width: 14},
		},
	}
	for _, o := range orders {
		t.Rows = append(t.Rows, []string{
			o.Date.String(),
			o.Client,
			DescribeLines(o.Lines),
			o.Total().String(),
			o.AmountPaid.String(),
			o.PaymentStatus.Label(),
			o.Status.Label(),
			o.Note,
		})
	}
	return t
}

func ExpensesTable(expenses []core.Expense, s summary.Expenses) Table {
	t := Table{
		Title:  "Relatório de Gastos",
		Period: s.Period,
		Figures: []Figure{
			{Label: "Total gasto", Value: s.ByExpense},
			{Label: "Total pago no período", Value: s.ByPayment},
		},
		Columns: []Column{
			{Title: "Data da Compra", Width: 11},
			{Title: "Mercado/Loja", Width: 16},
			{Title: "Valor Total", Width: 9, Money: true},
			{Title: "Próxima Compra (estimativa)", Width: 12},
			{Title: "Pagamentos", Width: 40},
			{Title: "Observação", Width: 16},
		},
	}
	for _, e := range expenses {
		t.Rows = append(t.Rows, []string{
			e.PurchaseDate.String(),
			e.Vendor,
			e.Amount.String(),
			e.NextPurchase.String(),
			DescribePayments(e.Payments),
			e.Note,
		})
	}
	return t
}

// DescribeLine renders a line as "2x Bolo (Chocolate) + Morango, Topo = R$180.00".
func DescribeLine(l core.LineItem) string {
	var b strings.Builder
	b.WriteString(l.Quantity.String())
	b.WriteString("x ")
	b.WriteString(l.Product)
	if l.Variant != "" {
		b.WriteString(" (" + l.Variant + ")")
	}
	if len(l.AddOns) > 0 {
		b.WriteString(" + " + strings.Join(l.AddOns, ", "))
	}
	b.WriteString(" = " + l.Total.BRL())
	return b.String()
}

func DescribeLines(lines []core.LineItem) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = DescribeLine(l)
	}
	return strings.Join(parts, " | ")
}

// DescribePayment renders a payment as "Cartão (Nubank / Venc: 2024-02-10 1/3): R$100.00".
func DescribePayment(p core.Payment) string {
	var b strings.Builder
	b.WriteString(p.Method.Label())
	if p.Method == core.CreditCard {
		b.WriteString(" (" + p.CardName + " / Venc: " + p.DueDate.String())
		if p.Installment != nil {
			fmt.Fprintf(&b, " %d/%d", p.Installment.Index, p.Installment.Count)
		}
		b.WriteString(")")
	}
	b.WriteString(": " + p.Amount.BRL())
	return b.String()
}

func DescribePayments(payments []core.Payment) string {
	parts := make([]string, len(payments))
	for i, p := range payments {
		parts[i] = DescribePayment(p)
	}
	return strings.Join(parts, " | ")
}
