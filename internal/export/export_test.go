package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"

	"confeitaria/internal/core"
	"confeitaria/internal/summary"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleOrders() []core.Order {
	return []core.Order{
		{
			ID:     1,
			Client: `Maria "Docinho" Silva`,
			Lines: []core.LineItem{
				{Product: "Bolo", Variant: "Chocolate", Quantity: decimal.NewFromInt(2), AddOns: []string{"Morango", "Topo"},
					UnitPrice: core.Cents(8000), Total: core.Cents(18500)},
				{Product: "Brigadeiro", Quantity: decimal.RequireFromString("1.5"), UnitPrice: core.Cents(200), Total: core.Cents(300)},
			},
			AmountPaid:    core.Cents(10000),
			PaymentStatus: core.PartiallyPaid,
			Status:        core.InProgress,
			Date:          core.NewDate(2024, 1, 10),
			Note:          "entregar às 15h, portão \"azul\"",
		},
	}
}

func sampleExpenses() []core.Expense {
	return []core.Expense{
		{
			ID:           1,
			Amount:       core.Cents(30000),
			Vendor:       "Atacadão",
			PurchaseDate: core.NewDate(2024, 1, 15),
			NextPurchase: core.NewDate(2024, 2, 15),
			Payments: []core.Payment{
				{Method: core.Cash, Amount: core.Cents(10000), DueDate: core.NewDate(2024, 1, 15)},
				{Method: core.CreditCard, Amount: core.Cents(20000), CardName: "Nubank", DueDate: core.NewDate(2024, 2, 10),
					Installment: &core.Installment{Index: 1, Count: 1}},
			},
		},
	}
}

func TestDescribeLines(t *testing.T) {
	got := DescribeLines(sampleOrders()[0].Lines)
	assert.Equal(t, "2x Bolo (Chocolate) + Morango, Topo = R$185.00 | 1.5x Brigadeiro = R$3.00", got)
}

func TestDescribePayments(t *testing.T) {
	got := DescribePayments(sampleExpenses()[0].Payments)
	assert.Equal(t, "Dinheiro: R$100.00 | Cartão (Nubank / Venc: 2024-02-10 1/1): R$200.00", got)
}

func TestCSVQuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	orders := sampleOrders()
	s := summary.SummarizeOrders(orders, summary.Period{}, summary.CanceledAllTime)
	require.NoError(t, ExportOrders(&buf, orders, s, CSV))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `"Data","Cliente","Produtos","Total","Valor Pago","Status Pagamento","Status Encomenda","Observação"`+"\r\n"))
	assert.Contains(t, out, `"Maria ""Docinho"" Silva"`)
	assert.False(t, strings.HasSuffix(out, "\r\n"))

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, orders[0].Client, records[1][1])
	assert.Equal(t, orders[0].Note, records[1][7])
	assert.Equal(t, "188.00", records[1][3])
	assert.Equal(t, "100.00", records[1][4])
	assert.Equal(t, "Pago parcial", records[1][5])
	assert.Equal(t, "Fazendo", records[1][6])
}

func TestCSVRoundTripsQuotes(t *testing.T) {
	values := []string{`"`, `a "b" c`, `""`, "line\nbreak", "comma, inside", ""}
	tbl := Table{Columns: []Column{{Title: "v"}}}
	for _, v := range values {
		tbl.Rows = append(tbl.Rows, []string{v})
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, CSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(values)+1)
	for i, v := range values {
		assert.Equal(t, v, records[i+1][0])
	}
}

func TestExpensesCSV(t *testing.T) {
	var buf bytes.Buffer
	expenses := sampleExpenses()
	s := summary.SummarizeExpenses(expenses, summary.Period{})
	require.NoError(t, ExportExpenses(&buf, expenses, s, CSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Data da Compra", "Mercado/Loja", "Valor Total", "Próxima Compra (estimativa)", "Pagamentos", "Observação"}, records[0])
	assert.Equal(t, []string{"2024-01-15", "Atacadão", "300.00", "2024-02-15",
		"Dinheiro: R$100.00 | Cartão (Nubank / Venc: 2024-02-10 1/1): R$200.00", ""}, records[1])
}

func TestPDFShowsBothFiguresAboveTheTable(t *testing.T) {
	orders := sampleOrders()
	table := OrdersTable(orders, summary.SummarizeOrders(orders, summary.Period{}, summary.CanceledAllTime))
	assert.Equal(t, []Figure{
		{Label: "Total vendido", Value: core.Cents(18800)},
		{Label: "Total recebido", Value: core.Cents(10000)},
	}, table.Figures)

	var buf bytes.Buffer
	require.NoError(t, renderPDF(&buf, table, false))
	content := buf.String()
	sold := strings.Index(content, "(Total vendido: R$188.00)")
	received := strings.Index(content, "(Total recebido: R$100.00)")
	firstRow := strings.Index(content, "(2024-01-10)")
	require.GreaterOrEqual(t, sold, 0)
	require.GreaterOrEqual(t, received, 0)
	require.GreaterOrEqual(t, firstRow, 0)
	assert.Less(t, sold, received)
	assert.Less(t, received, firstRow)

	expenses := sampleExpenses()
	table = ExpensesTable(expenses, summary.SummarizeExpenses(expenses, summary.Period{}))
	assert.Equal(t, []Figure{
		{Label: "Total gasto", Value: core.Cents(30000)},
		{Label: "Total pago no período", Value: core.Cents(30000)},
	}, table.Figures)

	buf.Reset()
	require.NoError(t, renderPDF(&buf, table, false))
	content = buf.String()
	spent := strings.Index(content, "(Total gasto: R$300.00)")
	paid := strings.Index(content, "odo: R$300.00)")
	firstRow = strings.Index(content, "(2024-01-15)")
	require.GreaterOrEqual(t, spent, 0)
	require.GreaterOrEqual(t, paid, 0)
	assert.Less(t, spent, paid)
	assert.Less(t, paid, firstRow)
}

func TestPDF(t *testing.T) {
	orders := sampleOrders()
	// Enough rows to spill onto a second page.
	for i := 0; i < 60; i++ {
		o := orders[0]
		o.Client = fmt.Sprintf("Cliente %d", i)
		orders = append(orders, o)
	}
	var buf bytes.Buffer
	s := summary.SummarizeOrders(orders, summary.Period{}, summary.CanceledAllTime)
	require.NoError(t, ExportOrders(&buf, orders, s, PDF))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, ExportExpenses(&buf, nil, summary.Expenses{}, PDF))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	expenses := sampleExpenses()
	require.NoError(t, ExportExpenses(&buf, expenses, summary.SummarizeExpenses(expenses, summary.Period{}), XLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Data da Compra", header)

	vendor, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Atacadão", vendor)

	total, err := f.GetCellValue(sheet, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "300", total)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": CSV, "CSV": CSV, " pdf ": PDF, "xlsx": XLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.True(t, core.IsValidation(err))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "encomendas.csv", Filename(OrdersReport, CSV))
	assert.Equal(t, "gastos.csv", Filename(ExpensesReport, CSV))
	assert.Equal(t, "relatorio_encomendas.pdf", Filename(OrdersReport, PDF))
	assert.Equal(t, "relatorio_gastos.pdf", Filename(ExpensesReport, PDF))
	assert.Equal(t, "gastos.xlsx", Filename(ExpensesReport, XLSX))
}
