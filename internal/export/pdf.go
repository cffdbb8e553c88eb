package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfLineHeight = 5.0
	pdfPadding    = 1.0
)

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	widths []float64
	left   float64
	bottom float64
}

func writePDF(w io.Writer, t Table) error {
	return renderPDF(w, t, true)
}

// renderPDF draws t on landscape A4 pages. Content streams are only left
// uncompressed for inspection.
func renderPDF(w io.Writer, t Table, compress bool) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(t.Title, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(10, 12, 10)

	pageW, pageH := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()

	pw := &pdfWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		widths: columnWidths(t.Columns, pageW-left-right),
		left:   left,
		bottom: pageH - 12,
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, pw.tr(t.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, pw.tr("Período: "+t.Period.String()), "", 1, "L", false, 0, "")
	for _, fig := range t.Figures {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, pw.tr(fmt.Sprintf("%s: %s", fig.Label, fig.Value.BRL())), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pw.header(t)
	pdf.SetFont("Helvetica", "", 8)
	for i, row := range t.Rows {
		pw.row(t, row, i%2 == 1)
	}
	if len(t.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, pw.tr("Nenhum registro no período."), "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func columnWidths(cols []Column, avail float64) []float64 {
	var sum float64
	for _, c := range cols {
		sum += c.Width
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		if sum == 0 {
			out[i] = avail / float64(len(cols))
			continue
		}
		out[i] = avail * c.Width / sum
	}
	return out
}

// header draws the pink header band. It is repeated on every page.
func (pw *pdfWriter) header(t Table) {
	pdf := pw.pdf
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(236, 72, 153)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetX(pw.left)
	for i, c := range t.Columns {
		pdf.CellFormat(pw.widths[i], 7, pw.tr(c.Title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 8)
}

func (pw *pdfWriter) row(t Table, row []string, striped bool) {
	pdf := pw.pdf

	cells := make([][]string, len(t.Columns))
	lines := 1
	for i := range t.Columns {
		text := ""
		if i < len(row) {
			text = pw.tr(row[i])
		}
		cells[i] = pw.wrap(text, pw.widths[i]-2*pdfPadding-1)
		if len(cells[i]) > lines {
			lines = len(cells[i])
		}
	}
	height := float64(lines)*pdfLineHeight + 2*pdfPadding

	if pdf.GetY()+height > pw.bottom {
		pdf.AddPage()
		pw.header(t)
	}

	if striped {
		pdf.SetFillColor(252, 231, 243)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}

	x, y := pw.left, pdf.GetY()
	for i, c := range t.Columns {
		pdf.Rect(x, y, pw.widths[i], height, "FD")
		align := "L"
		if c.Money {
			align = "R"
		}
		for n, line := range cells[i] {
			pdf.SetXY(x+pdfPadding, y+pdfPadding+float64(n)*pdfLineHeight)
			pdf.CellFormat(pw.widths[i]-2*pdfPadding, pdfLineHeight, line, "", 0, align, false, 0, "")
		}
		x += pw.widths[i]
	}
	pdf.SetXY(pw.left, y+height)
}

// wrap breaks already translated text into lines no wider than width. Words
// longer than a line are cut where they overflow.
func (pw *pdfWriter) wrap(text string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if pw.pdf.GetStringWidth(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			for pw.pdf.GetStringWidth(word) > width && len(word) > 1 {
				cut := len(word) - 1
				for cut > 1 && pw.pdf.GetStringWidth(word[:cut]) > width {
					cut--
				}
				lines = append(lines, word[:cut])
				word = word[cut:]
			}
			line = word
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
