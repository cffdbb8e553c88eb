package export

import (
	"bufio"
	"io"
	"strings"
)

// writeCSV quotes every field and separates records with CRLF, without a
// trailing line break. encoding/csv only quotes fields that need it, so the
// records are written by hand.
func writeCSV(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	records := append([][]string{t.Header()}, t.Rows...)
	for i, rec := range records {
		if i > 0 {
			if _, err := bw.WriteString("\r\n"); err != nil {
				return err
			}
		}
		for j, field := range rec {
			if j > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(quoteField(field)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
