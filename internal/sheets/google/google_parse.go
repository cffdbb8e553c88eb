package google

import (
	"fmt"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"
)

// sheetRows is what the client knows about one sheet: the 1-based row of
// every record key and the number of non-empty rows read from column A.
type sheetRows struct {
	index map[string]int
	count int
}

// indexRows maps the trimmed text of column A to its 1-based row number.
// The header row and blank cells are skipped; a duplicated key keeps its
// first row.
func indexRows(values [][]any) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if key == "" || (i == 0 && !isRecordKey(key)) {
			continue
		}
		if _, seen := index[key]; seen {
			continue
		}
		index[key] = i + 1
	}
	return index
}

func isRecordKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sheetIDsByTitle(sheets []*gsheet.Sheet) map[string]int64 {
	ids := make(map[string]int64, len(sheets))
	for _, s := range sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		ids[s.Properties.Title] = s.Properties.SheetId
	}
	return ids
}
