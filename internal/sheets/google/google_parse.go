package google

import (
	"fmt"
	"strings"

	"wisma/internal/core"
	ports "wisma/internal/sheets"
)

// parseRows converts a values matrix (as returned by the Sheets API) into
// ledger rows. Rows whose first cell is not a date are skipped, which
// drops the header.
func parseRows(values [][]any) []ports.LedgerRow {
	out := make([]ports.LedgerRow, 0, len(values))
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 2 {
			continue
		}
		date, err := core.ParseDate(cols[0])
		if err != nil {
			continue
		}
		row := ports.LedgerRow{
			Date:        date,
			Type:        safeGet(cols, 1),
			Reference:   safeGet(cols, 2),
			Description: safeGet(cols, 3),
		}
		row.Income, _ = parseRupiah(safeGet(cols, 4))
		row.Expense, _ = parseRupiah(safeGet(cols, 5))
		out = append(out, row)
	}
	return out
}

// parseRupiah reads an amount as rendered by Sheets, e.g. "400000",
// "400,000" or "Rp400.000". Rupiah has no minor unit so every separator is
// a thousands separator.
func parseRupiah(s string) (core.Money, bool) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	var n int64
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int64(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return core.Money(n), true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
