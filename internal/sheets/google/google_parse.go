package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"exptracker/internal/core"
)

// parseRow converts one sheet row. The header row and rows without a numeric
// ID are rejected.
func parseRow(cols []string) (core.Expense, bool) {
	if len(cols) < colDate+1 {
		return core.Expense{}, false
	}
	id, err := strconv.ParseInt(cols[colID], 10, 64)
	if err != nil || id <= 0 {
		return core.Expense{}, false
	}
	cents, ok := parseEurosToCents(cols[colAmount])
	if !ok {
		return core.Expense{}, false
	}
	date, err := core.ParseDate(cols[colDate])
	if err != nil {
		return core.Expense{}, false
	}
	e := core.Expense{
		ID:       id,
		Title:    cols[colTitle],
		Amount:   core.Money{Cents: cents},
		Category: cols[colCategory],
		Date:     date,
	}
	if len(cols) > colCreatedAt {
		e.CreatedAt, _ = time.Parse(time.RFC3339, cols[colCreatedAt])
	}
	return e, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Normalize decimal comma
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if f < 0 {
		return int64((f * 100.0) - 0.5), true
	}
	return int64((f * 100.0) + 0.5), true
}
