// Package memory is an in-process ledger sheet for tests and deployments
// without Google Sheets.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "wisma/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
}

var (
	_ ports.LedgerWriter = (*Sheet)(nil)
	_ ports.LedgerReader = (*Sheet)(nil)
)

func New() *Sheet {
	return &Sheet{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (s *Sheet) AppendRow(_ context.Context, row ports.LedgerRow) (string, error) {
	if err := row.Date.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Sheet) ListRows(_ context.Context, year int) ([]ports.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.LedgerRow
	for _, r := range s.rows {
		if r.Date.Year() == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Sheet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
