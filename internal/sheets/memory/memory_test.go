package memory

import (
	"context"
	"testing"

	"wisma/internal/core"
	ports "wisma/internal/sheets"
)

func TestSheetAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendRow(ctx, ports.LedgerRow{Date: core.NewDate(2024, 3, 1), Type: "stay.payment", Income: 100})
	if err != nil || ref != "mem:1" {
		t.Fatalf("AppendRow = %q, %v", ref, err)
	}
	s.AppendRow(ctx, ports.LedgerRow{Date: core.NewDate(2023, 12, 31), Type: "expense.created", Expense: 5})

	if _, err := s.AppendRow(ctx, ports.LedgerRow{Type: "x"}); err == nil {
		t.Fatal("expected error for row without date")
	}

	rows, _ := s.ListRows(ctx, 2024)
	if len(rows) != 1 || rows[0].Income != 100 {
		t.Fatalf("2024 rows = %+v", rows)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}
}
