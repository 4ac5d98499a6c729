package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"wisma/internal/core"
)

func TestWriteRollup(t *testing.T) {
	flows := []core.DateFlow{
		{Date: core.NewDate(2024, 3, 11), Amount: 400000, NegAmount: 50000},
		{Date: core.NewDate(2024, 3, 14), Amount: 200000},
	}
	r, err := core.BuildRollup(flows, core.PeriodWeek, 0, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("BuildRollup: %v", err)
	}
	expenses := []core.Expense{
		{Title: "Water bill", Amount: 50000, Date: core.NewDate(2024, 3, 11), Category: core.CategoryWater},
		{Title: "Old wage", Amount: 900000, Date: core.NewDate(2024, 2, 1), Category: core.CategoryWage},
	}

	var buf bytes.Buffer
	if err := WriteRollup(&buf, r, expenses); err != nil {
		t.Fatalf("WriteRollup: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != SheetFlows {
		t.Fatalf("sheets = %v", sheets)
	}

	cells := []struct {
		sheet, cell, want string
	}{
		{SheetFlows, "A1", "Date"},
		{SheetFlows, "A2", "2024-03-11"},
		{SheetFlows, "B2", "400000"},
		{SheetFlows, "D2", "350000"},
		{SheetFlows, "A4", "Total"},
		{SheetFlows, "B4", "600000"},
		{SheetFlows, "D4", "550000"},
		{SheetFlows, "B6", "2024-03-10 - 2024-03-16"},
		{SheetChart, "A2", "Sun"},
		{SheetChart, "A8", "Sat"},
		{SheetChart, "B3", "400000"},
		{SheetExpenses, "B2", "Water bill"},
		{SheetExpenses, "A3", ""},
	}
	for _, tc := range cells {
		got, err := f.GetCellValue(tc.sheet, tc.cell)
		if err != nil {
			t.Fatalf("%s!%s: %v", tc.sheet, tc.cell, err)
		}
		if got != tc.want {
			t.Errorf("%s!%s = %q, want %q", tc.sheet, tc.cell, got, tc.want)
		}
	}
}

func TestFilename(t *testing.T) {
	r := core.Rollup{Period: core.PeriodMonth, Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 2, 29)}
	if got := Filename(r); got != "cash-flow_month_2024-02-01_2024-02-29.xlsx" {
		t.Fatalf("Filename = %q", got)
	}
}
