// Package report renders cash-flow rollups as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"wisma/internal/core"
)

const (
	SheetFlows    = "Cash Flow"
	SheetChart    = "Chart"
	SheetExpenses = "Expenses"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Filename names the workbook after the rollup window.
func Filename(r core.Rollup) string {
	return fmt.Sprintf("cash-flow_%s_%s_%s.xlsx", r.Period, r.Start, r.End)
}

// WriteRollup writes a workbook with one sheet of daily flows, one of chart
// buckets and one of the expenses booked inside the window.
func WriteRollup(w io.Writer, r core.Rollup, expenses []core.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetFlows); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeFlows(f, r); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetChart); err != nil {
		return fmt.Errorf("create chart sheet: %w", err)
	}
	if err := writeChart(f, r.Chart); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetExpenses); err != nil {
		return fmt.Errorf("create expenses sheet: %w", err)
	}
	if err := writeExpenses(f, r, expenses); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("%s header: %w", sheet, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeFlows(f *excelize.File, r core.Rollup) error {
	if err := writeHeader(f, SheetFlows, []string{"Date", "Income", "Expense", "Net"}); err != nil {
		return err
	}
	row := 2
	for _, fl := range r.Flows {
		if err := setRow(f, SheetFlows, row, fl.Date.String(), int64(fl.Amount), int64(fl.NegAmount), int64(core.NetForDay(fl))); err != nil {
			return err
		}
		row++
	}
	s := r.Summary
	if err := setRow(f, SheetFlows, row, "Total", int64(s.TotalIncome), int64(s.TotalExpense), int64(s.Net)); err != nil {
		return err
	}
	if err := setRow(f, SheetFlows, row+2, "Period", fmt.Sprintf("%s - %s", r.Start, r.End)); err != nil {
		return err
	}

	f.SetColWidth(SheetFlows, "A", "A", 14)
	f.SetColWidth(SheetFlows, "B", "D", 16)
	return nil
}

func writeChart(f *excelize.File, buckets []core.ChartBucket) error {
	if err := writeHeader(f, SheetChart, []string{"Bucket", "Income", "Expense", "Net"}); err != nil {
		return err
	}
	for i, b := range buckets {
		if err := setRow(f, SheetChart, i+2, b.Label, int64(b.Income), int64(b.Expense), int64(b.Net)); err != nil {
			return err
		}
	}
	f.SetColWidth(SheetChart, "A", "A", 10)
	f.SetColWidth(SheetChart, "B", "D", 16)
	return nil
}

func writeExpenses(f *excelize.File, r core.Rollup, expenses []core.Expense) error {
	if err := writeHeader(f, SheetExpenses, []string{"Date", "Title", "Category", "Amount"}); err != nil {
		return err
	}
	row := 2
	for _, e := range expenses {
		if e.Date.IsBefore(r.Start) || e.Date.IsAfter(r.End) {
			continue
		}
		if err := setRow(f, SheetExpenses, row, e.Date.String(), e.Title, string(e.Category), int64(e.Amount)); err != nil {
			return err
		}
		row++
	}
	f.SetColWidth(SheetExpenses, "A", "A", 14)
	f.SetColWidth(SheetExpenses, "B", "B", 30)
	f.SetColWidth(SheetExpenses, "C", "D", 14)
	return nil
}
