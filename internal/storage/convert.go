package storage

import (
	"fmt"
	"time"

	"wisma/internal/core"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Rows written by hand or by older builds.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseDay(field, s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("decode %s %q: %v", field, s, err)
	}
	return d, nil
}

func stayRow(s core.Stay) Stay {
	return Stay{
		ID:           s.ID,
		RoomNumber:   int64(s.RoomNumber),
		GuestName:    s.GuestName,
		Status:       string(s.Status),
		CheckInDate:  s.CheckInDate.String(),
		CheckOutDate: s.CheckOutDate.String(),
		LastDayPaid:  s.LastDayPaid.String(),
		TotalPayment: int64(s.TotalPayment),
		CreatedAt:    formatTimestamp(s.CreatedAt),
	}
}

func stayFromRow(r Stay) (core.Stay, error) {
	in, err := parseDay("check_in_date", r.CheckInDate)
	if err != nil {
		return core.Stay{}, err
	}
	out, err := parseDay("check_out_date", r.CheckOutDate)
	if err != nil {
		return core.Stay{}, err
	}
	last, err := parseDay("last_day_paid", r.LastDayPaid)
	if err != nil {
		return core.Stay{}, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return core.Stay{}, fmt.Errorf("decode created_at: %w", err)
	}
	return core.Stay{
		ID:           r.ID,
		RoomNumber:   int(r.RoomNumber),
		GuestName:    r.GuestName,
		Status:       core.Status(r.Status),
		CheckInDate:  in,
		CheckOutDate: out,
		LastDayPaid:  last,
		TotalPayment: core.Money(r.TotalPayment),
		CreatedAt:    created,
	}, nil
}

func staysFromRows(rows []Stay) ([]core.Stay, error) {
	stays := make([]core.Stay, 0, len(rows))
	for _, row := range rows {
		s, err := stayFromRow(row)
		if err != nil {
			return nil, err
		}
		stays = append(stays, s)
	}
	return stays, nil
}

func flowFromRow(r DateFlow) (core.DateFlow, error) {
	day, err := parseDay("day", r.Day)
	if err != nil {
		return core.DateFlow{}, err
	}
	return core.DateFlow{
		ID:        r.ID,
		Date:      day,
		Amount:    core.Money(r.Amount),
		NegAmount: core.Money(r.NegAmount),
	}, nil
}

func flowsFromRows(rows []DateFlow) ([]core.DateFlow, error) {
	flows := make([]core.DateFlow, 0, len(rows))
	for _, row := range rows {
		f, err := flowFromRow(row)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, nil
}

func expenseFromRow(r Expense) (core.Expense, error) {
	day, err := parseDay("day", r.Day)
	if err != nil {
		return core.Expense{}, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode created_at: %w", err)
	}
	return core.Expense{
		ID:        r.ID,
		Title:     r.Title,
		Amount:    core.Money(r.Amount),
		Date:      day,
		Category:  core.Category(r.Category),
		CreatedAt: created,
	}, nil
}

func expensesFromRows(rows []Expense) ([]core.Expense, error) {
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func outboxFromRow(r FlowOutbox) (OutboxItem, error) {
	day, err := parseDay("day", r.Day)
	if err != nil {
		return OutboxItem{}, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return OutboxItem{}, fmt.Errorf("decode created_at: %w", err)
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return OutboxItem{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return OutboxItem{
		ID:        r.ID,
		Date:      day,
		Income:    core.Money(r.Income),
		Expense:   core.Money(r.Expense),
		Status:    OutboxStatus(r.Status),
		Attempts:  int(r.Attempts),
		LastError: r.LastError,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
