package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"wisma/internal/amqp"
	"wisma/internal/core"
	"wisma/internal/sheets"
	"wisma/internal/sheets/memory"
)

type failingWriter struct{}

func (failingWriter) AppendRow(context.Context, sheets.LedgerRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestExportWorker_HandleLedgerEvent(t *testing.T) {
	sheet := memory.New()
	w := NewExportWorker(sheet, nil)
	ctx := context.Background()

	pay := amqp.NewLedgerEvent(amqp.EventPayment, "stay-1")
	pay.Date = "2024-03-15"
	pay.Income = 400000
	pay.Description = "Room 105 SARI, 2 days"
	if err := w.HandleLedgerEvent(ctx, pay); err != nil {
		t.Fatalf("payment: %v", err)
	}

	checkout := amqp.NewLedgerEvent(amqp.EventCheckOut, "stay-1")
	if err := w.HandleLedgerEvent(ctx, checkout); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	bad := amqp.NewLedgerEvent(amqp.EventExpenseCreated, "exp-1")
	bad.Date = "15/03/2024"
	bad.Expense = 10
	if err := w.HandleLedgerEvent(ctx, bad); err != nil {
		t.Fatalf("malformed events should be dropped, got %v", err)
	}

	rows, _ := sheet.ListRows(ctx, 2024)
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Income != 400000 || rows[0].Type != "stay.payment" || !rows[0].Date.IsSame(core.NewDate(2024, 3, 15)) {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestExportWorker_WriterFailureRequeues(t *testing.T) {
	w := NewExportWorker(failingWriter{}, nil)
	ev := amqp.NewLedgerEvent(amqp.EventExpenseCreated, "exp-1")
	ev.Date = "2024-03-01"
	ev.Expense = 30000

	if err := w.HandleLedgerEvent(context.Background(), ev); err == nil {
		t.Fatal("writer failure should be returned so the message is requeued")
	}
}

func TestRowFromEventFallsBackToTimestamp(t *testing.T) {
	ev := &amqp.LedgerEvent{
		Type:      amqp.EventFlowRecorded,
		EntityID:  "2024-02-29",
		Income:    5,
		Timestamp: time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC),
	}
	row, err := RowFromEvent(ev)
	if err != nil {
		t.Fatalf("RowFromEvent: %v", err)
	}
	if !row.Date.IsSame(core.NewDate(2024, 2, 29)) {
		t.Fatalf("date = %s", row.Date)
	}
}
