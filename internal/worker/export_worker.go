// Package worker turns ledger events from the bus into spreadsheet rows.
package worker

import (
	"context"
	"fmt"

	"wisma/internal/amqp"
	"wisma/internal/core"
	"wisma/internal/log"
	"wisma/internal/sheets"
)

// ExportWorker appends every cash-moving ledger event to the ledger sheet.
type ExportWorker struct {
	writer sheets.LedgerWriter
	logger *log.Logger
}

func NewExportWorker(writer sheets.LedgerWriter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{writer: writer, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleLedgerEvent exports ev. Events that moved no money are
// acknowledged without a row. A returned error requeues the message.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if !ev.AffectsCashFlow() {
		w.logger.DebugContext(ctx, "Skipping ledger event without cash movement",
			"type", ev.Type,
			"entity_id", ev.EntityID)
		return nil
	}

	row, err := RowFromEvent(ev)
	if err != nil {
		// Redelivery cannot fix a malformed event.
		w.logger.ErrorContext(ctx, "Dropping malformed ledger event",
			"type", ev.Type,
			"entity_id", ev.EntityID,
			"error", err)
		return nil
	}

	ref, err := w.writer.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	w.logger.InfoContext(ctx, "Exported ledger event",
		append(log.NewFields().
			WithFlow(row.Date.String(), int64(row.Income), int64(row.Expense)).
			WithOperation(log.OpExport).ToSlice(),
			"type", ev.Type,
			"sheets_ref", ref)...)
	return nil
}

// RowFromEvent maps a ledger event onto a sheet row. The row date is the
// event's ledger date, falling back to the publish timestamp.
func RowFromEvent(ev *amqp.LedgerEvent) (sheets.LedgerRow, error) {
	date := core.DateOf(ev.Timestamp, nil)
	if ev.Date != "" {
		d, err := core.ParseDate(ev.Date)
		if err != nil {
			return sheets.LedgerRow{}, fmt.Errorf("event date %q: %w", ev.Date, err)
		}
		date = d
	}
	if date.IsZero() {
		return sheets.LedgerRow{}, fmt.Errorf("event %s has no date", ev.Type)
	}
	return sheets.LedgerRow{
		Date:        date,
		Type:        string(ev.Type),
		Reference:   ev.EntityID,
		Description: ev.Description,
		Income:      core.Money(ev.Income),
		Expense:     core.Money(ev.Expense),
	}, nil
}
