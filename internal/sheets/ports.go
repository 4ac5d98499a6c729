package sheets

import (
	"context"

	"wisma/internal/core"
)

// LedgerRow is one exported ledger event.
type LedgerRow struct {
	Date        core.Date
	Type        string
	Reference   string
	Description string
	Income      core.Money
	Expense     core.Money
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}

	// LedgerReader reads back the exported rows of one year.
	LedgerReader interface {
		ListRows(ctx context.Context, year int) ([]LedgerRow, error)
	}
)
