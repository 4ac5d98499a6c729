package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"wisma/internal/core"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository implements Store on a single SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

// DSN builds the connection string used by the repository and migrations.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One writer at a time; SQLite serializes writes anyway and this keeps
	// busy errors out of the increment paths.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "component", "storage", "db_path", dbPath)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// DB exposes the pool for stores that share the file, such as sessions.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) stamp() string {
	return formatTimestamp(r.now())
}

// Stays

func (r *SQLiteRepository) CreateStay(ctx context.Context, s core.Stay) error {
	err := r.queries.CreateStay(ctx, stayRow(s))
	if isUniqueViolation(err) {
		return core.RoomOccupied(s.RoomNumber)
	}
	if err != nil {
		return core.Persistence("create stay", err)
	}
	slog.InfoContext(ctx, "Stay saved to SQLite", "component", "storage", "stay_id", s.ID, "room", s.RoomNumber)
	return nil
}

func (r *SQLiteRepository) GetStay(ctx context.Context, id string) (core.Stay, error) {
	row, err := r.queries.GetStay(ctx, id)
	if err != nil {
		return core.Stay{}, stayErr("get stay", id, err)
	}
	return stayFromRow(row)
}

func (r *SQLiteRepository) ListStays(ctx context.Context) ([]core.Stay, error) {
	rows, err := r.queries.ListStays(ctx)
	if err != nil {
		return nil, core.Persistence("list stays", err)
	}
	return staysFromRows(rows)
}

func (r *SQLiteRepository) ActiveStays(ctx context.Context) ([]core.Stay, error) {
	rows, err := r.queries.ListActiveStays(ctx)
	if err != nil {
		return nil, core.Persistence("list active stays", err)
	}
	return staysFromRows(rows)
}

func (r *SQLiteRepository) ApplyPayment(ctx context.Context, id string, lastDayPaid core.Date, amount core.Money, status core.Status) (core.Stay, error) {
	row, err := r.queries.ApplyPayment(ctx, ApplyPaymentParams{
		LastDayPaid: lastDayPaid.String(),
		Status:      string(status),
		Amount:      int64(amount),
		ID:          id,
	})
	if err != nil {
		return core.Stay{}, stayErr("apply payment", id, err)
	}
	return stayFromRow(row)
}

func (r *SQLiteRepository) UpdateCheckOutDate(ctx context.Context, id string, checkOut core.Date, status core.Status) (core.Stay, error) {
	row, err := r.queries.UpdateCheckOutDate(ctx, checkOut.String(), string(status), id)
	if err != nil {
		return core.Stay{}, stayErr("extend stay", id, err)
	}
	return stayFromRow(row)
}

func (r *SQLiteRepository) SetStayStatus(ctx context.Context, id string, status core.Status) (core.Stay, error) {
	row, err := r.queries.SetStayStatus(ctx, string(status), id)
	if err != nil {
		return core.Stay{}, stayErr("set stay status", id, err)
	}
	return stayFromRow(row)
}

// Flows

func (r *SQLiteRepository) RecordFlow(ctx context.Context, date core.Date, income, expense core.Money) (core.DateFlow, error) {
	row, err := r.queries.UpsertFlow(ctx, DateFlow{
		ID:        uuid.NewString(),
		Day:       date.String(),
		Amount:    int64(income),
		NegAmount: int64(expense),
		UpdatedAt: r.stamp(),
	})
	if err != nil {
		return core.DateFlow{}, core.Persistence("record flow", err)
	}
	return flowFromRow(row)
}

func (r *SQLiteRepository) ListFlows(ctx context.Context) ([]core.DateFlow, error) {
	rows, err := r.queries.ListFlows(ctx)
	if err != nil {
		return nil, core.Persistence("list flows", err)
	}
	return flowsFromRows(rows)
}

func (r *SQLiteRepository) FlowsBetween(ctx context.Context, start, end core.Date) ([]core.DateFlow, error) {
	rows, err := r.queries.ListFlowsBetween(ctx, start.String(), end.String())
	if err != nil {
		return nil, core.Persistence("list flows between", err)
	}
	return flowsFromRows(rows)
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	err := r.queries.CreateExpense(ctx, Expense{
		ID:        e.ID,
		Title:     e.Title,
		Amount:    int64(e.Amount),
		Day:       e.Date.String(),
		Category:  string(e.Category),
		CreatedAt: formatTimestamp(e.CreatedAt),
	})
	if err != nil {
		return core.Persistence("create expense", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite", "component", "storage", "expense_id", e.ID, "amount", int64(e.Amount))
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, core.Persistence("get expense", err)
	}
	return expenseFromRow(row)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return core.Persistence("delete expense", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, core.Persistence("list expenses", err)
	}
	return expensesFromRows(rows)
}

func (r *SQLiteRepository) ExpensesBetween(ctx context.Context, start, end core.Date) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesBetween(ctx, start.String(), end.String())
	if err != nil {
		return nil, core.Persistence("list expenses between", err)
	}
	return expensesFromRows(rows)
}

// Outbox

func (r *SQLiteRepository) EnqueueFlow(ctx context.Context, date core.Date, income, expense core.Money, reason string) (OutboxItem, error) {
	row, err := r.queries.EnqueueFlow(ctx, EnqueueFlowParams{
		Day:       date.String(),
		Income:    int64(income),
		Expense:   int64(expense),
		LastError: reason,
		Now:       r.stamp(),
	})
	if err != nil {
		return OutboxItem{}, core.Persistence("enqueue flow", err)
	}
	return outboxFromRow(row)
}

func (r *SQLiteRepository) PendingOutbox(ctx context.Context, limit int) ([]OutboxItem, error) {
	rows, err := r.queries.PendingOutbox(ctx, int64(limit))
	if err != nil {
		return nil, core.Persistence("pending outbox", err)
	}
	items := make([]OutboxItem, 0, len(rows))
	for _, row := range rows {
		item, err := outboxFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *SQLiteRepository) MarkOutboxProcessing(ctx context.Context, id int64) error {
	return core.Persistence("mark outbox processing", r.queries.SetOutboxStatus(ctx, id, string(OutboxProcessing), "", r.stamp()))
}

func (r *SQLiteRepository) MarkOutboxCompleted(ctx context.Context, id int64) error {
	return core.Persistence("mark outbox completed", r.queries.SetOutboxStatus(ctx, id, string(OutboxCompleted), "", r.stamp()))
}

func (r *SQLiteRepository) MarkOutboxFailed(ctx context.Context, id int64, reason string) error {
	return core.Persistence("mark outbox failed", r.queries.FailOutbox(ctx, id, reason, r.stamp()))
}

func (r *SQLiteRepository) RetryOutboxLater(ctx context.Context, id int64, reason string) error {
	return core.Persistence("retry outbox", r.queries.RetryOutboxLater(ctx, id, reason, r.stamp()))
}

func (r *SQLiteRepository) ResetStaleOutbox(ctx context.Context) (int64, error) {
	n, err := r.queries.ResetStaleOutbox(ctx, r.stamp())
	return n, core.Persistence("reset stale outbox", err)
}

func (r *SQLiteRepository) RetryFailedOutbox(ctx context.Context) (int64, error) {
	n, err := r.queries.RetryFailedOutbox(ctx, r.stamp())
	return n, core.Persistence("retry failed outbox", err)
}

func (r *SQLiteRepository) CleanupOutbox(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := r.queries.CleanupOutbox(ctx, formatTimestamp(r.now().Add(-olderThan)))
	return n, core.Persistence("cleanup outbox", err)
}

func (r *SQLiteRepository) OutboxStats(ctx context.Context) (OutboxStats, error) {
	counts, err := r.queries.OutboxStats(ctx)
	if err != nil {
		return OutboxStats{}, core.Persistence("outbox stats", err)
	}
	return OutboxStats{
		Pending:    counts[string(OutboxPending)],
		Processing: counts[string(OutboxProcessing)],
		Completed:  counts[string(OutboxCompleted)],
		Failed:     counts[string(OutboxFailed)],
	}, nil
}

// stayErr maps a missing row to ErrNotFound. Updates only match open
// stays, so a missing row there may also mean the stay is checked out.
func stayErr(op, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("stay %s: %w", id, core.ErrNotFound)
	}
	return core.Persistence(op, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
