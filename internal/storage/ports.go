package storage

import (
	"context"
	"time"

	"wisma/internal/core"
)

// Ports implemented by the SQLite repository and the in-memory store.
type (
	StayStore interface {
		// CreateStay fails with a room-occupied validation error when the
		// room already has an open stay.
		CreateStay(ctx context.Context, s core.Stay) error
		GetStay(ctx context.Context, id string) (core.Stay, error)
		// ListStays returns every stay, newest first.
		ListStays(ctx context.Context) ([]core.Stay, error)
		ActiveStays(ctx context.Context) ([]core.Stay, error)
		// ApplyPayment sets LastDayPaid and Status and adds amount to
		// TotalPayment in one atomic increment.
		ApplyPayment(ctx context.Context, id string, lastDayPaid core.Date, amount core.Money, status core.Status) (core.Stay, error)
		UpdateCheckOutDate(ctx context.Context, id string, checkOut core.Date, status core.Status) (core.Stay, error)
		SetStayStatus(ctx context.Context, id string, status core.Status) (core.Stay, error)
	}

	FlowStore interface {
		// RecordFlow adds the deltas to the day's flow, creating it when the
		// day has none yet.
		RecordFlow(ctx context.Context, date core.Date, income, expense core.Money) (core.DateFlow, error)
		// ListFlows returns every flow by date ascending.
		ListFlows(ctx context.Context) ([]core.DateFlow, error)
		FlowsBetween(ctx context.Context, start, end core.Date) ([]core.DateFlow, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) error
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
		// ListExpenses returns every expense by date descending.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		ExpensesBetween(ctx context.Context, start, end core.Date) ([]core.Expense, error)
	}

	OutboxStore interface {
		EnqueueFlow(ctx context.Context, date core.Date, income, expense core.Money, reason string) (OutboxItem, error)
		PendingOutbox(ctx context.Context, limit int) ([]OutboxItem, error)
		MarkOutboxProcessing(ctx context.Context, id int64) error
		MarkOutboxCompleted(ctx context.Context, id int64) error
		MarkOutboxFailed(ctx context.Context, id int64, reason string) error
		// RetryOutboxLater returns the item to pending with one more attempt.
		RetryOutboxLater(ctx context.Context, id int64, reason string) error
		ResetStaleOutbox(ctx context.Context) (int64, error)
		RetryFailedOutbox(ctx context.Context) (int64, error)
		CleanupOutbox(ctx context.Context, olderThan time.Duration) (int64, error)
		OutboxStats(ctx context.Context) (OutboxStats, error)
	}

	// Store is everything a backend provides.
	Store interface {
		StayStore
		FlowStore
		ExpenseStore
		OutboxStore
		Ping(ctx context.Context) error
		Close() error
	}
)

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxCompleted  OutboxStatus = "completed"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxItem is a flow delta that could not be applied when it was recorded.
type OutboxItem struct {
	ID        int64        `json:"id"`
	Date      core.Date    `json:"date"`
	Income    core.Money   `json:"income"`
	Expense   core.Money   `json:"expense"`
	Status    OutboxStatus `json:"status"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"lastError,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// OutboxStats counts outbox items by status.
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func (s OutboxStats) Total() int64 {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
