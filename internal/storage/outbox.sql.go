package storage

import (
	"context"
)

const outboxColumns = `id, day, income, expense, status, attempts, last_error, created_at, updated_at`

const enqueueFlow = `-- name: EnqueueFlow :one
INSERT INTO flow_outbox (day, income, expense, status, attempts, last_error, created_at, updated_at)
VALUES (?, ?, ?, 'pending', 0, ?, ?, ?)
RETURNING ` + outboxColumns

type EnqueueFlowParams struct {
	Day       string
	Income    int64
	Expense   int64
	LastError string
	Now       string
}

func (q *Queries) EnqueueFlow(ctx context.Context, arg EnqueueFlowParams) (FlowOutbox, error) {
	row := q.db.QueryRowContext(ctx, enqueueFlow, arg.Day, arg.Income, arg.Expense, arg.LastError, arg.Now, arg.Now)
	var i FlowOutbox
	err := row.Scan(&i.ID, &i.Day, &i.Income, &i.Expense, &i.Status, &i.Attempts, &i.LastError, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const pendingOutbox = `-- name: PendingOutbox :many
SELECT ` + outboxColumns + ` FROM flow_outbox
WHERE status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT ?`

func (q *Queries) PendingOutbox(ctx context.Context, limit int64) ([]FlowOutbox, error) {
	rows, err := q.db.QueryContext(ctx, pendingOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FlowOutbox
	for rows.Next() {
		var i FlowOutbox
		if err := rows.Scan(&i.ID, &i.Day, &i.Income, &i.Expense, &i.Status, &i.Attempts, &i.LastError, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setOutboxStatus = `-- name: SetOutboxStatus :exec
UPDATE flow_outbox SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetOutboxStatus(ctx context.Context, id int64, status, lastError, now string) error {
	_, err := q.db.ExecContext(ctx, setOutboxStatus, status, lastError, now, id)
	return err
}

const retryOutboxLater = `-- name: RetryOutboxLater :exec
UPDATE flow_outbox SET status = 'pending', attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`

func (q *Queries) RetryOutboxLater(ctx context.Context, id int64, lastError, now string) error {
	_, err := q.db.ExecContext(ctx, retryOutboxLater, lastError, now, id)
	return err
}

const failOutbox = `-- name: FailOutbox :exec
UPDATE flow_outbox SET status = 'failed', attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`

func (q *Queries) FailOutbox(ctx context.Context, id int64, lastError, now string) error {
	_, err := q.db.ExecContext(ctx, failOutbox, lastError, now, id)
	return err
}

const resetStaleOutbox = `-- name: ResetStaleOutbox :execrows
UPDATE flow_outbox SET status = 'pending', updated_at = ? WHERE status = 'processing'`

func (q *Queries) ResetStaleOutbox(ctx context.Context, now string) (int64, error) {
	result, err := q.db.ExecContext(ctx, resetStaleOutbox, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const retryFailedOutbox = `-- name: RetryFailedOutbox :execrows
UPDATE flow_outbox SET status = 'pending', attempts = 0, updated_at = ? WHERE status = 'failed'`

func (q *Queries) RetryFailedOutbox(ctx context.Context, now string) (int64, error) {
	result, err := q.db.ExecContext(ctx, retryFailedOutbox, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cleanupOutbox = `-- name: CleanupOutbox :execrows
DELETE FROM flow_outbox WHERE status = 'completed' AND updated_at < ?`

func (q *Queries) CleanupOutbox(ctx context.Context, before string) (int64, error) {
	result, err := q.db.ExecContext(ctx, cleanupOutbox, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const outboxStats = `-- name: OutboxStats :many
SELECT status, COUNT(*) FROM flow_outbox GROUP BY status`

func (q *Queries) OutboxStats(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, outboxStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
