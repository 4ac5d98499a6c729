package storage

import (
	"context"
	"database/sql"
)

const flowColumns = `id, day, amount, neg_amount, updated_at`

func scanFlows(rows *sql.Rows) ([]DateFlow, error) {
	defer rows.Close()
	var items []DateFlow
	for rows.Next() {
		var f DateFlow
		if err := rows.Scan(&f.ID, &f.Day, &f.Amount, &f.NegAmount, &f.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertFlow = `-- name: UpsertFlow :one
INSERT INTO date_flows (` + flowColumns + `)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (day) DO UPDATE SET
    amount     = amount + excluded.amount,
    neg_amount = neg_amount + excluded.neg_amount,
    updated_at = excluded.updated_at
RETURNING ` + flowColumns

// UpsertFlow merges the deltas into the day's row in a single statement.
func (q *Queries) UpsertFlow(ctx context.Context, arg DateFlow) (DateFlow, error) {
	row := q.db.QueryRowContext(ctx, upsertFlow, arg.ID, arg.Day, arg.Amount, arg.NegAmount, arg.UpdatedAt)
	var f DateFlow
	err := row.Scan(&f.ID, &f.Day, &f.Amount, &f.NegAmount, &f.UpdatedAt)
	return f, err
}

const listFlows = `-- name: ListFlows :many
SELECT ` + flowColumns + ` FROM date_flows ORDER BY day ASC`

func (q *Queries) ListFlows(ctx context.Context) ([]DateFlow, error) {
	rows, err := q.db.QueryContext(ctx, listFlows)
	if err != nil {
		return nil, err
	}
	return scanFlows(rows)
}

const listFlowsBetween = `-- name: ListFlowsBetween :many
SELECT ` + flowColumns + ` FROM date_flows WHERE day BETWEEN ? AND ? ORDER BY day ASC`

func (q *Queries) ListFlowsBetween(ctx context.Context, start, end string) ([]DateFlow, error) {
	rows, err := q.db.QueryContext(ctx, listFlowsBetween, start, end)
	if err != nil {
		return nil, err
	}
	return scanFlows(rows)
}
