package storage

import (
	"context"
	"database/sql"
)

const expenseColumns = `id, title, amount, day, category, created_at`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Title, &e.Amount, &e.Day, &e.Category, &e.CreatedAt)
	return e, err
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `-- name: CreateExpense :exec
INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense, arg.ID, arg.Title, arg.Amount, arg.Day, arg.Category, arg.CreatedAt)
	return err
}

const getExpense = `-- name: GetExpense :one
SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listExpenses = `-- name: ListExpenses :many
SELECT ` + expenseColumns + ` FROM expenses ORDER BY day DESC, created_at DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const listExpensesBetween = `-- name: ListExpensesBetween :many
SELECT ` + expenseColumns + ` FROM expenses WHERE day BETWEEN ? AND ? ORDER BY day DESC, created_at DESC`

func (q *Queries) ListExpensesBetween(ctx context.Context, start, end string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, start, end)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}
