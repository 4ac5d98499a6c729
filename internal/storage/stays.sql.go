package storage

import (
	"context"
	"database/sql"
)

const stayColumns = `id, room_number, guest_name, status, check_in_date, check_out_date, last_day_paid, total_payment, created_at`

func scanStay(row interface{ Scan(...any) error }) (Stay, error) {
	var s Stay
	err := row.Scan(
		&s.ID,
		&s.RoomNumber,
		&s.GuestName,
		&s.Status,
		&s.CheckInDate,
		&s.CheckOutDate,
		&s.LastDayPaid,
		&s.TotalPayment,
		&s.CreatedAt,
	)
	return s, err
}

func scanStays(rows *sql.Rows) ([]Stay, error) {
	defer rows.Close()
	var items []Stay
	for rows.Next() {
		s, err := scanStay(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createStay = `-- name: CreateStay :exec
INSERT INTO stays (` + stayColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateStay(ctx context.Context, arg Stay) error {
	_, err := q.db.ExecContext(ctx, createStay,
		arg.ID,
		arg.RoomNumber,
		arg.GuestName,
		arg.Status,
		arg.CheckInDate,
		arg.CheckOutDate,
		arg.LastDayPaid,
		arg.TotalPayment,
		arg.CreatedAt,
	)
	return err
}

const getStay = `-- name: GetStay :one
SELECT ` + stayColumns + ` FROM stays WHERE id = ?`

func (q *Queries) GetStay(ctx context.Context, id string) (Stay, error) {
	return scanStay(q.db.QueryRowContext(ctx, getStay, id))
}

const listStays = `-- name: ListStays :many
SELECT ` + stayColumns + ` FROM stays ORDER BY created_at DESC, id DESC`

func (q *Queries) ListStays(ctx context.Context) ([]Stay, error) {
	rows, err := q.db.QueryContext(ctx, listStays)
	if err != nil {
		return nil, err
	}
	return scanStays(rows)
}

const listActiveStays = `-- name: ListActiveStays :many
SELECT ` + stayColumns + ` FROM stays WHERE status != 'checkOut' ORDER BY created_at DESC, id DESC`

func (q *Queries) ListActiveStays(ctx context.Context) ([]Stay, error) {
	rows, err := q.db.QueryContext(ctx, listActiveStays)
	if err != nil {
		return nil, err
	}
	return scanStays(rows)
}

const applyPayment = `-- name: ApplyPayment :one
UPDATE stays
SET last_day_paid = ?, status = ?, total_payment = total_payment + ?
WHERE id = ? AND status != 'checkOut'
RETURNING ` + stayColumns

type ApplyPaymentParams struct {
	LastDayPaid string
	Status      string
	Amount      int64
	ID          string
}

func (q *Queries) ApplyPayment(ctx context.Context, arg ApplyPaymentParams) (Stay, error) {
	return scanStay(q.db.QueryRowContext(ctx, applyPayment, arg.LastDayPaid, arg.Status, arg.Amount, arg.ID))
}

const updateCheckOutDate = `-- name: UpdateCheckOutDate :one
UPDATE stays SET check_out_date = ?, status = ?
WHERE id = ? AND status != 'checkOut'
RETURNING ` + stayColumns

func (q *Queries) UpdateCheckOutDate(ctx context.Context, checkOut, status, id string) (Stay, error) {
	return scanStay(q.db.QueryRowContext(ctx, updateCheckOutDate, checkOut, status, id))
}

const setStayStatus = `-- name: SetStayStatus :one
UPDATE stays SET status = ?
WHERE id = ? AND status != 'checkOut'
RETURNING ` + stayColumns

func (q *Queries) SetStayStatus(ctx context.Context, status, id string) (Stay, error) {
	return scanStay(q.db.QueryRowContext(ctx, setStayStatus, status, id))
}
