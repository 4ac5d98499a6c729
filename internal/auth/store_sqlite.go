package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps sessions in the ledger database, in the tables created
// by the storage migrations.
type SQLiteStore struct {
	db *sql.DB
}

var _ SessionStore = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const upsertSession = `INSERT INTO sessions (id, subject, email, admin, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    subject = excluded.subject,
    email = excluded.email,
    admin = excluded.admin,
    expires_at = excluded.expires_at`

func (s *SQLiteStore) SaveSession(ctx context.Context, sess Session) error {
	admin := 0
	if sess.Admin {
		admin = 1
	}
	_, err := s.db.ExecContext(ctx, upsertSession,
		sess.ID, sess.Subject, sess.Email, admin,
		sess.CreatedAt.UTC().Format(timestampLayout),
		sess.ExpiresAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

const selectSession = `SELECT id, subject, email, admin, created_at, expires_at
FROM sessions WHERE id = ?`

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		sess               Session
		admin              int64
		created, expiresAt string
	)
	err := s.db.QueryRowContext(ctx, selectSession, id).
		Scan(&sess.ID, &sess.Subject, &sess.Email, &admin, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	sess.Admin = admin != 0
	if sess.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
		return Session{}, fmt.Errorf("session %s created_at: %w", id, err)
	}
	if sess.ExpiresAt, err = time.Parse(timestampLayout, expiresAt); err != nil {
		return Session{}, fmt.Errorf("session %s expires_at: %w", id, err)
	}
	return sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

const upsertGrant = `INSERT INTO admin_grants (email, granted_by, granted_at)
VALUES (?, ?, ?)
ON CONFLICT (email) DO UPDATE SET granted_by = excluded.granted_by, granted_at = excluded.granted_at`

func (s *SQLiteStore) GrantAdmin(ctx context.Context, email, grantedBy string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, upsertGrant, email, grantedBy, at.UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("grant admin %s: %w", email, err)
	}
	return nil
}

func (s *SQLiteStore) IsAdmin(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_grants WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check admin %s: %w", email, err)
	}
	return n > 0, nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// CleanExpired adapts DeleteExpired to cache.Cleaner.
func (s *SQLiteStore) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := s.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0
	}
	return int(n)
}
