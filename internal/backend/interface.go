package backend

import (
	"context"

	"wisma/internal/auth"
	"wisma/internal/cache"
	"wisma/internal/sheets"
	"wisma/internal/storage"
)

// CleanupFunc releases a backend's resources.
type CleanupFunc func() error

// Backend is the ledger store and the session store the server runs on.
type Backend struct {
	Store    storage.Store
	Sessions auth.SessionStore
	// Cleaners expire stale entries; register them with a cache.Manager.
	Cleaners []cache.Cleaner
	Cleanup  CleanupFunc
}

// ExportSink is where the export worker writes ledger rows.
type ExportSink struct {
	Writer sheets.LedgerWriter
	Reader sheets.LedgerReader
	Kind   string
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
	CreateExportSink(ctx context.Context, config Config) (*ExportSink, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	SessionStore SessionStoreType

	SQLiteDBPath string
	RedisURL     string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType selects where the ledger lives.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// SessionStoreType selects where sessions and admin grants live.
type SessionStoreType string

const (
	SessionsMemory SessionStoreType = "memory"
	SessionsSQLite SessionStoreType = "sqlite"
	SessionsRedis  SessionStoreType = "redis"
)

func (st SessionStoreType) IsValid() bool {
	switch st {
	case SessionsMemory, SessionsSQLite, SessionsRedis:
		return true
	default:
		return false
	}
}

// IsDurable reports whether grants written to the store outlive the process.
func (st SessionStoreType) IsDurable() bool {
	return st == SessionsSQLite || st == SessionsRedis
}
