package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"wisma/internal/auth"
	"wisma/internal/config"
	"wisma/internal/core"
	"wisma/internal/log"
	"wisma/internal/sheets"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory", Config{Type: MemoryBackend, SessionStore: SessionsMemory}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", SessionStore: SessionsSQLite}, true},
		{"redis sessions", Config{Type: MemoryBackend, SessionStore: SessionsRedis, RedisURL: "redis://localhost:6379/0"}, true},
		{"unknown backend", Config{Type: "sheets", SessionStore: SessionsMemory}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, SessionStore: SessionsMemory}, false},
		{"sqlite sessions on memory", Config{Type: MemoryBackend, SessionStore: SessionsSQLite}, false},
		{"redis without url", Config{Type: MemoryBackend, SessionStore: SessionsRedis}, false},
		{"unknown session store", Config{Type: MemoryBackend, SessionStore: "cookie"}, false},
		{"sheets without credentials", Config{Type: MemoryBackend, SessionStore: SessionsMemory, GoogleSpreadsheetID: "abc"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); tc.ok != (err == nil) {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestSessionStoreDurability(t *testing.T) {
	cases := map[SessionStoreType]bool{
		SessionsMemory: false,
		SessionsSQLite: true,
		SessionsRedis:  true,
		"etcd":         false,
	}
	for st, want := range cases {
		if got := st.IsDurable(); got != want {
			t.Errorf("%q.IsDurable() = %v, want %v", st, got, want)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	cfg, err := FromAppConfig(&config.Config{
		DataBackend:     config.BackendSQLite,
		SQLiteDBPath:    "data/wisma.db",
		SessionStore:    config.SessionStoreSQLite,
		GoogleSheetName: "Cash Flow",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SessionStore != SessionsSQLite || cfg.GoogleSheetName != "Cash Flow" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	b, err := NewFactory(testLogger()).CreateBackend(ctx, Config{Type: MemoryBackend, SessionStore: SessionsMemory})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer b.Cleanup()

	if err := b.Store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(b.Cleaners) != 1 {
		t.Fatalf("memory sessions should register a cleaner, got %d", len(b.Cleaners))
	}
	if _, err := b.Sessions.GetSession(ctx, "missing"); err != auth.ErrNoSession {
		t.Fatalf("GetSession = %v, want ErrNoSession", err)
	}
}

func TestCreateSQLiteBackendSharesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wisma.db")
	b, err := NewFactory(testLogger()).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path, SessionStore: SessionsSQLite})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer b.Cleanup()

	now := time.Now().UTC().Truncate(time.Second)
	sess := auth.Session{ID: "s1", Subject: "desk", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := b.Sessions.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if got, err := b.Sessions.GetSession(ctx, "s1"); err != nil || got.Subject != "desk" {
		t.Fatalf("GetSession = %+v, %v", got, err)
	}
	if _, err := b.Store.RecordFlow(ctx, core.NewDate(2024, 3, 1), 100, 0); err != nil {
		t.Fatalf("RecordFlow on shared file: %v", err)
	}
}

func TestCreateExportSinkFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	sink, err := NewFactory(testLogger()).CreateExportSink(ctx, Config{Type: MemoryBackend, SessionStore: SessionsMemory})
	if err != nil {
		t.Fatalf("CreateExportSink: %v", err)
	}
	if sink.Kind != "memory" {
		t.Fatalf("kind = %s", sink.Kind)
	}
	row := sheets.LedgerRow{Date: core.NewDate(2024, 3, 1), Type: "flow.recorded", Income: 100}
	if _, err := sink.Writer.AppendRow(ctx, row); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	rows, err := sink.Reader.ListRows(ctx, 2024)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListRows = %+v, %v", rows, err)
	}
}
