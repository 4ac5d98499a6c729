package backend

import (
	"context"
	"errors"
	"fmt"

	"wisma/internal/auth"
	"wisma/internal/log"
	"wisma/internal/sheets/google"
	sheetmem "wisma/internal/sheets/memory"
	"wisma/internal/storage"
	"wisma/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the ledger store, then the session store beside it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b    *Backend
		repo *storage.SQLiteRepository
	)
	switch config.Type {
	case SQLiteBackend:
		r, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		repo = r
		b = &Backend{Store: r, Cleanup: r.Close}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		s := memory.New()
		b = &Backend{Store: s, Cleanup: s.Close}
		f.logger.Warn("Initialized memory backend, ledger data is lost on restart")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := f.attachSessions(ctx, b, config, repo); err != nil {
		_ = b.Cleanup()
		return nil, err
	}
	return b, nil
}

func (f *DefaultFactory) attachSessions(ctx context.Context, b *Backend, config Config, repo *storage.SQLiteRepository) error {
	switch config.SessionStore {
	case SessionsMemory:
		s := auth.NewMemoryStore()
		b.Sessions = s
		b.Cleaners = append(b.Cleaners, s)
	case SessionsSQLite:
		if repo == nil {
			return errors.New("sqlite session store requires the sqlite backend")
		}
		s := auth.NewSQLiteStore(repo.DB())
		b.Sessions = s
		b.Cleaners = append(b.Cleaners, s)
	case SessionsRedis:
		s, err := auth.NewRedisStore(ctx, config.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect session store: %w", err)
		}
		b.Sessions = s
		closeStore := b.Cleanup
		b.Cleanup = func() error {
			return errors.Join(s.Close(), closeStore())
		}
	default:
		return fmt.Errorf("unsupported session store: %s", config.SessionStore)
	}
	f.logger.Info("Initialized session store", "store", string(config.SessionStore))
	return nil
}

// CreateExportSink returns the Google Sheets writer when a spreadsheet is
// configured and an in-memory sheet otherwise.
func (f *DefaultFactory) CreateExportSink(ctx context.Context, config Config) (*ExportSink, error) {
	if config.GoogleSpreadsheetID == "" {
		s := sheetmem.New()
		f.logger.Warn("No spreadsheet configured, exporting ledger rows to memory")
		return &ExportSink{Writer: s, Reader: s, Kind: "memory"}, nil
	}

	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets export", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &ExportSink{Writer: cli, Reader: cli, Kind: "google"}, nil
}
