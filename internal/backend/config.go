package backend

import (
	"errors"
	"fmt"

	"wisma/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		SessionStore: SessionStoreType(appConfig.SessionStore),

		SQLiteDBPath: appConfig.SQLiteDBPath,
		RedisURL:     appConfig.RedisURL,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}

	switch {
	case !c.SessionStore.IsValid():
		return fmt.Errorf("invalid session store: %s", c.SessionStore)
	case c.SessionStore == SessionsSQLite && c.Type != SQLiteBackend:
		return errors.New("sqlite session store requires the sqlite backend")
	case c.SessionStore == SessionsRedis && c.RedisURL == "":
		return errors.New("Redis URL is required for the redis session store")
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		return errors.New("either a service account file or JSON must be provided for sheets export")
	}
	return nil
}

