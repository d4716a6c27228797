package override

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chemo-dose-safety/internal/domain"
)

// Drivers accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store selected by cfg
func Open(cfg domain.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		path, err := expandHome(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(path)
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("store.postgres_url is required for the postgres driver")
		}
		return NewPostgresStoreFromURL(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func expandHome(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("store.sqlite_path is required for the sqlite driver")
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
