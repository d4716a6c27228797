package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chemo-dose-safety/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// CHEMO_DOSE_DOSING_CAP_GFR=false.
const EnvPrefix = "CHEMO_DOSE"

var _ domain.ConfigManager = (*Manager)(nil)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager loads configuration from the default search paths
func NewManager() (*Manager, error) {
	return NewManagerFromFile("")
}

// NewManagerFromFile loads configuration from an explicit file. An empty path
// searches for dosecalc.yaml in the default locations.
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from .env, the config file and the environment
func (m *Manager) loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("dosecalc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/chemo-dose-safety/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// no file: defaults and environment only
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("dosing.cap_gfr", true)
	v.SetDefault("dosing.max_gfr", 125.0)
	v.SetDefault("dosing.round_decimals", 1)

	v.SetDefault("registry.overlay_path", "")

	v.SetDefault("cache.max_entries", 1024)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "~/.chemo-dose-safety/overrides.db")
	v.SetDefault("store.postgres_url", "")

	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDosingConfig returns calculation options
func (m *Manager) GetDosingConfig() *domain.DosingConfig {
	return &m.config.Dosing
}

// GetStoreConfig returns override store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// ConfigFileUsed returns the file that was read, or "" when none was found
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration independently of how it was loaded
func Validate(config *domain.Config) error {
	if config.Dosing.MaxGFR <= 0 {
		return fmt.Errorf("invalid dosing.max_gfr: %g", config.Dosing.MaxGFR)
	}
	if config.Dosing.RoundDecimals < 0 {
		return fmt.Errorf("invalid dosing.round_decimals: %d", config.Dosing.RoundDecimals)
	}
	if config.Cache.MaxEntries < 0 {
		return fmt.Errorf("invalid cache.max_entries: %d", config.Cache.MaxEntries)
	}

	switch strings.ToLower(config.Store.Driver) {
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if config.Store.PostgresURL == "" {
			return fmt.Errorf("store.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid store driver: %s", config.Store.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
