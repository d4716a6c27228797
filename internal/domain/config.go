package domain

// Config represents the main application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Dosing      DosingConfig   `mapstructure:"dosing"`
	Registry    RegistryConfig `mapstructure:"registry"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Store       StoreConfig    `mapstructure:"store"`
	Database    DatabaseConfig `mapstructure:"database"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// DosingConfig holds calculation options exposed to operators
type DosingConfig struct {
	CapGFR        bool    `mapstructure:"cap_gfr"`
	MaxGFR        float64 `mapstructure:"max_gfr"`
	RoundDecimals int     `mapstructure:"round_decimals"`
}

// RegistryConfig points at an optional data-only registry overlay
type RegistryConfig struct {
	OverlayPath string `mapstructure:"overlay_path"`
}

// CacheConfig sizes the in-memory calculation cache
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// StoreConfig selects the clinician override store
type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// DatabaseConfig represents PostgreSQL administration settings
type DatabaseConfig struct {
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
