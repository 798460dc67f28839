// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	MetricsPort string   `mapstructure:"metricsport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Query defaults
	DefaultPageLimit int `mapstructure:"defaultpagelimit"`
	MaxPageLimit     int `mapstructure:"maxpagelimit"`

	// Extraction settings
	ExtractionIntervalSeconds int `mapstructure:"extractionintervalseconds"`
	ExtractionTimeoutSeconds  int `mapstructure:"extractiontimeoutseconds"`
	ExtractionWindowDays      int `mapstructure:"extractionwindowdays"`

	// Retention for persisted extraction run records
	RunRetentionDays int `mapstructure:"runretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "shoplens")
		v.SetDefault("appport", "3000")
		v.SetDefault("metricsport", "9091")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("defaultpagelimit", 50)
		v.SetDefault("maxpagelimit", 500)
		v.SetDefault("extractionintervalseconds", 3600)
		v.SetDefault("extractiontimeoutseconds", 300)
		v.SetDefault("extractionwindowdays", 1)
		v.SetDefault("runretentiondays", 90)

		// Bind environment variables
		v.BindEnv("appname", "SHOPLENS_APP_NAME")
		v.BindEnv("appport", "SHOPLENS_APP_PORT")
		v.BindEnv("metricsport", "SHOPLENS_METRICS_PORT")
		v.BindEnv("environment", "SHOPLENS_ENV")
		v.BindEnv("loglevel", "SHOPLENS_LOG_LEVEL")
		v.BindEnv("storagepath", "SHOPLENS_STORAGE_PATH")
		v.BindEnv("logsdir", "SHOPLENS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SHOPLENS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "SHOPLENS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SHOPLENS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "SHOPLENS_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "SHOPLENS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "SHOPLENS_DB_MAX_IDLE_CONNS")
		v.BindEnv("defaultpagelimit", "SHOPLENS_DEFAULT_PAGE_LIMIT")
		v.BindEnv("maxpagelimit", "SHOPLENS_MAX_PAGE_LIMIT")
		v.BindEnv("extractionintervalseconds", "SHOPLENS_EXTRACTION_INTERVAL_SECONDS")
		v.BindEnv("extractiontimeoutseconds", "SHOPLENS_EXTRACTION_TIMEOUT_SECONDS")
		v.BindEnv("extractionwindowdays", "SHOPLENS_EXTRACTION_WINDOW_DAYS")
		v.BindEnv("runretentiondays", "SHOPLENS_RUN_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.DefaultPageLimit <= 0 || c.MaxPageLimit < c.DefaultPageLimit {
		return fmt.Errorf("invalid page limits: default=%d max=%d", c.DefaultPageLimit, c.MaxPageLimit)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for in-memory database stability)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}
	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}
	return 5
}
