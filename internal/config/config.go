// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

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

// Rate limit backends
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

const defaultPrivateKey = "88888888888888888888888888888888"

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName         string   `mapstructure:"appname"`
	AppPort         string   `mapstructure:"appport"`
	Environment     string   `mapstructure:"environment"`
	LogLevel        LogLevel `mapstructure:"loglevel"`
	PrivateKey      string   `mapstructure:"privatekey"`
	TokenTTLHours   int      `mapstructure:"tokenttlhours"`
	Timezone        string   `mapstructure:"timezone"`
	AdminPathPrefix string   `mapstructure:"adminpathprefix"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Ingestion rate limiting
	PageViewRateLimit      int    `mapstructure:"pageviewratelimit"`
	WhatsAppRateLimit      int    `mapstructure:"whatsappratelimit"`
	RateLimitWindowSeconds int    `mapstructure:"ratelimitwindowseconds"`
	RateLimitBackend       string `mapstructure:"ratelimitbackend"`
	RedisURL               string `mapstructure:"redisurl"`

	// Dashboard
	DashboardCacheTTLSeconds int `mapstructure:"dashboardcachettlseconds"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "vitrine")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", defaultPrivateKey)
		v.SetDefault("tokenttlhours", 24)
		v.SetDefault("timezone", "America/Sao_Paulo")
		v.SetDefault("adminpathprefix", "/admin")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("pageviewratelimit", 60)
		v.SetDefault("whatsappratelimit", 30)
		v.SetDefault("ratelimitwindowseconds", 60)
		v.SetDefault("ratelimitbackend", RateLimitMemory)
		v.SetDefault("redisurl", "")
		v.SetDefault("dashboardcachettlseconds", 60)
		v.SetDefault("jobintervalseconds", 60)

		v.BindEnv("appname", "VITRINE_APP_NAME")
		v.BindEnv("appport", "VITRINE_APP_PORT")
		v.BindEnv("environment", "VITRINE_ENV")
		v.BindEnv("loglevel", "VITRINE_LOG_LEVEL")
		v.BindEnv("privatekey", "VITRINE_PRIVATE_KEY")
		v.BindEnv("tokenttlhours", "VITRINE_TOKEN_TTL_HOURS")
		v.BindEnv("timezone", "VITRINE_TIMEZONE")
		v.BindEnv("adminpathprefix", "VITRINE_ADMIN_PATH_PREFIX")
		v.BindEnv("storagepath", "VITRINE_STORAGE_PATH")
		v.BindEnv("publicdir", "VITRINE_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "VITRINE_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "VITRINE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "VITRINE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "VITRINE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "VITRINE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "VITRINE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "VITRINE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "VITRINE_DB_MAX_IDLE_CONNS")
		v.BindEnv("pageviewratelimit", "VITRINE_PAGE_VIEW_RATE_LIMIT")
		v.BindEnv("whatsappratelimit", "VITRINE_WHATSAPP_RATE_LIMIT")
		v.BindEnv("ratelimitwindowseconds", "VITRINE_RATE_LIMIT_WINDOW_SECONDS")
		v.BindEnv("ratelimitbackend", "VITRINE_RATE_LIMIT_BACKEND")
		v.BindEnv("redisurl", "VITRINE_REDIS_URL")
		v.BindEnv("dashboardcachettlseconds", "VITRINE_DASHBOARD_CACHE_TTL_SECONDS")
		v.BindEnv("jobintervalseconds", "VITRINE_JOB_INTERVAL_SECONDS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		// In production the private key signs admin tokens, so the default is refused.
		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultPrivateKey {
			log.Fatal("Production requires a unique VITRINE_PRIVATE_KEY (cannot use default)")
		}
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

	if c.DatabaseType != SQLiteDatabase {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	switch c.RateLimitBackend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("rate limit backend %q requires VITRINE_REDIS_URL", c.RateLimitBackend)
		}
	default:
		return fmt.Errorf("invalid rate limit backend: %s", c.RateLimitBackend)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
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

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetTokenSecret returns the HMAC secret used to sign admin bearer tokens.
func (c *Config) GetTokenSecret() []byte {
	return []byte(c.PrivateKey)
}

// GetTokenTTL returns how long an issued admin token stays valid.
func (c *Config) GetTokenTTL() time.Duration {
	if c.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// GetLocation returns the time zone used to bucket events into calendar days.
// Falls back to UTC when the configured zone cannot be loaded.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetRateLimitWindow returns the fixed window shared by the ingestion limiters.
func (c *Config) GetRateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// GetDashboardCacheTTL returns how long a composed dashboard may be served from cache.
func (c *Config) GetDashboardCacheTTL() time.Duration {
	return time.Duration(c.DashboardCacheTTLSeconds) * time.Second
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for test stability)
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

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
