// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	MediaRoot      string
	ShutdownGrace  time.Duration
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type            string // "postgres" or "memory"
	URI             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SiteConfig holds the behaviour knobs of the blog itself.
type SiteConfig struct {
	PostsPerPage  int
	IndexCacheTTL time.Duration
	SessionSecret string
	SessionTTL    time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	File  string
}

// Config holds the complete application configuration
type Config struct {
	Server   *ServerConfig
	Database *DatabaseConfig
	Site     *SiteConfig
	Log      *LogConfig
	Debug    bool
}

const (
	DBTypePostgres = "postgres"
	DBTypeMemory   = "memory"
)

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		MediaRoot:      "./media",
		ShutdownGrace:  10 * time.Second,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:            DBTypePostgres,
		Port:            5432,
		SSLMode:         "require",
		AutoMigrate:     true,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultSiteConfig mirrors the values the site was tuned with.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		PostsPerPage:  10,
		IndexCacheTTL: 20 * time.Second,
		SessionTTL:    14 * 24 * time.Hour,
	}
}

// insecureDevSecret is only accepted when DEBUG is on.
const insecureDevSecret = "yatube-insecure-development-secret"

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",       // Current directory
		"../.env",    // One level up (cmd/yatube)
		"../../.env", // Project root when running from cmd/yatube
	}
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	cfg := &Config{
		Server:   DefaultConfig(),
		Database: DefaultDatabaseConfig(),
		Site:     DefaultSiteConfig(),
		Log:      &LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info"), File: os.Getenv("LOG_FILE")},
		Debug:    os.Getenv("DEBUG") == "true",
	}

	// Server
	if port, ok, err := getEnvInt("PORT"); err != nil {
		return nil, err
	} else if ok {
		cfg.Server.Port = port
	}
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		cfg.Server.MetricsEnabled = metricsEnabled == "true"
	}
	cfg.Server.MediaRoot = getEnvOrDefault("MEDIA_ROOT", cfg.Server.MediaRoot)

	// Site
	if perPage, ok, err := getEnvInt("POSTS_PER_PAGE"); err != nil {
		return nil, err
	} else if ok {
		if perPage < 1 {
			return nil, fmt.Errorf("POSTS_PER_PAGE must be positive, got %d", perPage)
		}
		cfg.Site.PostsPerPage = perPage
	}
	if ttl, ok, err := getEnvDuration("INDEX_CACHE_TTL"); err != nil {
		return nil, err
	} else if ok {
		cfg.Site.IndexCacheTTL = ttl
	}
	if ttl, ok, err := getEnvDuration("SESSION_TTL"); err != nil {
		return nil, err
	} else if ok {
		cfg.Site.SessionTTL = ttl
	}
	cfg.Site.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.Site.SessionSecret == "" {
		if !cfg.Debug {
			return nil, fmt.Errorf("SESSION_SECRET environment variable is required when DEBUG is not true")
		}
		cfg.Site.SessionSecret = insecureDevSecret
	}

	// Database
	if err := loadDatabaseConfig(cfg.Database); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDatabaseConfig(dbConfig *DatabaseConfig) error {
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		dbConfig.Type = dbType
	}
	if auto := os.Getenv("MIGRATIONS_AUTO"); auto != "" {
		dbConfig.AutoMigrate = auto == "true"
	}

	switch dbConfig.Type {
	case DBTypeMemory:
		return nil
	case DBTypePostgres:
	default:
		return fmt.Errorf("unsupported DB_TYPE %q (want %q or %q)", dbConfig.Type, DBTypePostgres, DBTypeMemory)
	}

	// Prioritize DATABASE_URL if provided
	if uri := os.Getenv("DATABASE_URL"); uri != "" {
		dbConfig.URI = uri
		dbConfig.SSLMode = getSSLModeFromURI(uri)
		return nil
	}

	// Fallback to individual variables if DATABASE_URL is not set
	dbConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	if port, ok, err := getEnvInt("DB_PORT"); err != nil {
		return err
	} else if ok {
		dbConfig.Port = port
	}

	dbConfig.User = os.Getenv("DB_USER")
	if dbConfig.User == "" {
		return fmt.Errorf("DB_USER environment variable is required when DB_TYPE is postgres and DATABASE_URL is not set")
	}
	dbConfig.Password = os.Getenv("DB_PASSWORD")
	if dbConfig.Password == "" {
		return fmt.Errorf("DB_PASSWORD environment variable is required when DB_TYPE is postgres and DATABASE_URL is not set")
	}
	dbConfig.Name = getEnvOrDefault("DB_NAME", "yatube")
	dbConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", "require")

	dbConfig.URI = fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(dbConfig.User),
		url.QueryEscape(dbConfig.Password),
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.Name,
		dbConfig.SSLMode,
	)
	return nil
}

// Address is the listen address of the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string) (int, bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %v", key, raw, err)
	}
	return v, true, nil
}

// getEnvDuration accepts Go durations ("20s") or a bare number of seconds.
func getEnvDuration(key string) (time.Duration, bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, true, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %v", key, raw, err)
	}
	return d, true, nil
}

// Helper function to extract sslmode from a DSN, defaults to "require"
func getSSLModeFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if mode := u.Query().Get("sslmode"); mode != "" {
			return mode
		}
	}
	return "require"
}
