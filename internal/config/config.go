package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kite        KiteConfig
	Session     SessionConfig
	Journal     JournalConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// KiteConfig carries the Kite Connect credentials and the token
// validation policy knobs.
type KiteConfig struct {
	APIKey    string
	APISecret string
	UserID    string
	BaseURL   string
	LoginURL  string
	TickerURL string

	// ProfileTimeout bounds the lightweight identity check used for
	// token validation; exceeding it counts as a network failure.
	ProfileTimeout time.Duration
	// ValidationWindow is how long a cached token verdict is trusted.
	ValidationWindow time.Duration

	// Development carve-outs. AutoSession creates a session stub for
	// unauthenticated requests; MockSession skips upstream validation.
	AutoSession    bool
	MockSession    bool
	DevAccessToken string
}

// DevelopmentMode reports whether any development carve-out is active.
func (k KiteConfig) DevelopmentMode() bool {
	return k.AutoSession || k.MockSession
}

type SessionConfig struct {
	CookieName   string
	SigningKey   string
	TTL          time.Duration
	CookieSecure bool
}

type JournalConfig struct {
	Path          string
	DrainInterval time.Duration
	BatchSize     int
	MaxRetries    int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "broker-bridge"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "broker_db"),
			User:            getString("DB_USER", "broker_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Kite: KiteConfig{
			APIKey:           os.Getenv("KITE_API_KEY"),
			APISecret:        os.Getenv("KITE_API_SECRET"),
			UserID:           os.Getenv("KITE_USER_ID"),
			BaseURL:          getString("KITE_BASE_URL", "https://api.kite.trade"),
			LoginURL:         getString("KITE_LOGIN_URL", "https://kite.zerodha.com/connect/login?v=3&api_key=%s"),
			TickerURL:        getString("KITE_TICKER_URL", "wss://ws.kite.trade"),
			ProfileTimeout:   getDuration("KITE_PROFILE_TIMEOUT", 5*time.Second),
			ValidationWindow: getDuration("KITE_VALIDATION_WINDOW", 5*time.Minute),
			AutoSession:      getBool("KITE_DEV_AUTO_SESSION", false),
			MockSession:      getBool("KITE_DEV_MOCK_SESSION", false),
			DevAccessToken:   os.Getenv("KITE_DEV_ACCESS_TOKEN"),
		},
		Session: SessionConfig{
			CookieName:   getString("SESSION_COOKIE_NAME", "broker_session"),
			SigningKey:   os.Getenv("SESSION_SIGNING_KEY"),
			TTL:          getDuration("SESSION_TTL", 12*time.Hour),
			CookieSecure: getBool("SESSION_COOKIE_SECURE", false),
		},
		Journal: JournalConfig{
			Path:          getString("JOURNAL_PATH", "./data/journal.db"),
			DrainInterval: getDuration("JOURNAL_DRAIN_INTERVAL", 30*time.Second),
			BatchSize:     getInt("JOURNAL_BATCH_SIZE", 50),
			MaxRetries:    getInt("JOURNAL_MAX_RETRIES", 3),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}
	if cfg.Session.SigningKey == "" && cfg.Environment == "development" {
		cfg.Session.SigningKey = "dev-session-signing-key"
	}
	if cfg.Session.SigningKey == "" {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY is required outside development")
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
