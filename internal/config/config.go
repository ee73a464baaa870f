package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverXLSX     = "xlsx"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App          AppConfig
	Logger       LoggerConfig
	Bot          BotConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Channel      ChannelConfig
	Notification NotificationConfig
	HTTP         HTTPConfig
}

// AppConfig identifies the running process.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" (default) or "console".
	Format string
}

// MaxPollInterval caps BOT_POLL_INTERVAL so replies are noticed promptly.
const MaxPollInterval = 2 * time.Second

// BotConfig controls the intake dialogue and the poll loop.
type BotConfig struct {
	// IgnoreIdentities are peers whose conversations are closed unanswered.
	IgnoreIdentities   []string
	SupportDestination string
	ScriptFile         string

	MaxRetries         int
	MenuTimeout        time.Duration
	DescriptionTimeout time.Duration
	SelectionTimeout   time.Duration
	AbandonAfter       time.Duration
	PollInterval       time.Duration

	// IdleBackoffMin and IdleBackoffMax bound the random sleep between
	// scans and after errors.
	IdleBackoffMin time.Duration
	IdleBackoffMax time.Duration
}

// StoreConfig selects the ticket store.
type StoreConfig struct {
	Driver string
	// DSN is used by the mysql driver; postgres reads PostgresConfig.DSN.
	DSN string
	// Path is the SQLite database or XLSX workbook file.
	Path            string
	Sheet           string
	MigrationsDir   string
	RunMigrations   bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ChannelConfig configures the Redis bridge to the chat client sidecar.
type ChannelConfig struct {
	KeyPrefix string
}

// NotificationConfig holds optional escalation mirrors.
type NotificationConfig struct {
	SlackWebhookURL    string
	SlackTimeout       time.Duration
	SlackRetryAttempts int
}

// HTTPConfig configures the optional ops endpoint.
type HTTPConfig struct {
	// Addr empty disables the endpoint.
	Addr           string
	RequestTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where possible. A non-empty envFile must exist; otherwise a local .env is
// loaded when present.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "support-bot"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Bot: BotConfig{
			IgnoreIdentities:   getEnvAsList("BOT_IGNORE_IDENTITIES", nil),
			SupportDestination: strings.TrimSpace(os.Getenv("BOT_SUPPORT_DESTINATION")),
			ScriptFile:         os.Getenv("BOT_SCRIPT_FILE"),
			MaxRetries:         getEnvAsInt("BOT_MAX_RETRIES", 3),
			MenuTimeout:        getEnvAsDuration("BOT_MENU_TIMEOUT", 30*time.Second),
			DescriptionTimeout: getEnvAsDuration("BOT_DESCRIPTION_TIMEOUT", 90*time.Second),
			SelectionTimeout:   getEnvAsDuration("BOT_SELECTION_TIMEOUT", 40*time.Second),
			AbandonAfter:       getEnvAsDuration("BOT_ABANDON_AFTER", 60*time.Second),
			PollInterval:       getEnvAsDuration("BOT_POLL_INTERVAL", 2*time.Second),
			IdleBackoffMin:     getEnvAsDuration("BOT_IDLE_BACKOFF_MIN", 2*time.Second),
			IdleBackoffMax:     getEnvAsDuration("BOT_IDLE_BACKOFF_MAX", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
			DSN:             os.Getenv("STORE_DSN"),
			Path:            getEnv("STORE_PATH", "./tickets.db"),
			Sheet:           getEnv("STORE_SHEET", "Tickets"),
			MigrationsDir:   getEnv("STORE_MIGRATIONS_DIR", "migrations"),
			RunMigrations:   getEnvAsBool("STORE_RUN_MIGRATIONS", true),
			MaxOpenConns:    getEnvAsInt("STORE_MAX_OPEN_CONNS", 4),
			MaxIdleConns:    getEnvAsInt("STORE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("STORE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Channel: ChannelConfig{
			KeyPrefix: getEnv("CHANNEL_KEY_PREFIX", "supportbot"),
		},
		Notification: NotificationConfig{
			SlackWebhookURL:    os.Getenv("NOTIFY_SLACK_WEBHOOK_URL"),
			SlackTimeout:       getEnvAsDuration("NOTIFY_SLACK_TIMEOUT", 10*time.Second),
			SlackRetryAttempts: getEnvAsInt("NOTIFY_SLACK_RETRY_ATTEMPTS", 3),
		},
		HTTP: HTTPConfig{
			Addr:           os.Getenv("HTTP_ADDR"),
			RequestTimeout: getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 10*time.Second),
		},
	}

	return cfg, nil
}

// Validate checks required values and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.SupportDestination == "" {
		errs = append(errs, errors.New("BOT_SUPPORT_DESTINATION is required"))
	}
	if c.Bot.MaxRetries <= 0 {
		errs = append(errs, errors.New("BOT_MAX_RETRIES must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"BOT_MENU_TIMEOUT":        c.Bot.MenuTimeout,
		"BOT_DESCRIPTION_TIMEOUT": c.Bot.DescriptionTimeout,
		"BOT_SELECTION_TIMEOUT":   c.Bot.SelectionTimeout,
		"BOT_ABANDON_AFTER":       c.Bot.AbandonAfter,
		"BOT_POLL_INTERVAL":       c.Bot.PollInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Bot.PollInterval > MaxPollInterval {
		errs = append(errs, fmt.Errorf("BOT_POLL_INTERVAL must be at most %s", MaxPollInterval))
	}
	if c.Logger.Format != "" && c.Logger.Format != "json" && c.Logger.Format != "console" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Logger.Format))
	}
	if c.Bot.IdleBackoffMin <= 0 || c.Bot.IdleBackoffMax < c.Bot.IdleBackoffMin {
		errs = append(errs, errors.New("BOT_IDLE_BACKOFF_MIN must be positive and not above BOT_IDLE_BACKOFF_MAX"))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres store"))
		}
	case DriverMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("STORE_DSN is required for the mysql store"))
		}
	case DriverSQLite, DriverXLSX:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("STORE_PATH is required for the %s store", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	return errors.Join(errs...)
}

// Ignored returns the identities the router must never answer. The
// support destination is always among them.
func (b BotConfig) Ignored() []string {
	out := make([]string, 0, len(b.IgnoreIdentities)+1)
	seen := make(map[string]struct{}, len(b.IgnoreIdentities)+1)
	for _, id := range append(append([]string{}, b.IgnoreIdentities...), b.SupportDestination) {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsDuration accepts Go durations ("45s") or bare seconds ("45").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
