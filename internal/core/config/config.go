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

type Config struct {
	DatabaseURL   string
	AppHost       string
	JWTSecret     string
	MigrationsDir string
	Env           string

	WatcherEnabled    bool
	RedisAddr         string
	AllocationLockTTL time.Duration

	PubSubProjectID       string
	PubSubTopic           string
	PubSubCredentialsJSON string

	AppealSubmitLimit  int
	AppealSubmitWindow time.Duration
	RequestTimeout     time.Duration

	// Empty means every origin outside prod and none in prod.
	CORSAllowedOrigins []string
}

// Load reads .env (without overriding the environment) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:           getenv("DATABASE_URL"),
		AppHost:               withDefault(getenv("APP_HOST"), ":8080"),
		JWTSecret:             getenv("JWT_SECRET"),
		MigrationsDir:         withDefault(getenv("MIGRATIONS_DIR"), "./migrations"),
		Env:                   withDefault(getenv("APP_ENV"), "dev"),
		RedisAddr:             getenv("REDIS_ADDR"),
		PubSubProjectID:       getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:           withDefault(getenv("PUBSUB_TOPIC"), "user-events"),
		PubSubCredentialsJSON: getenv("PUBSUB_CREDENTIALS_JSON"),
		AppealSubmitWindow:    time.Hour,
		CORSAllowedOrigins:    splitList(getenv("CORS_ALLOWED_ORIGINS")),
	}

	var errs []error
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	var err error
	if cfg.WatcherEnabled, err = parseBool(getenv("WATCHER_ENABLED"), true); err != nil {
		errs = append(errs, fmt.Errorf("WATCHER_ENABLED: %w", err))
	}
	if cfg.AllocationLockTTL, err = parseDuration(getenv("ALLOCATION_LOCK_TTL"), 30*time.Second); err != nil {
		errs = append(errs, fmt.Errorf("ALLOCATION_LOCK_TTL: %w", err))
	}
	if cfg.RequestTimeout, err = parseDuration(getenv("REQUEST_TIMEOUT"), 30*time.Second); err != nil {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
	}
	if cfg.AppealSubmitLimit, err = parseInt(getenv("APPEAL_SUBMIT_LIMIT"), 10); err != nil {
		errs = append(errs, fmt.Errorf("APPEAL_SUBMIT_LIMIT: %w", err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) PushEnabled() bool {
	return c.PubSubProjectID != ""
}

func (c *Config) LockEnabled() bool {
	return c.RedisAddr != ""
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseBool(value string, fallback bool) (bool, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func parseInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
