// Package config loads runtime configuration from the environment.
// Database credentials are never defaulted; they must be injected.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"zepto-analytics/pkg/validator"

	"github.com/joho/godotenv"
)

// DBConfig describes how to reach the source table.
type DBConfig struct {
	// URL is a full DSN. When set it takes precedence over the individual fields.
	URL string

	Host     string `validate:"required_without=URL"`
	Port     int    `validate:"gte=0,lte=65535"`
	Name     string `validate:"required_without=URL"`
	User     string `validate:"required_without=URL"`
	Password string
	SSLMode  string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	// Table is the product table read by the loader.
	Table string `validate:"required,sql_identifier"`

	ConnectTimeout time.Duration `validate:"gt=0"`
	QueryTimeout   time.Duration `validate:"gt=0"`
}

// Config holds everything cmd/api needs.
type Config struct {
	AppEnv   string
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// CacheTTL bounds the cache window. Zero keeps a dataset until it is invalidated.
	CacheTTL time.Duration `validate:"gte=0"`

	DB DBConfig
}

// IsDevelopment reports whether console-friendly logging should be used.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key, ""))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// durenv accepts Go duration strings ("30s") or a bare number of seconds.
func durenv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key, ""))
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second, nil
	}
	return def, fmt.Errorf("%s: %q is not a duration", key, v)
}

// LoadDotEnv reads a .env file into the process environment if one exists.
// A missing file is not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load collects configuration from the environment and validates it.
func Load() (Config, error) {
	dbPort, portErr := atoienv("DB_PORT", 5432)
	cacheTTL, ttlErr := durenv("CACHE_TTL", 0)
	connectTimeout, connectErr := durenv("DB_CONNECT_TIMEOUT", 10*time.Second)
	queryTimeout, queryErr := durenv("DB_QUERY_TIMEOUT", 30*time.Second)
	if err := errors.Join(portErr, ttlErr, connectErr, queryErr); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	cfg := Config{
		AppEnv:   getenv("APP_ENV", "development"),
		Port:     getenv("PORT", "3000"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		CacheTTL: cacheTTL,
		DB: DBConfig{
			URL:            os.Getenv("DATABASE_URL"),
			Host:           os.Getenv("DB_HOST"),
			Port:           dbPort,
			Name:           os.Getenv("DB_NAME"),
			User:           os.Getenv("DB_USER"),
			Password:       os.Getenv("DB_PASSWORD"),
			SSLMode:        getenv("DB_SSLMODE", "require"),
			Table:          getenv("DB_TABLE", "zepto"),
			ConnectTimeout: connectTimeout,
			QueryTimeout:   queryTimeout,
		},
	}

	if errs := validator.ValidateStruct(cfg); len(errs) > 0 {
		first := errs[0]
		return cfg, fmt.Errorf("invalid config: field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	return cfg, nil
}

// DSN renders the libpq-style connection string for the configured database.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	timeout := int(c.ConnectTimeout.Seconds())
	if timeout < 1 {
		timeout = 1
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s connect_timeout=%d",
		quote(c.Host), quote(c.User), quote(c.Password), quote(c.Name), c.Port, quote(c.SSLMode), timeout,
	)
}

// quote escapes a keyword/value DSN value so empty strings and spaces survive parsing.
func quote(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
