// Package config loads service settings from an optional YAML file, defaults
// and environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"sheetshare.org/internal/auth"
	"sheetshare.org/internal/obs"
)

// Store drivers.
const (
	DriverSheets = "sheets"
	DriverXLSX   = "xlsx"
	DriverMemory = "memory"
)

type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Session SessionConfig `koanf:"session"`
	Store   StoreConfig   `koanf:"store"`
	Google  GoogleConfig  `koanf:"google"`
	Auth    AuthConfig    `koanf:"auth"`
	Redis   RedisConfig   `koanf:"redis"`
	Audit   AuditConfig   `koanf:"audit"`
	Log     LogConfig     `koanf:"log"`
	Tracing TracingConfig `koanf:"tracing"`
}

type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	// LoginRate is the sustained login attempts per second allowed per client.
	LoginRate  float64 `koanf:"login_rate"`
	LoginBurst int     `koanf:"login_burst"`
}

type SessionConfig struct {
	Password string        `koanf:"password"`
	TTL      time.Duration `koanf:"ttl"`
}

type StoreConfig struct {
	Driver        string `koanf:"driver"`
	SpreadsheetID string `koanf:"spreadsheet_id"`
	XLSXPath      string `koanf:"xlsx_path"`
}

type GoogleConfig struct {
	ServiceAccountEmail string `koanf:"service_account_email"`
	PrivateKey          string `koanf:"private_key"`
	CredentialsFile     string `koanf:"credentials_file"`
}

type AuthConfig struct {
	RootLoginID        string        `koanf:"root_login_id"`
	LockoutMaxAttempts int           `koanf:"lockout_max_attempts"`
	LockoutWindow      time.Duration `koanf:"lockout_window"`
}

// RedisConfig enables the shared lockout store when Addr is set.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuditConfig enables the Postgres audit mirror when PostgresDSN is set.
type AuditConfig struct {
	PostgresDSN string `koanf:"postgres_dsn"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type TracingConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	Environment string  `koanf:"environment"`
	Insecure    bool    `koanf:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// Load reads path (optional) and applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyEnvOverrides(k)
	applyDefaults(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.addr", ":8080")
	setDefault(k, "http.allowed_origins", []string{})
	setDefault(k, "http.read_timeout", 15*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.max_body_bytes", int64(1<<20))
	setDefault(k, "http.cookie_secure", true)
	setDefault(k, "http.login_rate", 1.0)
	setDefault(k, "http.login_burst", 10)

	setDefault(k, "session.ttl", 7*24*time.Hour)

	setDefault(k, "store.driver", DriverSheets)
	setDefault(k, "store.xlsx_path", "sheetshare.xlsx")

	setDefault(k, "auth.lockout_max_attempts", 5)
	setDefault(k, "auth.lockout_window", 15*time.Minute)

	setDefault(k, "log.level", "info")
	setDefault(k, "log.format", "json")
	setDefault(k, "log.max_size_mb", 100)
	setDefault(k, "log.max_backups", 5)
	setDefault(k, "log.max_age_days", 28)

	setDefault(k, "tracing.environment", "production")
	setDefault(k, "tracing.sample_ratio", 1.0)
}

func applyEnvOverrides(k *koanf.Koanf) {
	strs := map[string]string{
		"HTTP_ADDR":                    "http.addr",
		"SESSION_PASSWORD":             "session.password",
		"STORE_DRIVER":                 "store.driver",
		"SPREADSHEET_ID":               "store.spreadsheet_id",
		"XLSX_PATH":                    "store.xlsx_path",
		"GOOGLE_SERVICE_ACCOUNT_EMAIL": "google.service_account_email",
		"GOOGLE_PRIVATE_KEY":           "google.private_key",
		"GOOGLE_CREDENTIALS_FILE":      "google.credentials_file",
		"ROOT_ADMIN_LOGIN_ID":          "auth.root_login_id",
		"REDIS_ADDR":                   "redis.addr",
		"REDIS_PASSWORD":               "redis.password",
		"AUDIT_PG_DSN":                 "audit.postgres_dsn",
		"LOG_LEVEL":                    "log.level",
		"LOG_FORMAT":                   "log.format",
		"LOG_FILE":                     "log.file",
		"OTEL_EXPORTER_OTLP_ENDPOINT":  "tracing.endpoint",
	}
	for env, key := range strs {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			k.Set(key, v)
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		k.Set("http.allowed_origins", origins)
	}
	if v, err := strconv.ParseBool(os.Getenv("COOKIE_SECURE")); err == nil {
		k.Set("http.cookie_secure", v)
	}
	if hours, err := strconv.Atoi(os.Getenv("SESSION_TTL_HOURS")); err == nil && hours > 0 {
		k.Set("session.ttl", time.Duration(hours)*time.Hour)
	}
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil && db >= 0 {
		k.Set("redis.db", db)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Session.Password) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("session password must be at least %d bytes", auth.MinSecretLength))
	}
	switch c.Store.Driver {
	case DriverSheets:
		if strings.TrimSpace(c.Store.SpreadsheetID) == "" {
			errs = append(errs, errors.New("spreadsheet id is required for the sheets driver"))
		}
	case DriverXLSX:
		if strings.TrimSpace(c.Store.XLSXPath) == "" {
			errs = append(errs, errors.New("xlsx path is required for the xlsx driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	return errors.Join(errs...)
}

// ObsLog converts the log section for obs.NewLogger.
func (c *Config) ObsLog(service string) obs.LogConfig {
	return obs.LogConfig{
		Level:       c.Log.Level,
		Format:      c.Log.Format,
		ServiceName: service,
		File:        c.Log.File,
		MaxSizeMB:   c.Log.MaxSizeMB,
		MaxBackups:  c.Log.MaxBackups,
		MaxAgeDays:  c.Log.MaxAgeDays,
	}
}

// ObsTracing converts the tracing section for obs.InitTracing.
func (c *Config) ObsTracing(service string) obs.TracingConfig {
	return obs.TracingConfig{
		ServiceName: service,
		Environment: c.Tracing.Environment,
		Endpoint:    c.Tracing.Endpoint,
		Insecure:    c.Tracing.Insecure,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
