package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the YAML file read when no --config path is given.
const DefaultConfigFile = "planforge.yaml"

// Load is LoadFrom(DefaultConfigFile).
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom builds a Config from Defaults, then the YAML file at path (if it
// exists), then the environment, and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	if err := loadEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// envBinding copies one environment variable onto a Config field.
type envBinding struct {
	key string
	set func(cfg *Config, raw string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error { *field(c) = raw; return nil }
}

func parsed[T any](parse func(string) (T, error), field func(*Config) *T) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := parse(raw)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

func parseInt(s string) (int, error) { return strconv.Atoi(s) }

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	return int32(n), err
}

func parseInt64(s string) (int64, error)   { return strconv.ParseInt(s, 10, 64) }
func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// envBindings are applied in order, so where two variables feed one field
// the later one wins. PG* variables are handled separately in loadEnv.
var envBindings = []envBinding{
	{"PORT", str(func(c *Config) *string { return &c.Server.Port })},
	{"PLANFORGE_PORT", str(func(c *Config) *string { return &c.Server.Port })},
	{"PLANFORGE_CORS_ORIGIN", str(func(c *Config) *string { return &c.Server.CORSOrigin })},
	{"PLANFORGE_SHUTDOWN_TIMEOUT", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},

	{"FASTAPI_URL", str(func(c *Config) *string { return &c.Planner.URL })},
	{"PLANFORGE_PLANNER_URL", str(func(c *Config) *string { return &c.Planner.URL })},
	{"PLANFORGE_PLANNER_TIMEOUT", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Planner.Timeout })},
	{"PLANFORGE_PLANNER_HEALTH_TIMEOUT", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Planner.HealthTimeout })},

	{"DATABASE_URL", str(func(c *Config) *string { return &c.Postgres.DSN })},
	{"PLANFORGE_PG_MAX_CONNS", parsed(parseInt32, func(c *Config) *int32 { return &c.Postgres.MaxConns })},
	{"PLANFORGE_PG_MIN_CONNS", parsed(parseInt32, func(c *Config) *int32 { return &c.Postgres.MinConns })},
	{"PLANFORGE_PG_MAX_CONN_LIFETIME", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Postgres.MaxConnLifetime })},
	{"PLANFORGE_PG_MAX_CONN_IDLE_TIME", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Postgres.MaxConnIdleTime })},
	{"PLANFORGE_PG_HEALTH_CHECK", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Postgres.HealthCheck })},

	{"NATS_URL", str(func(c *Config) *string { return &c.NATS.URL })},

	{"PLANFORGE_LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"PLANFORGE_LOG_SERVICE", str(func(c *Config) *string { return &c.Logging.Service })},
	{"PLANFORGE_LOG_ASYNC", parsed(strconv.ParseBool, func(c *Config) *bool { return &c.Logging.Async })},

	{"PLANFORGE_BREAKER_MAX_FAILURES", parsed(parseInt, func(c *Config) *int { return &c.Breaker.MaxFailures })},
	{"PLANFORGE_BREAKER_TIMEOUT", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Breaker.Timeout })},

	{"PLANFORGE_RATE_RPS", parsed(parseFloat, func(c *Config) *float64 { return &c.Rate.RequestsPerSecond })},
	{"PLANFORGE_RATE_BURST", parsed(parseInt, func(c *Config) *int { return &c.Rate.Burst })},
	{"PLANFORGE_RATE_CLEANUP_INTERVAL", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Rate.CleanupInterval })},
	{"PLANFORGE_RATE_MAX_IDLE_TIME", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Rate.MaxIdleTime })},

	{"PLANFORGE_CACHE_L1_SIZE_MB", parsed(parseInt64, func(c *Config) *int64 { return &c.Cache.L1MaxSizeMB })},
	{"PLANFORGE_HEALTH_CACHE_TTL", parsed(time.ParseDuration, func(c *Config) *time.Duration { return &c.Cache.HealthTTL })},

	{"PLANFORGE_OTEL_ENABLED", parsed(strconv.ParseBool, func(c *Config) *bool { return &c.OTEL.Enabled })},
	{"OTEL_EXPORTER_OTLP_ENDPOINT", str(func(c *Config) *string { return &c.OTEL.Endpoint })},
	{"PLANFORGE_OTEL_INSECURE", parsed(strconv.ParseBool, func(c *Config) *bool { return &c.OTEL.Insecure })},
	{"OTEL_SERVICE_NAME", str(func(c *Config) *string { return &c.OTEL.ServiceName })},
	{"PLANFORGE_OTEL_SAMPLE_RATE", parsed(parseFloat, func(c *Config) *float64 { return &c.OTEL.SampleRate })},
}

// loadEnv overlays non-empty environment variables onto cfg. A DSN composed
// from PG* variables is applied first so DATABASE_URL still takes precedence.
// Every malformed value is reported.
func loadEnv(cfg *Config, lookup lookupFunc) error {
	if dsn := dsnFromPGEnv(lookup); dsn != "" {
		cfg.Postgres.DSN = dsn
	}

	var errs []error
	for _, b := range envBindings {
		raw, ok := lookup(b.key)
		if !ok || raw == "" {
			continue
		}
		if err := b.set(cfg, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", b.key, raw, err))
		}
	}
	return errors.Join(errs...)
}

// dsnFromPGEnv builds a postgres URL from the libpq PG* variables, or returns
// "" when none are set.
func dsnFromPGEnv(lookup lookupFunc) string {
	get := func(k string) string { v, _ := lookup(k); return v }

	host, port := get("PGHOST"), get("PGPORT")
	user, pass, name := get("PGUSER"), get("PGPASSWORD"), get("PGDATABASE")
	if host+port+user+pass+name == "" {
		return ""
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}

	u := url.URL{Scheme: "postgres", Host: host + ":" + port, Path: "/" + name}
	if user != "" {
		u.User = url.User(user)
		if pass != "" {
			u.User = url.UserPassword(user, pass)
		}
	}
	if mode := get("PGSSLMODE"); mode != "" {
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
	}
	return u.String()
}

func validate(cfg *Config) error {
	checks := []struct {
		bad bool
		msg string
	}{
		{cfg.Server.Port == "", "server.port is required"},
		{cfg.Postgres.DSN == "", "postgres.dsn is required"},
		{cfg.Planner.URL == "", "planner.url is required"},
		{!isHTTPURL(cfg.Planner.URL), "planner.url must be an absolute http(s) URL"},
		{cfg.Planner.Timeout <= 0, "planner.timeout must be > 0"},
		{cfg.Planner.HealthTimeout <= 0, "planner.health_timeout must be > 0"},
		{cfg.Postgres.MaxConns < 1, "postgres.max_conns must be >= 1"},
		{cfg.Breaker.MaxFailures < 1, "breaker.max_failures must be >= 1"},
		{cfg.Rate.Burst < 1, "rate.burst must be >= 1"},
		{cfg.Rate.RequestsPerSecond <= 0, "rate.requests_per_second must be > 0"},
		{cfg.Rate.CleanupInterval <= 0, "rate.cleanup_interval must be > 0"},
		{cfg.Cache.L1MaxSizeMB < 1, "cache.l1_max_size_mb must be >= 1"},
		{cfg.Server.ShutdownTimeout <= 0, "server.shutdown_timeout must be > 0"},
	}
	for _, c := range checks {
		if c.bad {
			return errors.New(c.msg)
		}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
