package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/learntracker/learntracker/pkg/observability"
	"github.com/learntracker/learntracker/pkg/storage"
)

// EnvPrefix prefixes every LearnTracker environment variable
const EnvPrefix = "LEARNTRACKER_"

const (
	// ConfigFileEnv names the optional YAML configuration file
	ConfigFileEnv = EnvPrefix + "CONFIG_FILE"
	// EnvFileEnv names the dotenv file; defaults to .env in the working directory
	EnvFileEnv = EnvPrefix + "ENV_FILE"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage storage.Config `yaml:"database"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// Analytics configuration
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Addr returns host:port for http.Server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsRefreshSchedule string `yaml:"metrics_refresh_schedule"` // cron spec, empty disables

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel returns the OpenTelemetry bootstrap settings
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
	}
}

// AnalyticsConfig holds the simulated latency of the slow analytics paths
type AnalyticsConfig struct {
	CourseAnalyticsLatency time.Duration `yaml:"course_analytics_latency"`
	StudentProgressLatency time.Duration `yaml:"student_progress_latency"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:               "info",
			MetricsRefreshSchedule: "@every 15s",
			OTelEnabled:            false,
			OTelEndpoint:           "localhost:4317",
			OTelServiceName:        observability.ServiceName,
			OTelServiceVersion:     "1.0.0",
			OTelInsecure:           true,
		},
		Analytics: AnalyticsConfig{
			CourseAnalyticsLatency: 100 * time.Millisecond,
			StudentProgressLatency: 50 * time.Millisecond,
		},
	}
}

// LoadConfig builds the configuration. Later sources win:
// defaults, the dotenv file, the YAML file, then the process environment.
func LoadConfig() (*Config, error) {
	cfg := Default()

	envFile := getEnv(EnvFileEnv, ".env")
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	if err := cfg.applyEnv(mapLookup(dotenv)); err != nil {
		return nil, fmt.Errorf("invalid value in %s: %w", envFile, err)
	}

	if path := getEnv(ConfigFileEnv, ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile overlays the keys present in a YAML file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// lookupFunc reads one variable; os.LookupEnv is the usual source
type lookupFunc func(key string) (string, bool)

func mapLookup(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// applyEnv overrides every field whose variable is set and non-empty
func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	// Server
	e.setString(EnvPrefix+"HOST", &c.Server.Host)
	e.setString(EnvPrefix+"PORT", &c.Server.Port)
	e.setDuration(EnvPrefix+"READ_TIMEOUT", &c.Server.ReadTimeout)
	e.setDuration(EnvPrefix+"WRITE_TIMEOUT", &c.Server.WriteTimeout)
	e.setDuration(EnvPrefix+"IDLE_TIMEOUT", &c.Server.IdleTimeout)
	e.setDuration(EnvPrefix+"SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	e.setList(EnvPrefix+"CORS_ORIGINS", &c.Server.CORSOrigins)
	e.setInt64(EnvPrefix+"MAX_BODY_BYTES", &c.Server.MaxBodyBytes)

	// Database
	e.setString(EnvPrefix+"DATABASE_TYPE", &c.Storage.Type)
	if !e.setString(EnvPrefix+"DATABASE_URL", &c.Storage.PostgresURL) {
		if dsn, ok := postgresURLFromParts(lookup); ok {
			c.Storage.PostgresURL = dsn
		}
	}
	e.setString(EnvPrefix+"DATABASE_REPLICA_URLS", &c.Storage.PostgresReplicaURLs)
	e.setInt(EnvPrefix+"DATABASE_MAX_CONNS", &c.Storage.PostgresMaxConns)
	e.setInt(EnvPrefix+"DATABASE_MIN_CONNS", &c.Storage.PostgresMinConns)
	e.setDuration(EnvPrefix+"DATABASE_TIMEOUT", &c.Storage.PostgresTimeout)
	e.setBool(EnvPrefix+"DATABASE_AUTO_MIGRATE", &c.Storage.AutoMigrate)
	e.setDuration(EnvPrefix+"DATABASE_REPLICA_HEALTH_INTERVAL", &c.Storage.ReplicaHealthInterval)

	// Observability
	e.setString(EnvPrefix+"LOG_LEVEL", &c.Observability.LogLevel)
	e.setString(EnvPrefix+"METRICS_REFRESH_SCHEDULE", &c.Observability.MetricsRefreshSchedule)
	e.setBool(EnvPrefix+"OTEL_ENABLED", &c.Observability.OTelEnabled)
	e.setString(EnvPrefix+"OTEL_ENDPOINT", &c.Observability.OTelEndpoint)
	e.setString(EnvPrefix+"OTEL_SERVICE_NAME", &c.Observability.OTelServiceName)
	e.setString(EnvPrefix+"OTEL_SERVICE_VERSION", &c.Observability.OTelServiceVersion)
	e.setBool(EnvPrefix+"OTEL_INSECURE", &c.Observability.OTelInsecure)

	// Analytics
	e.setDuration(EnvPrefix+"COURSE_ANALYTICS_LATENCY", &c.Analytics.CourseAnalyticsLatency)
	e.setDuration(EnvPrefix+"STUDENT_PROGRESS_LATENCY", &c.Analytics.StudentProgressLatency)

	return errors.Join(e.errs...)
}

// postgresURLFromParts builds a DSN from POSTGRES_USER, POSTGRES_PASSWORD,
// POSTGRES_HOST, POSTGRES_PORT and POSTGRES_DB when at least one is set
func postgresURLFromParts(lookup lookupFunc) (string, bool) {
	parts := map[string]string{
		"POSTGRES_USER":     "postgres",
		"POSTGRES_PASSWORD": "postgres",
		"POSTGRES_HOST":     "localhost",
		"POSTGRES_PORT":     "5432",
		"POSTGRES_DB":       "learntracker",
	}
	found := false
	for key := range parts {
		if v, ok := lookup(key); ok && v != "" {
			parts[key] = v
			found = true
		}
	}
	if !found {
		return "", false
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(parts["POSTGRES_USER"], parts["POSTGRES_PASSWORD"]),
		Host:     parts["POSTGRES_HOST"] + ":" + parts["POSTGRES_PORT"],
		Path:     "/" + parts["POSTGRES_DB"],
		RawQuery: "sslmode=disable",
	}
	return u.String(), true
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case storage.TypeMemory:
	case storage.TypePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
		if c.Storage.PostgresMaxConns <= 0 {
			return fmt.Errorf("postgres max connections must be positive")
		}
		if c.Storage.PostgresMinConns > c.Storage.PostgresMaxConns {
			return fmt.Errorf("postgres min connections (%d) exceeds max connections (%d)",
				c.Storage.PostgresMinConns, c.Storage.PostgresMaxConns)
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be postgres or memory)", c.Storage.Type)
	}

	// Validate metrics refresh schedule
	if spec := c.Observability.MetricsRefreshSchedule; spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid metrics refresh schedule %q: %w", spec, err)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if c.Analytics.CourseAnalyticsLatency < 0 || c.Analytics.StudentProgressLatency < 0 {
		return fmt.Errorf("simulated analytics latency must not be negative")
	}

	return nil
}

// envReader applies variables onto config fields and collects parse errors
type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (e *envReader) setString(key string, dst *string) bool {
	value, ok := e.get(key)
	if ok {
		*dst = value
	}
	return ok
}

func (e *envReader) setList(key string, dst *[]string) {
	value, ok := e.get(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func (e *envReader) setBool(key string, dst *bool) {
	if value, ok := e.get(key); ok {
		*dst = strings.ToLower(value) == "true" || value == "1"
	}
}

func (e *envReader) setInt(key string, dst *int) {
	if value, ok := e.get(key); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) setInt64(key string, dst *int64) {
	if value, ok := e.get(key); ok {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	if value, ok := e.get(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
