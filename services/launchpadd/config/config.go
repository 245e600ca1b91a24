package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	lpconfig "launchpad/config"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for launchpadd.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	Environment   string          `yaml:"environment"`
	Database      DatabaseConfig  `yaml:"database"`
	Journal       JournalConfig   `yaml:"journal"`
	Admin         AdminConfig     `yaml:"admin"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Policy        lpconfig.Global `yaml:"policy"`
	Genesis       []GenesisCredit `yaml:"genesis"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Log           LogConfig       `yaml:"log"`
	Timeouts      TimeoutConfig   `yaml:"timeouts"`
	CORS          CORSConfig      `yaml:"cors"`
	Stream        StreamConfig    `yaml:"stream"`
}

// DatabaseConfig selects the ledger backend.
type DatabaseConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// JournalConfig points at the relational operation journal. A postgres://
// DSN selects Postgres; anything else is treated as a SQLite path.
type JournalConfig struct {
	DSN string `yaml:"dsn"`
}

// AdminConfig secures the administrative endpoints.
type AdminConfig struct {
	JWTSecret    string   `yaml:"jwt_secret"`
	JWTSecretEnv string   `yaml:"jwt_secret_env"`
	Issuer       string   `yaml:"issuer"`
	Audience     string   `yaml:"audience"`
	ClockSkew    Duration `yaml:"clock_skew"`
}

// RateLimitConfig bounds request throughput per client.
type RateLimitConfig struct {
	OperationsPerSecond float64 `yaml:"operations_rps"`
	OperationsBurst     int     `yaml:"operations_burst"`
	QueriesPerSecond    float64 `yaml:"queries_rps"`
	QueriesBurst        int     `yaml:"queries_burst"`
}

// GenesisCredit funds an account when the daemon first starts.
type GenesisCredit struct {
	Address string `yaml:"address"`
	Asset   string `yaml:"asset"`
	Amount  uint64 `yaml:"amount"`
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Metrics  bool   `yaml:"metrics"`
	Traces   bool   `yaml:"traces"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	Headers  string `yaml:"headers"`
	// SampleRatio is the fraction of root spans kept; zero keeps all.
	SampleRatio    float64  `yaml:"sample_ratio"`
	MetricInterval Duration `yaml:"metric_interval"`
}

// LogConfig tunes structured logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TimeoutConfig bounds HTTP server phases.
type TimeoutConfig struct {
	Read     Duration `yaml:"read"`
	Write    Duration `yaml:"write"`
	Idle     Duration `yaml:"idle"`
	Shutdown Duration `yaml:"shutdown"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StreamConfig tunes the event websocket.
type StreamConfig struct {
	Buffer       int      `yaml:"buffer"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// JWTSecret resolves the admin signing secret, preferring the environment.
func (c Config) JWTSecret() string {
	if env := strings.TrimSpace(c.Admin.JWTSecretEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.Admin.JWTSecret)
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7081"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "leveldb"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/data/launchpad/ledger"
	}
	if cfg.Journal.DSN == "" {
		cfg.Journal.DSN = "/var/data/launchpad/journal.sqlite"
	}
	if cfg.Admin.Issuer == "" {
		cfg.Admin.Issuer = "launchpadd"
	}
	if cfg.Admin.Audience == "" {
		cfg.Admin.Audience = "launchpad-admin"
	}
	if cfg.Admin.ClockSkew.Duration == 0 {
		cfg.Admin.ClockSkew.Duration = 30 * time.Second
	}
	if cfg.RateLimit.OperationsPerSecond == 0 {
		cfg.RateLimit.OperationsPerSecond = 5
	}
	if cfg.RateLimit.OperationsBurst == 0 {
		cfg.RateLimit.OperationsBurst = 10
	}
	if cfg.RateLimit.QueriesPerSecond == 0 {
		cfg.RateLimit.QueriesPerSecond = 50
	}
	if cfg.RateLimit.QueriesBurst == 0 {
		cfg.RateLimit.QueriesBurst = 100
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4318"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Timeouts.Read.Duration == 0 {
		cfg.Timeouts.Read.Duration = 10 * time.Second
	}
	if cfg.Timeouts.Write.Duration == 0 {
		cfg.Timeouts.Write.Duration = 15 * time.Second
	}
	if cfg.Timeouts.Idle.Duration == 0 {
		cfg.Timeouts.Idle.Duration = time.Minute
	}
	if cfg.Timeouts.Shutdown.Duration == 0 {
		cfg.Timeouts.Shutdown.Duration = 10 * time.Second
	}
	if cfg.Stream.Buffer <= 0 {
		cfg.Stream.Buffer = 64
	}
	if cfg.Stream.WriteTimeout.Duration == 0 {
		cfg.Stream.WriteTimeout.Duration = 5 * time.Second
	}
}

func validate(cfg Config) error {
	switch strings.ToLower(cfg.Database.Backend) {
	case "memory", "leveldb", "bolt":
	default:
		return fmt.Errorf("database backend %q not supported", cfg.Database.Backend)
	}
	if cfg.RateLimit.OperationsPerSecond < 0 || cfg.RateLimit.QueriesPerSecond < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample_ratio must be within [0,1]")
	}
	for i, credit := range cfg.Genesis {
		if strings.TrimSpace(credit.Address) == "" {
			return fmt.Errorf("genesis[%d]: address required", i)
		}
		if strings.TrimSpace(credit.Asset) == "" {
			return fmt.Errorf("genesis[%d]: asset required", i)
		}
	}
	if err := lpconfig.ValidateConfig(cfg.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}
