package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Broker     BrokerConfig     `yaml:"broker"`
	Database   DatabaseConfig   `yaml:"database"`
	Lookup     LookupConfig     `yaml:"lookup"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// BrokerConfig holds the Kafka subscription settings.
type BrokerConfig struct {
	Brokers        []string      `yaml:"brokers" validate:"required,min=1,dive,required"`
	Topic          string        `yaml:"topic" validate:"required"`
	Group          string        `yaml:"group" validate:"required"`
	OffsetReset    string        `yaml:"offset_reset" validate:"oneof=latest earliest"`
	TLS            bool          `yaml:"tls"`
	SASL           SASLConfig    `yaml:"sasl"`
	PollTimeoutMS  int           `yaml:"poll_timeout_ms"`
	PollTimeout    time.Duration `yaml:"-"`
	MaxPollRecords int           `yaml:"max_poll_records" validate:"gte=1"`
}

// SASLConfig holds broker credentials. An empty mechanism disables SASL.
type SASLConfig struct {
	Mechanism string `yaml:"mechanism" validate:"omitempty,oneof=PLAIN"`
	Username  string `yaml:"username" validate:"required_with=Mechanism"`
	Password  string `yaml:"password" validate:"required_with=Mechanism"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// LookupConfig controls how long the rating lookup is trusted before reloading.
// Zero means the table is loaded once per run.
type LookupConfig struct {
	RefreshSeconds int           `yaml:"refresh_seconds" validate:"gte=0"`
	Refresh        time.Duration `yaml:"-"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
	File   string `yaml:"file"`
}

// ServerConfig holds the operational HTTP server configuration.
type ServerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Port            int     `yaml:"port" validate:"gte=1,lte=65535"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// PushConfig holds the VAPID keys for staff web push alerts.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key" validate:"required_if=Enabled true"`
	PrivateKey string `yaml:"vapid_private_key" validate:"required_if=Enabled true"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size" validate:"gte=1"`
	QueueSize int `yaml:"queue_size" validate:"gte=1"`
}

// Load reads the configuration from the given path, applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags on cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Broker.Topic == "" {
		cfg.Broker.Topic = "lmnh"
	}
	if cfg.Broker.Group == "" {
		cfg.Broker.Group = "museum-data-consumer-group"
	}
	if cfg.Broker.OffsetReset == "" {
		cfg.Broker.OffsetReset = "latest"
	}
	if cfg.Broker.PollTimeoutMS <= 0 {
		cfg.Broker.PollTimeoutMS = 1000
	}
	cfg.Broker.PollTimeout = time.Duration(cfg.Broker.PollTimeoutMS) * time.Millisecond
	if cfg.Broker.MaxPollRecords <= 0 {
		cfg.Broker.MaxPollRecords = 100
	}

	cfg.Lookup.Refresh = time.Duration(cfg.Lookup.RefreshSeconds) * time.Second

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9100
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
}

// applyEnv overlays credentials from the environment on top of the file.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("KAFKA_SERVER"); ok && v != "" {
		cfg.Broker.Brokers = strings.Split(v, ",")
	}
	if v, ok := lookup("SASL_USERNAME"); ok && v != "" {
		cfg.Broker.SASL.Username = v
		// Credentials from the environment mean a SASL_SSL listener.
		if cfg.Broker.SASL.Mechanism == "" {
			cfg.Broker.SASL.Mechanism = "PLAIN"
		}
		cfg.Broker.TLS = true
	}
	if v, ok := lookup("SASL_PASSWORD"); ok && v != "" {
		cfg.Broker.SASL.Password = v
	}

	if v, ok := lookup("DATABASE_DSN"); ok && v != "" {
		cfg.Database.DSN = v
		return
	}
	host, ok := lookup("DATABASE_URL")
	if !ok || host == "" {
		return
	}
	port, _ := lookup("DATABASE_PORT")
	if port == "" {
		port = "5432"
	}
	name, _ := lookup("DATABASE_NAME")
	user, _ := lookup("DATABASE_USERNAME")
	pass, _ := lookup("DATABASE_PASSWORD")

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + name,
	}
	cfg.Database.DSN = dsn.String()
}
