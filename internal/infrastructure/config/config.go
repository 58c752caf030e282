package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// EnvPrefix prefixes every environment override, e.g. CONNECTOR_JAMES_PASSWORD
const EnvPrefix = "CONNECTOR"

// Config holds all connector configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	James     JamesConfig
	Task      TaskConfig
	Journal   JournalConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-wide settings
type AppConfig struct {
	Name string `validate:"required"`
	Env  string `validate:"oneof=development testing staging production"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// JamesConfig points at the webadmin API of the destination
type JamesConfig struct {
	URL      string        `validate:"required,url"`
	Username string        `validate:"required"`
	Password string        `validate:"required"`
	Timeout  time.Duration `validate:"gt=0"`
}

// TaskConfig describes the synchronization task run by the connector
type TaskConfig struct {
	Name               string
	Service            string `validate:"oneof=alias contact"`
	Bean               string
	WritableAttributes []string
	UpdateMode         string `validate:"oneof=skip patch"`
	AliasAttribute     string
}

// JournalConfig holds the run journal database settings
type JournalConfig struct {
	Enabled         bool
	Driver          string `validate:"oneof=sqlite postgres"`
	DSN             string `validate:"required"`
	MaxOpenConns    int    `validate:"gt=0"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime int    // in minutes
	LogLevel        string // silent, error, warn, info
	SlowThreshold   time.Duration
}

// RedisConfig holds the pivot snapshot store settings
type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int `validate:"gt=0,lte=65535"`
	Password    string
	DB          int `validate:"gte=0"`
	SnapshotTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CONNECTOR_ prefix
// 2. the file at path, or connector.toml found in ., ./config or /etc/james-connector
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("connector")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/james-connector")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: reading config file: %w", directory.ErrConfiguration, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		James: JamesConfig{
			URL:      v.GetString("james.url"),
			Username: v.GetString("james.username"),
			Password: v.GetString("james.password"),
			Timeout:  v.GetDuration("james.timeout"),
		},
		Task: TaskConfig{
			Name:           v.GetString("task.name"),
			Service:        v.GetString("task.service"),
			Bean:           v.GetString("task.bean"),
			UpdateMode:     v.GetString("task.update_mode"),
			AliasAttribute: v.GetString("task.alias_attribute"),
		},
		Journal: JournalConfig{
			Enabled:         v.GetBool("journal.enabled"),
			Driver:          v.GetString("journal.driver"),
			DSN:             v.GetString("journal.dsn"),
			MaxOpenConns:    v.GetInt("journal.max_open_conns"),
			MaxIdleConns:    v.GetInt("journal.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("journal.conn_max_lifetime"),
			LogLevel:        v.GetString("journal.log_level"),
			SlowThreshold:   v.GetDuration("journal.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:     v.GetBool("redis.enabled"),
			Host:        v.GetString("redis.host"),
			Port:        v.GetInt("redis.port"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SnapshotTTL: v.GetDuration("redis.snapshot_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
	}
	// An absent list keeps the per-service default; an explicit empty list is honoured.
	if v.IsSet("task.writable_attributes") {
		cfg.Task.WritableAttributes = v.GetStringSlice("task.writable_attributes")
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", directory.ErrConfiguration, err)
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "james-connector"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.James.Timeout == 0 {
		cfg.James.Timeout = 30 * time.Second
	}
	if cfg.Task.Service == "" {
		cfg.Task.Service = "alias"
	}
	if cfg.Task.UpdateMode == "" {
		cfg.Task.UpdateMode = "skip"
	}
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = "sqlite"
	}
	if cfg.Journal.DSN == "" && cfg.Journal.Driver == "sqlite" {
		cfg.Journal.DSN = "connector.db"
	}
	if cfg.Journal.MaxOpenConns == 0 {
		cfg.Journal.MaxOpenConns = 5
	}
	if cfg.Journal.MaxIdleConns == 0 {
		cfg.Journal.MaxIdleConns = 2
	}
	if cfg.Journal.ConnMaxLifetime == 0 {
		cfg.Journal.ConnMaxLifetime = 30
	}
	if cfg.Journal.LogLevel == "" {
		cfg.Journal.LogLevel = "warn"
	}
	if cfg.Journal.SlowThreshold == 0 {
		cfg.Journal.SlowThreshold = 500 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.SnapshotTTL == 0 {
		cfg.Redis.SnapshotTTL = time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 15 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Journal.MaxIdleConns > c.Journal.MaxOpenConns {
		return fmt.Errorf("journal.max_idle_conns (%d) cannot exceed journal.max_open_conns (%d)",
			c.Journal.MaxIdleConns, c.Journal.MaxOpenConns)
	}

	if c.App.Env == "production" {
		u, err := url.Parse(c.James.URL)
		if err != nil || u.Scheme != "https" {
			return fmt.Errorf("james.url must use https in production")
		}
	}
	return nil
}

// IsProduction reports whether the connector runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
