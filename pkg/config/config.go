package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SCANTRACK"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Scanner   ScannerConfig
	Alerts    AlertsConfig
	Retention RetentionConfig
	Tracing   TracingConfig
	Admin     AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db dsn is required")
	}
	if c.Alerts.ThresholdHours <= 0 {
		return fmt.Errorf("alert threshold must be positive, got %d", c.Alerts.ThresholdHours)
	}
	if c.Scanner.SerialPort != "" && c.Scanner.SerialBaud <= 0 {
		return fmt.Errorf("serial baud rate must be positive, got %d", c.Scanner.SerialBaud)
	}
	return nil
}

type AppConfig struct {
	Env       string `envconfig:"SCANTRACK_APP_ENV" default:"dev"`
	LogLevel  string `envconfig:"SCANTRACK_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"SCANTRACK_LOG_FORMAT" default:"json"`
	HTTPAddr  string `envconfig:"SCANTRACK_HTTP_ADDR" default:"127.0.0.1:7420"`
}

type DBConfig struct {
	Driver string `envconfig:"SCANTRACK_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"SCANTRACK_DB_DSN" default:"data/inventory.db"`

	MaxOpenConns    int           `envconfig:"SCANTRACK_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"SCANTRACK_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"SCANTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
}

// RedisConfig is optional; an empty URL disables the notification relay and the shared cron lock.
type RedisConfig struct {
	URL         string        `envconfig:"SCANTRACK_REDIS_URL"`
	Channel     string        `envconfig:"SCANTRACK_REDIS_CHANNEL" default:"scantrack:notifications"`
	DialTimeout time.Duration `envconfig:"SCANTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type ScannerConfig struct {
	TriggerBarcode string `envconfig:"SCANTRACK_TRIGGER_BARCODE" default:"SCAN_START"`
	// KeyboardSource is "terminal" (raw stdin) or "none".
	KeyboardSource     string        `envconfig:"SCANTRACK_KEYBOARD_SOURCE" default:"none"`
	SerialPort         string        `envconfig:"SCANTRACK_SERIAL_PORT"`
	SerialBaud         int           `envconfig:"SCANTRACK_SERIAL_BAUD" default:"9600"`
	SerialPollInterval time.Duration `envconfig:"SCANTRACK_SERIAL_POLL_INTERVAL" default:"50ms"`
}

type AlertsConfig struct {
	ThresholdHours int           `envconfig:"SCANTRACK_ALERT_THRESHOLD_HOURS" default:"24"`
	CheckInterval  time.Duration `envconfig:"SCANTRACK_ALERT_CHECK_INTERVAL" default:"1h"`
	AuditInterval  time.Duration `envconfig:"SCANTRACK_LEDGER_AUDIT_INTERVAL" default:"6h"`
}

type RetentionConfig struct {
	DaysToKeep   int           `envconfig:"SCANTRACK_RETENTION_DAYS" default:"30"`
	Interval     time.Duration `envconfig:"SCANTRACK_RETENTION_INTERVAL" default:"24h"`
	RunOnStartup bool          `envconfig:"SCANTRACK_RETENTION_ON_STARTUP" default:"true"`
}

type TracingConfig struct {
	OTLPEndpoint string `envconfig:"SCANTRACK_OTLP_ENDPOINT"`
	Insecure     bool   `envconfig:"SCANTRACK_OTLP_INSECURE" default:"true"`
	ServiceName  string `envconfig:"SCANTRACK_SERVICE_NAME" default:"scantrack"`
}

type AdminConfig struct {
	// InitialPIN seeds the admin PIN hash when none is stored yet.
	InitialPIN string `envconfig:"SCANTRACK_ADMIN_PIN"`
}
