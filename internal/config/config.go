package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"SmartSplit"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"text"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		MaxUploadBytes  int64         `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"10485760"`
	}

	Store struct {
		Driver      string        `envconfig:"STORE_DRIVER" default:"file"`
		Path        string        `envconfig:"STORE_PATH" default:"data/smartsplit.json"`
		SaveTimeout time.Duration `envconfig:"STORE_SAVE_TIMEOUT" default:"10s"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"smartsplit"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD" default:""`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
		Key      string `envconfig:"REDIS_KEY" default:"smartsplit:snapshot"`
	}

	Ledger struct {
		DefaultCurrency     string          `envconfig:"LEDGER_DEFAULT_CURRENCY" default:"USD"`
		AutoSettleThreshold decimal.Decimal `envconfig:"LEDGER_AUTO_SETTLE_THRESHOLD" default:"1"`
		ReminderDays        int             `envconfig:"LEDGER_REMINDER_DAYS" default:"7"`
	}

	Auth struct {
		Secret   string        `envconfig:"AUTH_SECRET"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Settings are the ledger settings of a fresh snapshot.
func (c *Config) Settings() ledger.Settings {
	return ledger.Settings{
		DefaultCurrency:     strings.ToUpper(c.Ledger.DefaultCurrency),
		AutoSettleThreshold: c.Ledger.AutoSettleThreshold,
		ReminderDays:        c.Ledger.ReminderDays,
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Ledger.AutoSettleThreshold.IsNegative() {
		return fmt.Errorf("auto-settle threshold must not be negative")
	}

	if c.Ledger.ReminderDays < 0 {
		return fmt.Errorf("reminder days must not be negative")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
