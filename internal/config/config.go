package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "STOREFRONT_"

const (
	MinPollInterval = 5 * time.Second
	MaxPollInterval = 30 * time.Second
)

type HTTP struct {
	Port               string        `koanf:"port"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
	MaxRequestBodySize int64         `koanf:"max_body"`
}

type Database struct {
	Driver         string `koanf:"driver"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	User           string `koanf:"user"`
	Password       string `koanf:"password"`
	Name           string `koanf:"name"`
	SQLitePath     string `koanf:"sqlite_path"`
	MigrationsPath string `koanf:"migrations_path"`
}

type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type Mongo struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

type Auth struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type Offers struct {
	MaxAmount       float64       `koanf:"max_amount"`
	ReservationTTL  time.Duration `koanf:"reservation_ttl"`
	SubmitPerMinute int           `koanf:"submit_per_minute"`
	EventTick       time.Duration `koanf:"event_tick"`
	RecoveryTick    time.Duration `koanf:"recovery_tick"`
}

type Notifications struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	PerKindLimit int           `koanf:"per_kind_limit"`
	FeedLimit    int           `koanf:"feed_limit"`
}

type Provider struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type Payments struct {
	Redirect    Provider `koanf:"redirect"`
	Capture     Provider `koanf:"capture"`
	SuccessURL  string   `koanf:"success_url"`
	CancelURL   string   `koanf:"cancel_url"`
	MaxFailures uint32   `koanf:"max_failures"`
	// Sandbox serves both providers in-process; base URLs are ignored.
	Sandbox bool `koanf:"sandbox"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Config struct {
	HTTP          HTTP          `koanf:"http"`
	Database      Database      `koanf:"database"`
	Redis         Redis         `koanf:"redis"`
	Mongo         Mongo         `koanf:"mongo"`
	Kafka         Kafka         `koanf:"kafka"`
	Auth          Auth          `koanf:"auth"`
	Offers        Offers        `koanf:"offers"`
	Notifications Notifications `koanf:"notifications"`
	Payments      Payments      `koanf:"payments"`
	Log           Log           `koanf:"log"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"http.port":             "8080",
		"http.request_timeout":  "30s",
		"http.shutdown_timeout": "10s",
		"http.max_body":         1 << 20,

		"database.driver":          repository.DriverPostgres,
		"database.host":            "localhost",
		"database.port":            5432,
		"database.user":            "postgres",
		"database.password":        "postgres",
		"database.name":            "storefront",
		"database.sqlite_path":     ":memory:",
		"database.migrations_path": "./internal/repository/migrations",

		"redis.addr": "localhost:6379",
		"redis.db":   0,

		"mongo.uri":      "mongodb://localhost:27017",
		"mongo.database": "storefront",

		"kafka.brokers":  []string{"localhost:9092"},
		"kafka.topic":    "offer-events",
		"kafka.group_id": "storefront-reservation-cache",

		"auth.token_ttl": "2h",

		"offers.max_amount":        99999.0,
		"offers.reservation_ttl":   "48h",
		"offers.submit_per_minute": 10,
		"offers.event_tick":        "2s",
		"offers.recovery_tick":     "1m",

		"notifications.poll_interval":  "15s",
		"notifications.per_kind_limit": 5,
		"notifications.feed_limit":     10,

		"payments.redirect.timeout": "10s",
		"payments.capture.timeout":  "10s",
		"payments.success_url":      "http://localhost:3000/checkout/success",
		"payments.cancel_url":       "http://localhost:3000/checkout/cancel",
		"payments.max_failures":     5,
		"payments.sandbox":          true,

		"log.level":  "info",
		"log.format": "json",
	}
}

// Load layers defaults, the optional TOML file and STOREFRONT_ environment variables, in that
// order. A double underscore separates sections: STOREFRONT_HTTP__PORT sets http.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Notifications.PollInterval = ClampPollInterval(cfg.Notifications.PollInterval)
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// ClampPollInterval keeps the notification refresh between MinPollInterval and MaxPollInterval.
func ClampPollInterval(d time.Duration) time.Duration {
	switch {
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	}
	return d
}

func (c *Config) Credentials() *repository.Credentials {
	return &repository.Credentials{
		Driver:            c.Database.Driver,
		Host:              c.Database.Host,
		Port:              c.Database.Port,
		User:              c.Database.User,
		Password:          c.Database.Password,
		DBName:            c.Database.Name,
		SQLitePath:        c.Database.SQLitePath,
		MigrationsDirPath: c.Database.MigrationsPath,
	}
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	switch c.Database.Driver {
	case repository.DriverPostgres, repository.DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if !c.Payments.Sandbox && (c.Payments.Redirect.BaseURL == "" || c.Payments.Capture.BaseURL == "") {
		return fmt.Errorf("payments.redirect.base_url and payments.capture.base_url are required outside sandbox mode")
	}
	return nil
}
