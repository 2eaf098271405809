package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=720h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// CORSOrigins lists browser origins allowed to call the API and open the
	// realtime socket. "*" allows any origin.
	CORSOrigins []string `env:"CORS_ORIGINS, default=http://localhost:5173"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Realtime RealtimeConfig
	Admin    AdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=task_tracker"`
}

type RedisConfig struct {
	Enabled        bool          `env:"REDIS_ENABLED,   default=true"`
	Addr           string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// RealtimeConfig tunes notification fanout.
type RealtimeConfig struct {
	Workers          int    `env:"REALTIME_WORKERS,           default=4"`
	QueueBuffer      int    `env:"REALTIME_BUFFER,            default=256"`
	SubscriberBuffer int    `env:"REALTIME_SUBSCRIBER_BUFFER, default=64"`
	Channel          string `env:"REALTIME_CHANNEL,           default=tasks:notifications"`
}

// AdminConfig seeds an admin account at startup when Email is set.
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME, default=Administrator"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from an arbitrary lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.Admin.Email != "" && cfg.Admin.Password == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return &cfg, nil
}
