// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Overlay store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the full configuration of the server and the closure worker.
// Each binary reads the sections it needs.
type Config struct {
	Environment  string `env:"ENVIRONMENT" envDefault:"local"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	OverlayStore string `env:"OVERLAY_STORE" envDefault:"memory"`

	// SeedDemoData fills the in-memory stores at startup.
	SeedDemoData bool `env:"SEED_DEMO_DATA" envDefault:"false"`

	Server   Server
	Worker   Worker
	Partner  Partner
	Gates    Gates
	IdP      IdP
	Database Database
	Redis    Redis
	Kafka    Kafka
}

type Server struct {
	Addr            string        `env:"SERVER_ADDR" envDefault:":8080"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Worker configures the closure worker's probe and metrics listener.
type Worker struct {
	Addr            string        `env:"WORKER_ADDR" envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Partner configures the partner operator API.
type Partner struct {
	BaseURL            string        `env:"PARTNER_BASE_URL"`
	SessionListKey     string        `env:"PARTNER_KEY_SESSION_LIST"`
	SessionDetailKey   string        `env:"PARTNER_KEY_SESSION_DETAIL"`
	EnrollmentWriteKey string        `env:"PARTNER_KEY_ENROLLMENT_WRITE"`
	Timeout            time.Duration `env:"PARTNER_TIMEOUT" envDefault:"10s"`
	// RolloutDate is the earliest day listed when looking for sessions to close.
	RolloutDate time.Time `env:"PARTNER_ROLLOUT_DATE" envDefault:"2023-08-01T00:00:00Z"`
}

// Gates holds the partner quota per endpoint family.
type Gates struct {
	ListingCapacity int           `env:"GATE_LISTING_CAPACITY" envDefault:"20"`
	DetailCapacity  int           `env:"GATE_DETAIL_CAPACITY" envDefault:"20"`
	WriteCapacity   int           `env:"GATE_WRITE_CAPACITY" envDefault:"10"`
	Window          time.Duration `env:"GATE_WINDOW" envDefault:"1s"`
}

// IdP configures token exchange.
type IdP struct {
	IssuerURL    string        `env:"IDP_ISSUER_URL"`
	ClientID     string        `env:"IDP_CLIENT_ID"`
	ClientSecret string        `env:"IDP_CLIENT_SECRET"`
	Timeout      time.Duration `env:"IDP_TIMEOUT" envDefault:"5s"`
}

type Database struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type Redis struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Kafka is optional for the server: without brokers, closure jobs are only logged.
type Kafka struct {
	Brokers         string        `env:"KAFKA_BROKERS"`
	ClosureTopic    string        `env:"KAFKA_CLOSURE_TOPIC" envDefault:"sessions.closure-jobs"`
	GroupID         string        `env:"KAFKA_GROUP_ID" envDefault:"youthsessions-closure-worker"`
	Acks            string        `env:"KAFKA_ACKS" envDefault:"all"`
	Retries         int           `env:"KAFKA_RETRIES" envDefault:"3"`
	DeliveryTimeout time.Duration `env:"KAFKA_DELIVERY_TIMEOUT" envDefault:"10s"`
	AutoOffsetReset string        `env:"KAFKA_AUTO_OFFSET_RESET" envDefault:"earliest"`
}

// Enabled reports whether brokers are configured.
func (k Kafka) Enabled() bool { return k.Brokers != "" }

// FromEnv parses and validates the configuration.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.OverlayStore {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("OVERLAY_STORE=postgres requires DATABASE_URL")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("OVERLAY_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown OVERLAY_STORE %q", c.OverlayStore)
	}
	if c.Gates.ListingCapacity <= 0 || c.Gates.DetailCapacity <= 0 || c.Gates.WriteCapacity <= 0 {
		return fmt.Errorf("gate capacities must be positive")
	}
	if c.Gates.Window <= 0 {
		return fmt.Errorf("GATE_WINDOW must be positive")
	}
	return nil
}

// RequireServer checks the settings only the HTTP server needs.
func (c Config) RequireServer() error {
	switch {
	case c.Partner.BaseURL == "":
		return fmt.Errorf("PARTNER_BASE_URL is required")
	case c.IdP.IssuerURL == "" || c.IdP.ClientID == "":
		return fmt.Errorf("IDP_ISSUER_URL and IDP_CLIENT_ID are required")
	}
	return nil
}

// RequireWorker checks the settings only the closure worker needs.
func (c Config) RequireWorker() error {
	if !c.Kafka.Enabled() {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OverlayStore == StoreMemory {
		return fmt.Errorf("the closure worker needs a shared overlay store, got %q", c.OverlayStore)
	}
	return nil
}
