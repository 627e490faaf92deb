package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// StoreDriver selects the document store: "mongo" or "memory".
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	Auth  AuthConfig
	Pool  PoolConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET, required"`
	// JWTTTLMillis is the token lifetime in milliseconds.
	JWTTTLMillis int64 `env:"JWT_TTL_MS,  default=86400000"`
	BcryptCost   int   `env:"BCRYPT_COST, default=10"`
	// ResolvePrincipal re-reads the user record on every authenticated
	// request instead of trusting the token claims.
	ResolvePrincipal  bool          `env:"AUTH_RESOLVE_PRINCIPAL, default=true"`
	PrincipalCacheTTL time.Duration `env:"PRINCIPAL_CACHE_TTL,    default=30s"`
}

// TokenTTL returns JWTTTLMillis as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWTTTLMillis) * time.Millisecond
}

// PoolConfig sizes the shared repository worker pool. Storage calls spend
// nearly all their time waiting on the network, so the pool is sized well
// above the CPU count. Lower the multiplier when the store is local or
// CPU-bound.
type PoolConfig struct {
	CPUMultiplier int `env:"POOL_CPU_MULTIPLIER, default=50"`
	QueueSize     int `env:"POOL_QUEUE_SIZE,     default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=decks"`
}

type RedisConfig struct {
	Enabled bool   `env:"REDIS_ENABLED, default=false"`
	Addr    string `env:"REDIS_ADDR,    default=localhost:6379"`
	DB      int    `env:"REDIS_DB,      default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Auth.JWTTTLMillis <= 0 {
		return errors.New("JWT_TTL_MS must be positive")
	}
	if c.Pool.CPUMultiplier <= 0 {
		return errors.New("POOL_CPU_MULTIPLIER must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }
