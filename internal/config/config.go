package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Market       MarketConfig
	Payment      PaymentConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	Issuer                string
}

// MarketConfig holds registry policy.
type MarketConfig struct {
	MaxAssetsPerHolder int
	MinterIdentities   []string
	AdminIdentities    []string
	TreasuryIdentity   string
}

// PaymentConfig selects the value-transfer backend.
type PaymentConfig struct {
	Backend         string
	InitialBalances map[string]uint64
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	Channel    string
	WebhookURL string
	Workers    int
	QueueSize  int
}

const (
	PaymentBackendMemory = "memory"
	PaymentBackendRedis  = "redis"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	balances, err := parseBalances(os.Getenv("PAYMENT_INITIAL_BALANCES"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_INITIAL_BALANCES: %w", err)
	}

	backend := strings.ToLower(getEnv("PAYMENT_BACKEND", PaymentBackendMemory))
	if backend != PaymentBackendMemory && backend != PaymentBackendRedis {
		return nil, fmt.Errorf("invalid PAYMENT_BACKEND %q", backend)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "asset-marketplace"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			Issuer:                getEnv("AUTH_ISSUER", "asset-marketplace"),
		},
		Market: MarketConfig{
			MaxAssetsPerHolder: getEnvAsInt("MARKET_MAX_ASSETS_PER_HOLDER", 15),
			MinterIdentities:   getEnvAsList("MARKET_MINTER_IDENTITIES"),
			AdminIdentities:    getEnvAsList("MARKET_ADMIN_IDENTITIES"),
			TreasuryIdentity:   getEnv("MARKET_TREASURY_IDENTITY", "marketplace-treasury"),
		},
		Payment: PaymentConfig{
			Backend:         backend,
			InitialBalances: balances,
		},
		Notification: NotificationConfig{
			Channel:    getEnv("NOTIFY_CHANNEL", "marketplace.events"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Workers:    getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize:  getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const devJWTSecret = "dev-secret"

func (c *Config) validate() error {
	if c.Market.MaxAssetsPerHolder <= 0 {
		return fmt.Errorf("MARKET_MAX_ASSETS_PER_HOLDER must be positive, got %d", c.Market.MaxAssetsPerHolder)
	}
	if strings.TrimSpace(c.Market.TreasuryIdentity) == "" {
		return errors.New("MARKET_TREASURY_IDENTITY must not be empty")
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == devJWTSecret {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	if f := strings.ToLower(c.Logger.Format); f != "json" && f != "console" {
		return fmt.Errorf("invalid LOG_FORMAT %q", c.Logger.Format)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseBalances reads "identity=amount,identity=amount".
func parseBalances(raw string) (map[string]uint64, error) {
	balances := make(map[string]uint64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		identity, amount, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(identity) == "" {
			return nil, fmt.Errorf("malformed entry %q", pair)
		}
		v, err := strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", pair, err)
		}
		balances[strings.TrimSpace(identity)] = v
	}
	return balances, nil
}
