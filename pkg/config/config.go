package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	BTCPay       BTCPayConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRYPTOCART_APP_ENV" required:"true"`
	Port         string `envconfig:"CRYPTOCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRYPTOCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRYPTOCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CRYPTOCART_DB_DSN"`
	Driver string `envconfig:"CRYPTOCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRYPTOCART_DB_HOST"`
	LegacyPort     int    `envconfig:"CRYPTOCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRYPTOCART_DB_USER"`
	LegacyPassword string `envconfig:"CRYPTOCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRYPTOCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRYPTOCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRYPTOCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRYPTOCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRYPTOCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRYPTOCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRYPTOCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRYPTOCART_REDIS_ADDR"`
	Password     string        `envconfig:"CRYPTOCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRYPTOCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRYPTOCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRYPTOCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRYPTOCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRYPTOCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRYPTOCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BTCPayConfig carries the shared webhook secret. The secret is required, so a
// misconfigured process fails at startup instead of silently rejecting every
// delivery at request time.
type BTCPayConfig struct {
	WebhookSecret string `envconfig:"CRYPTOCART_BTCPAY_WEBHOOK_SECRET" required:"true"`
}

// SigningSecret returns the shared secret used to verify delivery signatures.
// The value must never be logged.
func (b BTCPayConfig) SigningSecret() string {
	return b.WebhookSecret
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CRYPTOCART_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CRYPTOCART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
