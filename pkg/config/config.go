package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is empty because the envconfig tags carry fully-qualified names.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App                 AppConfig
	Service             ServiceConfig
	DB                  DBConfig
	Redis               RedisConfig
	JWT                 JWTConfig
	ActivationRateLimit ActivationRateLimitConfig
	FeatureFlags        FeatureFlagsConfig
	GCP                 GCPConfig
	PubSub              PubSubConfig
	Outbox              OutboxConfig
	Sweep               SweepConfig
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
	Env          string `envconfig:"FREELANCEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"FREELANCEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FREELANCEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FREELANCEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FREELANCEHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FREELANCEHUB_DB_DSN"`
	Driver string `envconfig:"FREELANCEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FREELANCEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"FREELANCEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FREELANCEHUB_DB_USER"`
	LegacyPassword string `envconfig:"FREELANCEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"FREELANCEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"FREELANCEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FREELANCEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FREELANCEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FREELANCEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FREELANCEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a Postgres DSN from the discrete host/user fields when
// FREELANCEHUB_DB_DSN is not provided directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("database configuration incomplete: set FREELANCEHUB_DB_DSN or host/user/name")
	}
	userInfo := url.User(d.LegacyUser)
	if d.LegacyPassword != "" {
		userInfo = url.UserPassword(d.LegacyUser, d.LegacyPassword)
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:     d.LegacyName,
		RawQuery: url.Values{"sslmode": []string{d.LegacySSLMode}}.Encode(),
	}
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FREELANCEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FREELANCEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"FREELANCEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"FREELANCEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FREELANCEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FREELANCEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FREELANCEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FREELANCEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FREELANCEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FREELANCEHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FREELANCEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FREELANCEHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FREELANCEHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// ActivationRateLimitConfig bounds license redemption attempts. License keys
// are guessable strings, so activation carries the same fixed-window guard a
// login endpoint would.
type ActivationRateLimitConfig struct {
	Window    time.Duration `envconfig:"FREELANCEHUB_ACTIVATION_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit int           `envconfig:"FREELANCEHUB_ACTIVATION_RATE_LIMIT_USER_LIMIT" default:"5"`
	IPLimit   int           `envconfig:"FREELANCEHUB_ACTIVATION_RATE_LIMIT_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FREELANCEHUB_FEATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FREELANCEHUB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"FREELANCEHUB_PUBSUB_DOMAIN_TOPIC" default:"freelancehub-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"FREELANCEHUB_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"FREELANCEHUB_OUTBOX_POLL_INTERVAL" default:"500ms"`
	PublishTimeout time.Duration `envconfig:"FREELANCEHUB_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"FREELANCEHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SweepConfig struct {
	Interval    time.Duration `envconfig:"FREELANCEHUB_SWEEP_INTERVAL" default:"24h"`
	MetricsPort string        `envconfig:"FREELANCEHUB_SWEEP_METRICS_PORT" default:"9091"`
}
