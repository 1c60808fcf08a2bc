package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GoogleMaps   GoogleMapsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Marketplace  MarketplaceConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"LOCALDROP_APP_ENV" required:"true"`
	Port         string   `envconfig:"LOCALDROP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"LOCALDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"LOCALDROP_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"LOCALDROP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOCALDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LOCALDROP_DB_DSN"`
	Driver string `envconfig:"LOCALDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOCALDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"LOCALDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOCALDROP_DB_USER"`
	LegacyPassword string `envconfig:"LOCALDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOCALDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOCALDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOCALDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOCALDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOCALDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOCALDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOCALDROP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOCALDROP_REDIS_ADDR"`
	Password     string        `envconfig:"LOCALDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOCALDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOCALDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOCALDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOCALDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOCALDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOCALDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"LOCALDROP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LOCALDROP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LOCALDROP_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOCALDROP_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"LOCALDROP_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"LOCALDROP_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LOCALDROP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LOCALDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LOCALDROP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"LOCALDROP_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationTopic string `envconfig:"LOCALDROP_PUBSUB_NOTIFICATION_TOPIC" default:"ld-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LOCALDROP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LOCALDROP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LOCALDROP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"LOCALDROP_STRIPE_API_KEY"`
	Secret   string `envconfig:"LOCALDROP_STRIPE_SECRET"`
	Env      string `envconfig:"LOCALDROP_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"LOCALDROP_STRIPE_CURRENCY" default:"eur"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// MarketplaceConfig holds the pricing and timing knobs of the delivery pipeline.
type MarketplaceConfig struct {
	Timezone                 string        `envconfig:"LOCALDROP_MARKETPLACE_TIMEZONE" default:"Europe/Paris"`
	PlatformFeeBPS           int64         `envconfig:"LOCALDROP_PLATFORM_FEE_BPS" default:"800"`
	StaleOrderTTL            time.Duration `envconfig:"LOCALDROP_STALE_ORDER_TTL" default:"20m"`
	AuthorizationConcurrency int           `envconfig:"LOCALDROP_AUTHORIZATION_CONCURRENCY" default:"4"`
}

// Location resolves the marketplace time zone used for time-slot tagging.
func (m MarketplaceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(m.Timezone))
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

func (m MarketplaceConfig) validate() error {
	if m.PlatformFeeBPS < 0 || m.PlatformFeeBPS > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000", EnvPlatformFeeBPS)
	}
	if m.StaleOrderTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvStaleOrderTTL)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LOCALDROP_CRON_INTERVAL" default:"2m"`
	LockTTL  time.Duration `envconfig:"LOCALDROP_CRON_LOCK_TTL" default:"5m"`
}

// RateLimitConfig throttles the checkout surface per principal.
type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"LOCALDROP_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"LOCALDROP_RATE_LIMIT_CHECKOUT_LIMIT" default:"30"`
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
