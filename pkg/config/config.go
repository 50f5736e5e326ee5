package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

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
	Routing      RoutingConfig
	Square       SquareConfig
	Delivery     DeliveryConfig
	Stream       StreamConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DROPPOINT_APP_ENV" required:"true"`
	Port         string `envconfig:"DROPPOINT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DROPPOINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DROPPOINT_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is comma separated; empty falls back to local dev origins.
	CORSOrigins []string `envconfig:"DROPPOINT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DROPPOINT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DROPPOINT_DB_DSN"`
	Driver string `envconfig:"DROPPOINT_DB_DRIVER" default:"postgres"`

	// Host and friends are only read when DSN is empty.
	Host     string `envconfig:"DROPPOINT_DB_HOST"`
	Port     int    `envconfig:"DROPPOINT_DB_PORT" default:"5432"`
	User     string `envconfig:"DROPPOINT_DB_USER"`
	Password string `envconfig:"DROPPOINT_DB_PASSWORD"`
	Name     string `envconfig:"DROPPOINT_DB_NAME"`
	SSLMode  string `envconfig:"DROPPOINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DROPPOINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DROPPOINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DROPPOINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DROPPOINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"DROPPOINT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DROPPOINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DROPPOINT_REDIS_ADDR"`
	Password     string        `envconfig:"DROPPOINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"DROPPOINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DROPPOINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DROPPOINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DROPPOINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DROPPOINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DROPPOINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only carries what is needed to verify tokens minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"DROPPOINT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"DROPPOINT_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DROPPOINT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"DROPPOINT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	LiveChannel          string        `envconfig:"DROPPOINT_EVENTING_LIVE_CHANNEL" default:"dp:order-events"`
}

// RoutingConfig configures the road-distance and reverse geocoding provider.
type RoutingConfig struct {
	APIKey  string        `envconfig:"DROPPOINT_ROUTING_API_KEY"`
	BaseURL string        `envconfig:"DROPPOINT_ROUTING_BASE_URL" default:"https://maps.googleapis.com"`
	Timeout time.Duration `envconfig:"DROPPOINT_ROUTING_TIMEOUT" default:"4s"`
	// MaxPlausibleKm bounds routed distances; anything above falls back to haversine.
	MaxPlausibleKm float64 `envconfig:"DROPPOINT_ROUTING_MAX_PLAUSIBLE_KM" default:"500"`
}

// Enabled reports whether a routing provider is configured at all.
func (r RoutingConfig) Enabled() bool {
	return strings.TrimSpace(r.APIKey) != ""
}

type SquareConfig struct {
	Env           string        `envconfig:"DROPPOINT_SQUARE_ENV" default:"sandbox"`
	AccessToken   string        `envconfig:"DROPPOINT_SQUARE_ACCESS_TOKEN"`
	LocationID    string        `envconfig:"DROPPOINT_SQUARE_LOCATION_ID"`
	Currency      string        `envconfig:"DROPPOINT_SQUARE_CURRENCY" default:"USD"`
	SigningSecret string        `envconfig:"DROPPOINT_SQUARE_SIGNING_SECRET"`
	Timeout       time.Duration `envconfig:"DROPPOINT_SQUARE_TIMEOUT" default:"10s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type DeliveryConfig struct {
	PaymentIntentTTL time.Duration `envconfig:"DROPPOINT_PAYMENT_INTENT_TTL" default:"24h"`
	ExpiryBatchSize  int           `envconfig:"DROPPOINT_PAYMENT_EXPIRY_BATCH_SIZE" default:"200"`
}

type StreamConfig struct {
	HeartbeatInterval time.Duration `envconfig:"DROPPOINT_STREAM_HEARTBEAT" default:"25s"`
	SessionBuffer     int           `envconfig:"DROPPOINT_STREAM_SESSION_BUFFER" default:"16"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DROPPOINT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DROPPOINT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DROPPOINT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"DROPPOINT_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"DROPPOINT_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DROPPOINT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"DROPPOINT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"DROPPOINT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"DROPPOINT_OUTBOX_RETENTION" default:"168h"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"DROPPOINT_CRON_INTERVAL" default:"15m"`
	LockTTL    time.Duration `envconfig:"DROPPOINT_CRON_LOCK_TTL" default:"10m"`
	// JobTimeout must stay below LockTTL.
	JobTimeout time.Duration `envconfig:"DROPPOINT_CRON_JOB_TIMEOUT" default:"8m"`
}

// RateLimitConfig bounds the routes that call paid providers. A zero limit disables that dimension.
type RateLimitConfig struct {
	Window       time.Duration `envconfig:"DROPPOINT_RATE_LIMIT_WINDOW" default:"1m"`
	QuoteUser    int           `envconfig:"DROPPOINT_RATE_LIMIT_QUOTE_USER" default:"30"`
	QuoteIP      int           `envconfig:"DROPPOINT_RATE_LIMIT_QUOTE_IP" default:"120"`
	GeocodeUser  int           `envconfig:"DROPPOINT_RATE_LIMIT_GEOCODE_USER" default:"20"`
	GeocodeIP    int           `envconfig:"DROPPOINT_RATE_LIMIT_GEOCODE_IP" default:"60"`
	CheckoutUser int           `envconfig:"DROPPOINT_RATE_LIMIT_CHECKOUT_USER" default:"10"`
	CheckoutIP   int           `envconfig:"DROPPOINT_RATE_LIMIT_CHECKOUT_IP" default:"40"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s is unset and so are %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
