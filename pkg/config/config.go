package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Ticketing    TicketingConfig
	Checkout     CheckoutConfig
	Fetch        FetchConfig
	Cart         CartConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"BOXOFFICE_APP_ENV" required:"true"`
	Port            string        `envconfig:"BOXOFFICE_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"BOXOFFICE_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"BOXOFFICE_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"BOXOFFICE_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"BOXOFFICE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOXOFFICE_DB_DSN"`
	Driver string `envconfig:"BOXOFFICE_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"BOXOFFICE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOXOFFICE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOXOFFICE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOXOFFICE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOXOFFICE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOXOFFICE_REDIS_ADDR"`
	Password     string        `envconfig:"BOXOFFICE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOXOFFICE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOXOFFICE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOXOFFICE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOXOFFICE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOXOFFICE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOXOFFICE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// TicketingConfig points at the remote ticketing/payment API.
type TicketingConfig struct {
	BaseURL string        `envconfig:"BOXOFFICE_TICKETING_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"BOXOFFICE_TICKETING_API_KEY"`
	Timeout time.Duration `envconfig:"BOXOFFICE_TICKETING_TIMEOUT" default:"10s"`
}

// CheckoutConfig tunes the payment confirmation state machine.
type CheckoutConfig struct {
	Channel      string        `envconfig:"BOXOFFICE_CHECKOUT_CHANNEL" default:"mpesa"`
	PollInterval time.Duration `envconfig:"BOXOFFICE_CHECKOUT_POLL_INTERVAL" default:"5s"`
	Timeout      time.Duration `envconfig:"BOXOFFICE_CHECKOUT_TIMEOUT" default:"120s"`
	SuccessDelay time.Duration `envconfig:"BOXOFFICE_CHECKOUT_SUCCESS_DELAY" default:"1500ms"`
	LockTTL      time.Duration `envconfig:"BOXOFFICE_CHECKOUT_LOCK_TTL" default:"3m"`
}

// FetchConfig is the retry policy shared by every admin panel resource.
type FetchConfig struct {
	MaxRetries int           `envconfig:"BOXOFFICE_FETCH_MAX_RETRIES" default:"5"`
	BaseDelay  time.Duration `envconfig:"BOXOFFICE_FETCH_BASE_DELAY" default:"1s"`
	MaxDelay   time.Duration `envconfig:"BOXOFFICE_FETCH_MAX_DELAY" default:"10s"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"BOXOFFICE_CART_TTL" default:"720h"`
	// SessionIdle is how long an untouched session keeps its in-process
	// cart and idle checkout.
	SessionIdle   time.Duration `envconfig:"BOXOFFICE_CART_SESSION_IDLE" default:"30m"`
	SweepInterval time.Duration `envconfig:"BOXOFFICE_CART_SWEEP_INTERVAL" default:"1m"`
}

type JWTConfig struct {
	Secret string `envconfig:"BOXOFFICE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"BOXOFFICE_JWT_ISSUER" required:"true"`

	ExpirationMinutes int `envconfig:"BOXOFFICE_JWT_EXPIRATION_MINUTES" default:"60"`
	// OrderAccessTTL bounds the order history token handed out on the
	// confirmation page.
	OrderAccessTTL time.Duration `envconfig:"BOXOFFICE_JWT_ORDER_ACCESS_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"BOXOFFICE_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"BOXOFFICE_SQLITE_PATH" default:"boxoffice.db"`
	AutoMigrate bool   `envconfig:"BOXOFFICE_AUTO_MIGRATE" default:"false"`
}

func (c *Config) validate() error {
	if c.DB.DSN == "" && !c.FeatureFlags.UseSQLite {
		return fmt.Errorf("either %s or %s=true is required", EnvDBDSN, EnvUseSQLite)
	}
	if c.Checkout.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutPoll)
	}
	if c.Checkout.Timeout < c.Checkout.PollInterval {
		return fmt.Errorf("checkout timeout %s is shorter than poll interval %s", c.Checkout.Timeout, c.Checkout.PollInterval)
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("%s cannot be negative", EnvFetchRetries)
	}
	return nil
}
