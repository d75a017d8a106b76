package config

import (
	"fmt"
	"net/netip"
	"net/url"
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
	Admin        AdminConfig
	Payment      PaymentConfig
	Checkout     CheckoutConfig
	Email        EmailConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.ProxyPrefixes(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Eventing.validate(cfg.Kafka); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
	// TrustedProxies lists CIDRs or addresses whose forwarding headers are believed.
	TrustedProxies []string `envconfig:"STOREFRONT_TRUSTED_PROXIES"`
}

// ProxyPrefixes parses TrustedProxies. Bare addresses become single-host prefixes.
func (a AppConfig) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(a.TrustedProxies))
	for _, raw := range a.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type AdminConfig struct {
	Secret string `envconfig:"STOREFRONT_ADMIN_SECRET"`
}

type PaymentConfig struct {
	KeyID     string `envconfig:"STOREFRONT_PAYMENT_KEY_ID"`
	KeySecret string `envconfig:"STOREFRONT_PAYMENT_KEY_SECRET" required:"true"`
}

type CheckoutConfig struct {
	RequestTimeout      time.Duration `envconfig:"STOREFRONT_CHECKOUT_REQUEST_TIMEOUT" default:"10s"`
	PersistRetries      uint64        `envconfig:"STOREFRONT_CHECKOUT_PERSIST_RETRIES" default:"3"`
	PersistBackoff      time.Duration `envconfig:"STOREFRONT_CHECKOUT_PERSIST_BACKOFF" default:"50ms"`
	ReplayTTL           time.Duration `envconfig:"STOREFRONT_CHECKOUT_REPLAY_TTL" default:"720h"`
	RejectTotalMismatch bool          `envconfig:"STOREFRONT_CHECKOUT_REJECT_TOTAL_MISMATCH" default:"true"`
	ShippingFee         string        `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_FEE" default:"0"`
	RateLimitPerMinute  int64         `envconfig:"STOREFRONT_CHECKOUT_RATE_LIMIT_PER_MINUTE" default:"30"`
}

type EmailConfig struct {
	StoreName     string        `envconfig:"STOREFRONT_EMAIL_STORE_NAME" default:"DhanaLaxmi Foods"`
	SMTPHost      string        `envconfig:"STOREFRONT_SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort      int           `envconfig:"STOREFRONT_SMTP_PORT" default:"587"`
	Username      string        `envconfig:"STOREFRONT_EMAIL_USER"`
	Password      string        `envconfig:"STOREFRONT_EMAIL_PASS"`
	SendTimeout   time.Duration `envconfig:"STOREFRONT_EMAIL_SEND_TIMEOUT" default:"15s"`
	MaxConcurrent int           `envconfig:"STOREFRONT_EMAIL_MAX_CONCURRENT" default:"8"`
}

// Configured reports whether SMTP credentials are present.
func (e EmailConfig) Configured() bool {
	return e.SMTPHost != "" && e.Username != "" && e.Password != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	Backend string `envconfig:"STOREFRONT_EVENTING_BACKEND" default:"pubsub"`
}

// IsKafka reports whether outbox events are relayed to Kafka instead of Pub/Sub.
func (e EventingConfig) IsKafka() bool {
	return strings.EqualFold(strings.TrimSpace(e.Backend), EventingBackendKafka)
}

func (e EventingConfig) validate(kafka KafkaConfig) error {
	switch strings.ToLower(strings.TrimSpace(e.Backend)) {
	case EventingBackendPubSub:
		return nil
	case EventingBackendKafka:
		if len(kafka.Brokers) == 0 {
			return fmt.Errorf("%s is required when %s=%s", EnvKafkaBrokers, EnvEventingBackend, EventingBackendKafka)
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvEventingBackend, EventingBackendPubSub, EventingBackendKafka)
	}
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"sf-order-events"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"STOREFRONT_KAFKA_BROKERS"`
	OrdersTopic string   `envconfig:"STOREFRONT_KAFKA_ORDERS_TOPIC" default:"order-events"`
}

func (o OutboxConfig) validate() error {
	if o.BatchSize < 0 {
		return fmt.Errorf("%s must be non-negative", EnvOutboxBatchSize)
	}
	if o.MaxAttempts < 0 {
		return fmt.Errorf("%s must be non-negative", EnvOutboxMaxAttempts)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
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
