package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EventingBackendPubSub = "pubsub"
	EventingBackendKafka  = "kafka"

	defaultSQLiteDSN = "file:storefront.db?cache=shared&_busy_timeout=5000"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBDriver  = "STOREFRONT_DB_DRIVER"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvUseSQLite = "STOREFRONT_USE_SQLITE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvAdminSecret      = "STOREFRONT_ADMIN_SECRET"
	EnvPaymentKeySecret = "STOREFRONT_PAYMENT_KEY_SECRET"

	EnvCheckoutTimeout        = "STOREFRONT_CHECKOUT_REQUEST_TIMEOUT"
	EnvCheckoutPersistRetries = "STOREFRONT_CHECKOUT_PERSIST_RETRIES"

	EnvEventingBackend   = "STOREFRONT_EVENTING_BACKEND"
	EnvOutboxBatchSize   = "STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	EnvKafkaBrokers      = "STOREFRONT_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
