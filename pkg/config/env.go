package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "BOXOFFICE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "BOXOFFICE_APP_ENV"
	EnvPort         = "BOXOFFICE_APP_PORT"
	EnvLogLevel     = "BOXOFFICE_LOG_LEVEL"
	EnvDBDSN        = "BOXOFFICE_DB_DSN"
	EnvDBDriver     = "BOXOFFICE_DB_DRIVER"
	EnvRedisURL     = "BOXOFFICE_REDIS_URL"
	EnvTicketingURL = "BOXOFFICE_TICKETING_BASE_URL"
	EnvTicketingKey = "BOXOFFICE_TICKETING_API_KEY"
	EnvJWTSecret    = "BOXOFFICE_JWT_SECRET"
	EnvJWTIssuer    = "BOXOFFICE_JWT_ISSUER"
	EnvUseSQLite    = "BOXOFFICE_USE_SQLITE"
	EnvSQLitePath   = "BOXOFFICE_SQLITE_PATH"
	EnvCheckoutPoll = "BOXOFFICE_CHECKOUT_POLL_INTERVAL"
	EnvFetchRetries = "BOXOFFICE_FETCH_MAX_RETRIES"
)
