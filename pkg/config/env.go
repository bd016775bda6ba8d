package config

const (
	EnvPrefix = "TASKRENT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSQLiteDSN = "file:taskrent.db?cache=shared&_foreign_keys=on"

	EnvAppEnv        = "TASKRENT_APP_ENV"
	EnvPort          = "TASKRENT_APP_PORT"
	EnvDBDSN         = "TASKRENT_DB_DSN"
	EnvDBHost        = "TASKRENT_DB_HOST"
	EnvDBUser        = "TASKRENT_DB_USER"
	EnvDBName        = "TASKRENT_DB_NAME"
	EnvUseSQLite     = "TASKRENT_USE_SQLITE"
	EnvRedisURL      = "TASKRENT_REDIS_URL"
	EnvJWTSecret     = "TASKRENT_JWT_SECRET"
	EnvJWTIssuer     = "TASKRENT_JWT_ISSUER"
	EnvMaxLeaseDays  = "TASKRENT_ORDERS_MAX_LEASE_DAYS"
	EnvPollInterval  = "TASKRENT_TICKET_POLL_INTERVAL"
	EnvClientBaseURL = "TASKRENT_CLIENT_BASE_URL"
	EnvClientToken   = "TASKRENT_CLIENT_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
