package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "LOCALDROP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "LOCALDROP_APP_ENV"
	EnvPort           = "LOCALDROP_APP_PORT"
	EnvDBDSN          = "LOCALDROP_DB_DSN"
	EnvDBHost         = "LOCALDROP_DB_HOST"
	EnvDBUser         = "LOCALDROP_DB_USER"
	EnvDBName         = "LOCALDROP_DB_NAME"
	EnvRedisURL       = "LOCALDROP_REDIS_URL"
	EnvJWTSecret      = "LOCALDROP_JWT_SECRET"
	EnvJWTIssuer      = "LOCALDROP_JWT_ISSUER"
	EnvGCPProjectID   = "LOCALDROP_GCP_PROJECT_ID"
	EnvOrdersTopic    = "LOCALDROP_PUBSUB_ORDERS_TOPIC"
	EnvPlatformFeeBPS = "LOCALDROP_PLATFORM_FEE_BPS"
	EnvStaleOrderTTL  = "LOCALDROP_STALE_ORDER_TTL"
	EnvTimezone       = "LOCALDROP_MARKETPLACE_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
