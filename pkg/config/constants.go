package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	LocalDriverMemory = "memory"
	LocalDriverFile   = "file"
	LocalDriverRedis  = "redis"

	RemoteDriverMemory    = "memory"
	RemoteDriverPostgres  = "postgres"
	RemoteDriverFirestore = "firestore"

	AuthProviderNone     = "none"
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvLocalDriver        = "STOREFRONT_PERSISTENCE_LOCAL_DRIVER"
	EnvRemoteDriver       = "STOREFRONT_PERSISTENCE_REMOTE_DRIVER"
	EnvSaveMaxAttempts    = "STOREFRONT_PERSISTENCE_SAVE_MAX_ATTEMPTS"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvRedisAddr          = "STOREFRONT_REDIS_ADDR"
	EnvAuthProvider       = "STOREFRONT_AUTH_PROVIDER"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvGCPProjectID       = "STOREFRONT_GCP_PROJECT_ID"
	EnvNotificationsDelay = "STOREFRONT_NOTIFICATIONS_DISMISS_AFTER"
)
