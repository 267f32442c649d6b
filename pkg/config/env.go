package config

// EnvPrefix is handed to envconfig; every field carries an explicit STOREFRONT_* tag.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvPort              = "STOREFRONT_APP_PORT"
	EnvLogLevel          = "STOREFRONT_LOG_LEVEL"
	EnvDBDSN             = "STOREFRONT_DB_DSN"
	EnvDBDriver          = "STOREFRONT_DB_DRIVER"
	EnvDBHost            = "STOREFRONT_DB_HOST"
	EnvDBUser            = "STOREFRONT_DB_USER"
	EnvDBName            = "STOREFRONT_DB_NAME"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvJWTSecret         = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer         = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins        = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvDeliveryFee       = "STOREFRONT_DELIVERY_FEE"
	EnvLowStockThreshold = "STOREFRONT_LOW_STOCK_THRESHOLD"
	EnvFrontendURL       = "STOREFRONT_FRONTEND_URL"
	EnvAdminURL          = "STOREFRONT_ADMIN_URL"
	EnvCORSExtra         = "STOREFRONT_CORS_EXTRA_ORIGINS"
	EnvGCSBucket         = "STOREFRONT_GCS_BUCKET_NAME"
	EnvStripeAPIKey      = "STOREFRONT_STRIPE_API_KEY"
)
