package config

const EnvPrefix = "DROPPOINT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DROPPOINT_APP_ENV"
	EnvPort     = "DROPPOINT_APP_PORT"
	EnvLogLevel = "DROPPOINT_LOG_LEVEL"

	EnvDBDSN  = "DROPPOINT_DB_DSN"
	EnvDBHost = "DROPPOINT_DB_HOST"
	EnvDBUser = "DROPPOINT_DB_USER"
	EnvDBName = "DROPPOINT_DB_NAME"

	EnvRedisURL = "DROPPOINT_REDIS_URL"

	EnvJWTSecret = "DROPPOINT_JWT_SECRET"
	EnvJWTIssuer = "DROPPOINT_JWT_ISSUER"

	EnvGCPProjectID = "DROPPOINT_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic     = "DROPPOINT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationSub = "DROPPOINT_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvRoutingAPIKey      = "DROPPOINT_ROUTING_API_KEY"
	EnvPaymentIntentTTL   = "DROPPOINT_PAYMENT_INTENT_TTL"
	EnvSquareSigningToken = "DROPPOINT_SQUARE_SIGNING_SECRET"
)
