package config

// EnvPrefix is passed to envconfig.Process; individual fields carry the full
// variable name in their tags so the prefix is effectively documentation.
const EnvPrefix = "QATALYST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "QATALYST_APP_ENV"
	EnvPort     = "QATALYST_APP_PORT"
	EnvLogLevel = "QATALYST_LOG_LEVEL"

	EnvDBDSN      = "QATALYST_DB_DSN"
	EnvDBHost     = "QATALYST_DB_HOST"
	EnvDBPort     = "QATALYST_DB_PORT"
	EnvDBUser     = "QATALYST_DB_USER"
	EnvDBPassword = "QATALYST_DB_PASSWORD"
	EnvDBName     = "QATALYST_DB_NAME"

	EnvRedisURL = "QATALYST_REDIS_URL"

	EnvGCPProjectID = "QATALYST_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "QATALYST_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "QATALYST_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
