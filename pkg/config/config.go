package config

import (
	"fmt"
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
	Queue        QueueConfig
	USSD         USSDConfig
	SMS          SMSConfig
	Airtime      AirtimeConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QATALYST_APP_ENV" required:"true"`
	Port         string `envconfig:"QATALYST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QATALYST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QATALYST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QATALYST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QATALYST_DB_DSN"`
	Driver string `envconfig:"QATALYST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QATALYST_DB_HOST"`
	LegacyPort     int    `envconfig:"QATALYST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QATALYST_DB_USER"`
	LegacyPassword string `envconfig:"QATALYST_DB_PASSWORD"`
	LegacyName     string `envconfig:"QATALYST_DB_NAME"`
	LegacySSLMode  string `envconfig:"QATALYST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QATALYST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QATALYST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QATALYST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QATALYST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QATALYST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QATALYST_REDIS_ADDR"`
	Password     string        `envconfig:"QATALYST_REDIS_PASSWORD"`
	DB           int           `envconfig:"QATALYST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QATALYST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QATALYST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QATALYST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QATALYST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QATALYST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type QueueConfig struct {
	// MinutesPerTicket feeds the estimated wait shown to customers:
	// position * MinutesPerTicket.
	MinutesPerTicket int `envconfig:"QATALYST_QUEUE_MINUTES_PER_TICKET" default:"2"`
}

type USSDConfig struct {
	RateLimitWindow   time.Duration `envconfig:"QATALYST_USSD_RATE_LIMIT_WINDOW" default:"5s"`
	RateLimitRequests int           `envconfig:"QATALYST_USSD_RATE_LIMIT_REQUESTS" default:"1"`
}

type SMSConfig struct {
	Provider   string        `envconfig:"QATALYST_SMS_PROVIDER" default:"log"`
	Username   string        `envconfig:"QATALYST_SMS_AT_USERNAME"`
	APIKey     string        `envconfig:"QATALYST_SMS_AT_API_KEY"`
	SenderID   string        `envconfig:"QATALYST_SMS_SENDER_ID"`
	BaseURL    string        `envconfig:"QATALYST_SMS_AT_BASE_URL" default:"https://api.africastalking.com"`
	WebhookURL string        `envconfig:"QATALYST_SMS_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"QATALYST_SMS_TIMEOUT" default:"10s"`
}

type AirtimeConfig struct {
	Provider string        `envconfig:"QATALYST_AIRTIME_PROVIDER" default:"log"`
	BaseURL  string        `envconfig:"QATALYST_AIRTIME_BASE_URL"`
	Username string        `envconfig:"QATALYST_AIRTIME_USERNAME"`
	APIKey   string        `envconfig:"QATALYST_AIRTIME_API_KEY"`
	Timeout  time.Duration `envconfig:"QATALYST_AIRTIME_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QATALYST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QATALYST_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"QATALYST_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"QATALYST_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"QATALYST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"QATALYST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"QATALYST_PUBSUB_NOTIFICATION_TOPIC" default:"qatalyst-notification-events"`
	NotificationSubscription string `envconfig:"QATALYST_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"QATALYST_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"QATALYST_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"QATALYST_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
