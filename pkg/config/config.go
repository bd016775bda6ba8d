package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the server-side binaries need.
type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Orders       OrdersConfig
	Tickets      TicketsConfig
	RateLimit    RateLimitConfig
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientSettings is the subset used by client binaries that only talk to the remote store.
type ClientSettings struct {
	App     AppConfig
	Client  ClientConfig
	Orders  OrdersConfig
	Tickets TicketsConfig
}

// LoadClient reads the client configuration from the environment.
func LoadClient() (*ClientSettings, error) {
	var cfg ClientSettings
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.Client.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvClientBaseURL, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TASKRENT_APP_ENV" required:"true"`
	Port         string `envconfig:"TASKRENT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TASKRENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TASKRENT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"TASKRENT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TASKRENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TASKRENT_DB_DSN"`
	Driver string `envconfig:"TASKRENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TASKRENT_DB_HOST"`
	LegacyPort     int    `envconfig:"TASKRENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TASKRENT_DB_USER"`
	LegacyPassword string `envconfig:"TASKRENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"TASKRENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"TASKRENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TASKRENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TASKRENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TASKRENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TASKRENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TASKRENT_REDIS_URL"`
	Address      string        `envconfig:"TASKRENT_REDIS_ADDR"`
	Password     string        `envconfig:"TASKRENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"TASKRENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TASKRENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TASKRENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TASKRENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TASKRENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TASKRENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TASKRENT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TASKRENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TASKRENT_JWT_EXPIRATION_MINUTES" default:"120"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TASKRENT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TASKRENT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TASKRENT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TASKRENT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TASKRENT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TASKRENT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TASKRENT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TASKRENT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TASKRENT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TASKRENT_GOOGLE_APPLICATION_CREDENTIALS"`
}

// GCSConfig backs ticket attachment uploads; an empty bucket disables them.
type GCSConfig struct {
	BucketName    string `envconfig:"TASKRENT_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"TASKRENT_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	UploadPrefix  string `envconfig:"TASKRENT_GCS_UPLOAD_PREFIX" default:"tickets"`
	MaxUploadMB   int    `envconfig:"TASKRENT_GCS_MAX_UPLOAD_MB" default:"10"`
}

// Enabled reports whether a bucket is configured.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

// PubSubConfig is optional: an empty topic disables event publishing.
type PubSubConfig struct {
	OrdersTopic  string `envconfig:"TASKRENT_PUBSUB_ORDERS_TOPIC"`
	TicketsTopic string `envconfig:"TASKRENT_PUBSUB_TICKETS_TOPIC"`
}

// Enabled reports whether order events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.OrdersTopic) != ""
}

// TopicFor returns the topic ticket events go to, falling back to the orders topic.
func (p PubSubConfig) TopicFor(aggregate string) string {
	if aggregate == "ticket" && strings.TrimSpace(p.TicketsTopic) != "" {
		return p.TicketsTopic
	}
	return p.OrdersTopic
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TASKRENT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TASKRENT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TASKRENT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type OrdersConfig struct {
	MaxLeaseDays   int           `envconfig:"TASKRENT_ORDERS_MAX_LEASE_DAYS" default:"30"`
	PendingTTL     time.Duration `envconfig:"TASKRENT_ORDERS_PENDING_TTL" default:"30m"`
	PlatformFeeBPS int           `envconfig:"TASKRENT_ORDERS_PLATFORM_FEE_BPS" default:"500"`
	CronInterval   time.Duration `envconfig:"TASKRENT_ORDERS_CRON_INTERVAL" default:"1m"`
}

type TicketsConfig struct {
	PollInterval   time.Duration `envconfig:"TASKRENT_TICKET_POLL_INTERVAL" default:"60s"`
	MaxAttachments int           `envconfig:"TASKRENT_TICKET_MAX_ATTACHMENTS" default:"3"`
}

// RateLimitConfig throttles payment password checks. A zero window disables it.
type RateLimitConfig struct {
	VerifyPasswordWindow    time.Duration `envconfig:"TASKRENT_RATE_LIMIT_VERIFY_PASSWORD_WINDOW" default:"15m"`
	VerifyPasswordIPLimit   int           `envconfig:"TASKRENT_RATE_LIMIT_VERIFY_PASSWORD_IP" default:"30"`
	VerifyPasswordUserLimit int           `envconfig:"TASKRENT_RATE_LIMIT_VERIFY_PASSWORD_USER" default:"5"`
}

type ClientConfig struct {
	BaseURL string        `envconfig:"TASKRENT_CLIENT_BASE_URL" default:"http://localhost:8080"`
	Token   string        `envconfig:"TASKRENT_CLIENT_TOKEN"`
	UserID  string        `envconfig:"TASKRENT_CLIENT_USER_ID"`
	Timeout time.Duration `envconfig:"TASKRENT_CLIENT_TIMEOUT" default:"10s"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = DefaultSQLiteDSN
		db.Driver = "sqlite"
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
