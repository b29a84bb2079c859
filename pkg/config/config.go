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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Crowdfunding CrowdfundingConfig
	Quotes       QuotesConfig
	SyncQueue    SyncQueueConfig
	Webhooks     WebhooksConfig
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
	Env          string `envconfig:"GOLDBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GOLDBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GOLDBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GOLDBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GOLDBRIDGE_DB_DSN"`
	Driver string `envconfig:"GOLDBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GOLDBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"GOLDBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GOLDBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"GOLDBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GOLDBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GOLDBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GOLDBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GOLDBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GOLDBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOLDBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOLDBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GOLDBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"GOLDBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOLDBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOLDBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GOLDBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GOLDBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOLDBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GOLDBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GOLDBRIDGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GOLDBRIDGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GOLDBRIDGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GOLDBRIDGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GOLDBRIDGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GOLDBRIDGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GOLDBRIDGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GOLDBRIDGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GOLDBRIDGE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GOLDBRIDGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GOLDBRIDGE_AUTO_MIGRATE" default:"false"`
}

type CrowdfundingConfig struct {
	APIURL  string        `envconfig:"GOLDBRIDGE_CROWDFUNDING_API_URL" required:"true"`
	Timeout time.Duration `envconfig:"GOLDBRIDGE_CROWDFUNDING_TIMEOUT" default:"10s"`
}

type QuotesConfig struct {
	APIURL   string        `envconfig:"GOLDBRIDGE_QUOTES_API_URL" required:"true"`
	APIKey   string        `envconfig:"GOLDBRIDGE_QUOTES_API_KEY"`
	Timeout  time.Duration `envconfig:"GOLDBRIDGE_QUOTES_TIMEOUT" default:"5s"`
	CacheTTL time.Duration `envconfig:"GOLDBRIDGE_QUOTES_CACHE_TTL" default:"5m"`
}

type SyncQueueConfig struct {
	MaxAttempts  int           `envconfig:"GOLDBRIDGE_SYNC_MAX_ATTEMPTS" default:"3"`
	BatchSize    int           `envconfig:"GOLDBRIDGE_SYNC_BATCH_SIZE" default:"10"`
	PollInterval time.Duration `envconfig:"GOLDBRIDGE_SYNC_POLL_INTERVAL" default:"30s"`
	LockTTL      time.Duration `envconfig:"GOLDBRIDGE_SYNC_LOCK_TTL" default:"2m"`
	MetricsPort  string        `envconfig:"GOLDBRIDGE_SYNC_METRICS_PORT" default:"9102"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"GOLDBRIDGE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
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
