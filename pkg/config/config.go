package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Persistence   PersistenceConfig
	DB            DBConfig
	Redis         RedisConfig
	Auth          AuthConfig
	JWT           JWTConfig
	GCP           GCPConfig
	Firestore     FirestoreConfig
	Notifications NotificationsConfig
	Sessions      SessionsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PersistenceConfig selects the local slot and remote document backends and
// tunes the background saver.
type PersistenceConfig struct {
	Namespace       string        `envconfig:"STOREFRONT_PERSISTENCE_NAMESPACE" default:"aabhira"`
	LocalDriver     string        `envconfig:"STOREFRONT_PERSISTENCE_LOCAL_DRIVER" default:"memory"`
	FileDir         string        `envconfig:"STOREFRONT_PERSISTENCE_FILE_DIR" default:".storefront"`
	RemoteDriver    string        `envconfig:"STOREFRONT_PERSISTENCE_REMOTE_DRIVER" default:"memory"`
	RemoteTimeout   time.Duration `envconfig:"STOREFRONT_PERSISTENCE_REMOTE_TIMEOUT" default:"5s"`
	SaveMaxAttempts int           `envconfig:"STOREFRONT_PERSISTENCE_SAVE_MAX_ATTEMPTS" default:"3"`
	SaveBaseDelay   time.Duration `envconfig:"STOREFRONT_PERSISTENCE_SAVE_BASE_DELAY" default:"200ms"`
}

type DBConfig struct {
	DSN         string `envconfig:"STOREFRONT_DB_DSN"`
	AutoMigrate bool   `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	SlotTTL      time.Duration `envconfig:"STOREFRONT_REDIS_SLOT_TTL" default:"720h"`
}

// AuthConfig picks how bearer tokens are turned into shopper identities.
type AuthConfig struct {
	Provider string `envconfig:"STOREFRONT_AUTH_PROVIDER" default:"jwt"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsFile string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirestoreConfig struct {
	CartsCollection     string `envconfig:"STOREFRONT_FIRESTORE_CARTS_COLLECTION" default:"carts"`
	WishlistsCollection string `envconfig:"STOREFRONT_FIRESTORE_WISHLISTS_COLLECTION" default:"wishlists"`
}

// NotificationsConfig owns the toast auto-dismiss timeout handed to clients.
type NotificationsConfig struct {
	DismissAfter time.Duration `envconfig:"STOREFRONT_NOTIFICATIONS_DISMISS_AFTER" default:"3s"`
	PubSubTopic  string        `envconfig:"STOREFRONT_NOTIFICATIONS_PUBSUB_TOPIC"`
}

// SessionsConfig bounds how long idle sessions stay in memory.
type SessionsConfig struct {
	IdleTTL      time.Duration `envconfig:"STOREFRONT_SESSIONS_IDLE_TTL" default:"30m"`
	ReapInterval time.Duration `envconfig:"STOREFRONT_SESSIONS_REAP_INTERVAL" default:"1m"`
}

func (c *Config) validate() error {
	switch c.Persistence.LocalDriver {
	case LocalDriverMemory, LocalDriverFile:
	case LocalDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or %s is required for the redis local driver", EnvRedisURL, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unsupported local driver %q", c.Persistence.LocalDriver)
	}

	switch c.Persistence.RemoteDriver {
	case RemoteDriverMemory:
	case RemoteDriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("%s is required for the postgres remote driver", EnvDBDSN)
		}
	case RemoteDriverFirestore:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required for the firestore remote driver", EnvGCPProjectID)
		}
	default:
		return fmt.Errorf("unsupported remote driver %q", c.Persistence.RemoteDriver)
	}

	switch c.Auth.Provider {
	case AuthProviderNone:
	case AuthProviderJWT:
		if c.JWT.Secret == "" {
			return fmt.Errorf("%s is required for the jwt auth provider", EnvJWTSecret)
		}
	case AuthProviderFirebase:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required for the firebase auth provider", EnvGCPProjectID)
		}
	default:
		return fmt.Errorf("unsupported auth provider %q", c.Auth.Provider)
	}

	if c.Persistence.SaveMaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvSaveMaxAttempts)
	}
	return nil
}
