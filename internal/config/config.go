package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
)

var config *Config

// Config holds every env-sourced value used by the engine. Nothing
// else reads the environment directly.
type Config struct {
	AppEnv  string `env:"APP_ENV" default:"dev"`
	AppName string `env:"APP_NAME" default:"settlement_engine"`
	AppHost string `env:"APP_HOST" default:"localhost"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR" default:":8080"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisUsername  string `env:"REDIS_USER"`
	RedisPassword  string `env:"REDIS_PASS"`
	RedisDatabase  int    `env:"REDIS_DATABASE"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE" default:"eksporyuk"`

	EventStreamName      string        `env:"EVENT_STREAM_NAME" default:"settlement:events"`
	EventConsumerGroup   string        `env:"EVENT_CONSUMER_GROUP" default:"notifier"`
	EventConsumerName    string        `env:"EVENT_CONSUMER_NAME" default:"notifier-0"`
	EventStreamMaxLen    int64         `env:"EVENT_STREAM_MAX_LEN" default:"100000"`
	EventClaimMinIdle    time.Duration `env:"EVENT_CLAIM_MIN_IDLE" default:"30s"`
	EventDispatchWorkers int           `env:"EVENT_DISPATCH_WORKERS" default:"32"`

	DisbursementBaseURL string        `env:"DISBURSEMENT_BASE_URL"`
	DisbursementAPIKey  string        `env:"DISBURSEMENT_API_KEY"`
	DisbursementTimeout time.Duration `env:"DISBURSEMENT_TIMEOUT" default:"15s"`

	// platform settings, snapshotted into Settings
	WebhookCallbackToken       string `env:"DISBURSEMENT_CALLBACK_TOKEN"`
	WithdrawalMinAmount        int64  `env:"WITHDRAWAL_MIN_AMOUNT" default:"50000"`
	WithdrawalFee              int64  `env:"WITHDRAWAL_FEE" default:"5000"`
	CommissionAdminUserID      int64  `env:"COMMISSION_ADMIN_USER_ID"`
	CommissionFounderUserID    int64  `env:"COMMISSION_FOUNDER_USER_ID"`
	CommissionCoFounderUserID  int64  `env:"COMMISSION_COFOUNDER_USER_ID"`
	CommissionFounderPercent   int64  `env:"COMMISSION_FOUNDER_PERCENT" default:"25"`
	CommissionCoFounderPercent int64  `env:"COMMISSION_COFOUNDER_PERCENT" default:"15"`
}

// Settings is the platform configuration snapshot injected into the
// services at construction. Reload boundary: process start.
type Settings struct {
	WebhookCallbackToken string

	WithdrawalMinAmount int64
	WithdrawalFee       int64

	AdminUserID     int64
	FounderUserID   int64
	CoFounderUserID int64

	// percent of the post-affiliate remainder; admin takes what is left
	FounderPercent   int64
	CoFounderPercent int64
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration file "+path)
		}
	}

	if _, err = env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

func (c *Config) Snapshot() Settings {
	return Settings{
		WebhookCallbackToken: c.WebhookCallbackToken,
		WithdrawalMinAmount:  c.WithdrawalMinAmount,
		WithdrawalFee:        c.WithdrawalFee,
		AdminUserID:          c.CommissionAdminUserID,
		FounderUserID:        c.CommissionFounderUserID,
		CoFounderUserID:      c.CommissionCoFounderUserID,
		FounderPercent:       c.CommissionFounderPercent,
		CoFounderPercent:     c.CommissionCoFounderPercent,
	}
}
