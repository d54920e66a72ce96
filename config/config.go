package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort int
	DataDir    string
	Storage    StorageConfig
	MQ         MQConfig
	Auth       AuthConfig
	Mail       MailConfig
	Site       SiteConfig
	Log        LogConfig
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// MQConfig selects the event transport.
type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	BcryptCost   int
	SecureCookie bool
}

type MailConfig struct {
	SendGridAPIKey string
	SandboxMode    bool
	FromEmail      string
	FromName       string
}

// SiteConfig seeds the site settings on first start.
type SiteConfig struct {
	URL        string
	Title      string
	DateFormat string
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	BackendLocal    = "local"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
	BackendMemory   = "memory"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

var defaults = map[string]any{
	"SERVER_PORT":                8080,
	"DATA_DIR":                   "./project",
	"STORAGE_BACKEND":            BackendLocal,
	"MINIO_USE_SSL":              false,
	"MQ_BACKEND":                 BackendMemory,
	"EVENTS_CHANNEL":             "accounts.events",
	"RABBITMQ_QUEUE_DURABLE":     true,
	"RABBITMQ_QUEUE_AUTODELETE":  false,
	"RABBITMQ_PREFETCH_COUNT":    0,
	"PUBSUB_SUBSCRIPTION_SUFFIX": "-sub",
	"SESSION_TTL":                "24h",
	"SESSION_COOKIE_SECURE":      false,
	"BCRYPT_COST":                10,
	"SENDGRID_SANDBOX":           false,
	"MAIL_FROM_EMAIL":            "no-reply@localhost",
	"MAIL_FROM_NAME":             "Site",
	"SITE_URL":                   "http://localhost:8080",
	"SITE_TITLE":                 "Flat CMS",
	"DATE_FORMAT":                "2006-01-02 15:04:05",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "text",
}

// LoadConfig reads configuration from the environment and, when path is not
// empty, from a YAML config file. Environment variables take precedence.
func LoadConfig(path string) (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	ttl, err := time.ParseDuration(v.GetString("SESSION_TTL"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}

	cfg := Config{
		ServerPort: v.GetInt("SERVER_PORT"),
		DataDir:    v.GetString("DATA_DIR"),
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Minio: MinioConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: v.GetString("MINIO_SECRET_KEY"),
				Bucket:    v.GetString("MINIO_BUCKET"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
			},
			GCS: GCSConfig{
				Bucket:          v.GetString("GCS_BUCKET"),
				ProjectID:       v.GetString("GCS_PROJECT_ID"),
				CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
			},
		},
		MQ: MQConfig{
			Backend: strings.ToLower(v.GetString("MQ_BACKEND")),
			Channel: v.GetString("EVENTS_CHANNEL"),
			RabbitMQ: RabbitMQConfig{
				URL:             v.GetString("RABBITMQ_URL"),
				QueueDurable:    v.GetBool("RABBITMQ_QUEUE_DURABLE"),
				QueueAutoDelete: v.GetBool("RABBITMQ_QUEUE_AUTODELETE"),
				PrefetchCount:   v.GetInt("RABBITMQ_PREFETCH_COUNT"),
			},
			PubSub: PubSubConfig{
				ProjectID:          v.GetString("PUBSUB_PROJECT_ID"),
				CredentialsFile:    v.GetString("PUBSUB_CREDENTIALS_FILE"),
				SubscriptionSuffix: v.GetString("PUBSUB_SUBSCRIPTION_SUFFIX"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:    strings.TrimSpace(v.GetString("JWT_SECRET")),
			SessionTTL:   ttl,
			BcryptCost:   v.GetInt("BCRYPT_COST"),
			SecureCookie: v.GetBool("SESSION_COOKIE_SECURE"),
		},
		Mail: MailConfig{
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			SandboxMode:    v.GetBool("SENDGRID_SANDBOX"),
			FromEmail:      v.GetString("MAIL_FROM_EMAIL"),
			FromName:       v.GetString("MAIL_FROM_NAME"),
		},
		Site: SiteConfig{
			URL:        v.GetString("SITE_URL"),
			Title:      v.GetString("SITE_TITLE"),
			DateFormat: v.GetString("DATE_FORMAT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
	return cfg, nil
}

// Validate checks the settings required to start the server.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Storage.Backend {
	case BackendLocal, BackendMinio, BackendGCS:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.MQ.Backend {
	case BackendMemory, BackendRabbitMQ, BackendPubSub:
	default:
		return fmt.Errorf("unknown MQ_BACKEND %q", c.MQ.Backend)
	}
	return nil
}
