package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"trustledger/internal/logger"
)

const devJWTSecret = "fallback-secret-key-for-dev-only"

// Config holds application configuration
type Config struct {
	// Server
	Env        string `env:"ENV" envDefault:"development"`
	Port       string `env:"PORT" envDefault:"8080"`
	CORSOrigin string `env:"FRONTEND_URL" envDefault:"*"`

	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"trustledger"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"trustledger"`
	DBName     string `env:"DB_NAME" envDefault:"trustledger"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"fallback-secret-key-for-dev-only"`
	JWTExpirationDur time.Duration `env:"JWT_EXPIRES_IN" envDefault:"24h"`

	// Emails that are registered with the admin role
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Documents
	DocumentStore  string `env:"DOCUMENT_STORE" envDefault:"local"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadBytes int64  `env:"MAX_FILE_SIZE" envDefault:"5000000"`
	CloudinaryURL  string `env:"CLOUDINARY_URL"`
	CloudinaryDir  string `env:"CLOUDINARY_FOLDER" envDefault:"trustledger/invoices"`

	// Signing keys
	SigningKeyBits    int           `env:"SIGNING_KEY_BITS" envDefault:"2048"`
	KeygenConcurrency int64         `env:"KEYGEN_CONCURRENCY" envDefault:"2"`
	KeygenTimeout     time.Duration `env:"KEYGEN_TIMEOUT" envDefault:"30s"`

	// Audit event stream
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"trustledger.audit-records"`
	KafkaUsername   string   `env:"KAFKA_USERNAME"`
	KafkaPassword   string   `env:"KAFKA_PASSWORD"`
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		logger.Get().Debugw(".env not loaded", "error", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

func (c *Config) validate() error {
	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxUploadBytes)
	}
	if c.KafkaUsername != "" && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_USERNAME is set but KAFKA_BROKERS is empty")
	}
	if c.SigningKeyBits < 2048 {
		return fmt.Errorf("SIGNING_KEY_BITS must be at least 2048, got %d", c.SigningKeyBits)
	}
	if c.KeygenConcurrency < 1 {
		return fmt.Errorf("KEYGEN_CONCURRENCY must be positive, got %d", c.KeygenConcurrency)
	}
	switch c.DocumentStore {
	case "local":
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required when DOCUMENT_STORE=cloudinary")
		}
	default:
		return fmt.Errorf("unknown DOCUMENT_STORE %q (use local or cloudinary)", c.DocumentStore)
	}
	return nil
}

// PostgresURL returns the URL form of the database connection, as used by migrations.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			logger.Get().Fatalw("failed to load configuration", "error", err)
		}
	}
	return appConfig
}

// Set replaces the global configuration. Tests use it to avoid reading the environment.
func Set(c *Config) {
	appConfig = c
}
