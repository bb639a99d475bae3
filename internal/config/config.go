package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration. Secret fields have no
// envconfig tag: they are loaded from Docker-secret files, never from the
// environment.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8005"`
	ServiceID  string `envconfig:"SERVICE_ID" default:"auth-service"`

	// PostgreSQL (auth records)
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" required:"true"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	DBPassword    string

	// Redis (attempt counters, sessions, static tokens)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string

	// User-profile service (external collaborator)
	UserServiceURL     string        `envconfig:"USER_SERVICE_URL" required:"true"`
	UserServiceTimeout time.Duration `envconfig:"USER_SERVICE_TIMEOUT" default:"10s"`

	// JWT settings. RS256: the private key signs, the public key verifies.
	// A verify-only deployment may leave the private key path empty.
	JWTPrivateKeyPath string        `envconfig:"JWT_PRIVATE_KEY_PATH" default:"certs/jwt-private.pem"`
	JWTPublicKeyPath  string        `envconfig:"JWT_PUBLIC_KEY_PATH" default:"certs/jwt-public.pem"`
	AccessTokenTTL    time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL   time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"720h"` // 30 days

	// Failed-login lockout
	MaxLoginAttempts int           `envconfig:"AUTH_MAX_ATTEMPTS" default:"5"`
	LoginBlockWindow time.Duration `envconfig:"AUTH_BLOCK_WINDOW" default:"300s"`

	// Server-side sessions and static bootstrap tokens
	SessionTTL       time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	StaticTokenTTL   time.Duration `envconfig:"STATIC_TOKEN_TTL" default:"1h"`
	CookieSessionKey string        `envconfig:"COOKIE_SESSION_KEY" default:"cookie_session_id"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Optional RabbitMQ URL for the account-deletion consumer. Empty
	// disables the consumer.
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`

	// Optional Sentry DSN. Empty disables error reporting.
	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Shared secret for internal endpoints (X-Internal-Service-Token).
	InterServiceSecret string
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.InterServiceSecret, loadErr = ReadSecret("inter_service_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	// Optional secrets: absence is fine.
	redisPass, err := ReadSecret("redis_password")
	if err == nil {
		cfg.RedisPassword = redisPass
		log.Println("Redis password loaded from secret.")
	} else {
		log.Printf("Optional secret 'redis_password' not found or failed to read: %v. Assuming no password.", err)
	}

	log.Println("Configuration loaded successfully (secrets read from files).")
	return &cfg, nil
}
