package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"

	ProviderSendGrid = "sendgrid"
	ProviderSMTP     = "smtp"
	ProviderLog      = "log"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Verification VerificationConfig
	Email        EmailConfig
	Notifier     NotifierConfig
	Auth         AuthConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	DSN            string
	MigrationsPath string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// ClusterAddrs switches to a cluster client when non-empty.
	ClusterAddrs []string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// VerificationConfig covers token storage and link construction.
type VerificationConfig struct {
	UsersTable     string
	TokensTable    string
	TokenStore     string        // redis or postgres
	TokenRetention time.Duration // how long expired tokens stay reportable as expired; must be > 0
	PurgeInterval  time.Duration // postgres only
	AllowedOrigins []string
	FrontendURL    string
	VerifyPath     string
	UserCacheTTL   time.Duration // 0 disables the user cache
}

type EmailConfig struct {
	Provider       string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPTLS        bool
}

type NotifierConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type AuthConfig struct {
	// InternalJWTSecret enables the service-token guard on issuance routes.
	InternalJWTSecret string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "verification_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			ClusterAddrs: getListEnv("REDIS_CLUSTER_ADDRS", nil),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Verification: VerificationConfig{
			UsersTable:     getEnv("USERS_TABLE", "users"),
			TokensTable:    getEnv("VERIFICATION_TOKENS_TABLE", "verification_tokens"),
			TokenStore:     strings.ToLower(getEnv("TOKEN_STORE", TokenStoreRedis)),
			TokenRetention: getDurationEnv("TOKEN_RETENTION", 7*24*time.Hour),
			PurgeInterval:  getDurationEnv("TOKEN_PURGE_INTERVAL", time.Hour),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000", "https://hodlersim.app"}),
			FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
			VerifyPath:     getEnv("VERIFY_PATH", "/verify"),
			UserCacheTTL:   getDurationEnv("USER_CACHE_TTL", 0),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(getEnv("NOTIFIER_PROVIDER", ProviderLog)),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Hodler"),
			CompanyName:    getEnv("COMPANY_NAME", "Hodler"),
			SMTPHost:       getEnv("SMTP_HOST", "localhost"),
			SMTPPort:       getIntEnv("SMTP_PORT", 587),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SMTPTLS:        getBoolEnv("SMTP_TLS", true),
		},
		Notifier: NotifierConfig{
			Workers:   getIntEnv("NOTIFY_WORKERS", 2),
			QueueSize: getIntEnv("NOTIFY_QUEUE_SIZE", 100),
			Timeout:   getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			InternalJWTSecret: getEnv("INTERNAL_JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Verification.TokenStore {
	case TokenStoreRedis, TokenStorePostgres:
	default:
		errs = append(errs, fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStoreRedis, TokenStorePostgres, c.Verification.TokenStore))
	}
	// Without retention an expired token vanishes at expiry and redeem can
	// only answer 404, never 410.
	if c.Verification.TokenRetention <= 0 {
		errs = append(errs, errors.New("TOKEN_RETENTION must be positive"))
	}
	if c.Verification.FrontendURL == "" {
		errs = append(errs, errors.New("FRONTEND_URL is required"))
	}
	if !strings.HasPrefix(c.Verification.VerifyPath, "/") {
		errs = append(errs, errors.New("VERIFY_PATH must start with /"))
	}

	switch c.Email.Provider {
	case ProviderSendGrid:
		if c.Email.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required when NOTIFIER_PROVIDER=sendgrid"))
		}
	case ProviderSMTP:
		if c.Email.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when NOTIFIER_PROVIDER=smtp"))
		}
	case ProviderLog:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER_PROVIDER %q", c.Email.Provider))
	}

	if c.Notifier.Workers < 1 {
		errs = append(errs, errors.New("NOTIFY_WORKERS must be at least 1"))
	}
	if c.Notifier.QueueSize < 1 {
		errs = append(errs, errors.New("NOTIFY_QUEUE_SIZE must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
