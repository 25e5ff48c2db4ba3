package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost          string
	HTTPPort          string
	MySQLDSN          string
	CryptoKey         string
	Issuer            string
	TokenDuration     time.Duration
	EncryptCost       int
	RecoveryExpiresIn int64
	Mail              MailConfig
	LogLevel          string
	LogFormat         string
}

type MailConfig struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	cryptoKey := os.Getenv("CRYPTO_KEY")
	if cryptoKey == "" {
		return nil, errors.New("CRYPTO_KEY environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPHost:          getEnv("HTTP_HOST", ""),
		HTTPPort:          getEnv("HTTP_PORT", "8000"),
		MySQLDSN:          mysqlDSN,
		CryptoKey:         cryptoKey,
		Issuer:            getEnv("ISSUER", "safestats"),
		TokenDuration:     getSecondsEnv("TOKEN_DURATION_IN_SECONDS", time.Hour),
		EncryptCost:       getIntEnv("ENCRYPT_SALT", 10),
		RecoveryExpiresIn: int64(getIntEnv("RECOVERY_TOKEN_EXPIRES_IN", 3600)),
		Mail: MailConfig{
			SMTPHost: getEnv("EMAIL_SMTP_HOST", "smtp.gmail.com"),
			SMTPPort: getEnv("EMAIL_SMTP_PORT", "587"),
			Username: os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASSWORD"),
			From:     getEnv("EMAIL_FROM", `"Equipe SafeStats 🏥" <help.safestats@gmail.com>`),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
