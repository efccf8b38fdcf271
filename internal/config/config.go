package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreS3       = "s3"
)

// Email providers. EmailAuto picks SendGrid when an API key is set, then SES
// when a from address and region are set, and the stub sender otherwise.
const (
	EmailAuto     = "auto"
	EmailSendGrid = "sendgrid"
	EmailSES      = "ses"
	EmailStub     = "stub"
)

// Config holds all application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	// TrustProxyHeaders honours X-Forwarded-For / X-Real-IP from a fronting proxy.
	TrustProxyHeaders bool

	// Business copy and organizer identity.
	ProductName      string
	OrganizerName    string
	OrganizerEmail   string
	DemoDuration     time.Duration
	FollowUpWindowFR string
	FollowUpWindowEN string

	// Email.
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	EmailTimeout     time.Duration

	// Submission store.
	StoreBackend  string
	StoreFilePath string
	DatabaseURL   string
	StoreS3Bucket string
	StoreS3Key    string

	// AWS.
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Rate limiting.
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	RateLimitPerMinute int
	RateLimitBurst     int

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	productName := getEnv("PRODUCT_NAME", "RiskDesk")
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		TrustProxyHeaders:  getEnvAsBool("TRUST_PROXY_HEADERS", false),

		ProductName:      productName,
		OrganizerName:    getEnv("ORGANIZER_NAME", productName),
		OrganizerEmail:   getEnv("ORGANIZER_EMAIL", "demo@riskdesk.io"),
		DemoDuration:     time.Duration(getEnvAsInt("DEMO_DURATION_MINUTES", 45)) * time.Minute,
		FollowUpWindowFR: getEnv("FOLLOW_UP_WINDOW_FR", "24 à 48 heures"),
		FollowUpWindowEN: getEnv("FOLLOW_UP_WINDOW_EN", "24-48 hours"),

		EmailProvider:    strings.ToLower(getEnv("EMAIL_PROVIDER", EmailAuto)),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", productName),
		EmailTimeout:     getEnvAsDuration("EMAIL_TIMEOUT", 10*time.Second),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
		StoreFilePath: getEnv("STORE_FILE_PATH", "data/demo-requests.json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StoreS3Bucket: getEnv("STORE_S3_BUCKET", ""),
		StoreS3Key:    getEnv("STORE_S3_KEY", "demo-requests.json"),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-3"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case StoreFile:
		if strings.TrimSpace(c.StoreFilePath) == "" {
			errs = append(errs, errors.New("STORE_FILE_PATH is required for the file store"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreS3:
		if strings.TrimSpace(c.StoreS3Bucket) == "" {
			errs = append(errs, errors.New("STORE_S3_BUCKET is required for the s3 store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.EmailProvider {
	case EmailAuto, EmailStub:
	case EmailSendGrid:
		if c.SendGridAPIKey == "" || c.EmailFromAddress == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY and EMAIL_FROM_ADDRESS are required for sendgrid"))
		}
	case EmailSES:
		if c.EmailFromAddress == "" {
			errs = append(errs, errors.New("EMAIL_FROM_ADDRESS is required for ses"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider))
	}

	if c.DemoDuration < time.Minute {
		errs = append(errs, errors.New("DEMO_DURATION_MINUTES must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ResolvedEmailProvider turns EmailAuto into a concrete provider.
func (c *Config) ResolvedEmailProvider() string {
	if c.EmailProvider != EmailAuto {
		return c.EmailProvider
	}
	switch {
	case c.SendGridAPIKey != "" && c.EmailFromAddress != "":
		return EmailSendGrid
	case c.EmailFromAddress != "" && c.AWSRegion != "":
		return EmailSES
	default:
		return EmailStub
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
