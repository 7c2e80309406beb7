package config

import (
	"os"
	"strconv"
	"time"
)

// AppConfig holds everything the process needs, loaded once at startup and
// never mutated afterwards. Components receive the values they need at
// construction.
type AppConfig struct {
	Port        string
	Environment string
	APIKey      string

	StripeSecretKey string
	StripePublicKey string

	WebhookSecret    string
	WebhookTolerance time.Duration

	AppURL             string
	DefaultSuccessURL  string
	DefaultCancelURL   string
	OperationLogPath   string
	EnableOperationLog bool

	RateLimitPerMinute        int
	WebhookRateLimitPerMinute int

	OpenSearchURL    string
	OpenSearchUser   string
	OpenSearchPass   string
	EnableOpenSearch bool
	LoggingLevel     string
}

// Load builds the application configuration from the environment.
func Load() *AppConfig {
	appURL := GetEnv("APP_URL", "http://localhost:9000")
	return &AppConfig{
		Port:        GetEnv("APP_PORT", "9000"),
		Environment: GetEnv("ENVIRONMENT", "development"),
		APIKey:      GetEnv("API_KEY", ""),

		StripeSecretKey: GetEnv("STRIPE_SECRET_KEY", ""),
		StripePublicKey: GetEnv("STRIPE_PUBLISHABLE_KEY", ""),

		WebhookSecret:    GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		WebhookTolerance: time.Duration(GetIntEnv("WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,

		AppURL:             appURL,
		DefaultSuccessURL:  GetEnv("CHECKOUT_SUCCESS_URL", appURL+"/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		DefaultCancelURL:   GetEnv("CHECKOUT_CANCEL_URL", appURL+"/checkout/cancel?session_id={CHECKOUT_SESSION_ID}"),
		OperationLogPath:   GetEnv("OPERATION_LOG_PATH", "vendorpay.db"),
		EnableOperationLog: GetBoolEnv("ENABLE_OPERATION_LOG", true),

		RateLimitPerMinute:        GetIntEnv("RATE_LIMIT_PER_MINUTE", 100),
		WebhookRateLimitPerMinute: GetIntEnv("WEBHOOK_RATE_LIMIT_PER_MINUTE", 600),

		OpenSearchURL:    GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchUser:   GetEnv("OPENSEARCH_USER", ""),
		OpenSearchPass:   GetEnv("OPENSEARCH_PASSWORD", ""),
		EnableOpenSearch: GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
		LoggingLevel:     GetEnv("LOGGING_LEVEL", "info"),
	}
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
