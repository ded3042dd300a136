package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the emergency triage service
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins string

	// Session configuration
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration

	// Rate limiting
	RateLimitPerMinute int

	// Incident store (MySQL) configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBEnabled  bool

	// RabbitMQ dispatch event configuration
	RabbitMQURL        string
	DispatchExchange   string
	DispatchRoutingKey string

	// OpenAI configuration for optional reply phrasing
	OpenAIAPIKey    string
	OpenAIModel     string
	PhrasingTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// Server defaults
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		// Session defaults (5 minutes idle eviction)
		SessionIdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT", 5*time.Minute),
		SweepInterval:      getDurationEnv("SESSION_SWEEP_INTERVAL", 30*time.Second),

		// Rate limiting defaults
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 60),

		// Incident store defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "emergency"),
		DBEnabled:  getBoolEnv("DB_ENABLED", false),

		// RabbitMQ defaults (empty URL disables publishing)
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		DispatchExchange:   getEnv("DISPATCH_EXCHANGE", "emergency-dispatch"),
		DispatchRoutingKey: getEnv("DISPATCH_ROUTING_KEY", "dispatch.authorized"),

		// OpenAI defaults (empty key disables phrasing)
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		PhrasingTimeout: getDurationEnv("PHRASING_TIMEOUT", 10*time.Second),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
