package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `validate:"required"`
	AppEnv   string `validate:"oneof=development staging production"`
	LogLevel string `validate:"oneof=trace debug info warn error"`

	// Backend selects the thing store: "memory" for the volatile store,
	// "dynamo" for DynamoDB.
	Backend string `validate:"oneof=memory dynamo"`

	AWSRegion         string
	AWSEndpointURL    string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID    string
	AWSSecretKey      string
	DynamoTableThings string
}

var validate = validator.New()

// Load reads all configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Backend:  getEnv("THING_BACKEND", "memory"),

		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:    getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:    getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTableThings: getEnv("DYNAMO_TABLE_THINGS", "things"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
