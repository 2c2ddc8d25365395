package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the engine.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// ResultSubmissionTimeout is how long a single unchallenged result
	// claim stands before it is applied as a default win. There is no
	// safe default; deployments must set it explicitly.
	ResultSubmissionTimeout time.Duration

	MatchLeadTime time.Duration
	CheckInOffset time.Duration
	CheckInWindow time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from the environment, optionally seeded
// from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	resultTimeoutStr := os.Getenv("RESULT_SUBMISSION_TIMEOUT")
	if resultTimeoutStr == "" {
		return nil, fmt.Errorf("RESULT_SUBMISSION_TIMEOUT environment variable is not set")
	}
	resultTimeout, err := time.ParseDuration(resultTimeoutStr)
	if err != nil || resultTimeout <= 0 {
		return nil, fmt.Errorf("RESULT_SUBMISSION_TIMEOUT must be a positive duration, got %q", resultTimeoutStr)
	}

	leadTime, err := durationEnv("MATCH_LEAD_TIME", time.Hour)
	if err != nil {
		return nil, err
	}
	checkInOffset, err := durationEnv("CHECK_IN_OFFSET", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	checkInWindow, err := durationEnv("CHECK_IN_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:             dbURL,
		JWTSecretKey:            jwtKey,
		ServerPort:              port,
		ResultSubmissionTimeout: resultTimeout,
		MatchLeadTime:           leadTime,
		CheckInOffset:           checkInOffset,
		CheckInWindow:           checkInWindow,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	return cfg, nil
}

// R2Enabled reports whether the object storage sinks are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, raw)
	}
	return v, nil
}
