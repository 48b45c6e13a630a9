package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter of the service.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Platform margin retained from each prize pot, in whole percent.
	PlatformMarginPercent int64

	// Cloudflare R2 (S3 compatible) storage for evidence screenshots.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// OCR classifier for evidence screenshots. Optional: without an endpoint
	// every submission stays pending until an arbiter rules.
	OCREndpoint string
	OCRAPIKey   string

	// Telegram notifications. Optional.
	TelegramBotToken string

	// MatchReaperMaxAge cancels unconfirmed matches older than this. Zero
	// disables the reaper.
	MatchReaperMaxAge time.Duration
}

// Load reads configuration from the environment. A .env file is picked up
// when present; its absence is not an error.
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

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	margin := int64(10)
	if marginStr := os.Getenv("PLATFORM_MARGIN_PERCENT"); marginStr != "" {
		margin, err = strconv.ParseInt(marginStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PLATFORM_MARGIN_PERCENT environment variable: %w", err)
		}
		if margin < 0 || margin >= 100 {
			return nil, fmt.Errorf("PLATFORM_MARGIN_PERCENT must be between 0 and 99, got %d", margin)
		}
	}

	var reaperMaxAge time.Duration
	if ageStr := os.Getenv("MATCH_REAPER_MAX_AGE"); ageStr != "" {
		reaperMaxAge, err = time.ParseDuration(ageStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_REAPER_MAX_AGE environment variable: %w", err)
		}
		if reaperMaxAge <= 0 {
			return nil, fmt.Errorf("MATCH_REAPER_MAX_AGE must be positive, got %v", reaperMaxAge)
		}
	}

	cfg := &Config{
		DatabaseURL:           dbURL,
		JWTSecretKey:          jwtKey,
		ServerPort:            port,
		PlatformMarginPercent: margin,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		OCREndpoint: os.Getenv("OCR_ENDPOINT"),
		OCRAPIKey:   os.Getenv("OCR_API_KEY"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		MatchReaperMaxAge: reaperMaxAge,
	}

	return cfg, nil
}
