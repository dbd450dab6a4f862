package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	DatabaseURL  string
	SyncInterval time.Duration

	DonorAPI struct {
		BaseURL string
		Token   string
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	apiURL := os.Getenv("DONOR_API_URL")
	if apiURL == "" {
		return nil, fmt.Errorf("DONOR_API_URL must be set")
	}

	// Optional: the API accepts anonymous reads.
	apiToken := os.Getenv("DONOR_API_TOKEN")

	syncInterval := 30 * time.Second
	if raw := os.Getenv("SYNC_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
		}
		syncInterval = parsed
	}

	cfg := &Config{
		ServerPort:   serverPort,
		DatabaseURL:  databaseURL,
		SyncInterval: syncInterval,
	}
	cfg.DonorAPI.BaseURL = apiURL
	cfg.DonorAPI.Token = apiToken
	return cfg, nil
}
