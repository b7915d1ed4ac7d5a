package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-banksync/core"
)

type appConfig struct {
	Port     string
	Driver   string
	DSN      string
	DebugSQL bool

	MonzoBaseURL string

	Sync core.Config
}

func loadConfig() (appConfig, error) {
	cfg := appConfig{
		Port:         envOr("PORT", "3000"),
		Driver:       envOr("BANKSYNC_DB_DRIVER", "sqlite3"),
		DSN:          envOr("BANKSYNC_DB_DSN", "file:banksync.db?_foreign_keys=on"),
		DebugSQL:     envBool("BANKSYNC_DB_DEBUG"),
		MonzoBaseURL: os.Getenv("MONZO_API_URL"),
		Sync:         core.DefaultConfig(),
	}

	cfg.Sync.BaseURL = strings.TrimSpace(os.Getenv("BANKSYNC_BASE_URL"))
	cfg.Sync.WebhookURL = strings.TrimSpace(os.Getenv("BANKSYNC_WEBHOOK_URL"))
	cfg.Sync.Provider.ClientID = strings.TrimSpace(os.Getenv("MONZO_CLIENT_ID"))
	cfg.Sync.Provider.ClientSecret = strings.TrimSpace(os.Getenv("MONZO_CLIENT_SECRET"))

	if d, ok := envDuration("BANKSYNC_TOKEN_REFRESH_INTERVAL"); ok {
		cfg.Sync.TokenRefreshInterval = d
	}
	if d, ok := envDuration("BANKSYNC_TOKEN_REFRESH_THRESHOLD"); ok {
		cfg.Sync.TokenRefreshThreshold = d
	}
	if d, ok := envDuration("BANKSYNC_ACCOUNT_POLL_INTERVAL"); ok {
		cfg.Sync.AccountPollInterval = d
	}

	if cfg.Sync.BaseURL == "" {
		return cfg, fmt.Errorf("BANKSYNC_BASE_URL is required")
	}
	if cfg.Sync.Provider.ClientID == "" || cfg.Sync.Provider.ClientSecret == "" {
		return cfg, fmt.Errorf("MONZO_CLIENT_ID and MONZO_CLIENT_SECRET are required")
	}
	return cfg, nil
}

func envOr(key string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return value == "1" || value == "true" || value == "yes"
}

func envDuration(key string) (time.Duration, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false
	}
	return d, true
}
