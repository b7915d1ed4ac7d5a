package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTokenRefreshInterval  = 30 * time.Minute
	DefaultTokenRefreshThreshold = time.Hour
	DefaultAccountPollInterval   = time.Hour
	DefaultSyncConcurrency       = 1
	DefaultMaxTransactionPages   = 1000
)

// ProviderConfig holds the OAuth client settings for the upstream
// banking provider.
type ProviderConfig struct {
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`

	// BaseURL is this service's public URL; the OAuth redirect URI is
	// derived from it.
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`

	// WebhookURL is the desired push-notification target every account
	// subscription converges to.
	WebhookURL string `koanf:"webhook_url" mapstructure:"webhook_url"`

	Provider ProviderConfig `koanf:"provider" mapstructure:"provider"`

	TokenRefreshInterval  time.Duration `koanf:"token_refresh_interval" mapstructure:"token_refresh_interval"`
	TokenRefreshThreshold time.Duration `koanf:"token_refresh_threshold" mapstructure:"token_refresh_threshold"`
	AccountPollInterval   time.Duration `koanf:"account_poll_interval" mapstructure:"account_poll_interval"`

	// SyncConcurrency bounds concurrent pagination and upsert work
	// inside one user's transaction sync.
	SyncConcurrency int `koanf:"sync_concurrency" mapstructure:"sync_concurrency"`

	// MaxTransactionPages bounds one account's cursor walk so a
	// misbehaving provider cannot hold pagination open forever.
	MaxTransactionPages int `koanf:"max_transaction_pages" mapstructure:"max_transaction_pages"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:           "banksync",
		TokenRefreshInterval:  DefaultTokenRefreshInterval,
		TokenRefreshThreshold: DefaultTokenRefreshThreshold,
		AccountPollInterval:   DefaultAccountPollInterval,
		SyncConcurrency:       DefaultSyncConcurrency,
		MaxTransactionPages:   DefaultMaxTransactionPages,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.TokenRefreshInterval < 0 {
		return fmt.Errorf("core: token_refresh_interval must not be negative")
	}
	if c.TokenRefreshThreshold < 0 {
		return fmt.Errorf("core: token_refresh_threshold must not be negative")
	}
	if c.AccountPollInterval < 0 {
		return fmt.Errorf("core: account_poll_interval must not be negative")
	}
	if c.SyncConcurrency < 0 {
		return fmt.Errorf("core: sync_concurrency must not be negative")
	}
	return nil
}

// RedirectURI is the OAuth callback location registered with the
// provider.
func (c Config) RedirectURI() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/oauth/callback"
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = defaults.ServiceName
	}
	if c.TokenRefreshInterval <= 0 {
		c.TokenRefreshInterval = defaults.TokenRefreshInterval
	}
	if c.TokenRefreshThreshold <= 0 {
		c.TokenRefreshThreshold = defaults.TokenRefreshThreshold
	}
	if c.AccountPollInterval <= 0 {
		c.AccountPollInterval = defaults.AccountPollInterval
	}
	if c.SyncConcurrency <= 0 {
		c.SyncConcurrency = defaults.SyncConcurrency
	}
	if c.MaxTransactionPages <= 0 {
		c.MaxTransactionPages = defaults.MaxTransactionPages
	}
	return c
}
