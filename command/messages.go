package command

import (
	"strings"

	"github.com/goliatone/go-banksync/core"
)

const (
	TypeExchangeCode      = "banksync.command.oauth.exchange_code"
	TypeRefreshTokens     = "banksync.command.tokens.refresh_expiring"
	TypePollAllUsers      = "banksync.command.sync.poll_all"
	TypeSyncUser          = "banksync.command.sync.user"
	TypeReconcileWebhooks = "banksync.command.webhooks.reconcile"
	TypeIngestTransaction = "banksync.command.transactions.ingest"
)

// ExchangeCodeMessage carries the authorization code returned on the
// OAuth callback.
type ExchangeCodeMessage struct {
	Code string
}

func (ExchangeCodeMessage) Type() string { return TypeExchangeCode }

func (m ExchangeCodeMessage) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	return nil
}

type RefreshTokensMessage struct{}

func (RefreshTokensMessage) Type() string { return TypeRefreshTokens }

func (RefreshTokensMessage) Validate() error { return nil }

type PollAllUsersMessage struct{}

func (PollAllUsersMessage) Type() string { return TypePollAllUsers }

func (PollAllUsersMessage) Validate() error { return nil }

// SyncUserMessage runs a full sync pass for one credential set.
type SyncUserMessage struct {
	Token core.Token
}

func (SyncUserMessage) Type() string { return TypeSyncUser }

func (m SyncUserMessage) Validate() error {
	if strings.TrimSpace(m.Token.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.Token.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	return nil
}

type ReconcileWebhooksMessage struct {
	AccessToken string
	AccountID   string
	URL         string
}

func (ReconcileWebhooksMessage) Type() string { return TypeReconcileWebhooks }

func (m ReconcileWebhooksMessage) Validate() error {
	if strings.TrimSpace(m.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	if strings.TrimSpace(m.AccountID) == "" {
		return commandValidationError("account_id", "account id is required")
	}
	if strings.TrimSpace(m.URL) == "" {
		return commandValidationError("url", "webhook url is required")
	}
	return nil
}

// IngestTransactionMessage applies one provider transaction payload,
// typically lifted from a push notification.
type IngestTransactionMessage struct {
	Listing core.TransactionListing
}

func (IngestTransactionMessage) Type() string { return TypeIngestTransaction }

func (m IngestTransactionMessage) Validate() error {
	if strings.TrimSpace(m.Listing.ID) == "" {
		return commandValidationError("id", "transaction id is required")
	}
	if strings.TrimSpace(m.Listing.AccountID) == "" {
		return commandValidationError("account_id", "account id is required")
	}
	return nil
}
