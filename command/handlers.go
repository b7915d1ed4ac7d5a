package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-banksync/core"
)

// MutatingService is the write surface the commands drive. The core
// service satisfies it.
type MutatingService interface {
	ExchangeCode(ctx context.Context, code string) (core.Token, error)
	RefreshExpiringTokens(ctx context.Context) error
	PollAllUsers(ctx context.Context) error
	SyncUser(ctx context.Context, token core.Token) error
	ReconcileWebhooks(ctx context.Context, accessToken string, accountID string, desiredURL string) error
	IngestTransaction(ctx context.Context, listing core.TransactionListing) (core.Transaction, error)
}

type ExchangeCodeCommand struct {
	service MutatingService
}

func NewExchangeCodeCommand(service MutatingService) *ExchangeCodeCommand {
	return &ExchangeCodeCommand{service: service}
}

func (c *ExchangeCodeCommand) Execute(ctx context.Context, msg ExchangeCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: exchange service is required")
	}
	out, err := c.service.ExchangeCode(ctx, msg.Code)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshTokensCommand struct {
	service MutatingService
}

func NewRefreshTokensCommand(service MutatingService) *RefreshTokensCommand {
	return &RefreshTokensCommand{service: service}
}

func (c *RefreshTokensCommand) Execute(ctx context.Context, msg RefreshTokensMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	return c.service.RefreshExpiringTokens(ctx)
}

type PollAllUsersCommand struct {
	service MutatingService
}

func NewPollAllUsersCommand(service MutatingService) *PollAllUsersCommand {
	return &PollAllUsersCommand{service: service}
}

func (c *PollAllUsersCommand) Execute(ctx context.Context, msg PollAllUsersMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: poll service is required")
	}
	return c.service.PollAllUsers(ctx)
}

type SyncUserCommand struct {
	service MutatingService
}

func NewSyncUserCommand(service MutatingService) *SyncUserCommand {
	return &SyncUserCommand{service: service}
}

func (c *SyncUserCommand) Execute(ctx context.Context, msg SyncUserMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	return c.service.SyncUser(ctx, msg.Token)
}

type ReconcileWebhooksCommand struct {
	service MutatingService
}

func NewReconcileWebhooksCommand(service MutatingService) *ReconcileWebhooksCommand {
	return &ReconcileWebhooksCommand{service: service}
}

func (c *ReconcileWebhooksCommand) Execute(ctx context.Context, msg ReconcileWebhooksMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	return c.service.ReconcileWebhooks(ctx, msg.AccessToken, msg.AccountID, msg.URL)
}

type IngestTransactionCommand struct {
	service MutatingService
}

func NewIngestTransactionCommand(service MutatingService) *IngestTransactionCommand {
	return &IngestTransactionCommand{service: service}
}

func (c *IngestTransactionCommand) Execute(ctx context.Context, msg IngestTransactionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ingest service is required")
	}
	out, err := c.service.IngestTransaction(ctx, msg.Listing)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
