package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-banksync/core"
)

var (
	_ gocmd.Commander[ExchangeCodeMessage]      = (*ExchangeCodeCommand)(nil)
	_ gocmd.Commander[RefreshTokensMessage]     = (*RefreshTokensCommand)(nil)
	_ gocmd.Commander[PollAllUsersMessage]      = (*PollAllUsersCommand)(nil)
	_ gocmd.Commander[SyncUserMessage]          = (*SyncUserCommand)(nil)
	_ gocmd.Commander[ReconcileWebhooksMessage] = (*ReconcileWebhooksCommand)(nil)
	_ gocmd.Commander[IngestTransactionMessage] = (*IngestTransactionCommand)(nil)

	_ MutatingService = (*core.Service)(nil)
)
