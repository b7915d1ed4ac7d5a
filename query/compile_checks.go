package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-banksync/core"
)

var (
	_ gocmd.Querier[TransactionsForUserMessage, []core.Transaction] = (*TransactionsForUserQuery)(nil)
	_ gocmd.Querier[AccountsForUserMessage, []core.Account]         = (*AccountsForUserQuery)(nil)

	_ TransactionReader = (*core.Service)(nil)
)
