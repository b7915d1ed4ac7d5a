package banksync

import (
	"fmt"

	bankcommand "github.com/goliatone/go-banksync/command"
	"github.com/goliatone/go-banksync/core"
	bankquery "github.com/goliatone/go-banksync/query"
)

// CommandQueryService is the surface the facade exposes through
// message handlers. The core service satisfies it.
type CommandQueryService interface {
	bankcommand.MutatingService
	bankquery.TransactionReader
}

type Commands struct {
	ExchangeCode      *bankcommand.ExchangeCodeCommand
	RefreshTokens     *bankcommand.RefreshTokensCommand
	PollAllUsers      *bankcommand.PollAllUsersCommand
	SyncUser          *bankcommand.SyncUserCommand
	ReconcileWebhooks *bankcommand.ReconcileWebhooksCommand
	IngestTransaction *bankcommand.IngestTransactionCommand
}

type Queries struct {
	TransactionsForUser *bankquery.TransactionsForUserQuery
	AccountsForUser     *bankquery.AccountsForUserQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	accountReader bankquery.AccountReader
}

func WithAccountReader(reader bankquery.AccountReader) FacadeOption {
	return func(options *facadeOptions) {
		options.accountReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("banksync: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.accountReader
	if reader == nil {
		reader = resolveAccountReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ExchangeCode:      bankcommand.NewExchangeCodeCommand(service),
		RefreshTokens:     bankcommand.NewRefreshTokensCommand(service),
		PollAllUsers:      bankcommand.NewPollAllUsersCommand(service),
		SyncUser:          bankcommand.NewSyncUserCommand(service),
		ReconcileWebhooks: bankcommand.NewReconcileWebhooksCommand(service),
		IngestTransaction: bankcommand.NewIngestTransactionCommand(service),
	}
	facade.queries = Queries{
		TransactionsForUser: bankquery.NewTransactionsForUserQuery(service),
		AccountsForUser:     bankquery.NewAccountsForUserQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveAccountReader digs an account reader out of the service's
// resolved dependencies when one was not supplied. The SQL account
// store satisfies it; a minimal custom store may not, in which case
// the accounts query stays unavailable until wired explicitly.
func resolveAccountReader(service CommandQueryService) bankquery.AccountReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(bankquery.AccountReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if reader, ok := deps.AccountStore.(bankquery.AccountReader); ok {
		return reader
	}
	return nil
}
