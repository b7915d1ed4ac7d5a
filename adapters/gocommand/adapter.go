package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-banksync/command"
	"github.com/goliatone/go-banksync/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// Subscriptions bundles every dispatcher subscription made by
// RegisterSyncHandlers so callers can tear them down together.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// RegisterSyncHandlers wires the sync command and query handlers into
// the dispatcher and registry in one pass.
func RegisterSyncHandlers(
	adapter *RegistryAdapter,
	service command.MutatingService,
	transactions query.TransactionReader,
	accounts query.AccountReader,
	runnerOpts ...runner.Option,
) (Subscriptions, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: mutating service is required")
	}

	subs := Subscriptions{}
	register := func(sub commanddispatcher.Subscription, handler any) error {
		subs = append(subs, sub)
		if err := adapter.RegisterCommand(handler); err != nil {
			subs.Unsubscribe()
			return err
		}
		return nil
	}

	exchange := command.NewExchangeCodeCommand(service)
	if err := register(SubscribeCommand(exchange), exchange); err != nil {
		return nil, err
	}
	refresh := command.NewRefreshTokensCommand(service)
	if err := register(SubscribeCommand(refresh), refresh); err != nil {
		return nil, err
	}
	poll := command.NewPollAllUsersCommand(service)
	if err := register(SubscribeCommand(poll), poll); err != nil {
		return nil, err
	}
	syncUser := command.NewSyncUserCommand(service)
	if err := register(SubscribeCommand(syncUser), syncUser); err != nil {
		return nil, err
	}
	reconcile := command.NewReconcileWebhooksCommand(service)
	if err := register(SubscribeCommand(reconcile), reconcile); err != nil {
		return nil, err
	}
	ingest := command.NewIngestTransactionCommand(service)
	if err := register(SubscribeCommand(ingest), ingest); err != nil {
		return nil, err
	}

	if transactions != nil {
		listTx := query.NewTransactionsForUserQuery(transactions)
		if err := register(SubscribeQuery(listTx), listTx); err != nil {
			return nil, err
		}
	}
	if accounts != nil {
		listAccounts := query.NewAccountsForUserQuery(accounts)
		if err := register(SubscribeQuery(listAccounts), listAccounts); err != nil {
			return nil, err
		}
	}
	return subs, nil
}
