package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// TokenStore persists OAuth credential sets keyed by user id.
type TokenStore interface {
	Upsert(ctx context.Context, token Token) error
	All(ctx context.Context) ([]Token, error)
	ExpiringBefore(ctx context.Context, cutoff time.Time) ([]Token, error)
}

// AccountStore persists provider accounts keyed by account id.
type AccountStore interface {
	Upsert(ctx context.Context, account Account) error
	IDsForUser(ctx context.Context, userID string) ([]string, error)
}

// TransactionStore persists transactions keyed by transaction id.
// Upsert reports the number of rows applied.
type TransactionStore interface {
	Upsert(ctx context.Context, transaction Transaction) (int64, error)
	ForAccounts(ctx context.Context, accountIDs []string) ([]Transaction, error)
}

// StoreProvider hands out the durable stores the engine depends on.
type StoreProvider interface {
	TokenStore() TokenStore
	AccountStore() AccountStore
	TransactionStore() TransactionStore
}

// RepositoryStoreFactory builds a StoreProvider from a persistence
// client or *bun.DB handle.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// ProviderClient is the stateless request/response mapping onto the
// banking provider's OAuth, accounts, transactions, and webhooks
// endpoints. Implementations apply their own per-request timeout.
type ProviderClient interface {
	ExchangeAuthCode(ctx context.Context, code string, redirectURI string) (TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error)
	ListAccounts(ctx context.Context, accessToken string) ([]AccountListing, error)
	// ListTransactions fetches one page. An empty before requests the
	// newest page; the provider's cursor-out-of-range rejection maps to
	// a ProviderRejected error.
	ListTransactions(ctx context.Context, accessToken string, accountID string, before string) ([]TransactionListing, error)
	ListWebhooks(ctx context.Context, accessToken string, accountID string) ([]Webhook, error)
	RegisterWebhook(ctx context.Context, accessToken string, accountID string, url string) (Webhook, error)
	DeleteWebhook(ctx context.Context, accessToken string, webhookID string) error
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// MetricsRecorder receives operation counters and latency histograms.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// JobExecutionMessage describes one detached sync job handed to the
// queue adapter.
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// JobNackOptions controls requeue behavior for a failed job delivery.
type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

// JobWorkerEvent mirrors the worker lifecycle callbacks of the queue
// runtime for observability hooks.
type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
