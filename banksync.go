package banksync

import "github.com/goliatone/go-banksync/core"

type Config = core.Config

type ProviderConfig = core.ProviderConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Token = core.Token
type Account = core.Account
type Transaction = core.Transaction
type Webhook = core.Webhook
type TokenGrant = core.TokenGrant
type AccountListing = core.AccountListing
type TransactionListing = core.TransactionListing
type MerchantRef = core.MerchantRef

type TokenStore = core.TokenStore
type AccountStore = core.AccountStore
type TransactionStore = core.TransactionStore
type StoreProvider = core.StoreProvider
type RepositoryStoreFactory = core.RepositoryStoreFactory
type ProviderClient = core.ProviderClient
type MetricsRecorder = core.MetricsRecorder
type JobEnqueuer = core.JobEnqueuer

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithProviderClient    = core.WithProviderClient
	WithTokenStore        = core.WithTokenStore
	WithAccountStore      = core.WithAccountStore
	WithTransactionStore  = core.WithTransactionStore
	WithRepositoryFactory = core.WithRepositoryFactory
	WithPersistenceClient = core.WithPersistenceClient
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithJobEnqueuer       = core.WithJobEnqueuer
	WithNowFunc           = core.WithNowFunc
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
