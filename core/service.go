package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const JobIDInitialLoad = "banksync.initial_load"

// Service orchestrates token lifecycle, account/transaction ingestion,
// and webhook reconciliation for every authorized user.
type Service struct {
	config           Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorMapper      ErrorMapper
	providerClient   ProviderClient
	tokenStore       TokenStore
	accountStore     AccountStore
	transactionStore TransactionStore
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	jobEnqueuer      JobEnqueuer
	now              func() time.Time

	detached sync.WaitGroup
}

// ServiceDependencies exposes resolved collaborators for embedding
// applications (HTTP layer, command handlers, workers).
type ServiceDependencies struct {
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorMapper      ErrorMapper
	ProviderClient   ProviderClient
	TokenStore       TokenStore
	AccountStore     AccountStore
	TransactionStore TransactionStore
	JobEnqueuer      JobEnqueuer
}

func defaultServiceBuilder(cfg Config) serviceBuilder {
	return serviceBuilder{runtimeConfig: cfg}
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("banksync", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("banksync"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = serviceErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig = finalConfig.withDefaults()

	if builder.storeFactory != nil &&
		(builder.tokenStore == nil || builder.accountStore == nil || builder.transactionStore == nil) {
		storeProvider, buildErr := builder.storeFactory.BuildStores(builder.persistenceClient)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		if storeProvider != nil {
			if builder.tokenStore == nil {
				builder.tokenStore = storeProvider.TokenStore()
			}
			if builder.accountStore == nil {
				builder.accountStore = storeProvider.AccountStore()
			}
			if builder.transactionStore == nil {
				builder.transactionStore = storeProvider.TransactionStore()
			}
		}
	}

	return &Service{
		config:           finalConfig,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		errorMapper:      builder.errorMapper,
		providerClient:   builder.providerClient,
		tokenStore:       builder.tokenStore,
		accountStore:     builder.accountStore,
		transactionStore: builder.transactionStore,
		configProvider:   builder.configProvider,
		optionsResolver:  builder.optionsResolver,
		jobEnqueuer:      builder.jobEnqueuer,
		now:              builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:           s.logger,
		LoggerProvider:   s.loggerProvider,
		MetricsRecorder:  s.metricsRecorder,
		ErrorMapper:      s.errorMapper,
		ProviderClient:   s.providerClient,
		TokenStore:       s.tokenStore,
		AccountStore:     s.accountStore,
		TransactionStore: s.transactionStore,
		JobEnqueuer:      s.jobEnqueuer,
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// ExchangeCode completes the OAuth authorization: exchanges the code,
// persists the token, and spawns a detached initial load. The returned
// token is already durable when this returns.
func (s *Service) ExchangeCode(ctx context.Context, code string) (Token, error) {
	if s == nil || s.providerClient == nil || s.tokenStore == nil {
		return Token{}, s.mapError(fmt.Errorf("core: exchange requires provider client and token store"))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Token{}, s.mapError(newBadInputError("core: authorization code is required"))
	}

	grant, err := s.providerClient.ExchangeAuthCode(ctx, code, s.config.RedirectURI())
	if err != nil {
		return Token{}, s.mapError(err)
	}
	token := TokenFromGrant(s.now(), grant)
	if err := token.Validate(); err != nil {
		return Token{}, s.mapError(err)
	}
	if err := s.tokenStore.Upsert(ctx, token); err != nil {
		return Token{}, s.mapError(NewStoreError("core: persist exchanged token", err))
	}

	s.spawnInitialLoad(token)
	return token, nil
}

// spawnInitialLoad hands the first account sync to the job queue when
// one is wired, falling back to a tracked goroutine. The HTTP response
// never waits on it.
func (s *Service) spawnInitialLoad(token Token) {
	correlationID := fmt.Sprintf("initial-load-%s-%d", token.UserID, s.now().UnixNano())

	if s.jobEnqueuer != nil {
		err := s.jobEnqueuer.Enqueue(context.Background(), &JobExecutionMessage{
			JobID: JobIDInitialLoad,
			Parameters: map[string]any{
				"user_id": token.UserID,
			},
			IdempotencyKey: correlationID,
			DedupPolicy:    "drop",
		})
		if err == nil {
			s.logInfo(context.Background(), "initial load enqueued", map[string]any{
				"user_id":        token.UserID,
				"correlation_id": correlationID,
			})
			return
		}
		s.logError(context.Background(), "initial load enqueue failed, running inline", map[string]any{
			"user_id":        token.UserID,
			"correlation_id": correlationID,
			"error":          err.Error(),
		})
	}

	s.detached.Add(1)
	go func() {
		defer s.detached.Done()
		if err := s.InitialLoad(context.Background(), token); err != nil {
			s.logError(context.Background(), "initial load failed", map[string]any{
				"user_id":        token.UserID,
				"correlation_id": correlationID,
				"error":          err.Error(),
			})
			return
		}
		s.logInfo(context.Background(), "initial load finished", map[string]any{
			"user_id":        token.UserID,
			"correlation_id": correlationID,
		})
	}()
}

// InitialLoad runs the account sync only; transaction history is left
// to the next scheduled poll so authorization stays cheap.
func (s *Service) InitialLoad(ctx context.Context, token Token) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	return s.SyncAccounts(ctx, token)
}

// WaitDetached blocks until every tracked detached task has finished.
// Intended for shutdown and tests.
func (s *Service) WaitDetached() {
	if s == nil {
		return
	}
	s.detached.Wait()
}

// RefreshExpiringTokens finds every token expiring inside the
// configured threshold and refreshes each sequentially. A failed
// refresh is logged and skipped; the token stays due next cycle.
func (s *Service) RefreshExpiringTokens(ctx context.Context) error {
	if s == nil || s.providerClient == nil || s.tokenStore == nil {
		return fmt.Errorf("core: refresh requires provider client and token store")
	}

	cutoff := s.now().Add(s.config.TokenRefreshThreshold)
	candidates, err := s.tokenStore.ExpiringBefore(ctx, cutoff)
	if err != nil {
		return s.mapError(NewStoreError("core: query expiring tokens", err))
	}
	s.logInfo(ctx, "token refresh pass", map[string]any{
		"candidates": len(candidates),
	})

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		grant, err := s.providerClient.RefreshToken(ctx, candidate.RefreshToken)
		if err != nil {
			s.logError(ctx, "token refresh failed", map[string]any{
				"user_id": candidate.UserID,
				"error":   err.Error(),
			})
			continue
		}
		refreshed := TokenFromGrant(s.now(), grant)
		if refreshed.UserID == "" {
			refreshed.UserID = candidate.UserID
		}
		if err := s.tokenStore.Upsert(ctx, refreshed); err != nil {
			s.logError(ctx, "token refresh persist failed", map[string]any{
				"user_id": refreshed.UserID,
				"error":   err.Error(),
			})
			continue
		}
		s.logInfo(ctx, "token refreshed", map[string]any{
			"user_id": refreshed.UserID,
		})
	}
	return nil
}

// PollAllUsers runs one full poll pass: for every known token, account
// sync, then transaction sync, then webhook reconciliation per owned
// account. Each step is fault isolated; a failure is logged and the
// pass moves on.
func (s *Service) PollAllUsers(ctx context.Context) error {
	if s == nil || s.tokenStore == nil {
		return fmt.Errorf("core: poll requires a token store")
	}

	tokens, err := s.tokenStore.All(ctx)
	if err != nil {
		return s.mapError(NewStoreError("core: query tokens", err))
	}
	s.logInfo(ctx, "account poll pass", map[string]any{
		"tokens": len(tokens),
	})

	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SyncAccounts(ctx, token); err != nil {
			s.logError(ctx, "account sync failed", map[string]any{
				"user_id": token.UserID,
				"error":   err.Error(),
			})
		}
		if err := s.SyncTransactions(ctx, token); err != nil {
			s.logError(ctx, "transaction sync failed", map[string]any{
				"user_id": token.UserID,
				"error":   err.Error(),
			})
		}
		s.reconcileUserWebhooks(ctx, token)
	}
	return nil
}

func (s *Service) reconcileUserWebhooks(ctx context.Context, token Token) {
	if s.accountStore == nil || strings.TrimSpace(s.config.WebhookURL) == "" {
		return
	}
	accountIDs, err := s.accountStore.IDsForUser(ctx, token.UserID)
	if err != nil {
		s.logError(ctx, "webhook reconciliation account lookup failed", map[string]any{
			"user_id": token.UserID,
			"error":   err.Error(),
		})
		return
	}
	for _, accountID := range accountIDs {
		if err := s.ReconcileWebhooks(ctx, token.AccessToken, accountID, s.config.WebhookURL); err != nil {
			s.logError(ctx, "webhook reconciliation failed", map[string]any{
				"user_id":    token.UserID,
				"account_id": accountID,
				"error":      err.Error(),
			})
		}
	}
}

// IngestTransaction is the push-notification upsert path. It shares
// semantics with polling: idempotent keyed upsert, empty settled stays
// nil.
func (s *Service) IngestTransaction(ctx context.Context, listing TransactionListing) (Transaction, error) {
	if s == nil || s.transactionStore == nil {
		return Transaction{}, s.mapError(fmt.Errorf("core: ingest requires a transaction store"))
	}
	transaction, err := TransactionFromListing(listing.AccountID, listing)
	if err != nil {
		return Transaction{}, s.mapError(err)
	}
	if _, err := s.transactionStore.Upsert(ctx, transaction); err != nil {
		return Transaction{}, s.mapError(NewStoreError("core: persist pushed transaction", err))
	}
	return transaction, nil
}

// TransactionsForUser serves the read model: all transactions across
// the user's accounts.
func (s *Service) TransactionsForUser(ctx context.Context, userID string) ([]Transaction, error) {
	if s == nil || s.accountStore == nil || s.transactionStore == nil {
		return nil, s.mapError(fmt.Errorf("core: transactions query requires account and transaction stores"))
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, s.mapError(newBadInputError("core: user id is required"))
	}
	accountIDs, err := s.accountStore.IDsForUser(ctx, userID)
	if err != nil {
		return nil, s.mapError(NewStoreError("core: query account ids", err))
	}
	transactions, err := s.transactionStore.ForAccounts(ctx, accountIDs)
	if err != nil {
		return nil, s.mapError(NewStoreError("core: query transactions", err))
	}
	return transactions, nil
}

var _ ErrorMapper = serviceErrorMapper

// NopMetricsRecorder drops every measurement.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string)         {}
func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}
