package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryTokenStore struct {
	mu      sync.Mutex
	byUser  map[string]Token
	upserts int
	allErr  error
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{byUser: map[string]Token{}}
}

func (s *memoryTokenStore) Upsert(_ context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(token.UserID) == "" {
		return fmt.Errorf("memory token store: user id is required")
	}
	s.byUser[token.UserID] = token
	s.upserts++
	return nil
}

func (s *memoryTokenStore) All(_ context.Context) ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allErr != nil {
		return nil, s.allErr
	}
	tokens := make([]Token, 0, len(s.byUser))
	for _, token := range s.byUser {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].UserID < tokens[j].UserID })
	return tokens, nil
}

func (s *memoryTokenStore) ExpiringBefore(_ context.Context, cutoff time.Time) ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tokens []Token
	for _, token := range s.byUser {
		if token.ExpiryTime.Before(cutoff) {
			tokens = append(tokens, token)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].UserID < tokens[j].UserID })
	return tokens, nil
}

func (s *memoryTokenStore) get(userID string) (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byUser[userID]
	return token, ok
}

type memoryAccountStore struct {
	mu      sync.Mutex
	byID    map[string]Account
	upserts int
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{byID: map[string]Account{}}
}

func (s *memoryAccountStore) Upsert(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(account.ID) == "" {
		return fmt.Errorf("memory account store: account id is required")
	}
	s.byID[account.ID] = account
	s.upserts++
	return nil
}

func (s *memoryAccountStore) IDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, account := range s.byID {
		if account.UserID == userID {
			ids = append(ids, account.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memoryTransactionStore struct {
	mu      sync.Mutex
	byID    map[string]Transaction
	upserts int
}

func newMemoryTransactionStore() *memoryTransactionStore {
	return &memoryTransactionStore{byID: map[string]Transaction{}}
}

func (s *memoryTransactionStore) Upsert(_ context.Context, transaction Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(transaction.ID) == "" {
		return 0, fmt.Errorf("memory transaction store: transaction id is required")
	}
	s.byID[transaction.ID] = transaction
	s.upserts++
	return 1, nil
}

func (s *memoryTransactionStore) ForAccounts(_ context.Context, accountIDs []string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range accountIDs {
		wanted[id] = true
	}
	var transactions []Transaction
	for _, transaction := range s.byID {
		if wanted[transaction.AccountID] {
			transactions = append(transactions, transaction)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Created.After(transactions[j].Created)
	})
	return transactions, nil
}

func (s *memoryTransactionStore) get(id string) (Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transaction, ok := s.byID[id]
	return transaction, ok
}

// scriptedProviderClient answers from canned data and records calls.
type scriptedProviderClient struct {
	mu sync.Mutex

	exchangeGrant TokenGrant
	exchangeErr   error
	exchangeCalls []string

	refreshGrants map[string]TokenGrant
	refreshErrs   map[string]error
	refreshCalls  []string

	accountsByToken map[string][]AccountListing
	accountsErrs    map[string]error
	accountCalls    int

	// transactionPages is consumed per account in order; a nil page
	// entry yields the scripted error for that request instead.
	transactionPages map[string][][]TransactionListing
	transactionErrs  map[string]error
	listCalls        map[string][]string

	webhooksByAccount map[string][]Webhook
	webhookListErr    error
	registered        []Webhook
	deleted           []string
	registerErr       error
	deleteErr         error
}

func newScriptedProviderClient() *scriptedProviderClient {
	return &scriptedProviderClient{
		refreshGrants:     map[string]TokenGrant{},
		refreshErrs:       map[string]error{},
		accountsByToken:   map[string][]AccountListing{},
		accountsErrs:      map[string]error{},
		transactionPages:  map[string][][]TransactionListing{},
		transactionErrs:   map[string]error{},
		listCalls:         map[string][]string{},
		webhooksByAccount: map[string][]Webhook{},
	}
}

func (c *scriptedProviderClient) ExchangeAuthCode(_ context.Context, code string, _ string) (TokenGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchangeCalls = append(c.exchangeCalls, code)
	if c.exchangeErr != nil {
		return TokenGrant{}, c.exchangeErr
	}
	return c.exchangeGrant, nil
}

func (c *scriptedProviderClient) RefreshToken(_ context.Context, refreshToken string) (TokenGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshCalls = append(c.refreshCalls, refreshToken)
	if err, ok := c.refreshErrs[refreshToken]; ok {
		return TokenGrant{}, err
	}
	grant, ok := c.refreshGrants[refreshToken]
	if !ok {
		return TokenGrant{}, fmt.Errorf("scripted provider: no grant for refresh token %q", refreshToken)
	}
	return grant, nil
}

func (c *scriptedProviderClient) ListAccounts(_ context.Context, accessToken string) ([]AccountListing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountCalls++
	if err, ok := c.accountsErrs[accessToken]; ok {
		return nil, err
	}
	return append([]AccountListing(nil), c.accountsByToken[accessToken]...), nil
}

func (c *scriptedProviderClient) ListTransactions(_ context.Context, _ string, accountID string, before string) ([]TransactionListing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls[accountID] = append(c.listCalls[accountID], before)
	pages := c.transactionPages[accountID]
	if len(pages) == 0 {
		if err, ok := c.transactionErrs[accountID]; ok {
			return nil, err
		}
		return nil, nil
	}
	page := pages[0]
	c.transactionPages[accountID] = pages[1:]
	if page == nil {
		if err, ok := c.transactionErrs[accountID]; ok {
			return nil, err
		}
		return nil, fmt.Errorf("scripted provider: nil page without scripted error for %q", accountID)
	}
	return append([]TransactionListing(nil), page...), nil
}

func (c *scriptedProviderClient) ListWebhooks(_ context.Context, _ string, _ string) ([]Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.webhookListErr != nil {
		return nil, c.webhookListErr
	}
	var hooks []Webhook
	for _, accountHooks := range c.webhooksByAccount {
		hooks = append(hooks, accountHooks...)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].ID < hooks[j].ID })
	return hooks, nil
}

func (c *scriptedProviderClient) RegisterWebhook(_ context.Context, _ string, accountID string, url string) (Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registerErr != nil {
		return Webhook{}, c.registerErr
	}
	hook := Webhook{
		ID:        fmt.Sprintf("hook_%d", len(c.registered)+1),
		AccountID: accountID,
		URL:       url,
	}
	c.registered = append(c.registered, hook)
	c.webhooksByAccount[accountID] = append(c.webhooksByAccount[accountID], hook)
	return hook, nil
}

func (c *scriptedProviderClient) DeleteWebhook(_ context.Context, _ string, webhookID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, webhookID)
	for accountID, hooks := range c.webhooksByAccount {
		kept := hooks[:0]
		for _, hook := range hooks {
			if hook.ID != webhookID {
				kept = append(kept, hook)
			}
		}
		c.webhooksByAccount[accountID] = kept
	}
	return nil
}

func (c *scriptedProviderClient) listCallsFor(accountID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.listCalls[accountID]...)
}

type recordingEnqueuer struct {
	mu       sync.Mutex
	messages []*JobExecutionMessage
	err      error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

type testHarness struct {
	svc          *Service
	provider     *scriptedProviderClient
	tokens       *memoryTokenStore
	accounts     *memoryAccountStore
	transactions *memoryTransactionStore
	now          time.Time
}

func newTestHarness(t *testing.T, cfg Config, extra ...Option) *testHarness {
	t.Helper()
	h := &testHarness{
		provider:     newScriptedProviderClient(),
		tokens:       newMemoryTokenStore(),
		accounts:     newMemoryAccountStore(),
		transactions: newMemoryTransactionStore(),
		now:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	options := []Option{
		WithProviderClient(h.provider),
		WithTokenStore(h.tokens),
		WithAccountStore(h.accounts),
		WithTransactionStore(h.transactions),
		WithNowFunc(func() time.Time { return h.now }),
	}
	options = append(options, extra...)
	svc, err := NewService(cfg, options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed.UTC()
}
