package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// SyncAccounts lists the user's accounts from the provider and upserts
// each into the account store scoped to the authorizing user. A record
// with an unparsable creation timestamp is skipped and logged, never
// fatal for the listing.
func (s *Service) SyncAccounts(ctx context.Context, token Token) error {
	if s == nil || s.providerClient == nil || s.accountStore == nil {
		return fmt.Errorf("core: account sync requires provider client and account store")
	}
	startedAt := s.now()

	listings, err := s.providerClient.ListAccounts(ctx, token.AccessToken)
	if err != nil {
		s.observeOperation(ctx, startedAt, "account_sync", err, map[string]any{
			"user_id": token.UserID,
		})
		return s.mapError(err)
	}

	synced := 0
	for _, listing := range listings {
		account, err := AccountFromListing(token.UserID, listing)
		if err != nil {
			s.logError(ctx, "account record skipped", map[string]any{
				"user_id":    token.UserID,
				"account_id": listing.ID,
				"error":      err.Error(),
			})
			continue
		}
		if err := s.accountStore.Upsert(ctx, account); err != nil {
			s.logError(ctx, "account upsert failed", map[string]any{
				"user_id":    token.UserID,
				"account_id": account.ID,
				"error":      err.Error(),
			})
			continue
		}
		synced++
	}

	s.observeOperation(ctx, startedAt, "account_sync", nil, map[string]any{
		"user_id":  token.UserID,
		"listed":   len(listings),
		"upserted": synced,
	})
	return nil
}

// SyncTransactions pulls the full transaction history for every account
// the store knows for this user, then upserts the mapped entities. Both
// phases run under the configured concurrency bound; account ids come
// from the store rather than the provider so a failed account sync does
// not widen this pass.
func (s *Service) SyncTransactions(ctx context.Context, token Token) error {
	if s == nil || s.providerClient == nil || s.accountStore == nil || s.transactionStore == nil {
		return fmt.Errorf("core: transaction sync requires provider client and stores")
	}
	startedAt := s.now()

	accountIDs, err := s.accountStore.IDsForUser(ctx, token.UserID)
	if err != nil {
		wrapped := NewStoreError("core: query account ids", err)
		s.observeOperation(ctx, startedAt, "transaction_sync", wrapped, map[string]any{
			"user_id": token.UserID,
		})
		return s.mapError(wrapped)
	}

	concurrency := s.config.SyncConcurrency
	if concurrency <= 0 {
		concurrency = DefaultSyncConcurrency
	}

	type accountHistory struct {
		accountID string
		listings  []TransactionListing
	}

	var (
		mu        sync.Mutex
		histories []accountHistory
	)
	gate := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, accountID := range accountIDs {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			gate <- struct{}{}
			defer func() { <-gate }()

			listings, err := s.ListAllTransactions(ctx, token.AccessToken, accountID)
			if err != nil {
				s.logError(ctx, "transaction history fetch failed", map[string]any{
					"user_id":    token.UserID,
					"account_id": accountID,
					"error":      err.Error(),
				})
				return
			}
			s.logInfo(ctx, "transaction history fetched", map[string]any{
				"user_id":      token.UserID,
				"account_id":   accountID,
				"transactions": len(listings),
			})
			mu.Lock()
			histories = append(histories, accountHistory{accountID: accountID, listings: listings})
			mu.Unlock()
		}(accountID)
	}
	wg.Wait()

	upserted := 0
	for _, history := range histories {
		for _, listing := range history.listings {
			if err := ctx.Err(); err != nil {
				return err
			}
			transaction, err := TransactionFromListing(history.accountID, listing)
			if err != nil {
				s.logError(ctx, "transaction record skipped", map[string]any{
					"user_id":        token.UserID,
					"account_id":     history.accountID,
					"transaction_id": listing.ID,
					"error":          err.Error(),
				})
				continue
			}
			if _, err := s.transactionStore.Upsert(ctx, transaction); err != nil {
				s.logError(ctx, "transaction upsert failed", map[string]any{
					"user_id":        token.UserID,
					"transaction_id": transaction.ID,
					"error":          err.Error(),
				})
				continue
			}
			upserted++
		}
	}

	s.observeOperation(ctx, startedAt, "transaction_sync", nil, map[string]any{
		"user_id":  token.UserID,
		"accounts": len(accountIDs),
		"upserted": upserted,
	})
	return nil
}

// SyncUser runs the full per-user pipeline in order: accounts, then
// transactions, then webhook reconciliation for every owned account.
// Steps are fault isolated the same way the poll scheduler isolates
// them.
func (s *Service) SyncUser(ctx context.Context, token Token) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if strings.TrimSpace(token.UserID) == "" {
		return s.mapError(newBadInputError("core: token user id is required"))
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
	return ctx.Err()
}
