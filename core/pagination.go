package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// paginationLookahead pushes the initial cursor past "now" so the
// first request is effectively unfiltered.
const paginationLookahead = 24 * time.Hour

// ListAllTransactions walks one account's complete transaction history
// through the provider's descending "before" cursor.
//
// The cursor starts a day in the future and is moved to the created
// timestamp of the first element of each page, so every request asks
// for history strictly before the previous page. Termination:
//   - an empty page means all reachable history was returned;
//   - the provider's cursor-out-of-range rejection is treated the same
//     way (it rejects "before" values earlier than the account's
//     earliest permitted query time);
//   - any other transport or decode failure aborts and surfaces.
//
// A page whose first element carries no created timestamp clears the
// cursor instead of propagating an invalid one. The walk is bounded by
// maxPages so that fallback can never loop forever.
func (s *Service) ListAllTransactions(ctx context.Context, accessToken string, accountID string) ([]TransactionListing, error) {
	if s == nil || s.providerClient == nil {
		return nil, fmt.Errorf("core: pagination requires a provider client")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, s.mapError(newBadInputError("core: account id is required"))
	}

	maxPages := s.config.MaxTransactionPages
	if maxPages <= 0 {
		maxPages = DefaultMaxTransactionPages
	}

	var transactions []TransactionListing
	cursor := s.now().Add(paginationLookahead).Format(time.RFC3339Nano)

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, s.mapError(NewDecodeError(
				fmt.Sprintf("core: pagination for account %q exceeded %d pages", accountID, maxPages),
				nil,
			))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := s.providerClient.ListTransactions(ctx, accessToken, accountID, cursor)
		if err != nil {
			if IsProviderRejected(err) {
				return transactions, nil
			}
			return nil, s.mapError(err)
		}
		if len(batch) == 0 {
			return transactions, nil
		}

		cursor = strings.TrimSpace(batch[0].Created)
		transactions = append(transactions, batch...)
	}
}
