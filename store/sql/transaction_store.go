package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-banksync/core"
)

// TransactionStore persists ledger entries keyed by transaction id.
type TransactionStore struct {
	db   *bun.DB
	repo repository.Repository[*transactionRecord]
	now  func() time.Time
}

// Upsert is idempotent on transaction id so push notifications and
// poll passes can both apply the same record. It reports the number of
// rows applied.
func (s *TransactionStore) Upsert(ctx context.Context, transaction core.Transaction) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	if strings.TrimSpace(transaction.ID) == "" {
		return 0, fmt.Errorf("sqlstore: transaction id is required")
	}
	if strings.TrimSpace(transaction.AccountID) == "" {
		return 0, fmt.Errorf("sqlstore: transaction account id is required")
	}

	record := newTransactionRecord(transaction, s.now())
	result, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("account_id = EXCLUDED.account_id").
		Set("amount = EXCLUDED.amount").
		Set("currency = EXCLUDED.currency").
		Set("description = EXCLUDED.description").
		Set("notes = EXCLUDED.notes").
		Set("merchant = EXCLUDED.merchant").
		Set("category = EXCLUDED.category").
		Set("created = EXCLUDED.created").
		Set("settled = EXCLUDED.settled").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: upsert transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func (s *TransactionStore) ForAccounts(ctx context.Context, accountIDs []string) ([]core.Transaction, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	ids := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []core.Transaction{}, nil
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.account_id IN (?)", bun.In(ids))
		}),
		repository.OrderBy("created DESC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list transactions: %w", err)
	}
	transactions := make([]core.Transaction, 0, len(records))
	for _, record := range records {
		transactions = append(transactions, record.toDomain())
	}
	return transactions, nil
}

// ForAccount returns one account's entries newest first.
func (s *TransactionStore) ForAccount(ctx context.Context, accountID string) ([]core.Transaction, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("sqlstore: account id is required")
	}
	return s.ForAccounts(ctx, []string{accountID})
}
