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

// AccountStore persists provider accounts keyed by account id.
type AccountStore struct {
	db   *bun.DB
	repo repository.Repository[*accountRecord]
	now  func() time.Time
}

func (s *AccountStore) Upsert(ctx context.Context, account core.Account) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	if strings.TrimSpace(account.ID) == "" {
		return fmt.Errorf("sqlstore: account id is required")
	}
	if strings.TrimSpace(account.UserID) == "" {
		return fmt.Errorf("sqlstore: account user id is required")
	}

	record := newAccountRecord(account, s.now())
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("description = EXCLUDED.description").
		Set("created = EXCLUDED.created").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert account: %w", err)
	}
	return nil
}

func (s *AccountStore) IDsForUser(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: account store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("sqlstore: user id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.OrderBy("id ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list accounts: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids, nil
}

// ForUser returns the full account rows, used by the read surface.
func (s *AccountStore) ForUser(ctx context.Context, userID string) ([]core.Account, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: account store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("sqlstore: user id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.OrderBy("created ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list accounts: %w", err)
	}
	accounts := make([]core.Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, record.toDomain())
	}
	return accounts, nil
}
