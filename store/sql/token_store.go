package sqlstore

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-banksync/core"
)

// TokenStore persists one credential row per user, keyed by user id.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
	now  func() time.Time
}

func (s *TokenStore) Upsert(ctx context.Context, token core.Token) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	if err := token.Validate(); err != nil {
		return err
	}

	record := newTokenRecord(token, s.now())
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("expiry_time = EXCLUDED.expiry_time").
		Set("token_type = EXCLUDED.token_type").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert token: %w", err)
	}
	return nil
}

func (s *TokenStore) All(ctx context.Context) ([]core.Token, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("user_id ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list tokens: %w", err)
	}
	tokens := make([]core.Token, 0, len(records))
	for _, record := range records {
		tokens = append(tokens, record.toDomain())
	}
	return tokens, nil
}

func (s *TokenStore) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]core.Token, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.expiry_time < ?", cutoff.UTC())
		}),
		repository.OrderBy("expiry_time ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list expiring tokens: %w", err)
	}
	tokens := make([]core.Token, 0, len(records))
	for _, record := range records {
		tokens = append(tokens, record.toDomain())
	}
	return tokens, nil
}
