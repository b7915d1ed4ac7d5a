package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-banksync/core"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:bank_tokens,alias:bt"`

	UserID       string    `bun:"user_id,pk"`
	ExpiryTime   time.Time `bun:"expiry_time,notnull"`
	TokenType    string    `bun:"token_type,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *tokenRecord) toDomain() core.Token {
	if r == nil {
		return core.Token{}
	}
	return core.Token{
		UserID:       r.UserID,
		ExpiryTime:   r.ExpiryTime.UTC(),
		TokenType:    r.TokenType,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

func newTokenRecord(token core.Token, now time.Time) *tokenRecord {
	return &tokenRecord{
		UserID:       token.UserID,
		ExpiryTime:   token.ExpiryTime.UTC(),
		TokenType:    token.TokenType,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type accountRecord struct {
	bun.BaseModel `bun:"table:bank_accounts,alias:ba"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	Description string    `bun:"description"`
	Created     time.Time `bun:"created,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *accountRecord) toDomain() core.Account {
	if r == nil {
		return core.Account{}
	}
	return core.Account{
		ID:          r.ID,
		UserID:      r.UserID,
		Description: r.Description,
		Created:     r.Created.UTC(),
	}
}

func newAccountRecord(account core.Account, now time.Time) *accountRecord {
	return &accountRecord{
		ID:          account.ID,
		UserID:      account.UserID,
		Description: account.Description,
		Created:     account.Created.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type transactionRecord struct {
	bun.BaseModel `bun:"table:bank_transactions,alias:btx"`

	ID          string     `bun:"id,pk"`
	AccountID   string     `bun:"account_id,notnull"`
	Amount      int64      `bun:"amount,notnull"`
	Currency    string     `bun:"currency,notnull"`
	Description string     `bun:"description"`
	Notes       string     `bun:"notes"`
	Merchant    *string    `bun:"merchant"`
	Category    string     `bun:"category"`
	Created     time.Time  `bun:"created,notnull"`
	Settled     *time.Time `bun:"settled,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *transactionRecord) toDomain() core.Transaction {
	if r == nil {
		return core.Transaction{}
	}
	transaction := core.Transaction{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Description: r.Description,
		Notes:       r.Notes,
		Merchant:    r.Merchant,
		Category:    r.Category,
		Created:     r.Created.UTC(),
	}
	if r.Settled != nil {
		settled := r.Settled.UTC()
		transaction.Settled = &settled
	}
	return transaction
}

func newTransactionRecord(transaction core.Transaction, now time.Time) *transactionRecord {
	record := &transactionRecord{
		ID:          transaction.ID,
		AccountID:   transaction.AccountID,
		Amount:      transaction.Amount,
		Currency:    transaction.Currency,
		Description: transaction.Description,
		Notes:       transaction.Notes,
		Merchant:    transaction.Merchant,
		Category:    transaction.Category,
		Created:     transaction.Created.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if transaction.Settled != nil {
		settled := transaction.Settled.UTC()
		record.Settled = &settled
	}
	return record
}
