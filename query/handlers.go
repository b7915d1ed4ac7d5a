package query

import (
	"context"

	"github.com/goliatone/go-banksync/core"
)

// TransactionReader is the read surface for stored transactions. The
// core service satisfies it.
type TransactionReader interface {
	TransactionsForUser(ctx context.Context, userID string) ([]core.Transaction, error)
}

// AccountReader lists the stored accounts owned by a user.
type AccountReader interface {
	ForUser(ctx context.Context, userID string) ([]core.Account, error)
}

type TransactionsForUserQuery struct {
	reader TransactionReader
}

func NewTransactionsForUserQuery(reader TransactionReader) *TransactionsForUserQuery {
	return &TransactionsForUserQuery{reader: reader}
}

func (q *TransactionsForUserQuery) Query(ctx context.Context, msg TransactionsForUserMessage) ([]core.Transaction, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: transaction reader is required")
	}
	return q.reader.TransactionsForUser(ctx, msg.UserID)
}

type AccountsForUserQuery struct {
	reader AccountReader
}

func NewAccountsForUserQuery(reader AccountReader) *AccountsForUserQuery {
	return &AccountsForUserQuery{reader: reader}
}

func (q *AccountsForUserQuery) Query(ctx context.Context, msg AccountsForUserMessage) ([]core.Account, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.ForUser(ctx, msg.UserID)
}
