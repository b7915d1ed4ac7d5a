package query

import (
	"strings"
)

const (
	TypeTransactionsForUser = "banksync.query.transactions.for_user"
	TypeAccountsForUser     = "banksync.query.accounts.for_user"
)

// TransactionsForUserMessage lists stored transactions across every
// account the user owns, newest first.
type TransactionsForUserMessage struct {
	UserID string
}

func (TransactionsForUserMessage) Type() string { return TypeTransactionsForUser }

func (m TransactionsForUserMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}

type AccountsForUserMessage struct {
	UserID string
}

func (AccountsForUserMessage) Type() string { return TypeAccountsForUser }

func (m AccountsForUserMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	return nil
}
