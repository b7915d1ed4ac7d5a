package core

import (
	"strings"
	"time"
)

// Token is one user's OAuth credential set. user id is the unique key;
// upserts replace every non-key field.
type Token struct {
	UserID       string
	ExpiryTime   time.Time
	TokenType    string
	AccessToken  string
	RefreshToken string
}

func (t Token) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return newBadInputError("core: token user id is required")
	}
	if strings.TrimSpace(t.AccessToken) == "" {
		return newBadInputError("core: token access token is required")
	}
	return nil
}

// Account is a provider account owned by one authorizing user.
type Account struct {
	ID          string
	UserID      string
	Description string
	Created     time.Time
}

// Transaction is a single ledger entry. Amount is a signed integer in
// minor units. Settled and Merchant are nil when the provider reports
// them empty.
type Transaction struct {
	ID          string
	AccountID   string
	Amount      int64
	Currency    string
	Description string
	Notes       string
	Merchant    *string
	Category    string
	Created     time.Time
	Settled     *time.Time
}

// Webhook is a provider-side subscription. It is never persisted
// locally; every poll cycle re-reads the provider's collection.
type Webhook struct {
	ID        string
	AccountID string
	URL       string
}

// TokenGrant is the provider token endpoint response shape.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	UserID       string
}

// AccountListing is the provider accounts endpoint response shape.
// Created stays a raw string until the sync engine parses it so one
// malformed record can be skipped without failing the listing.
type AccountListing struct {
	ID          string
	Description string
	Created     string
}

// MerchantRef is the expanded merchant object the provider nests in
// transaction payloads. Only the id survives ingestion.
type MerchantRef struct {
	ID   string
	Name string
}

// TransactionListing is the provider transactions endpoint response
// shape, timestamps unparsed.
type TransactionListing struct {
	ID          string
	AccountID   string
	Amount      int64
	Created     string
	Currency    string
	Description string
	Notes       string
	Settled     string
	Category    string
	IsLoad      bool
	Merchant    *MerchantRef
}

// TokenFromGrant builds a durable Token from a grant, anchoring expiry
// at now + expires_in.
func TokenFromGrant(now time.Time, grant TokenGrant) Token {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Token{
		UserID:       strings.TrimSpace(grant.UserID),
		ExpiryTime:   now.UTC().Add(time.Duration(grant.ExpiresIn) * time.Second),
		TokenType:    strings.TrimSpace(grant.TokenType),
		AccessToken:  strings.TrimSpace(grant.AccessToken),
		RefreshToken: strings.TrimSpace(grant.RefreshToken),
	}
}

// ParseProviderTime parses a required provider timestamp.
func ParseProviderTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, newDecodeError("core: provider timestamp is empty", nil)
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, newDecodeError("core: parse provider timestamp", err)
	}
	return parsed.UTC(), nil
}

// ParseOptionalProviderTime parses a timestamp the provider reports as
// an empty string while the value is pending (settlement).
func ParseOptionalProviderTime(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := ParseProviderTime(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// TransactionFromListing maps a provider transaction payload onto the
// Transaction entity: empty settled becomes nil and a nested merchant
// object collapses to its id.
func TransactionFromListing(accountID string, in TransactionListing) (Transaction, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		accountID = strings.TrimSpace(in.AccountID)
	}
	if strings.TrimSpace(in.ID) == "" {
		return Transaction{}, newBadInputError("core: transaction id is required")
	}
	if accountID == "" {
		return Transaction{}, newBadInputError("core: transaction account id is required")
	}

	created, err := ParseProviderTime(in.Created)
	if err != nil {
		return Transaction{}, err
	}
	settled, err := ParseOptionalProviderTime(in.Settled)
	if err != nil {
		return Transaction{}, err
	}

	var merchant *string
	if in.Merchant != nil && strings.TrimSpace(in.Merchant.ID) != "" {
		id := strings.TrimSpace(in.Merchant.ID)
		merchant = &id
	}

	return Transaction{
		ID:          strings.TrimSpace(in.ID),
		AccountID:   accountID,
		Amount:      in.Amount,
		Currency:    strings.TrimSpace(in.Currency),
		Description: in.Description,
		Notes:       in.Notes,
		Merchant:    merchant,
		Category:    strings.TrimSpace(in.Category),
		Created:     created,
		Settled:     settled,
	}, nil
}

// AccountFromListing maps a provider account payload onto the Account
// entity scoped to the authorizing user.
func AccountFromListing(userID string, in AccountListing) (Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Account{}, newBadInputError("core: account user id is required")
	}
	if strings.TrimSpace(in.ID) == "" {
		return Account{}, newBadInputError("core: account id is required")
	}
	created, err := ParseProviderTime(in.Created)
	if err != nil {
		return Account{}, err
	}
	return Account{
		ID:          strings.TrimSpace(in.ID),
		UserID:      userID,
		Description: in.Description,
		Created:     created,
	}, nil
}
