package core

import (
	"context"
	"fmt"
	"testing"
)

func TestSyncAccounts_SkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	h.provider.accountsByToken["access_1"] = []AccountListing{
		{ID: "acc_1", Description: "Current", Created: "2023-01-15T08:00:00Z"},
		{ID: "acc_bad", Description: "Broken", Created: "not-a-timestamp"},
		{ID: "acc_2", Description: "Joint", Created: "2023-06-01T08:00:00Z"},
	}

	err := h.svc.SyncAccounts(ctx, Token{UserID: "user_1", AccessToken: "access_1"})
	if err != nil {
		t.Fatalf("sync accounts: %v", err)
	}

	ids, err := h.accounts.IDsForUser(ctx, "user_1")
	if err != nil {
		t.Fatalf("ids for user: %v", err)
	}
	if len(ids) != 2 || ids[0] != "acc_1" || ids[1] != "acc_2" {
		t.Fatalf("expected the two well-formed accounts, got %v", ids)
	}
}

func TestSyncAccounts_ListingFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	h.provider.accountsErrs["access_1"] = NewTransportError("core: request failed", fmt.Errorf("connection refused"))

	err := h.svc.SyncAccounts(ctx, Token{UserID: "user_1", AccessToken: "access_1"})
	if err == nil {
		t.Fatalf("expected listing failure to surface")
	}
	if h.accounts.upserts != 0 {
		t.Fatalf("expected no upserts after listing failure, got %d", h.accounts.upserts)
	}
}

func TestSyncTransactions_IngestsEveryStoredAccount(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{SyncConcurrency: 2})
	for _, id := range []string{"acc_1", "acc_2"} {
		if err := h.accounts.Upsert(ctx, Account{ID: id, UserID: "user_1"}); err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}
	h.provider.transactionPages["acc_1"] = [][]TransactionListing{
		listingPage("acc_1", "2024-04-03T00:00:00Z", 0, 3),
	}
	h.provider.transactionPages["acc_2"] = [][]TransactionListing{
		listingPage("acc_2", "2024-04-02T00:00:00Z", 0, 2),
	}

	err := h.svc.SyncTransactions(ctx, Token{UserID: "user_1", AccessToken: "access_1"})
	if err != nil {
		t.Fatalf("sync transactions: %v", err)
	}
	if h.transactions.upserts != 5 {
		t.Fatalf("expected 5 upserted transactions, got %d", h.transactions.upserts)
	}
	stored, ok := h.transactions.get("tx_acc_2_1")
	if !ok {
		t.Fatalf("expected acc_2 transaction to be stored")
	}
	if stored.AccountID != "acc_2" {
		t.Fatalf("expected account scoping to survive, got %q", stored.AccountID)
	}
}

func TestSyncTransactions_AccountFailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	for _, id := range []string{"acc_1", "acc_2"} {
		if err := h.accounts.Upsert(ctx, Account{ID: id, UserID: "user_1"}); err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}
	h.provider.transactionPages["acc_1"] = [][]TransactionListing{nil}
	h.provider.transactionErrs["acc_1"] = NewTransportError("core: request failed", fmt.Errorf("boom"))
	h.provider.transactionPages["acc_2"] = [][]TransactionListing{
		listingPage("acc_2", "2024-04-02T00:00:00Z", 0, 2),
	}

	err := h.svc.SyncTransactions(ctx, Token{UserID: "user_1", AccessToken: "access_1"})
	if err != nil {
		t.Fatalf("expected per-account isolation, got %v", err)
	}
	if h.transactions.upserts != 2 {
		t.Fatalf("expected acc_2 history despite acc_1 failure, got %d upserts", h.transactions.upserts)
	}
}

func TestSyncTransactions_SkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	if err := h.accounts.Upsert(ctx, Account{ID: "acc_1", UserID: "user_1"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	h.provider.transactionPages["acc_1"] = [][]TransactionListing{
		{
			{ID: "tx_ok", AccountID: "acc_1", Created: "2024-04-03T00:00:00Z"},
			{ID: "tx_bad", AccountID: "acc_1", Created: "nope"},
		},
	}

	err := h.svc.SyncTransactions(ctx, Token{UserID: "user_1", AccessToken: "access_1"})
	if err != nil {
		t.Fatalf("sync transactions: %v", err)
	}
	if _, ok := h.transactions.get("tx_ok"); !ok {
		t.Fatalf("expected well-formed record to be stored")
	}
	if _, ok := h.transactions.get("tx_bad"); ok {
		t.Fatalf("expected malformed record to be skipped")
	}
}

func TestPollAllUsers_IsolatesFailingUser(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	seedToken := func(userID, access string) {
		if err := h.tokens.Upsert(ctx, Token{UserID: userID, AccessToken: access, RefreshToken: "r_" + userID}); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}
	seedToken("user_a", "access_a")
	seedToken("user_b", "access_b")

	h.provider.accountsErrs["access_a"] = NewTransportError("core: request failed", fmt.Errorf("boom"))
	h.provider.accountsByToken["access_b"] = []AccountListing{
		{ID: "acc_b1", Description: "Current", Created: "2023-01-15T08:00:00Z"},
	}
	h.provider.transactionPages["acc_b1"] = [][]TransactionListing{
		listingPage("acc_b1", "2024-04-02T00:00:00Z", 0, 2),
	}

	if err := h.svc.PollAllUsers(ctx); err != nil {
		t.Fatalf("poll all users: %v", err)
	}

	ids, err := h.accounts.IDsForUser(ctx, "user_b")
	if err != nil {
		t.Fatalf("ids for user: %v", err)
	}
	if len(ids) != 1 || ids[0] != "acc_b1" {
		t.Fatalf("expected user_b account synced despite user_a failure, got %v", ids)
	}
	if h.transactions.upserts != 2 {
		t.Fatalf("expected user_b history synced, got %d upserts", h.transactions.upserts)
	}
}

func TestPollAllUsers_ReconcilesWebhooksWhenConfigured(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{WebhookURL: "https://sync.example/push"})
	if err := h.tokens.Upsert(ctx, Token{UserID: "user_1", AccessToken: "access_1"}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	h.provider.accountsByToken["access_1"] = []AccountListing{
		{ID: "acc_1", Created: "2023-01-15T08:00:00Z"},
	}

	if err := h.svc.PollAllUsers(ctx); err != nil {
		t.Fatalf("poll all users: %v", err)
	}
	if len(h.provider.registered) != 1 {
		t.Fatalf("expected one webhook registration, got %d", len(h.provider.registered))
	}
	if h.provider.registered[0].URL != "https://sync.example/push" {
		t.Fatalf("unexpected webhook url %q", h.provider.registered[0].URL)
	}
}

func TestSyncUser_RequiresUserID(t *testing.T) {
	h := newTestHarness(t, Config{})
	if err := h.svc.SyncUser(context.Background(), Token{AccessToken: "access"}); err == nil {
		t.Fatalf("expected missing user id to fail")
	}
}
