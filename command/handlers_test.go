package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-banksync/core"
)

type stubMutatingService struct {
	exchangeCodeFn      func(ctx context.Context, code string) (core.Token, error)
	refreshFn           func(ctx context.Context) error
	pollFn              func(ctx context.Context) error
	syncUserFn          func(ctx context.Context, token core.Token) error
	reconcileFn         func(ctx context.Context, accessToken, accountID, desiredURL string) error
	ingestTransactionFn func(ctx context.Context, listing core.TransactionListing) (core.Transaction, error)
}

func (s stubMutatingService) ExchangeCode(ctx context.Context, code string) (core.Token, error) {
	if s.exchangeCodeFn == nil {
		return core.Token{}, fmt.Errorf("unexpected ExchangeCode call")
	}
	return s.exchangeCodeFn(ctx, code)
}

func (s stubMutatingService) RefreshExpiringTokens(ctx context.Context) error {
	if s.refreshFn == nil {
		return fmt.Errorf("unexpected RefreshExpiringTokens call")
	}
	return s.refreshFn(ctx)
}

func (s stubMutatingService) PollAllUsers(ctx context.Context) error {
	if s.pollFn == nil {
		return fmt.Errorf("unexpected PollAllUsers call")
	}
	return s.pollFn(ctx)
}

func (s stubMutatingService) SyncUser(ctx context.Context, token core.Token) error {
	if s.syncUserFn == nil {
		return fmt.Errorf("unexpected SyncUser call")
	}
	return s.syncUserFn(ctx, token)
}

func (s stubMutatingService) ReconcileWebhooks(ctx context.Context, accessToken, accountID, desiredURL string) error {
	if s.reconcileFn == nil {
		return fmt.Errorf("unexpected ReconcileWebhooks call")
	}
	return s.reconcileFn(ctx, accessToken, accountID, desiredURL)
}

func (s stubMutatingService) IngestTransaction(ctx context.Context, listing core.TransactionListing) (core.Transaction, error) {
	if s.ingestTransactionFn == nil {
		return core.Transaction{}, fmt.Errorf("unexpected IngestTransaction call")
	}
	return s.ingestTransactionFn(ctx, listing)
}

func TestExchangeCodeCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.Token{UserID: "user_1", AccessToken: "at-1"}
	called := false

	svc := stubMutatingService{
		exchangeCodeFn: func(_ context.Context, code string) (core.Token, error) {
			called = true
			if code != "auth-code-1" {
				t.Fatalf("expected auth-code-1, got %q", code)
			}
			return expected, nil
		},
	}

	cmd := NewExchangeCodeCommand(svc)
	collector := gocmd.NewResult[core.Token]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, ExchangeCodeMessage{Code: "auth-code-1"}); err != nil {
		t.Fatalf("execute exchange code: %v", err)
	}
	if !called {
		t.Fatalf("expected exchange invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.UserID != expected.UserID || result.AccessToken != expected.AccessToken {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestExchangeCodeCommand_ErrorSkipsResult(t *testing.T) {
	svc := stubMutatingService{
		exchangeCodeFn: func(context.Context, string) (core.Token, error) {
			return core.Token{}, fmt.Errorf("provider down")
		},
	}
	cmd := NewExchangeCodeCommand(svc)
	collector := gocmd.NewResult[core.Token]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, ExchangeCodeMessage{Code: "auth-code-1"}); err == nil {
		t.Fatalf("expected error to propagate")
	}
	if _, ok := collector.Load(); ok {
		t.Fatalf("expected no result on failure")
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("refresh tokens", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			refreshFn: func(context.Context) error {
				called = true
				return nil
			},
		}
		cmd := NewRefreshTokensCommand(svc)
		if err := cmd.Execute(context.Background(), RefreshTokensMessage{}); err != nil {
			t.Fatalf("execute refresh: %v", err)
		}
		if !called {
			t.Fatalf("expected refresh invocation")
		}
	})

	t.Run("poll all users", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			pollFn: func(context.Context) error {
				called = true
				return nil
			},
		}
		cmd := NewPollAllUsersCommand(svc)
		if err := cmd.Execute(context.Background(), PollAllUsersMessage{}); err != nil {
			t.Fatalf("execute poll: %v", err)
		}
		if !called {
			t.Fatalf("expected poll invocation")
		}
	})

	t.Run("sync user", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			syncUserFn: func(_ context.Context, token core.Token) error {
				called = true
				if token.UserID != "user_1" {
					t.Fatalf("unexpected token: %#v", token)
				}
				return nil
			},
		}
		cmd := NewSyncUserCommand(svc)
		msg := SyncUserMessage{Token: core.Token{UserID: "user_1", AccessToken: "at-1"}}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute sync user: %v", err)
		}
		if !called {
			t.Fatalf("expected sync invocation")
		}
	})

	t.Run("reconcile webhooks", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			reconcileFn: func(_ context.Context, accessToken, accountID, desiredURL string) error {
				called = true
				if accessToken != "at-1" || accountID != "acc_1" || desiredURL != "https://hooks.example.com/push" {
					t.Fatalf("unexpected reconcile payload: %q %q %q", accessToken, accountID, desiredURL)
				}
				return nil
			},
		}
		cmd := NewReconcileWebhooksCommand(svc)
		msg := ReconcileWebhooksMessage{
			AccessToken: "at-1",
			AccountID:   "acc_1",
			URL:         "https://hooks.example.com/push",
		}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute reconcile: %v", err)
		}
		if !called {
			t.Fatalf("expected reconcile invocation")
		}
	})
}

func TestIngestTransactionCommand_StoresPersistedTransaction(t *testing.T) {
	expected := core.Transaction{ID: "tx_1", AccountID: "acc_1", Amount: -250}
	svc := stubMutatingService{
		ingestTransactionFn: func(_ context.Context, listing core.TransactionListing) (core.Transaction, error) {
			if listing.ID != "tx_1" {
				t.Fatalf("unexpected listing: %#v", listing)
			}
			return expected, nil
		},
	}
	cmd := NewIngestTransactionCommand(svc)
	collector := gocmd.NewResult[core.Transaction]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := IngestTransactionMessage{Listing: core.TransactionListing{ID: "tx_1", AccountID: "acc_1", Amount: -250}}
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute ingest: %v", err)
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected stored transaction")
	}
	if stored.ID != expected.ID || stored.Amount != expected.Amount {
		t.Fatalf("unexpected stored transaction: %#v", stored)
	}
}

func TestCommands_NilServiceReturnsDependencyError(t *testing.T) {
	var exchange *ExchangeCodeCommand
	if err := exchange.Execute(context.Background(), ExchangeCodeMessage{Code: "c"}); err == nil {
		t.Fatalf("expected dependency error from nil exchange command")
	}
	var sync *SyncUserCommand
	if err := sync.Execute(context.Background(), SyncUserMessage{}); err == nil {
		t.Fatalf("expected dependency error from nil sync command")
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (ExchangeCodeMessage{Code: "  "}).Validate(); err == nil {
		t.Fatalf("expected blank code rejection")
	}
	if err := (ExchangeCodeMessage{Code: "auth-code-1"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (SyncUserMessage{Token: core.Token{UserID: "user_1"}}).Validate(); err == nil {
		t.Fatalf("expected missing access token rejection")
	}
	if err := (ReconcileWebhooksMessage{AccessToken: "at", AccountID: "acc"}).Validate(); err == nil {
		t.Fatalf("expected missing url rejection")
	}
	if err := (IngestTransactionMessage{Listing: core.TransactionListing{ID: "tx_1"}}).Validate(); err == nil {
		t.Fatalf("expected missing account id rejection")
	}
}
