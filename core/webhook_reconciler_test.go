package core

import (
	"context"
	"fmt"
	"testing"
)

func TestReconcileWebhooks_RegistersWhenAbsent(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})

	err := h.svc.ReconcileWebhooks(ctx, "access", "acc_1", "https://sync.example/push")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(h.provider.registered) != 1 {
		t.Fatalf("expected exactly one registration, got %d", len(h.provider.registered))
	}
	if len(h.provider.deleted) != 0 {
		t.Fatalf("expected zero deletions, got %d", len(h.provider.deleted))
	}
	hook := h.provider.registered[0]
	if hook.AccountID != "acc_1" || hook.URL != "https://sync.example/push" {
		t.Fatalf("unexpected registration %+v", hook)
	}
}

func TestReconcileWebhooks_ReplacesDivergentURL(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	h.provider.webhooksByAccount["acc_1"] = []Webhook{
		{ID: "hook_old", AccountID: "acc_1", URL: "https://old.example/push"},
	}

	err := h.svc.ReconcileWebhooks(ctx, "access", "acc_1", "https://sync.example/push")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(h.provider.deleted) != 1 || h.provider.deleted[0] != "hook_old" {
		t.Fatalf("expected stale hook deleted, got %v", h.provider.deleted)
	}
	if len(h.provider.registered) != 1 || h.provider.registered[0].URL != "https://sync.example/push" {
		t.Fatalf("expected replacement registration, got %v", h.provider.registered)
	}
}

func TestReconcileWebhooks_NoOpWhenConverged(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	h.provider.webhooksByAccount["acc_1"] = []Webhook{
		{ID: "hook_1", AccountID: "acc_1", URL: "https://sync.example/push"},
	}

	err := h.svc.ReconcileWebhooks(ctx, "access", "acc_1", "https://sync.example/push")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(h.provider.registered) != 0 || len(h.provider.deleted) != 0 {
		t.Fatalf("expected no provider mutations, got %v / %v", h.provider.registered, h.provider.deleted)
	}
}

func TestReconcileWebhooks_IgnoresOtherAccountsHooks(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	h.provider.webhooksByAccount["acc_other"] = []Webhook{
		{ID: "hook_other", AccountID: "acc_other", URL: "https://sync.example/push"},
	}

	err := h.svc.ReconcileWebhooks(ctx, "access", "acc_1", "https://sync.example/push")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(h.provider.registered) != 1 || h.provider.registered[0].AccountID != "acc_1" {
		t.Fatalf("expected registration for acc_1, got %v", h.provider.registered)
	}
	if len(h.provider.deleted) != 0 {
		t.Fatalf("other account's hook must not be touched, got deletions %v", h.provider.deleted)
	}
}

func TestReconcileWebhooks_ListFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	h.provider.webhookListErr = NewTransportError("core: request failed", fmt.Errorf("boom"))

	if err := h.svc.ReconcileWebhooks(ctx, "access", "acc_1", "https://sync.example/push"); err == nil {
		t.Fatalf("expected list failure to surface")
	}
}

func TestReconcileWebhooks_ValidatesInput(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t, Config{})
	if err := h.svc.ReconcileWebhooks(ctx, "access", "", "https://sync.example/push"); err == nil {
		t.Fatalf("expected blank account id to fail")
	}
	if err := h.svc.ReconcileWebhooks(ctx, "access", "acc_1", "  "); err == nil {
		t.Fatalf("expected blank url to fail")
	}
}
