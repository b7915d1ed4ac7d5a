package core

import (
	"context"
	"fmt"
	"strings"
)

// ReconcileWebhooks converges the provider's webhook registrations for
// one account onto the desired push URL. Absent registration is
// created, a registration pointing elsewhere is replaced, a matching
// one is left alone. When the provider reports several registrations
// for the account only the last listed one is considered.
func (s *Service) ReconcileWebhooks(ctx context.Context, accessToken string, accountID string, desiredURL string) error {
	if s == nil || s.providerClient == nil {
		return fmt.Errorf("core: webhook reconciliation requires provider client")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return s.mapError(newBadInputError("core: account id is required"))
	}
	desiredURL = strings.TrimSpace(desiredURL)
	if desiredURL == "" {
		return s.mapError(newBadInputError("core: webhook url is required"))
	}
	startedAt := s.now()

	registered, err := s.providerClient.ListWebhooks(ctx, accessToken, accountID)
	if err != nil {
		s.observeOperation(ctx, startedAt, "webhook_reconcile", err, map[string]any{
			"account_id": accountID,
		})
		return s.mapError(err)
	}

	byAccount := make(map[string]Webhook, len(registered))
	for _, hook := range registered {
		byAccount[hook.AccountID] = hook
	}

	current, exists := byAccount[accountID]
	switch {
	case !exists:
		created, err := s.providerClient.RegisterWebhook(ctx, accessToken, accountID, desiredURL)
		if err != nil {
			s.observeOperation(ctx, startedAt, "webhook_reconcile", err, map[string]any{
				"account_id": accountID,
				"action":     "create",
			})
			return s.mapError(err)
		}
		s.observeOperation(ctx, startedAt, "webhook_reconcile", nil, map[string]any{
			"account_id": accountID,
			"webhook_id": created.ID,
			"action":     "create",
		})
		return nil

	case current.URL != desiredURL:
		if err := s.providerClient.DeleteWebhook(ctx, accessToken, current.ID); err != nil {
			s.observeOperation(ctx, startedAt, "webhook_reconcile", err, map[string]any{
				"account_id": accountID,
				"webhook_id": current.ID,
				"action":     "replace",
			})
			return s.mapError(err)
		}
		created, err := s.providerClient.RegisterWebhook(ctx, accessToken, accountID, desiredURL)
		if err != nil {
			s.observeOperation(ctx, startedAt, "webhook_reconcile", err, map[string]any{
				"account_id": accountID,
				"action":     "replace",
			})
			return s.mapError(err)
		}
		s.observeOperation(ctx, startedAt, "webhook_reconcile", nil, map[string]any{
			"account_id": accountID,
			"webhook_id": created.ID,
			"action":     "replace",
		})
		return nil

	default:
		s.observeOperation(ctx, startedAt, "webhook_reconcile", nil, map[string]any{
			"account_id": accountID,
			"webhook_id": current.ID,
			"action":     "none",
		})
		return nil
	}
}
