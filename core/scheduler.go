package core

import (
	"context"
	"fmt"
	"time"
)

// RunTokenRefreshLoop runs token refresh passes until the context is
// cancelled. The first pass fires immediately so a freshly started
// process never sits on a near-expired credential for a full interval.
// A failed pass is logged and the loop keeps going.
func (s *Service) RunTokenRefreshLoop(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	interval := s.config.TokenRefreshInterval
	if interval <= 0 {
		interval = DefaultTokenRefreshInterval
	}

	for {
		if err := s.RefreshExpiringTokens(ctx); err != nil {
			s.logError(ctx, "token refresh pass failed", map[string]any{
				"error": err.Error(),
			})
		}
		if err := waitWithContext(ctx, interval); err != nil {
			return err
		}
	}
}

// RunAccountPollLoop runs full sync passes over every stored token
// until the context is cancelled, first pass immediate. Per-user
// failures are already isolated inside PollAllUsers; only cancellation
// stops the loop.
func (s *Service) RunAccountPollLoop(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	interval := s.config.AccountPollInterval
	if interval <= 0 {
		interval = DefaultAccountPollInterval
	}

	for {
		if err := s.PollAllUsers(ctx); err != nil {
			s.logError(ctx, "account poll pass failed", map[string]any{
				"error": err.Error(),
			})
		}
		if err := waitWithContext(ctx, interval); err != nil {
			return err
		}
	}
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
