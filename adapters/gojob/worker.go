package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-banksync/core"
)

const dequeueErrorBackoff = time.Second

// InitialLoader runs the first account sync for a freshly authorized
// credential set.
type InitialLoader interface {
	InitialLoad(ctx context.Context, token core.Token) error
}

// InitialLoadWorker drains queued initial-load jobs and replays them
// against the loader. Messages that cannot be resolved to a stored
// token are dead-lettered rather than retried.
type InitialLoadWorker struct {
	dequeuer core.JobDequeuer
	tokens   core.TokenStore
	loader   InitialLoader
	logger   core.Logger
	policy   RetryPolicy
}

func NewInitialLoadWorker(
	dequeuer core.JobDequeuer,
	tokens core.TokenStore,
	loader InitialLoader,
	logger core.Logger,
	policy RetryPolicy,
) *InitialLoadWorker {
	return &InitialLoadWorker{
		dequeuer: dequeuer,
		tokens:   tokens,
		loader:   loader,
		logger:   glog.Ensure(logger),
		policy:   policy,
	}
}

// Run blocks until the context is cancelled, processing one delivery
// at a time.
func (w *InitialLoadWorker) Run(ctx context.Context) error {
	if w == nil || w.dequeuer == nil || w.tokens == nil || w.loader == nil {
		return fmt.Errorf("gojob: worker requires dequeuer, token store, and loader")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dequeueErrorBackoff):
			}
			continue
		}
		w.process(ctx, delivery)
	}
}

func (w *InitialLoadWorker) process(ctx context.Context, delivery core.JobDelivery) {
	msg := delivery.Message()
	if msg == nil {
		w.deadLetter(ctx, delivery, "delivery has no message")
		return
	}
	if msg.JobID != core.JobIDInitialLoad {
		w.deadLetter(ctx, delivery, fmt.Sprintf("unsupported job id %q", msg.JobID))
		return
	}

	userID, _ := msg.Parameters["user_id"].(string)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		w.deadLetter(ctx, delivery, "job is missing user_id")
		return
	}

	token, err := w.tokenForUser(ctx, userID)
	if err != nil {
		w.logger.Error("initial load token lookup failed", "user_id", userID, "error", err)
		w.nack(ctx, delivery, core.JobNackOptions{Requeue: true, Reason: "token lookup failed"})
		return
	}
	if token == nil {
		w.deadLetter(ctx, delivery, fmt.Sprintf("no stored token for user %q", userID))
		return
	}

	if err := w.loader.InitialLoad(ctx, *token); err != nil {
		w.logger.Error("initial load failed", "user_id", userID, "error", err)
		w.nack(ctx, delivery, core.JobNackOptions{Requeue: true, Reason: "initial load failed"})
		return
	}
	if err := delivery.Ack(ctx); err != nil {
		w.logger.Error("ack failed", "user_id", userID, "error", err)
		return
	}
	w.logger.Info("initial load finished", "user_id", userID)
}

func (w *InitialLoadWorker) tokenForUser(ctx context.Context, userID string) (*core.Token, error) {
	tokens, err := w.tokens.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tokens {
		if tokens[i].UserID == userID {
			return &tokens[i], nil
		}
	}
	return nil, nil
}

func (w *InitialLoadWorker) deadLetter(ctx context.Context, delivery core.JobDelivery, reason string) {
	w.logger.Error("dead-lettering job", "reason", reason)
	w.nack(ctx, delivery, core.JobNackOptions{DeadLetter: true, Reason: reason})
}

func (w *InitialLoadWorker) nack(ctx context.Context, delivery core.JobDelivery, opts core.JobNackOptions) {
	opts = w.policy.NormalizeAttempt(opts, 0)
	if err := delivery.Nack(ctx, opts); err != nil {
		w.logger.Error("nack failed", "error", err)
	}
}

var _ InitialLoader = (*core.Service)(nil)
