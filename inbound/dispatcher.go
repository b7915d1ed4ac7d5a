package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-banksync/core"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
)

// TransactionIngestor is the ingestion path shared with polling.
type TransactionIngestor interface {
	IngestTransaction(ctx context.Context, listing core.TransactionListing) (core.Transaction, error)
}

type pushEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type merchantPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type transactionPayload struct {
	ID          string           `json:"id"`
	AccountID   string           `json:"account_id"`
	Amount      int64            `json:"amount"`
	Created     string           `json:"created"`
	Currency    string           `json:"currency"`
	Description string           `json:"description"`
	Notes       string           `json:"notes"`
	IsLoad      bool             `json:"is_load"`
	Settled     string           `json:"settled"`
	Category    string           `json:"category"`
	Merchant    *merchantPayload `json:"merchant"`
}

// Dispatcher validates push envelopes and routes transaction events to
// the ingestor. Unknown event types are rejected, never silently
// dropped, so a provider contract change surfaces at the edge.
type Dispatcher struct {
	ingestor TransactionIngestor
	logger   core.Logger
}

func NewDispatcher(ingestor TransactionIngestor, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		ingestor: ingestor,
		logger:   glog.Ensure(logger),
	}
}

// Dispatch decodes one raw push body and applies it. The returned
// transaction is the persisted entity.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (core.Transaction, error) {
	if d == nil || d.ingestor == nil {
		return core.Transaction{}, inboundInternal("inbound: dispatcher is not configured", nil)
	}
	if len(body) == 0 {
		return core.Transaction{}, inboundBadInput("inbound: push body is empty", nil)
	}

	var envelope pushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.Transaction{}, inboundWrapError(
			err,
			goerrors.CategoryBadInput,
			"inbound: decode push envelope",
			http.StatusBadRequest,
			core.ServiceErrorBadInput,
			nil,
		)
	}

	eventType := strings.TrimSpace(envelope.Type)
	if eventType != EventTransactionCreated && eventType != EventTransactionUpdated {
		return core.Transaction{}, inboundBadInput(
			fmt.Sprintf("inbound: unsupported event type %q", eventType),
			map[string]any{"event_type": eventType},
		)
	}
	if len(envelope.Data) == 0 {
		return core.Transaction{}, inboundBadInput("inbound: push envelope has no data", map[string]any{
			"event_type": eventType,
		})
	}

	var payload transactionPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return core.Transaction{}, inboundWrapError(
			err,
			goerrors.CategoryBadInput,
			"inbound: decode transaction payload",
			http.StatusBadRequest,
			core.ServiceErrorBadInput,
			map[string]any{"event_type": eventType},
		)
	}

	listing := core.TransactionListing{
		ID:          payload.ID,
		AccountID:   payload.AccountID,
		Amount:      payload.Amount,
		Created:     payload.Created,
		Currency:    payload.Currency,
		Description: payload.Description,
		Notes:       payload.Notes,
		Settled:     payload.Settled,
		Category:    payload.Category,
		IsLoad:      payload.IsLoad,
	}
	if payload.Merchant != nil && strings.TrimSpace(payload.Merchant.ID) != "" {
		listing.Merchant = &core.MerchantRef{
			ID:   payload.Merchant.ID,
			Name: payload.Merchant.Name,
		}
	}

	transaction, err := d.ingestor.IngestTransaction(ctx, listing)
	if err != nil {
		return core.Transaction{}, err
	}
	d.logger.Info("push transaction ingested",
		"event_type", eventType,
		"transaction_id", transaction.ID,
		"account_id", transaction.AccountID,
	)
	return transaction, nil
}
