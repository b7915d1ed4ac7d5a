// Package monzo implements the provider client against the Monzo HTTP
// API: OAuth token grants, account and transaction listings, and
// webhook registrations.
package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-banksync/core"
)

const (
	// DefaultBaseURL is the production Monzo API origin.
	DefaultBaseURL = "https://api.monzo.com"

	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 4 << 20
	transactionPageLimit  = "100"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
}

// Client is a stateless mapping onto the Monzo API. Credentials travel
// per call; the client holds only the OAuth app identity.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
}

func NewClient(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("monzo: client id is required")
	}
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("monzo: client secret is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

var _ core.ProviderClient = (*Client)(nil)

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
}

type accountPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

type listAccountsPayload struct {
	Accounts []accountPayload `json:"accounts"`
}

// merchantField accepts the two shapes Monzo uses for merchant: a plain
// id string on unexpanded listings and a full object on expanded
// payloads.
type merchantField struct {
	ID   string
	Name string
}

func (m *merchantField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*m = merchantField{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*m = merchantField{ID: id}
		return nil
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*m = merchantField{ID: obj.ID, Name: obj.Name}
	return nil
}

type transactionPayload struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	Amount      int64          `json:"amount"`
	Created     string         `json:"created"`
	Currency    string         `json:"currency"`
	Description string         `json:"description"`
	Notes       string         `json:"notes"`
	IsLoad      bool           `json:"is_load"`
	Settled     string         `json:"settled"`
	Category    string         `json:"category"`
	Merchant    *merchantField `json:"merchant"`
}

type listTransactionsPayload struct {
	Transactions []transactionPayload `json:"transactions"`
}

type webhookPayload struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	URL       string `json:"url"`
}

type listWebhooksPayload struct {
	Webhooks []webhookPayload `json:"webhooks"`
}

type registerWebhookPayload struct {
	Webhook webhookPayload `json:"webhook"`
}

func (c *Client) ExchangeAuthCode(ctx context.Context, code string, redirectURI string) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("monzo: client is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenGrant{}, core.NewDecodeError("monzo: auth code is required", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("redirect_uri", strings.TrimSpace(redirectURI))
	form.Set("code", code)

	return c.fetchToken(ctx, form)
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("monzo: client is nil")
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, core.NewDecodeError("monzo: refresh token is required", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)

	return c.fetchToken(ctx, form)
}

func (c *Client) fetchToken(ctx context.Context, form url.Values) (core.TokenGrant, error) {
	body, _, err := c.do(ctx, http.MethodPost, "/oauth2/token", "", nil, form)
	if err != nil {
		return core.TokenGrant{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.TokenGrant{}, core.NewDecodeError("monzo: decode token response", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenGrant{}, core.NewDecodeError("monzo: token response has no access token", nil)
	}
	return core.TokenGrant{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		ExpiresIn:    payload.ExpiresIn,
		UserID:       payload.UserID,
	}, nil
}

func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]core.AccountListing, error) {
	if c == nil {
		return nil, fmt.Errorf("monzo: client is nil")
	}
	body, _, err := c.do(ctx, http.MethodGet, "/accounts", accessToken, nil, nil)
	if err != nil {
		return nil, err
	}
	var payload listAccountsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, core.NewDecodeError("monzo: decode accounts response", err)
	}
	listings := make([]core.AccountListing, 0, len(payload.Accounts))
	for _, account := range payload.Accounts {
		listings = append(listings, core.AccountListing{
			ID:          account.ID,
			Description: account.Description,
			Created:     account.Created,
		})
	}
	return listings, nil
}

func (c *Client) ListTransactions(ctx context.Context, accessToken string, accountID string, before string) ([]core.TransactionListing, error) {
	if c == nil {
		return nil, fmt.Errorf("monzo: client is nil")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, core.NewDecodeError("monzo: account id is required", nil)
	}

	query := url.Values{}
	query.Set("account_id", accountID)
	query.Set("limit", transactionPageLimit)
	before = strings.TrimSpace(before)
	if before != "" {
		query.Set("before", before)
	}

	body, status, err := c.do(ctx, http.MethodGet, "/transactions", accessToken, query, nil)
	// Monzo rejects a before cursor earlier than the account's allowed
	// query window with a 403.
	if status == http.StatusForbidden && before != "" {
		return nil, core.NewProviderRejectedError(
			fmt.Sprintf("monzo: transactions before %q not queryable for account %q", before, accountID),
		)
	}
	if err != nil {
		return nil, err
	}

	var payload listTransactionsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, core.NewDecodeError("monzo: decode transactions response", err)
	}
	listings := make([]core.TransactionListing, 0, len(payload.Transactions))
	for _, transaction := range payload.Transactions {
		listings = append(listings, toTransactionListing(transaction))
	}
	return listings, nil
}

func toTransactionListing(in transactionPayload) core.TransactionListing {
	listing := core.TransactionListing{
		ID:          in.ID,
		AccountID:   in.AccountID,
		Amount:      in.Amount,
		Created:     in.Created,
		Currency:    in.Currency,
		Description: in.Description,
		Notes:       in.Notes,
		Settled:     in.Settled,
		Category:    in.Category,
		IsLoad:      in.IsLoad,
	}
	if in.Merchant != nil && strings.TrimSpace(in.Merchant.ID) != "" {
		listing.Merchant = &core.MerchantRef{
			ID:   in.Merchant.ID,
			Name: in.Merchant.Name,
		}
	}
	return listing
}

func (c *Client) ListWebhooks(ctx context.Context, accessToken string, accountID string) ([]core.Webhook, error) {
	if c == nil {
		return nil, fmt.Errorf("monzo: client is nil")
	}
	query := url.Values{}
	if accountID = strings.TrimSpace(accountID); accountID != "" {
		query.Set("account_id", accountID)
	}
	body, _, err := c.do(ctx, http.MethodGet, "/webhooks", accessToken, query, nil)
	if err != nil {
		return nil, err
	}
	var payload listWebhooksPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, core.NewDecodeError("monzo: decode webhooks response", err)
	}
	hooks := make([]core.Webhook, 0, len(payload.Webhooks))
	for _, hook := range payload.Webhooks {
		hooks = append(hooks, core.Webhook{
			ID:        hook.ID,
			AccountID: hook.AccountID,
			URL:       hook.URL,
		})
	}
	return hooks, nil
}

func (c *Client) RegisterWebhook(ctx context.Context, accessToken string, accountID string, hookURL string) (core.Webhook, error) {
	if c == nil {
		return core.Webhook{}, fmt.Errorf("monzo: client is nil")
	}
	accountID = strings.TrimSpace(accountID)
	hookURL = strings.TrimSpace(hookURL)
	if accountID == "" || hookURL == "" {
		return core.Webhook{}, core.NewDecodeError("monzo: webhook account id and url are required", nil)
	}

	form := url.Values{}
	form.Set("account_id", accountID)
	form.Set("url", hookURL)

	body, _, err := c.do(ctx, http.MethodPost, "/webhooks", accessToken, nil, form)
	if err != nil {
		return core.Webhook{}, err
	}
	var payload registerWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.Webhook{}, core.NewDecodeError("monzo: decode webhook response", err)
	}
	return core.Webhook{
		ID:        payload.Webhook.ID,
		AccountID: payload.Webhook.AccountID,
		URL:       payload.Webhook.URL,
	}, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, accessToken string, webhookID string) error {
	if c == nil {
		return fmt.Errorf("monzo: client is nil")
	}
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return core.NewDecodeError("monzo: webhook id is required", nil)
	}
	_, _, err := c.do(ctx, http.MethodDelete, "/webhooks/"+url.PathEscape(webhookID), accessToken, nil, nil)
	return err
}

// do issues one request and returns the response body and status. A
// non-2xx status comes back as both an error and the raw status so
// callers can special-case provider rejections.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	accessToken string,
	query url.Values,
	form url.Values,
) ([]byte, int, error) {
	if c.httpClient == nil {
		return nil, 0, fmt.Errorf("monzo: http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(requestCtx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, core.NewTransportError("monzo: build request", err)
	}
	if form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	httpReq.Header.Set("Accept", "application/json")
	if accessToken = strings.TrimSpace(accessToken); accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, core.NewTransportError(fmt.Sprintf("monzo: %s %s failed", method, path), err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return nil, response.StatusCode, core.NewTransportError("monzo: read response body", readErr)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return nil, response.StatusCode, core.NewDecodeError(
			fmt.Sprintf("monzo: response exceeds %d bytes", maxResponseBodyBytes), nil,
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return body, response.StatusCode, statusError(method, path, response.StatusCode, body)
	}
	return body, response.StatusCode, nil
}

func statusError(method string, path string, status int, body []byte) error {
	message := fmt.Sprintf("monzo: %s %s returned status %d", method, path, status)
	if summary := errorBodySummary(body); summary != "" {
		message += ": " + summary
	}
	return core.NewTransportError(message, nil)
}

func errorBodySummary(body []byte) string {
	var payload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, candidate := range []string{payload.Message, payload.Error, payload.Code} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}
