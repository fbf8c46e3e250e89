package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammadpnp/member-import/internal/config"
	"github.com/mohammadpnp/member-import/internal/metrics"
)

var ErrDisabled = errors.New("identity provider disabled")

// Result is the outcome of one account request. A failed request carries Err
// and never panics or aborts the caller.
type Result struct {
	ExternalID string
	Err        error
}

func (r Result) OK() bool {
	return r.Err == nil && r.ExternalID != ""
}

type Client struct {
	baseURL    string
	apiKey     string
	enabled    bool
	httpClient *http.Client
}

func NewClient(cfg config.IdentityConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		enabled: cfg.Enabled && cfg.BaseURL != "",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

type createAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAccountResponse struct {
	ID   string `json:"id"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreateAccount registers email with the provider and returns its stable account id.
func (c *Client) CreateAccount(ctx context.Context, email, password string) Result {
	if !c.enabled {
		return Result{Err: ErrDisabled}
	}
	res := c.createAccount(ctx, email, password)
	metrics.IdentityRequest(res.OK())
	return res
}

func (c *Client) createAccount(ctx context.Context, email, password string) Result {
	payload, err := json.Marshal(createAccountRequest{Email: email, Password: password})
	if err != nil {
		return Result{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/accounts", bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Result{Err: fmt.Errorf("identity provider error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var out createAccountResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	id := out.ID
	if id == "" {
		id = out.Data.ID
	}
	if id == "" {
		return Result{Err: errors.New("identity provider returned no account id")}
	}
	return Result{ExternalID: id}
}
