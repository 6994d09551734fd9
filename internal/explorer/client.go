package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// ErrNoData is returned when the explorer has no records for a query.
// It is definitive and must not be retried.
var ErrNoData = errors.New("explorer: no data")

// ErrNoCredential is returned when a call requires an API key and none
// is configured. Callers treat this as a degraded mode, not a failure.
var ErrNoCredential = errors.New("explorer: no API key configured")

// Client talks to an Etherscan-compatible block explorer API.
// One client is bound to one chain's base URL.
type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new explorer client. An empty apiKey is allowed;
// key-gated calls then return ErrNoCredential.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

// apiResponse is the common Etherscan-style envelope. Result is an array
// for list endpoints and a bare string for scalar endpoints and errors.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// get performs a GET with retries and decodes the envelope.
// Rate limiting is retried; "no records" maps to ErrNoData.
func (c *Client) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := c.baseURL + "?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var api apiResponse
		if err := json.Unmarshal(body, &api); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if api.Status != "1" {
			msg := strings.ToLower(api.Message + " " + rawString(api.Result))
			switch {
			case strings.Contains(msg, "rate limit"):
				lastErr = fmt.Errorf("rate limited: %s", api.Message)
				continue
			case strings.Contains(msg, "no data found"),
				strings.Contains(msg, "no transactions found"),
				strings.Contains(msg, "no records found"):
				return nil, ErrNoData
			default:
				return nil, fmt.Errorf("explorer error: %s: %s", api.Message, rawString(api.Result))
			}
		}

		return &api, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// rawString unquotes a raw JSON string result, or returns it verbatim.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

// ContractSource holds verification data for a contract.
type ContractSource struct {
	Verified     bool
	ContractName string
	ABI          string // JSON ABI, empty when unverified
}

// unverifiedABI is the sentinel Etherscan returns in the ABI field of
// unverified contracts.
const unverifiedABI = "Contract source code not verified"

// GetContractSource fetches verification status and ABI for a contract.
func (c *Client) GetContractSource(ctx context.Context, address string) (*ContractSource, error) {
	if !c.HasCredential() {
		return nil, ErrNoCredential
	}

	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", address)

	api, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
		ABI          string `json:"ABI"`
	}
	if err := json.Unmarshal(api.Result, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal source rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	src := &ContractSource{
		Verified:     rows[0].SourceCode != "",
		ContractName: rows[0].ContractName,
	}
	if rows[0].ABI != "" && rows[0].ABI != unverifiedABI {
		src.ABI = rows[0].ABI
	}
	return src, nil
}

// Holder is one entry of a token's top-holder list.
// Quantities are raw (undivided) units, the same basis as TokenSupply,
// so holder/supply ratios need no decimals adjustment.
type Holder struct {
	Address  string
	Quantity float64
}

// TopHolders fetches the largest token holders, biggest first.
func (c *Client) TopHolders(ctx context.Context, address string, limit int) ([]Holder, error) {
	if !c.HasCredential() {
		return nil, ErrNoCredential
	}

	params := url.Values{}
	params.Set("module", "token")
	params.Set("action", "tokenholderlist")
	params.Set("contractaddress", address)
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(limit))

	api, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Address  string `json:"TokenHolderAddress"`
		Quantity string `json:"TokenHolderQuantity"`
	}
	if err := json.Unmarshal(api.Result, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal holder rows: %w", err)
	}

	holders := make([]Holder, 0, len(rows))
	for _, row := range rows {
		qty, err := strconv.ParseFloat(row.Quantity, 64)
		if err != nil {
			continue
		}
		holders = append(holders, Holder{
			Address:  strings.ToLower(row.Address),
			Quantity: qty,
		})
	}
	if len(holders) == 0 {
		return nil, ErrNoData
	}
	return holders, nil
}

// TokenSupply fetches a token's total supply in raw units.
func (c *Client) TokenSupply(ctx context.Context, address string) (float64, error) {
	if !c.HasCredential() {
		return 0, ErrNoCredential
	}

	params := url.Values{}
	params.Set("module", "stats")
	params.Set("action", "tokensupply")
	params.Set("contractaddress", address)

	api, err := c.get(ctx, params)
	if err != nil {
		return 0, err
	}

	supply, err := strconv.ParseFloat(rawString(api.Result), 64)
	if err != nil {
		return 0, fmt.Errorf("parse supply: %w", err)
	}
	return supply, nil
}
