package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public DexScreener API. No credential is required.
const DefaultBaseURL = "https://api.dexscreener.com"

// Default configuration values.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// Client talks to the DexScreener pairs API.
type Client struct {
	baseURL    string
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

// NewClient creates a new DexScreener client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
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

// Liquidity is the per-pair liquidity block.
type Liquidity struct {
	USD *float64 `json:"usd"`
}

// Volume holds rolling volume windows.
type Volume struct {
	H24 *float64 `json:"h24"`
}

// PriceChange holds rolling price change windows, in percent.
type PriceChange struct {
	H24 *float64 `json:"h24"`
}

// BaseToken identifies the traded token of a pair.
type BaseToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is one DEX trading pair for a token.
type Pair struct {
	ChainID       string       `json:"chainId"`
	DexID         string       `json:"dexId"`
	URL           string       `json:"url"`
	PriceUSD      string       `json:"priceUsd"`
	FDV           *float64     `json:"fdv"`
	MarketCap     *float64     `json:"marketCap"`
	PairCreatedAt *int64       `json:"pairCreatedAt"` // Unix ms
	Liquidity     *Liquidity   `json:"liquidity"`
	Volume        *Volume      `json:"volume"`
	PriceChange   *PriceChange `json:"priceChange"`
	BaseToken     BaseToken    `json:"baseToken"`
}

// LiquidityUSD returns the pair's USD liquidity, or nil when unreported.
func (p *Pair) LiquidityUSD() *float64 {
	if p.Liquidity == nil {
		return nil
	}
	return p.Liquidity.USD
}

// tokenPairsResponse is the /latest/dex/tokens envelope.
type tokenPairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// TokenPairs fetches all pairs trading a token, filtered to chainID.
// A token with no pairs returns an empty slice and no error.
func (c *Client) TokenPairs(ctx context.Context, chainID, address string) ([]Pair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, address)

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

		var parsed tokenPairsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		pairs := make([]Pair, 0, len(parsed.Pairs))
		for _, p := range parsed.Pairs {
			if chainID != "" && !strings.EqualFold(p.ChainID, chainID) {
				continue
			}
			pairs = append(pairs, p)
		}
		return pairs, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
