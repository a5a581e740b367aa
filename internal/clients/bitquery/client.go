// Package bitquery queries four.meme market data on BNB Smart Chain
package bitquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultBaseURL   = "https://streaming.bitquery.io/graphql"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2

	// FourMemeSupply is the fixed total supply of four.meme launches.
	FourMemeSupply = 1_000_000_000
)

// tradesQuery fetches the latest trade and the latest trade at least 24h old.
const tradesQuery = `query ($token: String!, $since: DateTime!) {
  EVM(network: bsc) {
    latest: DEXTradeByTokens(
      limit: {count: 1}
      orderBy: {descending: Block_Time}
      where: {Trade: {Currency: {SmartContract: {is: $token}}}}
    ) {
      Block { Time }
      Trade { PriceInUSD Currency { Name Symbol } }
    }
    dayAgo: DEXTradeByTokens(
      limit: {count: 1}
      orderBy: {descending: Block_Time}
      where: {Trade: {Currency: {SmartContract: {is: $token}}}, Block: {Time: {before: $since}}}
    ) {
      Block { Time }
      Trade { PriceInUSD Currency { Name Symbol } }
    }
  }
}`

// Client implements interfaces.FourMemeClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the GraphQL endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Bitquery client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type trade struct {
	Block struct {
		Time time.Time `json:"Time"`
	} `json:"Block"`
	Trade struct {
		PriceInUSD float64 `json:"PriceInUSD"`
		Currency   struct {
			Name   string `json:"Name"`
			Symbol string `json:"Symbol"`
		} `json:"Currency"`
	} `json:"Trade"`
}

type tradesResponse struct {
	Data struct {
		EVM struct {
			Latest []trade `json:"latest"`
			DayAgo []trade `json:"dayAgo"`
		} `json:"EVM"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// MarketData returns the latest price, 24h change and implied market cap.
func (c *Client) MarketData(ctx context.Context, address string) (*models.MarketSnapshot, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("bitquery api key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(graphQLRequest{
		Query: tradesQuery,
		Variables: map[string]any{
			"token": strings.ToLower(address),
			"since": c.now().Add(-24 * time.Hour).UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Dur("elapsed", elapsed).Msg("Bitquery request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn().Str("address", address).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Bitquery non-OK response")
		return nil, fmt.Errorf("Bitquery API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body tradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(body.Errors) > 0 {
		return nil, fmt.Errorf("Bitquery query error: %s", body.Errors[0].Message)
	}
	if len(body.Data.EVM.Latest) == 0 {
		return nil, models.ErrNotFound
	}

	latest := body.Data.EVM.Latest[0]
	snap := &models.MarketSnapshot{
		Address: strings.ToLower(address),
		Symbol:  latest.Trade.Currency.Symbol,
		Name:    latest.Trade.Currency.Name,
	}
	if price := latest.Trade.PriceInUSD; price > 0 {
		snap.PriceUSD = models.Float(price)
		snap.MarketCap = models.Float(price * FourMemeSupply)
		if len(body.Data.EVM.DayAgo) > 0 {
			if prev := body.Data.EVM.DayAgo[0].Trade.PriceInUSD; prev > 0 {
				snap.Change24h = models.Float((price - prev) / prev * 100)
			}
		}
	}
	return snap, nil
}

var _ interfaces.FourMemeClient = (*Client)(nil)
