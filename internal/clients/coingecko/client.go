// Package coingecko provides a client for the CoinGecko contract lookup API
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com"
	DefaultTimeout   = 8 * time.Second
	DefaultRateLimit = 2 // requests per second, free tier
)

// platforms maps chains to CoinGecko asset platform ids.
var platforms = map[string]string{
	models.ChainSolana: "solana",
	models.ChainBSC:    "binance-smart-chain",
}

// Client implements interfaces.MetadataSource using CoinGecko.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
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

// NewClient creates a new CoinGecko client. The API key is optional and
// sent as a demo key header when set.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type contractResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

func (c *Client) Name() string { return "coingecko" }

func (c *Client) Supports(chain string) bool {
	_, ok := platforms[chain]
	return ok
}

func (c *Client) Fields() models.Field {
	return models.FieldIdentity | models.FieldMarket
}

// Fetch looks the token up by contract address on its asset platform.
func (c *Client) Fetch(ctx context.Context, address, chain string) (*models.TokenMetadata, error) {
	platform, ok := platforms[chain]
	if !ok {
		return nil, models.ErrNotFound
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/api/v3/coins/%s/contract/%s", c.baseURL, platform, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Dur("elapsed", elapsed).Msg("CoinGecko request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("address", address).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("CoinGecko non-OK response")
		return nil, fmt.Errorf("CoinGecko API error: status %d", resp.StatusCode)
	}

	var body contractResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	meta := &models.TokenMetadata{
		Address:   address,
		Chain:     chain,
		Symbol:    strings.ToUpper(body.Symbol),
		Name:      body.Name,
		LogoURL:   firstNonEmpty(body.Image.Large, body.Image.Small, body.Image.Thumb),
		Change24h: body.MarketData.PriceChangePercentage24h,
	}
	if p, ok := body.MarketData.CurrentPrice["usd"]; ok && p > 0 {
		meta.PriceUSD = models.Float(p)
	}
	if mc, ok := body.MarketData.MarketCap["usd"]; ok && mc > 0 {
		meta.MarketCap = models.Float(mc)
	}
	if meta.Empty() {
		return nil, models.ErrNotFound
	}
	return meta, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ interfaces.MetadataSource = (*Client)(nil)
