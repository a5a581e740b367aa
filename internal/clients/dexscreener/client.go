// Package dexscreener provides a client for the DexScreener token API
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultBaseURL   = "https://api.dexscreener.com"
	DefaultTimeout   = 8 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements interfaces.MetadataSource using DexScreener pair data.
type Client struct {
	baseURL    string
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

// NewClient creates a new DexScreener client. No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// flexFloat64 handles JSON values that may be either a number or a string.
// DexScreener returns priceUsd as a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

type tokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type pair struct {
	ChainID     string       `json:"chainId"`
	PairAddress string       `json:"pairAddress"`
	BaseToken   tokenRef     `json:"baseToken"`
	PriceUSD    *flexFloat64 `json:"priceUsd"`
	PriceChange struct {
		H24 *float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV       *float64 `json:"fdv"`
	MarketCap *float64 `json:"marketCap"`
	Info      struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type tokensResponse struct {
	Pairs []pair `json:"pairs"`
}

func (c *Client) Name() string { return "dexscreener" }

func (c *Client) Supports(chain string) bool {
	return chain == models.ChainSolana || chain == models.ChainBSC
}

func (c *Client) Fields() models.Field {
	return models.FieldIdentity | models.FieldMarket
}

// Fetch looks up all pairs for the token and uses the most liquid one
// whose base token is the address.
func (c *Client) Fetch(ctx context.Context, address, chain string) (*models.TokenMetadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Dur("elapsed", elapsed).Msg("DexScreener request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("address", address).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("DexScreener non-OK response")
		return nil, fmt.Errorf("DexScreener API error: status %d", resp.StatusCode)
	}

	var body tokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	best := bestPair(body.Pairs, address)
	if best == nil {
		return nil, models.ErrNotFound
	}

	c.logger.Debug().Str("address", address).Str("pair", best.PairAddress).Dur("elapsed", elapsed).Msg("DexScreener pair selected")

	meta := &models.TokenMetadata{
		Address:   address,
		Chain:     chain,
		Symbol:    best.BaseToken.Symbol,
		Name:      best.BaseToken.Name,
		LogoURL:   best.Info.ImageURL,
		Change24h: best.PriceChange.H24,
	}
	if best.PriceUSD != nil && *best.PriceUSD > 0 {
		meta.PriceUSD = models.Float(float64(*best.PriceUSD))
	}
	switch {
	case best.MarketCap != nil && *best.MarketCap > 0:
		meta.MarketCap = best.MarketCap
	case best.FDV != nil && *best.FDV > 0:
		meta.MarketCap = best.FDV
	}
	return meta, nil
}

func bestPair(pairs []pair, address string) *pair {
	var best *pair
	for i := range pairs {
		p := &pairs[i]
		if !strings.EqualFold(p.BaseToken.Address, address) {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	return best
}

var _ interfaces.MetadataSource = (*Client)(nil)
