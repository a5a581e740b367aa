// Package pumpfun probes the pump.fun image CDN for token logos
package pumpfun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/address"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultBaseURL   = "https://images.pump.fun"
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 5
)

// Client implements interfaces.MetadataSource for pump.fun mints. It only
// ever supplies a logo.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the CDN base URL
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

// NewClient creates a new pump.fun CDN client
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

// ImageURL returns the CDN URL for a mint's image.
func (c *Client) ImageURL(mint string) string {
	return fmt.Sprintf("%s/coin-image/%s", c.baseURL, url.PathEscape(mint))
}

func (c *Client) Name() string { return "pumpfun" }

func (c *Client) Supports(chain string) bool { return chain == models.ChainSolana }

func (c *Client) Fields() models.Field { return models.FieldLogo }

// Fetch confirms the CDN serves an image for the mint. Mints not launched
// on pump.fun are skipped without a request.
func (c *Client) Fetch(ctx context.Context, mint, chain string) (*models.TokenMetadata, error) {
	if !address.IsPumpMint(mint) {
		return nil, models.ErrNotFound
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	imageURL := c.ImageURL(mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("mint", mint).Dur("elapsed", elapsed).Msg("pump.fun image probe failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return nil, models.ErrNotFound
	}

	return &models.TokenMetadata{
		Address: mint,
		Chain:   models.ChainSolana,
		LogoURL: imageURL,
	}, nil
}

var _ interfaces.MetadataSource = (*Client)(nil)
