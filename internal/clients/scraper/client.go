// Package scraper extracts token images from public token pages
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultBaseURL   = "https://dexscreener.com"
	DefaultTimeout   = 8 * time.Second
	DefaultRateLimit = 1

	maxPageBytes = 2 << 20
)

// Client implements interfaces.MetadataSource by reading the og:image of a
// token page at {base}/{chain}/{address}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the page base URL
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

// NewClient creates a new page scraper
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

func (c *Client) Name() string { return "scraper" }

func (c *Client) Supports(chain string) bool {
	return chain == models.ChainSolana || chain == models.ChainBSC
}

func (c *Client) Fields() models.Field { return models.FieldLogo }

func (c *Client) Fetch(ctx context.Context, address, chain string) (*models.TokenMetadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pageURL := fmt.Sprintf("%s/%s/%s", c.baseURL, chain, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Dur("elapsed", elapsed).Msg("Token page request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token page error: status %d", resp.StatusCode)
	}

	image := ExtractImage(io.LimitReader(resp.Body, maxPageBytes))
	if image == "" {
		return nil, models.ErrNotFound
	}

	base, _ := url.Parse(pageURL)
	if ref, err := url.Parse(image); err == nil && base != nil {
		image = base.ResolveReference(ref).String()
	}

	return &models.TokenMetadata{
		Address: address,
		Chain:   chain,
		LogoURL: image,
	}, nil
}

// ExtractImage returns the og:image (or twitter:image) content of an HTML
// document. Only the head is scanned.
func ExtractImage(r io.Reader) string {
	var twitter string
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return twitter
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "head" {
				return twitter
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var key, content string
			for {
				k, v, more := z.TagAttr()
				switch string(k) {
				case "property", "name":
					key = strings.ToLower(string(v))
				case "content":
					content = strings.TrimSpace(string(v))
				}
				if !more {
					break
				}
			}
			switch key {
			case "og:image", "og:image:url":
				if content != "" {
					return content
				}
			case "twitter:image":
				if twitter == "" {
					twitter = content
				}
			}
		}
	}
}

var _ interfaces.MetadataSource = (*Client)(nil)
