// Package jupiter provides a lookup over the Jupiter strict token list
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultListURL = "https://token.jup.ag/strict"
	DefaultTimeout = 15 * time.Second
)

type listEntry struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	LogoURI string `json:"logoURI"`
}

// Client implements interfaces.MetadataSource over the static token list.
// The list is downloaded on first use and indexed by mint; a failed
// download is attempted again on the next lookup.
type Client struct {
	listURL    string
	httpClient *http.Client
	logger     *common.Logger

	mu    sync.Mutex
	index map[string]listEntry
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the token list URL
func WithBaseURL(listURL string) ClientOption {
	return func(c *Client) {
		c.listURL = listURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Jupiter token list client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		listURL: DefaultListURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Name() string { return "jupiter" }

func (c *Client) Supports(chain string) bool { return chain == models.ChainSolana }

func (c *Client) Fields() models.Field { return models.FieldIdentity }

func (c *Client) Fetch(ctx context.Context, address, chain string) (*models.TokenMetadata, error) {
	index, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := index[address]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.TokenMetadata{
		Address: address,
		Chain:   models.ChainSolana,
		Symbol:  entry.Symbol,
		Name:    entry.Name,
		LogoURL: entry.LogoURI,
	}, nil
}

// Len returns the number of indexed tokens, loading the list if needed.
func (c *Client) Len(ctx context.Context) (int, error) {
	index, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(index), nil
}

func (c *Client) load(ctx context.Context) (map[string]listEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		return c.index, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Jupiter token list download failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Jupiter token list error: status %d", resp.StatusCode)
	}

	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode token list: %w", err)
	}

	index := make(map[string]listEntry, len(entries))
	for _, e := range entries {
		if e.Address != "" {
			index[e.Address] = e
		}
	}
	c.index = index

	c.logger.Info().Int("tokens", len(index)).Dur("elapsed", elapsed).Msg("Jupiter token list loaded")
	return index, nil
}

var _ interfaces.MetadataSource = (*Client)(nil)
