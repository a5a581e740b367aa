// Package metaplex reads on-chain Metaplex token metadata over Solana RPC
package metaplex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/bobmcallan/bagboard/internal/netguard"
)

const (
	DefaultRPCURL    = "https://api.mainnet-beta.solana.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5

	// TokenMetadataProgramID is the Metaplex Token Metadata program.
	TokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	maxOffChainBytes = 1 << 20
)

var programID = solana.MustPublicKeyFromBase58(TokenMetadataProgramID)

// Client implements interfaces.MetadataSource from the mint's metadata
// account, following its URI to the off-chain JSON for the image. The URI
// is set by the token creator, so off-chain fetches go through a guarded
// transport.
type Client struct {
	rpcURL     string
	rpcClient  *rpc.Client
	httpClient *http.Client
	guard      *netguard.Policy
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the Solana RPC endpoint
func WithBaseURL(rpcURL string) ClientOption {
	return func(c *Client) {
		c.rpcURL = rpcURL
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

// WithTimeout sets the timeout applied to each lookup
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Metaplex metadata client
func NewClient(opts ...ClientOption) *Client {
	guard := &netguard.Policy{}
	c := &Client{
		rpcURL: DefaultRPCURL,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: guard.Transport(),
		},
		guard:   guard,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.rpcClient = rpc.New(c.rpcURL)
	return c
}

func (c *Client) Name() string { return "metaplex" }

func (c *Client) Supports(chain string) bool { return chain == models.ChainSolana }

func (c *Client) Fields() models.Field { return models.FieldIdentity }

// MetadataPDA derives the metadata account address for a mint.
func MetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			programID.Bytes(),
			mint.Bytes(),
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}
	return addr, nil
}

func (c *Client) Fetch(ctx context.Context, mint, chain string) (*models.TokenMetadata, error) {
	mintPk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address: %w", err)
	}

	pda, err := MetadataPDA(mintPk)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	start := time.Now()
	info, err := c.rpcClient.GetAccountInfo(ctx, pda)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		c.logger.Warn().Err(err).Str("mint", mint).Dur("elapsed", elapsed).Msg("Metaplex account lookup failed")
		return nil, fmt.Errorf("failed to get metadata account: %w", err)
	}
	if info == nil || info.Value == nil || !info.Value.Owner.Equals(programID) {
		return nil, models.ErrNotFound
	}

	name, symbol, uri, err := DecodeMetadata(info.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}

	meta := &models.TokenMetadata{
		Address: mint,
		Chain:   models.ChainSolana,
		Name:    name,
		Symbol:  symbol,
	}
	if uri != "" {
		image, err := c.offChainImage(ctx, uri)
		if err != nil {
			c.logger.Debug().Err(err).Str("mint", mint).Str("uri", uri).Msg("Off-chain metadata unavailable")
		}
		meta.LogoURL = image
	}

	if meta.Empty() {
		return nil, models.ErrNotFound
	}
	return meta, nil
}

// DecodeMetadata borsh-decodes a metadata account and trims the null
// padding from its strings.
func DecodeMetadata(data []byte) (name, symbol, uri string, err error) {
	if len(data) == 0 {
		return "", "", "", models.ErrNotFound
	}
	var meta tokenmetadata.Metadata
	if err := bin.NewBorshDecoder(data).Decode(&meta); err != nil {
		return "", "", "", fmt.Errorf("failed to decode metadata account: %w", err)
	}
	name = strings.TrimSpace(strings.TrimRight(meta.Data.Name, "\x00"))
	symbol = strings.TrimSpace(strings.TrimRight(meta.Data.Symbol, "\x00"))
	uri = strings.TrimSpace(strings.TrimRight(meta.Data.Uri, "\x00"))
	return name, symbol, uri, nil
}

type offChainJSON struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

func (c *Client) offChainImage(ctx context.Context, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", fmt.Errorf("unsupported metadata uri %q", uri)
	}
	if err := c.guard.CheckHost(u.Hostname()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("off-chain metadata status %d", resp.StatusCode)
	}

	var doc offChainJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOffChainBytes)).Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode off-chain metadata: %w", err)
	}
	return strings.TrimSpace(doc.Image), nil
}

var _ interfaces.MetadataSource = (*Client)(nil)
