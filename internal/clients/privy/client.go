// Package privy verifies Privy wallet-auth access tokens
package privy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	DefaultBaseURL = "https://auth.privy.io"
	DefaultTimeout = 10 * time.Second

	// DefaultRefreshCooldown is the minimum gap between JWKS refetches
	// triggered by an unknown kid.
	DefaultRefreshCooldown = 5 * time.Minute

	// Issuer is the iss claim on every Privy access token.
	Issuer = "privy.io"
)

// Client implements interfaces.PrivyClient.
type Client struct {
	appID           string
	appSecret       string
	baseURL         string
	httpClient      *http.Client
	refreshCooldown time.Duration
	logger          *common.Logger

	mu   sync.Mutex
	jwks keyfunc.Keyfunc
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRefreshCooldown sets how often an unknown kid may trigger a JWKS refetch
func WithRefreshCooldown(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.refreshCooldown = d
		}
	}
}

// NewClient creates a new Privy client for an app.
func NewClient(appID, appSecret string, opts ...ClientOption) *Client {
	c := &Client{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		refreshCooldown: DefaultRefreshCooldown,
		logger:          common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type accessClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// VerifyAccessToken checks an ES256 access token against the app's JWKS.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (*models.PrivyClaims, error) {
	if c.appID == "" {
		return nil, fmt.Errorf("privy app id not configured")
	}

	jwks, err := c.keySet()
	if err != nil {
		return nil, err
	}

	claims := &accessClaims{}
	_, err = jwt.ParseWithClaims(token, claims, jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(c.appID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	out := &models.PrivyClaims{
		UserID:    claims.Subject,
		AppID:     c.appID,
		SessionID: claims.SessionID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// jwksURL is the app's public key set.
func (c *Client) jwksURL() string {
	return fmt.Sprintf("%s/api/v1/apps/%s/jwks.json", c.baseURL, url.PathEscape(c.appID))
}

// keySet builds the JWKS-backed keyfunc on first use. The set is fetched
// once up front; afterwards an unknown kid triggers at most one refetch per
// refresh cooldown, and a failed first fetch is retried the same way.
func (c *Client) keySet() (keyfunc.Keyfunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jwks != nil {
		return c.jwks, nil
	}

	jwksURL := c.jwksURL()
	start := time.Now()
	remote, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    c.httpClient,
		Ctx:                       context.Background(),
		HTTPTimeout:               c.httpClient.Timeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshErrorHandler: func(_ context.Context, err error) {
			c.logger.Warn().Err(err).Msg("Privy JWKS fetch failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks storage: %w", err)
	}

	storage, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURL: remote},
		RateLimitWaitMax:  time.Second,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(c.refreshCooldown), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks client: %w", err)
	}

	jwks, err := keyfunc.New(keyfunc.Options{
		Ctx:          context.Background(),
		Storage:      storage,
		UseWhitelist: []jwkset.USE{jwkset.UseSig},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}

	c.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Privy JWKS loaded")
	c.jwks = jwks
	return jwks, nil
}

type userResponse struct {
	ID             string `json:"id"`
	LinkedAccounts []struct {
		Type    string `json:"type"`
		Address string `json:"address"`
	} `json:"linked_accounts"`
}

// LinkedWallets returns the wallet addresses linked to a Privy user.
func (c *Client) LinkedWallets(ctx context.Context, userID string) ([]string, error) {
	if c.appSecret == "" {
		return nil, fmt.Errorf("privy app secret not configured")
	}

	reqURL := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.appID, c.appSecret)
	req.Header.Set("privy-app-id", c.appID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Privy user lookup failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Privy API error: status %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	var wallets []string
	for _, a := range user.LinkedAccounts {
		if a.Type == "wallet" && a.Address != "" {
			wallets = append(wallets, a.Address)
		}
	}
	return wallets, nil
}

var _ interfaces.PrivyClient = (*Client)(nil)
