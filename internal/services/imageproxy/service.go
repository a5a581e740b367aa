// Package imageproxy fetches remote token images on behalf of browsers
package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/bagboard/internal/address"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/bobmcallan/bagboard/internal/netguard"
)

// DefaultMaxBytes caps the size of a proxied image.
const DefaultMaxBytes = 5 << 20

// Compile-time interface check
var _ interfaces.ImageProxy = (*Service)(nil)

// PumpImageSource builds CDN image URLs for pump.fun mints.
type PumpImageSource interface {
	ImageURL(mint string) string
}

// Service implements ImageProxy.
type Service struct {
	httpClient   *http.Client
	allowedHosts map[string]bool
	maxBytes     int64
	pump         PumpImageSource
	guard        *netguard.Policy
	logger       *common.Logger
}

// NewService creates an image proxy. pump may be nil, which disables PumpImage.
func NewService(config *common.ImageProxyConfig, pump PumpImageSource, logger *common.Logger) *Service {
	s := &Service{
		allowedHosts: make(map[string]bool),
		maxBytes:     DefaultMaxBytes,
		pump:         pump,
		guard:        &netguard.Policy{},
		logger:       logger,
	}
	timeout := 8 * time.Second
	if config != nil {
		for _, h := range config.AllowedHosts {
			s.allowedHosts[strings.ToLower(strings.TrimSpace(h))] = true
		}
		if config.MaxBytes > 0 {
			s.maxBytes = config.MaxBytes
		}
		timeout = config.GetTimeout()
	}

	s.httpClient = &http.Client{
		Timeout:   timeout,
		Transport: s.guard.Transport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			return s.checkURL(req.URL, false)
		},
	}
	return s
}

// Fetch downloads an image from an allowed http(s) URL.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*models.Image, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, models.Invalid("url", "must be an absolute URL")
	}
	if err := s.checkURL(u, true); err != nil {
		return nil, err
	}
	return s.get(ctx, u.String())
}

// PumpImage proxies the pump.fun CDN image for a mint.
func (s *Service) PumpImage(ctx context.Context, mint string) (*models.Image, error) {
	if s.pump == nil {
		return nil, fmt.Errorf("pump image source disabled: %w", models.ErrNotFound)
	}
	if !address.IsSolana(mint) {
		return nil, models.Invalid("mint", "not a Solana mint address")
	}
	return s.get(ctx, s.pump.ImageURL(mint))
}

func (s *Service) get(ctx context.Context, target string) (*models.Image, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", "bagboard-image-proxy/"+common.GetVersion())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) || errors.Is(err, models.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("image request failed: %v: %w", err, models.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("image not found upstream: %w", models.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %w", resp.StatusCode, models.ErrUpstream)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("upstream content type %q is not an image: %w", contentType, models.ErrUpstream)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("image is %d bytes, limit %d: %w", resp.ContentLength, s.maxBytes, models.ErrUpstream)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %v: %w", err, models.ErrUpstream)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes: %w", s.maxBytes, models.ErrUpstream)
	}

	s.logger.Debug().
		Str("url", target).
		Str("content_type", mediaType).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("Image proxied")

	return &models.Image{Data: data, ContentType: mediaType}, nil
}

// checkURL applies the scheme, allowlist and literal address rules.
func (s *Service) checkURL(u *url.URL, applyAllowlist bool) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.Invalid("url", "only http and https are allowed")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return models.Invalid("url", "missing host")
	}
	if applyAllowlist && len(s.allowedHosts) > 0 && !s.hostAllowed(host) {
		return fmt.Errorf("host %s is not allowed: %w", host, models.ErrForbidden)
	}
	return s.guard.CheckHost(host)
}

// hostAllowed matches the host or any parent domain against the allowlist.
func (s *Service) hostAllowed(host string) bool {
	for {
		if s.allowedHosts[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
}
