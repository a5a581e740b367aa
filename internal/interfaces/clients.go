package interfaces

import (
	"context"

	"github.com/bobmcallan/bagboard/internal/models"
)

// MetadataSource is one market-data or image source in the metadata pipeline.
type MetadataSource interface {
	// Name identifies the source in logs and TokenMetadata.Sources.
	Name() string

	// Supports reports whether the source serves the chain.
	Supports(chain string) bool

	// Fields is the set of fields the source can fill.
	Fields() models.Field

	// Fetch returns whatever the source knows about the address. A source
	// with nothing to offer returns models.ErrNotFound.
	Fetch(ctx context.Context, address, chain string) (*models.TokenMetadata, error)
}

// FourMemeClient fetches four.meme market data on BNB Smart Chain.
type FourMemeClient interface {
	MarketData(ctx context.Context, address string) (*models.MarketSnapshot, error)
}

// PrivyClient verifies wallet-auth access tokens.
type PrivyClient interface {
	// VerifyAccessToken validates the signature, issuer, audience and expiry.
	VerifyAccessToken(ctx context.Context, token string) (*models.PrivyClaims, error)

	// LinkedWallets returns the wallet addresses linked to a Privy user.
	LinkedWallets(ctx context.Context, userID string) ([]string, error)
}

// MetadataCache stores resolved token metadata for a short TTL.
type MetadataCache interface {
	Get(ctx context.Context, key string) (*models.TokenMetadata, bool)
	Set(ctx context.Context, key string, meta *models.TokenMetadata)
}
