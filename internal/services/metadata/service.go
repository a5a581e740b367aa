// Package metadata resolves live token metadata from market-data sources
package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/bagboard/internal/address"
	"github.com/bobmcallan/bagboard/internal/cache"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// DefaultConcurrency bounds ResolveMany when no limit is configured.
const DefaultConcurrency = 4

// Compile-time interface check
var _ interfaces.MetadataService = (*Service)(nil)

// Service walks sources in priority order and merges what each returns.
type Service struct {
	sources     []interfaces.MetadataSource
	cache       interfaces.MetadataCache
	concurrency int
	logger      *common.Logger
}

// NewService creates a metadata service. Sources are consulted in the order
// given. metaCache may be nil.
func NewService(sources []interfaces.MetadataSource, metaCache interfaces.MetadataCache, concurrency int, logger *common.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		sources:     sources,
		cache:       metaCache,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Resolve returns merged metadata for one address. Source failures are
// logged and skipped; a token no source knows comes back with only its
// address and chain.
func (s *Service) Resolve(ctx context.Context, addr string) (*models.TokenMetadata, error) {
	addr = address.Normalize(addr)
	chain := address.ChainOf(addr)
	if chain == "" {
		return nil, models.Invalid("address", fmt.Sprintf("%q is not a Solana or BSC address", addr))
	}

	key := cache.Key(chain, addr)
	if s.cache != nil {
		if meta, ok := s.cache.Get(ctx, key); ok {
			return meta, nil
		}
	}

	start := time.Now()
	meta := &models.TokenMetadata{Address: addr, Chain: chain}

	for _, src := range s.sources {
		if meta.Complete() {
			break
		}
		if !src.Supports(chain) || src.Fields()&meta.Missing() == 0 {
			continue
		}

		got, err := src.Fetch(ctx, addr, chain)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, models.ErrNotFound) {
				s.logger.Debug().Str("source", src.Name()).Str("address", addr).Msg("Token unknown to source")
			} else {
				s.logger.Warn().Err(err).Str("source", src.Name()).Str("address", addr).Msg("Metadata source failed")
			}
			continue
		}
		if got == nil {
			continue
		}

		meta = Merge(meta, got)
		meta.Sources = append(meta.Sources, src.Name())
	}

	s.logger.Debug().
		Str("address", addr).
		Strs("sources", meta.Sources).
		Bool("complete", meta.Complete()).
		Dur("elapsed", time.Since(start)).
		Msg("Token metadata resolved")

	if s.cache != nil {
		s.cache.Set(ctx, key, meta)
	}
	return meta, nil
}

// ResolveMany resolves addresses with bounded concurrency. Results keep the
// input order.
func (s *Service) ResolveMany(ctx context.Context, addresses []string) ([]models.TokenMetadata, error) {
	results := make([]models.TokenMetadata, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, addr := range addresses {
		g.Go(func() error {
			meta, err := s.Resolve(gctx, addr)
			if err != nil {
				return err
			}
			results[i] = *meta
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Merge combines two records for the same token. Non-empty incoming values
// replace existing ones, except the logo: a known logo is kept.
func Merge(existing, incoming *models.TokenMetadata) *models.TokenMetadata {
	if existing == nil {
		c := *incoming
		return &c
	}
	out := *existing
	out.Sources = append([]string(nil), existing.Sources...)
	if incoming == nil {
		return &out
	}

	if out.Address == "" {
		out.Address = incoming.Address
	}
	if out.Chain == "" {
		out.Chain = incoming.Chain
	}
	if incoming.Symbol != "" {
		out.Symbol = incoming.Symbol
	}
	if incoming.Name != "" {
		out.Name = incoming.Name
	}
	if out.LogoURL == "" {
		out.LogoURL = incoming.LogoURL
	}
	if incoming.PriceUSD != nil {
		out.PriceUSD = incoming.PriceUSD
	}
	if incoming.Change24h != nil {
		out.Change24h = incoming.Change24h
	}
	if incoming.MarketCap != nil {
		out.MarketCap = incoming.MarketCap
	}
	return &out
}
