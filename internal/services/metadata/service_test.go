package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/bagboard/internal/cache"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/models"
)

const (
	solMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	usdc    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	bscAddr = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"
)

// --- Mocks ---

type mockSource struct {
	name   string
	chains []string
	fields models.Field
	result *models.TokenMetadata
	err    error
	calls  int32
	delay  time.Duration
}

func (m *mockSource) Name() string { return m.name }
func (m *mockSource) Supports(chain string) bool {
	for _, c := range m.chains {
		if c == chain {
			return true
		}
	}
	return false
}
func (m *mockSource) Fields() models.Field { return m.fields }
func (m *mockSource) Fetch(ctx context.Context, address, chain string) (*models.TokenMetadata, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	r := *m.result
	r.Address = address
	r.Chain = chain
	return &r, nil
}

var bothChains = []string{models.ChainSolana, models.ChainBSC}

func newTestService(sources ...*mockSource) *Service {
	s := NewService(nil, nil, 2, common.NewSilentLogger())
	for _, src := range sources {
		s.sources = append(s.sources, src)
	}
	return s
}

func TestResolve_StopsWhenComplete(t *testing.T) {
	dex := &mockSource{name: "dexscreener", chains: bothChains, fields: models.FieldIdentity | models.FieldMarket,
		result: &models.TokenMetadata{Symbol: "BONK", Name: "Bonk", LogoURL: "dex.png", PriceUSD: models.Float(0.00002)}}
	gecko := &mockSource{name: "coingecko", chains: bothChains, fields: models.FieldIdentity | models.FieldMarket,
		result: &models.TokenMetadata{Symbol: "X"}}

	meta, err := newTestService(dex, gecko).Resolve(context.Background(), solMint)
	require.NoError(t, err)

	assert.Equal(t, "BONK", meta.Symbol)
	assert.Equal(t, []string{"dexscreener"}, meta.Sources)
	assert.Equal(t, int32(0), gecko.calls)
}

func TestResolve_FallsThroughFailures(t *testing.T) {
	dex := &mockSource{name: "dexscreener", chains: bothChains, fields: models.FieldIdentity | models.FieldMarket,
		err: errors.New("boom")}
	gecko := &mockSource{name: "coingecko", chains: bothChains, fields: models.FieldIdentity | models.FieldMarket,
		err: models.ErrNotFound}
	jup := &mockSource{name: "jupiter", chains: []string{models.ChainSolana}, fields: models.FieldIdentity,
		result: &models.TokenMetadata{Symbol: "BONK", Name: "Bonk", LogoURL: "jup.png"}}

	meta, err := newTestService(dex, gecko, jup).Resolve(context.Background(), solMint)
	require.NoError(t, err)

	assert.Equal(t, "Bonk", meta.Name)
	assert.Equal(t, "jup.png", meta.LogoURL)
	assert.Nil(t, meta.PriceUSD)
	assert.Equal(t, []string{"jupiter"}, meta.Sources)
}

func TestResolve_SkipsLogoOnlySourcesOnceLogoKnown(t *testing.T) {
	dex := &mockSource{name: "dexscreener", chains: bothChains, fields: models.FieldIdentity | models.FieldMarket,
		result: &models.TokenMetadata{Symbol: "BONK", LogoURL: "dex.png", PriceUSD: models.Float(1)}}
	pump := &mockSource{name: "pumpfun", chains: []string{models.ChainSolana}, fields: models.FieldLogo,
		result: &models.TokenMetadata{LogoURL: "pump.png"}}
	jup := &mockSource{name: "jupiter", chains: []string{models.ChainSolana}, fields: models.FieldIdentity,
		result: &models.TokenMetadata{Name: "Bonk"}}

	meta, err := newTestService(dex, pump, jup).Resolve(context.Background(), solMint)
	require.NoError(t, err)

	assert.Equal(t, int32(0), pump.calls)
	assert.Equal(t, int32(1), jup.calls)
	assert.Equal(t, "dex.png", meta.LogoURL)
	assert.Equal(t, "Bonk", meta.Name)
	assert.True(t, meta.Complete())
}

func TestResolve_SkipsUnsupportedChain(t *testing.T) {
	jup := &mockSource{name: "jupiter", chains: []string{models.ChainSolana}, fields: models.FieldIdentity,
		result: &models.TokenMetadata{Symbol: "NOPE"}}

	meta, err := newTestService(jup).Resolve(context.Background(), bscAddr)
	require.NoError(t, err)
	assert.Equal(t, int32(0), jup.calls)
	assert.Equal(t, models.ChainBSC, meta.Chain)
	assert.True(t, meta.Empty())
}

func TestResolve_InvalidAddress(t *testing.T) {
	_, err := newTestService().Resolve(context.Background(), "0x123")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestResolve_NormalizesEVM(t *testing.T) {
	meta, err := newTestService().Resolve(context.Background(), "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82")
	require.NoError(t, err)
	assert.Equal(t, bscAddr, meta.Address)
}

func TestResolve_UsesCache(t *testing.T) {
	dex := &mockSource{name: "dexscreener", chains: bothChains, fields: models.FieldIdentity | models.FieldMarket,
		result: &models.TokenMetadata{Symbol: "BONK"}}
	s := newTestService(dex)
	s.cache = cache.NewMemoryCache(time.Minute, 0)

	for i := 0; i < 3; i++ {
		_, err := s.Resolve(context.Background(), solMint)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), dex.calls)
}

func TestResolveMany_PreservesOrderAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	src := &trackingSource{
		onFetch: func() func() {
			n := atomic.AddInt32(&inFlight, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			return func() { atomic.AddInt32(&inFlight, -1) }
		},
	}
	s := NewService(nil, nil, 2, common.NewSilentLogger())
	s.sources = append(s.sources, src)

	addrs := []string{solMint, bscAddr, usdc, solMint}
	out, err := s.ResolveMany(context.Background(), addrs)
	require.NoError(t, err)
	require.Len(t, out, 4)
	for i, a := range addrs {
		assert.Equal(t, a, out[i].Address)
		assert.Equal(t, "SYM-"+a[:4], out[i].Symbol)
	}
	assert.LessOrEqual(t, peak, int32(2))
}

func TestResolveMany_InvalidAddressFails(t *testing.T) {
	_, err := newTestService().ResolveMany(context.Background(), []string{solMint, "garbage"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

type trackingSource struct {
	onFetch func() func()
}

func (s *trackingSource) Name() string               { return "tracking" }
func (s *trackingSource) Supports(string) bool       { return true }
func (s *trackingSource) Fields() models.Field       { return models.FieldSymbol }
func (s *trackingSource) Fetch(_ context.Context, address, chain string) (*models.TokenMetadata, error) {
	done := s.onFetch()
	defer done()
	time.Sleep(10 * time.Millisecond)
	return &models.TokenMetadata{Address: address, Chain: chain, Symbol: "SYM-" + address[:4]}, nil
}

func TestMerge(t *testing.T) {
	existing := &models.TokenMetadata{Address: "a", Symbol: "OLD", LogoURL: "first.png", PriceUSD: models.Float(1), Sources: []string{"x"}}
	incoming := &models.TokenMetadata{Symbol: "NEW", Name: "New", LogoURL: "second.png", PriceUSD: models.Float(2), MarketCap: models.Float(10)}

	out := Merge(existing, incoming)

	assert.Equal(t, "NEW", out.Symbol, "incoming values win")
	assert.Equal(t, "New", out.Name)
	assert.Equal(t, "first.png", out.LogoURL, "known logo is kept")
	assert.Equal(t, 2.0, *out.PriceUSD)
	assert.Equal(t, 10.0, *out.MarketCap)
	assert.Equal(t, "OLD", existing.Symbol, "inputs are not mutated")

	// Empty incoming values never erase
	out = Merge(out, &models.TokenMetadata{})
	assert.Equal(t, "NEW", out.Symbol)
	assert.Equal(t, 2.0, *out.PriceUSD)

	// Logo fills when missing
	out = Merge(&models.TokenMetadata{}, &models.TokenMetadata{LogoURL: "l.png"})
	assert.Equal(t, "l.png", out.LogoURL)
}
