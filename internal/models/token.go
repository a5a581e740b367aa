package models

// TokenMetadata is the merged, transient view of a token assembled from
// market-data sources. Pointer fields are nil when no source supplied them.
type TokenMetadata struct {
	Address   string   `json:"address"`
	Chain     string   `json:"chain"`
	Symbol    string   `json:"symbol,omitempty"`
	Name      string   `json:"name,omitempty"`
	LogoURL   string   `json:"logo_url,omitempty"`
	PriceUSD  *float64 `json:"price_usd,omitempty"`
	Change24h *float64 `json:"change_24h,omitempty"`
	MarketCap *float64 `json:"market_cap,omitempty"`
	Sources   []string `json:"sources,omitempty"`
}

// Complete reports whether every display field has been filled.
func (t *TokenMetadata) Complete() bool {
	return t.Symbol != "" && t.Name != "" && t.LogoURL != "" && t.PriceUSD != nil
}

// Empty reports whether no source contributed anything.
func (t *TokenMetadata) Empty() bool {
	return t.Symbol == "" && t.Name == "" && t.LogoURL == "" &&
		t.PriceUSD == nil && t.Change24h == nil && t.MarketCap == nil
}

// PortfolioStats aggregates token metadata across one portfolio.
// Averages only count tokens that carry the value.
type PortfolioStats struct {
	TokenCount   int             `json:"token_count"`
	PricedCount  int             `json:"priced_count"`
	AvgChange24h *float64        `json:"avg_change_24h,omitempty"`
	AvgMarketCap *float64        `json:"avg_market_cap,omitempty"`
	Tokens       []TokenMetadata `json:"tokens"`
}

// MarketSnapshot is the four.meme market data returned by the GraphQL source.
type MarketSnapshot struct {
	Address   string   `json:"address"`
	Symbol    string   `json:"symbol,omitempty"`
	Name      string   `json:"name,omitempty"`
	PriceUSD  *float64 `json:"price_usd,omitempty"`
	Change24h *float64 `json:"change_24h,omitempty"`
	MarketCap *float64 `json:"market_cap,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Field is a bit set of TokenMetadata display fields.
type Field uint8

const (
	FieldSymbol Field = 1 << iota
	FieldName
	FieldLogo
	FieldPrice
	FieldChange
	FieldMarketCap

	FieldIdentity = FieldSymbol | FieldName | FieldLogo
	FieldMarket   = FieldPrice | FieldChange | FieldMarketCap
)

// Missing returns the fields not yet populated.
func (t *TokenMetadata) Missing() Field {
	var f Field
	if t.Symbol == "" {
		f |= FieldSymbol
	}
	if t.Name == "" {
		f |= FieldName
	}
	if t.LogoURL == "" {
		f |= FieldLogo
	}
	if t.PriceUSD == nil {
		f |= FieldPrice
	}
	if t.Change24h == nil {
		f |= FieldChange
	}
	if t.MarketCap == nil {
		f |= FieldMarketCap
	}
	return f
}
