package metadata

import "github.com/bobmcallan/bagboard/internal/models"

// Aggregate averages 24h change and market cap across the tokens that carry
// each value. Tokens without data are left out of the average rather than
// counted as zero.
func Aggregate(tokens []models.TokenMetadata) models.PortfolioStats {
	stats := models.PortfolioStats{
		TokenCount: len(tokens),
		Tokens:     tokens,
	}
	if stats.Tokens == nil {
		stats.Tokens = []models.TokenMetadata{}
	}

	var changeSum, capSum float64
	var changeN, capN int
	for _, t := range tokens {
		if t.PriceUSD != nil {
			stats.PricedCount++
		}
		if t.Change24h != nil {
			changeSum += *t.Change24h
			changeN++
		}
		if t.MarketCap != nil {
			capSum += *t.MarketCap
			capN++
		}
	}

	if changeN > 0 {
		stats.AvgChange24h = models.Float(changeSum / float64(changeN))
	}
	if capN > 0 {
		stats.AvgMarketCap = models.Float(capSum / float64(capN))
	}
	return stats
}
