package models

// LeaderboardEntry is one portfolio on a leaderboard.
type LeaderboardEntry struct {
	Username      string   `json:"username"`
	DisplayName   string   `json:"display_name"`
	PortfolioID   string   `json:"portfolio_id"`
	PortfolioName string   `json:"portfolio_name"`
	Views         int      `json:"views"`
	Shares        int      `json:"shares"`
	TokenCount    int      `json:"token_count"`
	AvgChange24h  *float64 `json:"avg_change_24h,omitempty"`
	AvgMarketCap  *float64 `json:"avg_market_cap,omitempty"`
	Score         float64  `json:"score"`
}

// Leaderboard holds the three independent rankings.
type Leaderboard struct {
	MostViewed    []LeaderboardEntry `json:"most_viewed"`
	TopPerforming []LeaderboardEntry `json:"top_performing"`
	MostTokens    []LeaderboardEntry `json:"most_tokens"`
}
