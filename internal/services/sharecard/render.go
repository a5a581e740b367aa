// Package sharecard renders the social share image for a portfolio
package sharecard

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// Card dimensions match the Open Graph image size.
const (
	Width   = 1200
	Height  = 630
	MaxBars = 20
)

var (
	gainColor  = drawing.ColorFromHex("16a34a") // green-600
	lossColor  = drawing.ColorFromHex("dc2626") // red-600
	emptyColor = drawing.ColorFromHex("9ca3af") // gray-400
)

// Compile-time interface check
var _ interfaces.ShareCardRenderer = (*Renderer)(nil)

// Renderer draws share cards as PNG bar charts of per-token 24h change.
type Renderer struct{}

// NewRenderer creates a share card renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render returns PNG bytes. Tokens without a 24h change are left out; a
// portfolio with none renders a single empty bar.
func (r *Renderer) Render(portfolio *models.Portfolio, stats *models.PortfolioStats) ([]byte, error) {
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio is required")
	}

	var bars []chart.Value
	if stats != nil {
		for _, t := range stats.Tokens {
			if t.Change24h == nil {
				continue
			}
			if len(bars) == MaxBars {
				break
			}
			color := gainColor
			if *t.Change24h < 0 {
				color = lossColor
			}
			bars = append(bars, chart.Value{
				Label: tokenLabel(t),
				Value: *t.Change24h,
				Style: chart.Style{FillColor: color, StrokeColor: color},
			})
		}
	}
	if len(bars) == 0 {
		bars = []chart.Value{{
			Label: "no price data",
			Value: 0,
			Style: chart.Style{FillColor: emptyColor, StrokeColor: emptyColor},
		}}
	}

	lo, hi := valueRange(bars)
	graph := chart.BarChart{
		Title:  title(portfolio, stats),
		Width:  Width,
		Height: Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		// Losses hang below the zero line
		UseBaseValue: true,
		BaseValue:    0,
		BarWidth:     barWidth(len(bars)),
		BarSpacing:   12,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%+.0f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("share card render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func title(p *models.Portfolio, stats *models.PortfolioStats) string {
	if stats == nil || stats.AvgChange24h == nil {
		return p.Name
	}
	return fmt.Sprintf("%s  %+.2f%% 24h", p.Name, *stats.AvgChange24h)
}

func tokenLabel(t models.TokenMetadata) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	if len(t.Address) > 8 {
		return t.Address[:4] + ".." + t.Address[len(t.Address)-4:]
	}
	return t.Address
}

// valueRange always includes zero and never collapses to an empty range.
func valueRange(bars []chart.Value) (float64, float64) {
	var lo, hi float64
	for _, b := range bars {
		lo = min(lo, b.Value)
		hi = max(hi, b.Value)
	}
	if lo == hi {
		return -1, 1
	}
	pad := (hi - lo) * 0.1
	if lo < 0 {
		lo -= pad
	}
	if hi > 0 {
		hi += pad
	}
	return lo, hi
}

func barWidth(n int) int {
	w := (Width - 100) / n
	return min(max(w-12, 8), 120)
}
