package market

import (
	"math"

	"stockkidz/internal/account"
)

// MinPriceCents floors every random-walk step at $1.00.
const MinPriceCents = int64(100)

// MaxDriftPerTick bounds each tick's move to ±5% of the current price.
const MaxDriftPerTick = 0.05

// Stock is one entry in the fixed tradable catalog.
type Stock struct {
	ID            string  `json:"id"`
	Ticker        string  `json:"ticker"`
	DisplayName   string  `json:"displayName"`
	BasePrice     float64 `json:"basePrice"`
	CurrentPrice  float64 `json:"currentPrice"`
	PercentChange float64 `json:"change"`
}

type SeedStock struct {
	ID             string
	Ticker         string
	DisplayName    string
	BasePriceCents int64
}

// Catalog is the six-stock universe every player trades in. Base prices are
// immutable; percent change is always measured against them.
func Catalog() []SeedStock {
	return []SeedStock{
		{ID: "1", Ticker: "GLD", DisplayName: "Get Gold", BasePriceCents: 150 * account.CentsPerDollar},
		{ID: "2", Ticker: "QQQ", DisplayName: "Cubes", BasePriceCents: 85 * account.CentsPerDollar},
		{ID: "3", Ticker: "RBLX", DisplayName: "Roblocks", BasePriceCents: 42 * account.CentsPerDollar},
		{ID: "4", Ticker: "USO", DisplayName: "Big Oil", BasePriceCents: 120 * account.CentsPerDollar},
		{ID: "5", Ticker: "XRT", DisplayName: "Shopping Spree", BasePriceCents: 200 * account.CentsPerDollar},
		{ID: "6", Ticker: "VHT", DisplayName: "Health", BasePriceCents: 55 * account.CentsPerDollar},
	}
}

// NextPrice advances one price by a symmetric draw. draw must be in [-1, 1);
// the step is draw × MaxDriftPerTick of the current price, floored at $1.00.
func NextPrice(currentCents int64, draw float64) int64 {
	if draw < -1 {
		draw = -1
	}
	if draw > 1 {
		draw = 1
	}
	next := int64(math.Round(float64(currentCents) * (1 + draw*MaxDriftPerTick)))
	if next < MinPriceCents {
		next = MinPriceCents
	}
	return next
}

// PercentChange reports the move from the immutable base price, rounded to
// two decimals the way the dashboard displays it.
func PercentChange(baseCents, currentCents int64) float64 {
	if baseCents <= 0 {
		return 0
	}
	pct := (float64(currentCents-baseCents) / float64(baseCents)) * 100
	return math.Round(pct*100) / 100
}

// NewsItem is a static headline shown on the news page.
type NewsItem struct {
	Symbol   string `json:"symbol"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

func News() []NewsItem {
	return []NewsItem{
		{
			Symbol:   "GLD",
			Headline: "Gold Prices Reach 6-Month High Amid Market Uncertainty",
			Summary:  "Gold ETF GLD surges as investors seek safe-haven assets during global economic concerns. Bullion prices hit their highest levels since early 2024.",
			Category: "Commodities",
		},
		{
			Symbol:   "QQQ",
			Headline: "Tech Stocks Rally on AI Optimism and Earnings Beats",
			Summary:  "The Nasdaq 100 ETF QQQ gains momentum as major technology companies report strong quarterly results driven by artificial intelligence investments.",
			Category: "Technology",
		},
		{
			Symbol:   "RBLX",
			Headline: "Roblox Announces New Creator Monetization Features",
			Summary:  "Roblox Corporation launches enhanced revenue-sharing tools for platform creators, aiming to attract more game developers and boost user engagement.",
			Category: "Gaming",
		},
		{
			Symbol:   "USO",
			Headline: "Oil Prices Stabilize Following OPEC Production Decisions",
			Summary:  "The USO oil ETF steadies as OPEC+ maintains production levels. Energy market remains volatile amid geopolitical tensions and supply concerns.",
			Category: "Energy",
		},
		{
			Symbol:   "XRT",
			Headline: "Retail Sector Shows Mixed Signals Heading into Holiday Season",
			Summary:  "The Retail ETF XRT reflects cautious consumer spending patterns. Major retailers report varied performance as inflation impacts purchasing power.",
			Category: "Retail",
		},
		{
			Symbol:   "VHT",
			Headline: "Healthcare Stocks Advance on Positive Drug Approval News",
			Summary:  "The Healthcare ETF VHT rises as the FDA approves several new medications. Investors show renewed confidence in the biotech and pharmaceutical sectors.",
			Category: "Healthcare",
		},
	}
}
