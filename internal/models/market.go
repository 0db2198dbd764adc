package models

import "time"

// Coin is a single row of the market board.
type Coin struct {
	ID                  string   `json:"id"`
	Symbol              string   `json:"symbol"`
	Name                string   `json:"name"`
	Image               string   `json:"image"`
	CurrentPrice        *float64 `json:"currentPrice"`
	Change24h           *float64 `json:"change24h"`
	MarketCap           *float64 `json:"marketCap"`
	MarketCapRank       *int     `json:"marketCapRank"`
	TotalVolume         *float64 `json:"totalVolume"`
	High24h             *float64 `json:"high24h"`
	Low24h              *float64 `json:"low24h"`
	ATH                 *float64 `json:"ath"`
	ATHChangePercentage *float64 `json:"athChangePercentage"`
	CirculatingSupply   *float64 `json:"circulatingSupply"`
	TotalSupply         *float64 `json:"totalSupply"`
}

// GlobalMarket summarises the whole crypto market.
type GlobalMarket struct {
	TotalMarketCap               *float64 `json:"totalMarketCap"`
	BTCDominance                 *float64 `json:"btcDominance"`
	TotalVolume                  *float64 `json:"totalVolume"`
	MarketCapChangePercentage24h *float64 `json:"marketCapChangePercentage24h"`
	ActiveCryptocurrencies       *int     `json:"activeCryptocurrencies"`
}

// FearGreed is the latest Fear & Greed index reading.
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

// MarketOverview aggregates the market board, global stats and sentiment.
type MarketOverview struct {
	Coins       []Coin        `json:"coins"`
	Global      *GlobalMarket `json:"global"`
	FearGreed   *FearGreed    `json:"fearGreed"`
	LastUpdated time.Time     `json:"lastUpdated"`
}
