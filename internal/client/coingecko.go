package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/config"
)

// CoinGeckoClient reads prices and global market data from CoinGecko.
type CoinGeckoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewCoinGeckoClient builds a client. The demo API key is optional.
func NewCoinGeckoClient(cfg config.MarketConfig, hc *http.Client) *CoinGeckoClient {
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return &CoinGeckoClient{baseURL: strings.TrimRight(cfg.CoinGeckoURL, "/"), apiKey: cfg.CoinGeckoAPIKey, http: hc}
}

type geckoCoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	MarketCap                *float64 `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	TotalVolume              *float64 `json:"total_volume"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	ATH                      *float64 `json:"ath"`
	ATHChangePercentage      *float64 `json:"ath_change_percentage"`
	CirculatingSupply        *float64 `json:"circulating_supply"`
	TotalSupply              *float64 `json:"total_supply"`
}

type geckoGlobal struct {
	Data struct {
		TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
		TotalVolume                     map[string]float64 `json:"total_volume"`
		MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
		MarketCapChangePercentage24hUSD *float64           `json:"market_cap_change_percentage_24h_usd"`
		ActiveCryptocurrencies          *int               `json:"active_cryptocurrencies"`
	} `json:"data"`
}

// Markets returns USD market rows for ids ordered by market cap.
func (c *CoinGeckoClient) Markets(ctx context.Context, ids []string) ([]models.Coin, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("ids", strings.Join(ids, ","))
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(len(ids)))
	query.Set("page", "1")
	query.Set("sparkline", "false")
	query.Set("price_change_percentage", "24h")

	var rows []geckoCoin
	if err := do(ctx, c.http, c.request("/coins/markets?"+query.Encode()), &rows); err != nil {
		return nil, err
	}

	coins := make([]models.Coin, 0, len(rows))
	for _, row := range rows {
		coins = append(coins, models.Coin{
			ID:                  row.ID,
			Symbol:              strings.ToUpper(row.Symbol),
			Name:                row.Name,
			Image:               row.Image,
			CurrentPrice:        row.CurrentPrice,
			Change24h:           row.PriceChangePercentage24h,
			MarketCap:           row.MarketCap,
			MarketCapRank:       row.MarketCapRank,
			TotalVolume:         row.TotalVolume,
			High24h:             row.High24h,
			Low24h:              row.Low24h,
			ATH:                 row.ATH,
			ATHChangePercentage: row.ATHChangePercentage,
			CirculatingSupply:   row.CirculatingSupply,
			TotalSupply:         row.TotalSupply,
		})
	}
	return coins, nil
}

// Global returns market-wide totals in USD.
func (c *CoinGeckoClient) Global(ctx context.Context) (*models.GlobalMarket, error) {
	var payload geckoGlobal
	if err := do(ctx, c.http, c.request("/global"), &payload); err != nil {
		return nil, err
	}
	data := payload.Data
	return &models.GlobalMarket{
		TotalMarketCap:               lookup(data.TotalMarketCap, "usd"),
		BTCDominance:                 lookup(data.MarketCapPercentage, "btc"),
		TotalVolume:                  lookup(data.TotalVolume, "usd"),
		MarketCapChangePercentage24h: data.MarketCapChangePercentage24hUSD,
		ActiveCryptocurrencies:       data.ActiveCryptocurrencies,
	}, nil
}

func (c *CoinGeckoClient) request(path string) request {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-cg-demo-api-key"] = c.apiKey
	}
	return request{service: "coingecko", method: http.MethodGet, url: c.baseURL + path, headers: headers}
}

func lookup(values map[string]float64, key string) *float64 {
	v, ok := values[key]
	if !ok {
		return nil
	}
	return &v
}
