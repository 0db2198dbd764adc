package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/pkg/config"
)

func TestCoinGeckoMarketsAndGlobal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		_, _ = w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000.5,"market_cap_rank":1,"total_supply":null}]`))
	})
	mux.HandleFunc("/global", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"total_market_cap":{"usd":2.4e12},"market_cap_percentage":{"btc":52.3},"active_cryptocurrencies":10000}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	gecko := NewCoinGeckoClient(config.MarketConfig{CoinGeckoURL: srv.URL, CoinGeckoAPIKey: "demo-key"}, srv.Client())

	coins, err := gecko.Markets(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "BTC", coins[0].Symbol)
	require.NotNil(t, coins[0].CurrentPrice)
	assert.InDelta(t, 65000.5, *coins[0].CurrentPrice, 0.001)
	assert.Nil(t, coins[0].TotalSupply)
	require.NotNil(t, coins[0].MarketCapRank)
	assert.Equal(t, 1, *coins[0].MarketCapRank)

	global, err := gecko.Global(context.Background())
	require.NoError(t, err)
	require.NotNil(t, global.BTCDominance)
	assert.InDelta(t, 52.3, *global.BTCDominance, 0.001)
	assert.Nil(t, global.TotalVolume)
	require.NotNil(t, global.ActiveCryptocurrencies)
	assert.Equal(t, 10000, *global.ActiveCryptocurrencies)
}

func TestCoinGeckoSurfacesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gecko := NewCoinGeckoClient(config.MarketConfig{CoinGeckoURL: srv.URL}, srv.Client())
	_, err := gecko.Markets(context.Background(), []string{"bitcoin"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestFearGreedParsesLatestReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Fear and Greed Index","data":[{"value":"27","value_classification":"Fear","timestamp":"1718000000"}]}`))
	}))
	defer srv.Close()

	fng := NewFearGreedClient(config.MarketConfig{FearGreedURL: srv.URL}, srv.Client())
	reading, err := fng.FearGreed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 27, reading.Value)
	assert.Equal(t, "Fear", reading.Classification)
}

func TestFearGreedRejectsEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	fng := NewFearGreedClient(config.MarketConfig{FearGreedURL: srv.URL}, srv.Client())
	_, err := fng.FearGreed(context.Background())
	require.Error(t, err)
}
