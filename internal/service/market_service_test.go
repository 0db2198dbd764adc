package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

type marketStub struct {
	marketsErr error
	globalErr  error
	calls      int32
	ids        []string
}

func (m *marketStub) Markets(ctx context.Context, ids []string) ([]models.Coin, error) {
	atomic.AddInt32(&m.calls, 1)
	m.ids = ids
	if m.marketsErr != nil {
		return nil, m.marketsErr
	}
	price := 65000.0
	return []models.Coin{{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", CurrentPrice: &price}}, nil
}

func (m *marketStub) Global(ctx context.Context) (*models.GlobalMarket, error) {
	if m.globalErr != nil {
		return nil, m.globalErr
	}
	dominance := 52.1
	return &models.GlobalMarket{BTCDominance: &dominance}, nil
}

type sentimentStub struct{ err error }

func (s sentimentStub) FearGreed(ctx context.Context) (*models.FearGreed, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.FearGreed{Value: 72, Classification: "Greed"}, nil
}

func TestMarketOverviewAggregatesSources(t *testing.T) {
	market := &marketStub{}
	svc := NewMarketService(market, sentimentStub{}, nil, time.Minute, time.Second, zap.NewNop())

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Coins, 1)
	assert.Equal(t, TrackedCoins, market.ids)
	require.NotNil(t, overview.Global)
	assert.InDelta(t, 52.1, *overview.Global.BTCDominance, 0.001)
	require.NotNil(t, overview.FearGreed)
	assert.Equal(t, 72, overview.FearGreed.Value)
	assert.False(t, overview.LastUpdated.IsZero())
}

func TestMarketOverviewDegradesOptionalSections(t *testing.T) {
	market := &marketStub{globalErr: errors.New("rate limited")}
	svc := NewMarketService(market, sentimentStub{err: errors.New("timeout")}, nil, time.Minute, time.Second, zap.NewNop())

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Len(t, overview.Coins, 1)
	assert.Nil(t, overview.Global)
	assert.Nil(t, overview.FearGreed)
}

func TestMarketOverviewFailsWithoutCoins(t *testing.T) {
	svc := NewMarketService(&marketStub{marketsErr: errors.New("502")}, sentimentStub{}, nil, time.Minute, time.Second, zap.NewNop())

	_, err := svc.Overview(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrExternalService))

	unconfigured := NewMarketService(nil, nil, nil, time.Minute, time.Second, zap.NewNop())
	_, err = unconfigured.Overview(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrExternalService))
}

func TestMarketOverviewServedFromCache(t *testing.T) {
	market := &marketStub{}
	cache := NewCacheService(newMemCache(), nil, time.Minute, zap.NewNop(), true)
	svc := NewMarketService(market, nil, cache, time.Minute, time.Second, zap.NewNop())

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)
	cached, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&market.calls))
	require.Len(t, cached.Coins, 1)
	assert.Equal(t, "bitcoin", cached.Coins[0].ID)
}
