package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

const marketCacheKey = "market:overview"

// TrackedCoins are the assets shown on the market board, in display order.
var TrackedCoins = []string{"bitcoin", "ethereum", "solana", "ripple", "binancecoin", "cardano"}

// MarketDataProvider fetches coin prices and global market statistics.
type MarketDataProvider interface {
	Markets(ctx context.Context, ids []string) ([]models.Coin, error)
	Global(ctx context.Context) (*models.GlobalMarket, error)
}

// SentimentProvider fetches the Fear & Greed index.
type SentimentProvider interface {
	FearGreed(ctx context.Context) (*models.FearGreed, error)
}

// MarketService aggregates the live market board.
type MarketService struct {
	market    MarketDataProvider
	sentiment SentimentProvider
	cache     *CacheService
	cacheTTL  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewMarketService constructs a MarketService. sentiment may be nil.
func NewMarketService(market MarketDataProvider, sentiment SentimentProvider, cache *CacheService, cacheTTL, timeout time.Duration, logger *zap.Logger) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketService{
		market:    market,
		sentiment: sentiment,
		cache:     cache,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Overview returns coins, global stats and sentiment. Only the coin board is
// required; the other two sections are nil when their upstream fails.
func (s *MarketService) Overview(ctx context.Context) (*models.MarketOverview, error) {
	var cached models.MarketOverview
	if s.cache != nil && s.cache.Get(ctx, marketCacheKey, &cached) {
		return &cached, nil
	}
	if s.market == nil {
		return nil, appErrors.Clone(appErrors.ErrExternalService, "market data is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		coins     []models.Coin
		global    *models.GlobalMarket
		fearGreed *models.FearGreed
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.market.Markets(gctx, TrackedCoins)
		if err != nil {
			return err
		}
		coins = result
		return nil
	})
	g.Go(func() error {
		result, err := s.market.Global(gctx)
		if err != nil {
			s.logger.Warn("global market stats unavailable", zap.Error(err))
			return nil
		}
		global = result
		return nil
	})
	if s.sentiment != nil {
		g.Go(func() error {
			result, err := s.sentiment.FearGreed(gctx)
			if err != nil {
				s.logger.Warn("fear and greed index unavailable", zap.Error(err))
				return nil
			}
			fearGreed = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("market board unavailable", zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrExternalService, "failed to fetch market data")
	}

	if coins == nil {
		coins = []models.Coin{}
	}
	overview := &models.MarketOverview{
		Coins:       coins,
		Global:      global,
		FearGreed:   fearGreed,
		LastUpdated: s.now().UTC(),
	}
	if s.cache != nil {
		s.cache.Set(ctx, marketCacheKey, overview, s.cacheTTL)
	}
	return overview, nil
}
