package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/transfer-dashboard/business/pricing/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/cache"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// ServiceConfig holds configuration for the pricing service.
type ServiceConfig struct {
	CacheTTL time.Duration
}

// DefaultServiceConfig caches quotes for a minute.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{CacheTTL: time.Minute}
}

// PricingService quotes tokens in USD. Stablecoins are pegged, other
// symbols go through the ticker provider and are cached per pair.
type PricingService struct {
	provider TickerProvider
	cfg      ServiceConfig
	cache    *cache.Cache[string, domain.Quote]
	group    singleflight.Group
	now      func() time.Time
	logger   logger.LoggerInterface
}

// NewPricingService creates a new PricingService. provider may be nil, in
// which case only pegged tokens are priced.
func NewPricingService(provider TickerProvider, cfg ServiceConfig, log logger.LoggerInterface) *PricingService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultServiceConfig().CacheTTL
	}
	return &PricingService{
		provider: provider,
		cfg:      cfg,
		cache:    cache.New[string, domain.Quote](time.Minute),
		now:      time.Now,
		logger:   log,
	}
}

// Quote returns the USD quote for symbol.
func (s *PricingService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if domain.IsPegged(symbol) {
		return domain.Quote{
			Symbol:    symbol,
			Price:     decimal.NewFromInt(1),
			Source:    domain.SourcePeg,
			FetchedAt: s.now(),
		}, nil
	}

	pair, ok := domain.PairFor(symbol)
	if !ok || s.provider == nil {
		return domain.Quote{}, apperror.New(apperror.CodePriceUnavailable, apperror.WithContext(symbol))
	}

	if q, ok := s.cache.Get(ctx, pair); ok {
		q.Symbol = symbol
		return q, nil
	}

	// Concurrent portfolio loads share one request per pair.
	v, err, _ := s.group.Do(pair, func() (any, error) {
		price, err := s.provider.Ticker(ctx, pair)
		if err != nil {
			return domain.Quote{}, err
		}
		q := domain.Quote{Pair: pair, Price: price, Source: domain.SourceBinance, FetchedAt: s.now()}
		s.cache.Set(ctx, pair, q, s.cfg.CacheTTL)
		return q, nil
	})
	if err != nil {
		s.logger.Debug(ctx, "price lookup failed", "symbol", symbol, "pair", pair, "error", err)
		return domain.Quote{}, err
	}

	q := v.(domain.Quote)
	q.Symbol = symbol
	return q, nil
}

// UsdPrice returns the USD price of one unit of symbol.
func (s *PricingService) UsdPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Price, nil
}

// Close stops the cache janitor.
func (s *PricingService) Close() {
	s.cache.Close()
}
