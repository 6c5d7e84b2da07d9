package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/cache"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// ServiceConfig holds configuration for the portfolio service.
type ServiceConfig struct {
	CacheTTL time.Duration
	// Registry, when set, learns the metadata of every listed asset.
	Registry *asset.Registry
	// Prices fills in tokens the lister returned without a quote.
	Prices PriceSource
}

// DefaultServiceConfig caches portfolios for 30s.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{CacheTTL: 30 * time.Second}
}

// Service assembles the token list for a session. Token listings and the
// native balance are fetched in parallel; the node balance is authoritative
// for the native coin.
type Service struct {
	tokens   TokenLister
	balances BalanceReader
	cfg      ServiceConfig
	cache    *cache.Cache[string, domain.Portfolio]
	logger   logger.LoggerInterface
}

// NewService creates a new Service. tokens may be nil, in which case the
// portfolio only holds the native coin.
func NewService(tokens TokenLister, balances BalanceReader, cfg ServiceConfig, log logger.LoggerInterface) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultServiceConfig().CacheTTL
	}
	return &Service{
		tokens:   tokens,
		balances: balances,
		cfg:      cfg,
		cache:    cache.New[string, domain.Portfolio](time.Minute),
		logger:   log,
	}
}

// Portfolio returns the session's tokens, from cache when fresh.
func (s *Service) Portfolio(ctx context.Context, sess domain.Session) (domain.Portfolio, error) {
	if !sess.Connected {
		return domain.Portfolio{}, apperror.New(apperror.CodeWalletNotConnected)
	}
	if p, ok := s.cache.Get(ctx, portfolioKey(sess)); ok {
		return p, nil
	}
	return s.fetch(ctx, sess)
}

// Refresh bypasses the cache.
func (s *Service) Refresh(ctx context.Context, sess domain.Session) (domain.Portfolio, error) {
	if !sess.Connected {
		return domain.Portfolio{}, apperror.New(apperror.CodeWalletNotConnected)
	}
	s.cache.Delete(ctx, portfolioKey(sess))
	return s.fetch(ctx, sess)
}

// HandleSessionChange drops cached portfolios when the session moves.
func (s *Service) HandleSessionChange(_ context.Context, change domain.SessionChange) {
	if change.Invalidates() {
		s.cache.Clear()
	}
}

// Close stops the cache janitor.
func (s *Service) Close() {
	s.cache.Close()
}

func (s *Service) fetch(ctx context.Context, sess domain.Session) (domain.Portfolio, error) {
	var (
		listed  []domain.Token
		balance *big.Int
	)

	g, gctx := errgroup.WithContext(ctx)

	if s.tokens != nil {
		g.Go(func() error {
			tokens, err := s.tokens.ListTokens(gctx, sess.ChainID, sess.Account)
			if err != nil {
				// degrade to the native coin only
				s.logger.Warn(ctx, "token list unavailable", "account", sess.Account.Hex(), "error", err)
				return nil
			}
			listed = tokens
			return nil
		})
	}

	g.Go(func() error {
		b, err := s.balances.NativeBalance(gctx, sess.Account)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Portfolio{}, err
	}

	p, err := merge(sess, listed, balance)
	if err != nil {
		return domain.Portfolio{}, err
	}
	s.fillPrices(ctx, p.Tokens)

	s.cache.Set(ctx, portfolioKey(sess), p, s.cfg.CacheTTL)
	if s.cfg.Registry != nil {
		for _, tok := range p.Tokens {
			s.cfg.Registry.Upsert(tok.Asset)
		}
	}
	s.logger.Debug(ctx, "portfolio loaded",
		"account", sess.Account.Hex(),
		"chain_id", sess.ChainID,
		"tokens", len(p.Tokens))
	return p, nil
}

func (s *Service) fillPrices(ctx context.Context, tokens []domain.Token) {
	if s.cfg.Prices == nil {
		return
	}
	for i := range tokens {
		if tokens[i].UsdPrice != nil {
			continue
		}
		price, err := s.cfg.Prices.UsdPrice(ctx, tokens[i].Asset.Symbol())
		if err != nil {
			s.logger.Debug(ctx, "no usd price", "symbol", tokens[i].Asset.Symbol(), "error", err)
			continue
		}
		tokens[i].UsdPrice = &price
	}
}

// merge puts the native coin first with the node balance, keeping the
// listed price, then the non-spam tokens in listing order.
func merge(sess domain.Session, listed []domain.Token, balance *big.Int) (domain.Portfolio, error) {
	native, err := nativeAsset(sess.ChainID)
	if err != nil {
		return domain.Portfolio{}, err
	}

	nativeTok := domain.Token{Asset: native, Balance: balance}
	tokens := []domain.Token{}
	for _, t := range listed {
		switch {
		case t.IsNative():
			nativeTok.UsdPrice = t.UsdPrice
			nativeTok.Logo = t.Logo
		case t.PossibleSpam:
		default:
			tokens = append(tokens, t)
		}
	}

	return domain.Portfolio{
		Account: sess.Account,
		ChainID: sess.ChainID,
		Tokens:  append([]domain.Token{nativeTok}, tokens...),
	}, nil
}

func nativeAsset(chainID uint64) (*asset.Asset, error) {
	chain, err := asset.MustChain(chainID)
	if err != nil {
		return nil, err
	}
	return chain.Native(), nil
}

func portfolioKey(sess domain.Session) string {
	return fmt.Sprintf("%d:%s", sess.ChainID, sess.Account.Hex())
}
