// Package discovery resolves the configured trade universe against live
// anchor venues once at startup.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/amm"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

// VenueSource is the scanner as seen by discovery.
type VenueSource interface {
	Scan(ctx context.Context, base, quote solana.PublicKey, minVenues int) ([]types.PricedVenue, error)
}

// MintCache fills in metadata the directory left blank.
type MintCache interface {
	ReadMint(ctx context.Context, addr solana.PublicKey) (types.Mint, error)
}

// MintSink receives every accepted mint.
type MintSink interface {
	UpsertMint(ctx context.Context, m types.Mint, tsMs int64) error
}

// Service handles the resolution of trade mints.
type Service struct {
	venues VenueSource
	anchor solana.PublicKey
	cache  MintCache
	sink   MintSink
	log    *zap.Logger
}

// NewService creates a discovery service. cache and sink may be nil.
func NewService(venues VenueSource, anchor solana.PublicKey, cache MintCache, sink MintSink, log *zap.Logger) *Service {
	return &Service{venues: venues, anchor: anchor, cache: cache, sink: sink, log: log}
}

// AnchorNotional converts notional, denominated in asset, into anchor units
// by simulating a sale on the best-priced anchor venue. A zero asset or the
// anchor itself returns notional unchanged.
func (s *Service) AnchorNotional(ctx context.Context, notional decimal.Decimal, asset solana.PublicKey) (decimal.Decimal, error) {
	if asset.IsZero() || asset.Equals(s.anchor) {
		return notional, nil
	}
	venues, err := s.venues.Scan(ctx, asset, s.anchor, 1)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price notional asset %s: %w", asset, err)
	}
	best := venues[len(venues)-1]
	out, err := amm.AmountOut(notional, best.Reserves.Base, best.Reserves.Quote, best.Reserves.FeeRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price notional asset %s: %w", asset, err)
	}
	s.log.Info("notional converted",
		zap.String("asset", asset.String()),
		zap.String("amount", notional.String()),
		zap.String("anchor_amount", out.String()),
		zap.String("venue", best.Snapshot.Venue),
	)
	return out, nil
}

// Token resolves one mint that must have at least one anchor venue.
func (s *Service) Token(ctx context.Context, addr string) (types.Mint, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(addr))
	if err != nil {
		return types.Mint{}, fmt.Errorf("mint %q: %w", addr, err)
	}
	if pk.Equals(s.anchor) {
		return types.Mint{}, fmt.Errorf("mint %s is the anchor", pk)
	}
	return s.resolve(ctx, pk)
}

// Candidates keeps the triangular candidates that parse, are not the anchor,
// are not repeated and have at least one qualifying anchor venue. Fewer than
// two survivors is an error.
func (s *Service) Candidates(ctx context.Context, addrs []string) ([]types.Mint, error) {
	seen := make(map[solana.PublicKey]struct{}, len(addrs))
	out := make([]types.Mint, 0, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(a))
		if err != nil {
			s.log.Warn("discovery: bad candidate", zap.String("mint", a), zap.Error(err))
			continue
		}
		if pk.Equals(s.anchor) {
			continue
		}
		if _, dup := seen[pk]; dup {
			continue
		}
		seen[pk] = struct{}{}

		m, err := s.resolve(ctx, pk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("discovery: candidate dropped", zap.String("mint", pk.String()), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	if len(out) < 2 {
		return out, fmt.Errorf("%d usable candidates, need 2", len(out))
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, pk solana.PublicKey) (types.Mint, error) {
	venues, err := s.venues.Scan(ctx, pk, s.anchor, 1)
	if err != nil {
		return types.Mint{}, err
	}
	m := venues[0].BaseMint
	if m.Symbol == "" && s.cache != nil {
		if cached, err := s.cache.ReadMint(ctx, pk); err == nil {
			m.Symbol = cached.Symbol
		}
	}
	if s.sink != nil {
		if err := s.sink.UpsertMint(ctx, m, time.Now().UnixMilli()); err != nil {
			s.log.Warn("discovery: publish mint", zap.String("mint", pk.String()), zap.Error(err))
		}
	}
	s.log.Info("discovery: mint accepted",
		zap.String("mint", pk.String()),
		zap.String("symbol", m.Symbol),
		zap.Int32("decimals", m.Decimals),
		zap.Int("venues", len(venues)),
	)
	return m, nil
}
