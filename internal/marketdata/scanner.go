// Package marketdata turns directory listings into ranked, priced venues.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/amm"
	"github.com/you/solana-arb/internal/dex/core"
	imetrics "github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

// Floors are the liquidity minimums a venue must meet. MinBase is in human
// units of the non-anchor token and MinQuote in anchor units, so reserve floors
// only apply to pairs that include the anchor.
type Floors struct {
	MinTVL   decimal.Decimal
	MinBase  decimal.Decimal
	MinQuote decimal.Decimal
}

// Observer receives every qualifying venue list, for display.
type Observer interface {
	ObserveVenues(base, quote solana.PublicKey, venues []types.PricedVenue)
}

type Scanner struct {
	dir    core.Directory
	floors Floors
	anchor solana.PublicKey
	obs    Observer
	log    *zap.Logger
}

func NewScanner(dir core.Directory, floors Floors, anchor solana.PublicKey, log *zap.Logger) *Scanner {
	return &Scanner{dir: dir, floors: floors, anchor: anchor, log: log}
}

// WithObserver attaches obs and returns s.
func (s *Scanner) WithObserver(obs Observer) *Scanner {
	s.obs = obs
	return s
}

// Scan lists the venues quoting base against quote, drops the illiquid ones
// and returns the rest sorted ascending by mid price (quote per base). Fewer
// than minVenues survivors is ErrInsufficientVenues.
func (s *Scanner) Scan(ctx context.Context, base, quote solana.PublicKey, minVenues int) ([]types.PricedVenue, error) {
	start := time.Now()
	snaps, err := s.dir.PoolsByMints(ctx, base, quote)
	imetrics.DirectoryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		imetrics.DirectoryErrors.Inc()
		return nil, fmt.Errorf("list pools %s/%s: %w", base, quote, err)
	}

	quoteIsAnchor, baseIsAnchor := quote.Equals(s.anchor), base.Equals(s.anchor)
	out := make([]types.PricedVenue, 0, len(snaps))
	for _, snap := range snaps {
		bm, qm, r, err := amm.Orient(snap, quote)
		if err != nil {
			// per-venue defects never abort the scan
			s.log.Debug("scanner: skip venue", zap.String("venue", snap.Venue),
				zap.String("pool", snap.PoolID.String()), zap.Error(err))
			continue
		}
		if !bm.Address.Equals(base) {
			continue
		}
		if reason := s.belowFloor(snap, r, quoteIsAnchor, baseIsAnchor); reason != "" {
			s.log.Debug("scanner: below floor", zap.String("venue", snap.Venue),
				zap.String("pool", snap.PoolID.String()), zap.String("reason", reason))
			continue
		}
		out = append(out, types.PricedVenue{
			Snapshot:  snap,
			BaseMint:  bm,
			QuoteMint: qm,
			Reserves:  r,
			Mid:       r.MidPrice(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mid.LessThan(out[j].Mid) })

	if quoteIsAnchor {
		imetrics.VenuesConsidered.Set(float64(len(snaps)))
		imetrics.VenuesQualified.Set(float64(len(out)))
	}
	fields := []zap.Field{
		zap.String("base", base.String()),
		zap.String("quote", quote.String()),
		zap.Int("considered", len(snaps)),
		zap.Int("qualified", len(out)),
	}
	for _, v := range out {
		fields = append(fields, zap.String(v.Snapshot.Venue+":"+shortKey(v.Snapshot.PoolID), v.Mid.StringFixed(8)))
	}
	s.log.Info("scanner: venues", fields...)
	if s.obs != nil {
		s.obs.ObserveVenues(base, quote, out)
	}

	if len(out) < minVenues {
		return out, fmt.Errorf("%w: %d of %d required for %s/%s",
			types.ErrInsufficientVenues, len(out), minVenues, base, quote)
	}
	return out, nil
}

func (s *Scanner) belowFloor(snap types.PoolSnapshot, r types.CanonicalReserves, quoteIsAnchor, baseIsAnchor bool) string {
	if snap.TVL.LessThan(s.floors.MinTVL) {
		return "tvl"
	}
	var token, anchor decimal.Decimal
	switch {
	case quoteIsAnchor:
		token, anchor = r.Base, r.Quote
	case baseIsAnchor:
		token, anchor = r.Quote, r.Base
	default:
		return ""
	}
	if token.LessThan(s.floors.MinBase) {
		return "base_reserve"
	}
	if anchor.LessThan(s.floors.MinQuote) {
		return "quote_reserve"
	}
	return ""
}

func shortKey(k solana.PublicKey) string {
	s := k.String()
	if len(s) > 6 {
		return s[:6]
	}
	return s
}
