package detector

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/amm"
	imetrics "github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

// VenueSource ranks the venues of a pair ascending by mid price.
type VenueSource interface {
	Scan(ctx context.Context, base, quote solana.PublicKey, minVenues int) ([]types.PricedVenue, error)
}

// Gate decides whether a simulated profit is worth executing.
type Gate interface {
	Actionable(profit decimal.Decimal) bool
}

// Strategy finds at most one actionable loop per call. A nil opportunity with
// a nil error means nothing qualified this cycle.
type Strategy interface {
	Name() string
	Find(ctx context.Context, notional decimal.Decimal) (*types.Opportunity, error)
}

// ---------- two-leg ----------

// TwoLeg buys the token on the cheapest venue and sells it on the most
// expensive one.
type TwoLeg struct {
	venues VenueSource
	gate   Gate
	anchor solana.PublicKey
	token  solana.PublicKey
	log    *zap.Logger
}

func NewTwoLeg(venues VenueSource, gate Gate, anchor, token solana.PublicKey, log *zap.Logger) *TwoLeg {
	return &TwoLeg{venues: venues, gate: gate, anchor: anchor, token: token, log: log}
}

func (s *TwoLeg) Name() string { return types.StrategyTwoLeg }

func (s *TwoLeg) Find(ctx context.Context, notional decimal.Decimal) (*types.Opportunity, error) {
	vs, err := s.venues.Scan(ctx, s.token, s.anchor, 2)
	if err != nil {
		return nil, err
	}
	cheap, rich := vs[0], vs[len(vs)-1]
	spread := amm.SpreadPct(cheap.Mid, rich.Mid)
	imetrics.SpreadPct.Set(spread.InexactFloat64())
	if !rich.Mid.GreaterThan(cheap.Mid) {
		s.log.Info("two_leg: no price gap", zap.String("mid", cheap.Mid.String()))
		return nil, nil
	}

	opp, err := Evaluate(s.Name(), []types.Leg{BuyBase(cheap), SellBase(rich)}, notional)
	if err != nil {
		return nil, err
	}
	opp.Ts = time.Now()
	imetrics.LastProfit.Set(opp.Profit.InexactFloat64())
	s.log.Info("two_leg: evaluated",
		zap.String("buy_venue", cheap.Snapshot.Venue),
		zap.String("buy_mid", cheap.Mid.String()),
		zap.String("sell_venue", rich.Snapshot.Venue),
		zap.String("sell_mid", rich.Mid.String()),
		zap.String("spread_pct", spread.StringFixed(4)),
		zap.String("in", notional.String()),
		zap.String("out", opp.FinalOutput.String()),
		zap.String("profit", opp.Profit.String()),
	)
	if !s.gate.Actionable(opp.Profit) {
		return nil, nil
	}
	return opp, nil
}

// ---------- triangular ----------

// Triangular walks anchor -> B -> C -> anchor for every ordered pair of
// distinct candidates and returns the first loop that clears the gate.
type Triangular struct {
	venues     VenueSource
	gate       Gate
	anchor     solana.PublicKey
	candidates []solana.PublicKey
	log        *zap.Logger
}

func NewTriangular(venues VenueSource, gate Gate, anchor solana.PublicKey, candidates []solana.PublicKey, log *zap.Logger) *Triangular {
	return &Triangular{venues: venues, gate: gate, anchor: anchor, candidates: candidates, log: log}
}

func (s *Triangular) Name() string { return types.StrategyTriangular }

type hopKey struct{ in, out solana.PublicKey }

type hopResult struct {
	leg types.Leg
	err error
}

func (s *Triangular) Find(ctx context.Context, notional decimal.Decimal) (*types.Opportunity, error) {
	// hops are shared between paths of this call only
	hops := make(map[hopKey]hopResult)
	hop := func(in, out solana.PublicKey) (types.Leg, error) {
		k := hopKey{in, out}
		if r, ok := hops[k]; ok {
			return r.leg, r.err
		}
		var r hopResult
		vs, err := s.venues.Scan(ctx, in, out, 1)
		if err != nil {
			r.err = err
		} else {
			// highest mid pays the most out per unit in
			r.leg = SellBase(vs[len(vs)-1])
		}
		hops[k] = r
		return r.leg, r.err
	}

	tried := 0
	for _, b := range s.candidates {
		for _, c := range s.candidates {
			if b.Equals(c) || b.Equals(s.anchor) || c.Equals(s.anchor) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			legs := make([]types.Leg, 0, 3)
			var skip bool
			for _, pair := range [][2]solana.PublicKey{{s.anchor, b}, {b, c}, {c, s.anchor}} {
				l, err := hop(pair[0], pair[1])
				if errors.Is(err, types.ErrInsufficientVenues) {
					skip = true
					break
				}
				if err != nil {
					return nil, err
				}
				legs = append(legs, l)
			}
			if skip {
				continue
			}
			tried++
			opp, err := Evaluate(s.Name(), legs, notional)
			if err != nil {
				s.log.Debug("triangular: path failed", zap.Error(err))
				continue
			}
			s.log.Debug("triangular: path",
				zap.String("path", opp.Path()),
				zap.String("out", opp.FinalOutput.String()),
				zap.String("profit", opp.Profit.String()),
			)
			if s.gate.Actionable(opp.Profit) {
				opp.Ts = time.Now()
				imetrics.LastProfit.Set(opp.Profit.InexactFloat64())
				s.log.Info("triangular: profitable path",
					zap.String("path", opp.Path()),
					zap.String("in", notional.String()),
					zap.String("out", opp.FinalOutput.String()),
					zap.String("profit", opp.Profit.String()),
				)
				return opp, nil
			}
		}
	}
	s.log.Info("triangular: no profitable path", zap.Int("paths", tried))
	return nil, nil
}
