package detector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mint(sym string) types.Mint {
	return types.Mint{Address: solana.NewWallet().PublicKey(), Symbol: sym, Decimals: 6}
}

var (
	usd = mint("USD")
	tkX = mint("X")
	tkB = mint("B")
	tkC = mint("C")
	tkD = mint("D")
)

func pv(venue string, base, quote types.Mint, rb, rq, fee string) types.PricedVenue {
	r := types.CanonicalReserves{Base: d(rb), Quote: d(rq), FeeRate: d(fee)}
	return types.PricedVenue{
		Snapshot:  types.PoolSnapshot{Venue: venue, PoolID: solana.NewWallet().PublicKey()},
		BaseMint:  base,
		QuoteMint: quote,
		Reserves:  r,
		Mid:       r.MidPrice(),
	}
}

// MockSource serves ranked venues per (base, quote) and counts lookups.
type MockSource struct {
	Venues map[[2]solana.PublicKey][]types.PricedVenue
	Err    error
	Calls  map[[2]solana.PublicKey]int
}

func (m *MockSource) Scan(_ context.Context, base, quote solana.PublicKey, minVenues int) ([]types.PricedVenue, error) {
	k := [2]solana.PublicKey{base, quote}
	if m.Calls == nil {
		m.Calls = map[[2]solana.PublicKey]int{}
	}
	m.Calls[k]++
	if m.Err != nil {
		return nil, m.Err
	}
	vs := m.Venues[k]
	if len(vs) < minVenues {
		return vs, fmt.Errorf("%w: %d", types.ErrInsufficientVenues, len(vs))
	}
	return vs, nil
}

type minProfit decimal.Decimal

func (m minProfit) Actionable(p decimal.Decimal) bool { return p.GreaterThan(decimal.Decimal(m)) }

func TestSimulate_SameVenueNeverProfits(t *testing.T) {
	for _, fee := range []string{"0", "0.0025", "0.003", "0.01"} {
		v := pv("a", tkX, usd, "1000", "1000", fee)
		opp, err := Evaluate(types.StrategyTwoLeg, []types.Leg{BuyBase(v), SellBase(v)}, d("10"))
		require.NoError(t, err)
		assert.False(t, opp.Profit.IsPositive(), "fee %s gave profit %s", fee, opp.Profit)
	}
}

func TestSimulate_CheapToExpensive(t *testing.T) {
	cheap := pv("cheap", tkX, usd, "1000", "1000", "0.003")
	rich := pv("rich", tkX, usd, "1000", "1100", "0.003")

	fwd, err := Evaluate(types.StrategyTwoLeg, []types.Leg{BuyBase(cheap), SellBase(rich)}, d("10"))
	require.NoError(t, err)
	assert.True(t, fwd.Profit.IsPositive(), "profit %s", fwd.Profit)

	rev, err := Evaluate(types.StrategyTwoLeg, []types.Leg{BuyBase(rich), SellBase(cheap)}, d("10"))
	require.NoError(t, err)
	assert.True(t, rev.Profit.IsNegative(), "profit %s", rev.Profit)
}

func TestSimulate_CarriesAmounts(t *testing.T) {
	cheap := pv("cheap", tkX, usd, "1000", "1000", "0.003")
	rich := pv("rich", tkX, usd, "1000", "1100", "0.003")

	legs, final, err := Simulate([]types.Leg{BuyBase(cheap), SellBase(rich)}, d("10"))
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.True(t, legs[0].AmountIn.Equal(d("10")))
	assert.True(t, legs[1].AmountIn.Equal(legs[0].AmountOut))
	assert.True(t, final.Equal(legs[1].AmountOut))
	assert.Equal(t, usd.Address, legs[0].InputMint.Address)
	assert.Equal(t, tkX.Address, legs[0].OutputMint.Address)
}

func TestSimulate_RejectsOpenLoop(t *testing.T) {
	a := pv("a", tkX, usd, "1000", "1000", "0.003")
	b := pv("b", tkB, usd, "1000", "1000", "0.003")
	_, _, err := Simulate([]types.Leg{BuyBase(a), SellBase(b)}, d("10"))
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)

	_, _, err = Simulate([]types.Leg{BuyBase(a)}, d("10"))
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)
}

func TestSimulate_DegenerateNotional(t *testing.T) {
	a := pv("a", tkX, usd, "1000", "1000", "0.003")
	_, _, err := Simulate([]types.Leg{BuyBase(a), SellBase(a)}, decimal.Zero)
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)
}

func pairKey(a, b types.Mint) [2]solana.PublicKey { return [2]solana.PublicKey{a.Address, b.Address} }

func TestTwoLeg_Find(t *testing.T) {
	src := &MockSource{Venues: map[[2]solana.PublicKey][]types.PricedVenue{
		pairKey(tkX, usd): {
			pv("cheap", tkX, usd, "1000", "1000", "0.003"),
			pv("mid", tkX, usd, "1000", "1050", "0.003"),
			pv("rich", tkX, usd, "1000", "1100", "0.003"),
		},
	}}
	s := NewTwoLeg(src, minProfit(d("0.1")), usd.Address, tkX.Address, zap.NewNop())

	opp, err := s.Find(context.Background(), d("10"))
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, types.StrategyTwoLeg, opp.Strategy)
	assert.Equal(t, "cheap", opp.Legs[0].Venue)
	assert.Equal(t, "rich", opp.Legs[1].Venue)
	assert.Equal(t, "USD->X->USD", opp.Path())
	assert.False(t, opp.Ts.IsZero())
}

func TestTwoLeg_BelowThresholdIsNoOpportunity(t *testing.T) {
	src := &MockSource{Venues: map[[2]solana.PublicKey][]types.PricedVenue{
		pairKey(tkX, usd): {
			pv("cheap", tkX, usd, "1000", "1000", "0.003"),
			pv("rich", tkX, usd, "1000", "1100", "0.003"),
		},
	}}
	s := NewTwoLeg(src, minProfit(d("5")), usd.Address, tkX.Address, zap.NewNop())
	opp, err := s.Find(context.Background(), d("10"))
	assert.NoError(t, err)
	assert.Nil(t, opp)
}

func TestTwoLeg_TieIsNoOpportunity(t *testing.T) {
	src := &MockSource{Venues: map[[2]solana.PublicKey][]types.PricedVenue{
		pairKey(tkX, usd): {
			pv("a", tkX, usd, "1000", "1000", "0"),
			pv("b", tkX, usd, "2000", "2000", "0"),
		},
	}}
	s := NewTwoLeg(src, minProfit(decimal.Zero), usd.Address, tkX.Address, zap.NewNop())
	opp, err := s.Find(context.Background(), d("10"))
	assert.NoError(t, err)
	assert.Nil(t, opp)
}

func TestTwoLeg_InsufficientVenuesPropagates(t *testing.T) {
	src := &MockSource{Venues: map[[2]solana.PublicKey][]types.PricedVenue{
		pairKey(tkX, usd): {pv("only", tkX, usd, "1000", "1000", "0.003")},
	}}
	s := NewTwoLeg(src, minProfit(decimal.Zero), usd.Address, tkX.Address, zap.NewNop())
	_, err := s.Find(context.Background(), d("10"))
	assert.ErrorIs(t, err, types.ErrInsufficientVenues)
}

func triangularSource() *MockSource {
	return &MockSource{Venues: map[[2]solana.PublicKey][]types.PricedVenue{
		pairKey(usd, tkB): {
			pv("ub_low", usd, tkB, "1000", "900", "0.003"),
			pv("ub_high", usd, tkB, "1000", "1000", "0.003"),
		},
		// B -> C has no venue
		pairKey(tkB, tkD): {pv("bd", tkB, tkD, "1000", "1000", "0.003")},
		pairKey(tkD, usd): {pv("du", tkD, usd, "1000", "1200", "0.003")},
		pairKey(usd, tkC): {pv("uc", usd, tkC, "1000", "1000", "0.003")},
		pairKey(tkC, tkB): {pv("cb", tkC, tkB, "1000", "1000", "0.003")},
		pairKey(tkB, usd): {pv("bu", tkB, usd, "1000", "1300", "0.003")},
	}}
}

func TestTriangular_FirstFit(t *testing.T) {
	src := triangularSource()
	s := NewTriangular(src, minProfit(d("0.01")), usd.Address,
		[]solana.PublicKey{tkB.Address, tkC.Address, tkD.Address}, zap.NewNop())

	opp, err := s.Find(context.Background(), d("10"))
	require.NoError(t, err)
	require.NotNil(t, opp)
	require.Len(t, opp.Legs, 3)
	assert.Equal(t, types.StrategyTriangular, opp.Strategy)
	assert.Equal(t, "USD->B->D->USD", opp.Path())
	// best hop venue is the highest mid
	assert.Equal(t, "ub_high", opp.Legs[0].Venue)
	assert.True(t, opp.Profit.IsPositive())

	// C->B->USD is also profitable but comes later and is never looked at
	assert.Zero(t, src.Calls[pairKey(usd, tkC)])
	// the A->B hop is shared by both B paths and fetched once
	assert.Equal(t, 1, src.Calls[pairKey(usd, tkB)])
}

func TestTriangular_NoPath(t *testing.T) {
	src := &MockSource{Venues: map[[2]solana.PublicKey][]types.PricedVenue{}}
	s := NewTriangular(src, minProfit(decimal.Zero), usd.Address,
		[]solana.PublicKey{tkB.Address, tkC.Address}, zap.NewNop())
	opp, err := s.Find(context.Background(), d("10"))
	assert.NoError(t, err)
	assert.Nil(t, opp)
}

func TestTriangular_DirectoryFailureAbortsCycle(t *testing.T) {
	src := &MockSource{Err: errors.New("directory down")}
	s := NewTriangular(src, minProfit(decimal.Zero), usd.Address,
		[]solana.PublicKey{tkB.Address, tkC.Address}, zap.NewNop())
	_, err := s.Find(context.Background(), d("10"))
	assert.ErrorContains(t, err, "directory down")
}

func TestTriangular_FreshHopsEveryCall(t *testing.T) {
	src := triangularSource()
	s := NewTriangular(src, minProfit(d("0.01")), usd.Address,
		[]solana.PublicKey{tkB.Address, tkC.Address, tkD.Address}, zap.NewNop())
	for i := 0; i < 2; i++ {
		_, err := s.Find(context.Background(), d("10"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.Calls[pairKey(usd, tkB)])
}
