package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/solana-arb/internal/connectors/redisfeed"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

var (
	usdc = types.Mint{Address: solana.NewWallet().PublicKey(), Symbol: "USDC", Decimals: 6}
	sol  = types.Mint{Address: solana.NewWallet().PublicKey(), Symbol: "SOL", Decimals: 9}
	bonk = types.Mint{Address: solana.NewWallet().PublicKey(), Decimals: 5}
	dead = types.Mint{Address: solana.NewWallet().PublicKey(), Symbol: "DEAD", Decimals: 6}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// MockSource serves venues per base mint; bases without venues are insufficient.
type MockSource struct {
	Venues map[solana.PublicKey][]types.PricedVenue
	Err    error
}

func (m *MockSource) Scan(_ context.Context, base, _ solana.PublicKey, minVenues int) ([]types.PricedVenue, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	v := m.Venues[base]
	if len(v) < minVenues {
		return v, fmt.Errorf("%w: %d", types.ErrInsufficientVenues, len(v))
	}
	return v, nil
}

func priced(base types.Mint, name, rb, rq string) types.PricedVenue {
	r := types.CanonicalReserves{Base: d(rb), Quote: d(rq), FeeRate: d("0.0025")}
	return types.PricedVenue{
		Snapshot:  types.PoolSnapshot{Venue: name},
		BaseMint:  base,
		QuoteMint: usdc,
		Reserves:  r,
		Mid:       r.MidPrice(),
	}
}

func source() *MockSource {
	return &MockSource{Venues: map[solana.PublicKey][]types.PricedVenue{
		sol.Address: {
			priced(sol, "low", "1000", "140000"),
			priced(sol, "high", "1000", "150000"),
		},
		bonk.Address: {priced(bonk, "only", "1000000000", "20000")},
	}}
}

func TestAnchorNotional_UsesBestVenue(t *testing.T) {
	s := NewService(source(), usdc.Address, nil, nil, zap.NewNop())

	got, err := s.AnchorNotional(context.Background(), d("1"), sol.Address)
	require.NoError(t, err)
	// 0.9975 * 150000 / 1000.9975
	want := d("0.9975").Mul(d("150000")).Div(d("1000.9975"))
	assert.True(t, got.Equal(want), "got %s want %s", got, want)
}

func TestAnchorNotional_PassThrough(t *testing.T) {
	s := NewService(&MockSource{Err: errors.New("must not be called")}, usdc.Address, nil, nil, zap.NewNop())

	got, err := s.AnchorNotional(context.Background(), d("25"), usdc.Address)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("25")))

	got, err = s.AnchorNotional(context.Background(), d("25"), solana.PublicKey{})
	require.NoError(t, err)
	assert.True(t, got.Equal(d("25")))
}

func TestAnchorNotional_NoVenue(t *testing.T) {
	s := NewService(source(), usdc.Address, nil, nil, zap.NewNop())
	_, err := s.AnchorNotional(context.Background(), d("1"), dead.Address)
	assert.ErrorIs(t, err, types.ErrInsufficientVenues)
}

func TestToken(t *testing.T) {
	s := NewService(source(), usdc.Address, nil, nil, zap.NewNop())

	m, err := s.Token(context.Background(), sol.Address.String())
	require.NoError(t, err)
	assert.Equal(t, "SOL", m.Symbol)
	assert.Equal(t, int32(9), m.Decimals)

	_, err = s.Token(context.Background(), usdc.Address.String())
	assert.Error(t, err)
	_, err = s.Token(context.Background(), "not-a-key")
	assert.Error(t, err)
}

func TestCandidates_FiltersAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pub := redisfeed.NewPublisher(rdb, "arb:stream", "arb:recent")
	cons := redisfeed.NewConsumer(rdb, "arb:stream")
	ctx := context.Background()

	// symbol known from an earlier run
	require.NoError(t, pub.UpsertMint(ctx, types.Mint{Address: bonk.Address, Symbol: "BONK", Decimals: 5}, 1))

	s := NewService(source(), usdc.Address, cons, pub, zap.NewNop())
	got, err := s.Candidates(ctx, []string{
		sol.Address.String(),
		usdc.Address.String(),
		"garbage",
		sol.Address.String(),
		dead.Address.String(),
		" " + bonk.Address.String() + " ",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SOL", got[0].Symbol)
	assert.Equal(t, "BONK", got[1].Symbol)

	m, err := cons.ReadMint(ctx, sol.Address)
	require.NoError(t, err)
	assert.Equal(t, "SOL", m.Symbol)
	_, err = cons.ReadMint(ctx, dead.Address)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestCandidates_TooFew(t *testing.T) {
	s := NewService(source(), usdc.Address, nil, nil, zap.NewNop())
	got, err := s.Candidates(context.Background(), []string{sol.Address.String(), dead.Address.String()})
	assert.Error(t, err)
	assert.Len(t, got, 1)
}
