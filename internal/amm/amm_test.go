package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/solana-arb/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAmountOut_NeverDrainsPool(t *testing.T) {
	reserves := [][2]string{{"1000", "1000"}, {"0.5", "250000"}, {"1234567.89", "0.0001"}}
	fees := []string{"0", "0.0025", "0.003", "0.3", "0.9999"}
	amounts := []string{"0.000001", "1", "10", "1000", "1000000000000"}

	for _, r := range reserves {
		for _, f := range fees {
			for _, a := range amounts {
				out, err := AmountOut(d(a), d(r[0]), d(r[1]), d(f))
				require.NoError(t, err)
				assert.True(t, out.LessThan(d(r[1])), "out %s >= reserveOut %s (in=%s fee=%s)", out, r[1], a, f)
				assert.False(t, out.IsNegative())
			}
		}
	}
}

func TestAmountOut_StrictlyIncreasing(t *testing.T) {
	amounts := []string{"0.001", "0.01", "1", "2", "10", "100", "1000", "100000"}
	prev := decimal.Zero
	for _, a := range amounts {
		out, err := AmountOut(d(a), d("1000"), d("1100"), d("0.003"))
		require.NoError(t, err)
		assert.True(t, out.GreaterThan(prev), "amountOut(%s)=%s not above %s", a, out, prev)
		prev = out
	}
}

func TestAmountOut_ZeroFeeKeepsInvariant(t *testing.T) {
	cases := [][3]string{
		{"10", "1000", "1000"},
		{"3.5", "42", "97"},
		{"250000", "1000000", "3"},
	}
	tol := d("0.000000001")
	for _, c := range cases {
		in, rIn, rOut := d(c[0]), d(c[1]), d(c[2])
		out, err := AmountOut(in, rIn, rOut, decimal.Zero)
		require.NoError(t, err)

		before := rIn.Mul(rOut)
		after := rIn.Add(in).Mul(rOut.Sub(out))
		assert.True(t, before.Sub(after).Abs().LessThanOrEqual(tol.Mul(before)),
			"k drifted: before=%s after=%s", before, after)
	}
}

func TestAmountOut_KnownValue(t *testing.T) {
	out, err := AmountOut(d("10"), d("1000"), d("1000"), d("0.003"))
	require.NoError(t, err)
	// 9.97 * 1000 / 1009.97
	assert.Equal(t, "9.8715803", out.StringFixed(7))
}

func TestAmountOut_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name               string
		in, rIn, rOut, fee string
	}{
		{"zero in", "0", "1", "1", "0"},
		{"negative in", "-1", "1", "1", "0"},
		{"zero reserve in", "1", "0", "1", "0"},
		{"negative reserve out", "1", "1", "-5", "0"},
		{"fee one", "1", "1", "1", "1"},
		{"fee above one", "1", "1", "1", "1.5"},
		{"negative fee", "1", "1", "1", "-0.01"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := AmountOut(d(c.in), d(c.rIn), d(c.rOut), d(c.fee))
			assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)
		})
	}
}

func TestMinOut(t *testing.T) {
	assert.True(t, MinOut(d("100"), 30).Equal(d("99.7")))
	assert.True(t, MinOut(d("100"), 0).Equal(d("100")))
	assert.True(t, MinOut(d("100"), 20000).IsZero())
}

func TestRawConversions(t *testing.T) {
	raw, err := ToRaw(d("1.2345678"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234567), raw)

	assert.True(t, FromRaw(1234567, 6).Equal(d("1.234567")))

	_, err = ToRaw(d("-1"), 6)
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)
	_, err = ToRaw(d("1e30"), 9)
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)
}

func TestSpreadPct(t *testing.T) {
	assert.True(t, SpreadPct(d("1"), d("1.1")).Equal(d("10")))
	assert.True(t, SpreadPct(decimal.Zero, d("1")).IsZero())
}

var (
	usdc  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	wsol  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	other = solana.MustPublicKeyFromBase58("7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr")
)

func TestNormalize_OrderingIndependent(t *testing.T) {
	anchorA := types.PoolSnapshot{
		MintA: types.Mint{Address: usdc}, MintB: types.Mint{Address: wsol},
		ReserveA: d("150000"), ReserveB: d("1000"), FeeRate: d("0.0025"),
	}
	anchorB := types.PoolSnapshot{
		MintA: types.Mint{Address: wsol}, MintB: types.Mint{Address: usdc},
		ReserveA: d("1000"), ReserveB: d("150000"), FeeRate: d("0.0025"),
	}

	ra, err := Normalize(anchorA, usdc)
	require.NoError(t, err)
	rb, err := Normalize(anchorB, usdc)
	require.NoError(t, err)

	assert.True(t, ra.Base.Equal(rb.Base))
	assert.True(t, ra.Quote.Equal(rb.Quote))
	assert.True(t, ra.FeeRate.Equal(rb.FeeRate))
	assert.True(t, ra.Base.Equal(d("1000")))
	assert.True(t, ra.Quote.Equal(d("150000")))
	assert.True(t, ra.MidPrice().Equal(d("150")))
}

func TestNormalize_NotAnchored(t *testing.T) {
	p := types.PoolSnapshot{
		MintA: types.Mint{Address: wsol}, MintB: types.Mint{Address: other},
		ReserveA: d("1"), ReserveB: d("1"),
	}
	_, err := Normalize(p, usdc)
	assert.ErrorIs(t, err, types.ErrNotAnchored)

	both := types.PoolSnapshot{
		MintA: types.Mint{Address: usdc}, MintB: types.Mint{Address: usdc},
		ReserveA: d("1"), ReserveB: d("1"),
	}
	_, err = Normalize(both, usdc)
	assert.ErrorIs(t, err, types.ErrNotAnchored)
}

func TestNormalize_RejectsEmptyReservesAndBadFee(t *testing.T) {
	p := types.PoolSnapshot{
		MintA: types.Mint{Address: usdc}, MintB: types.Mint{Address: wsol},
		ReserveA: d("0"), ReserveB: d("1"),
	}
	_, err := Normalize(p, usdc)
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)

	p.ReserveA = d("10")
	p.FeeRate = d("1")
	_, err = Normalize(p, usdc)
	assert.ErrorIs(t, err, types.ErrInvalidQuoteInput)
}

func TestOrient_ReturnsMints(t *testing.T) {
	p := types.PoolSnapshot{
		MintA: types.Mint{Address: wsol, Symbol: "SOL"}, MintB: types.Mint{Address: other, Symbol: "WBTC"},
		ReserveA: d("100"), ReserveB: d("2"), FeeRate: d("0.003"),
	}
	base, quote, r, err := Orient(p, other)
	require.NoError(t, err)
	assert.Equal(t, "SOL", base.Symbol)
	assert.Equal(t, "WBTC", quote.Symbol)
	assert.True(t, r.MidPrice().Equal(d("0.02")))
}
