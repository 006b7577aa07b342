package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/you/solana-arb/internal/types"
)

// Normalize orients a pool against the anchor mint. The result is the same
// whichever side of the pool the anchor sits on.
func Normalize(p types.PoolSnapshot, anchor solana.PublicKey) (types.CanonicalReserves, error) {
	_, _, r, err := Orient(p, anchor)
	return r, err
}

// Orient is Normalize that also returns the base and quote mints.
func Orient(p types.PoolSnapshot, anchor solana.PublicKey) (base, quote types.Mint, r types.CanonicalReserves, err error) {
	switch {
	case p.MintA.Address.Equals(anchor) && p.MintB.Address.Equals(anchor):
		return base, quote, r, fmt.Errorf("%w: pool %s has the anchor on both sides", types.ErrNotAnchored, p.PoolID)
	case p.MintA.Address.Equals(anchor):
		base, quote = p.MintB, p.MintA
		r = types.CanonicalReserves{Base: p.ReserveB, Quote: p.ReserveA, FeeRate: p.FeeRate}
	case p.MintB.Address.Equals(anchor):
		base, quote = p.MintA, p.MintB
		r = types.CanonicalReserves{Base: p.ReserveA, Quote: p.ReserveB, FeeRate: p.FeeRate}
	default:
		return base, quote, r, fmt.Errorf("%w: pool %s (%s/%s) vs %s",
			types.ErrNotAnchored, p.PoolID, p.MintA.Address, p.MintB.Address, anchor)
	}
	if !r.Base.IsPositive() || !r.Quote.IsPositive() {
		return base, quote, r, fmt.Errorf("%w: pool %s has empty reserves", types.ErrInvalidQuoteInput, p.PoolID)
	}
	if err := ValidateFee(r.FeeRate); err != nil {
		return base, quote, r, err
	}
	return base, quote, r, nil
}
