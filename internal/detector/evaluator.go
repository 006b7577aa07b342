// Package detector simulates closed swap loops and searches for profitable
// ones. Everything here except the venue lookups is synchronous arithmetic.
package detector

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/amm"
	"github.com/you/solana-arb/internal/types"
)

// Simulate pushes initial through legs in order, feeding each output into the
// next input. It returns the filled legs and the final output. The loop must
// be closed: every leg starts where the previous one ended and the last leg
// ends in the first leg's input.
func Simulate(legs []types.Leg, initial decimal.Decimal) ([]types.Leg, decimal.Decimal, error) {
	if len(legs) < 2 || len(legs) > 3 {
		return nil, decimal.Zero, fmt.Errorf("%w: %d legs", types.ErrInvalidQuoteInput, len(legs))
	}
	for i := range legs {
		next := legs[(i+1)%len(legs)]
		if !legs[i].OutputMint.Address.Equals(next.InputMint.Address) {
			return nil, decimal.Zero, fmt.Errorf("%w: leg %d ends in %s, leg %d starts with %s",
				types.ErrInvalidQuoteInput, i, legs[i].OutputMint.Address, (i+1)%len(legs), next.InputMint.Address)
		}
	}

	filled := make([]types.Leg, len(legs))
	amount := initial
	for i, l := range legs {
		out, err := amm.AmountOut(amount, l.ReserveIn, l.ReserveOut, l.FeeRate)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("leg %d (%s): %w", i, l.Venue, err)
		}
		l.AmountIn, l.AmountOut = amount, out
		filled[i] = l
		amount = out
	}
	return filled, amount, nil
}

// Evaluate simulates legs and wraps the result as an Opportunity.
func Evaluate(strategy string, legs []types.Leg, initial decimal.Decimal) (*types.Opportunity, error) {
	filled, final, err := Simulate(legs, initial)
	if err != nil {
		return nil, err
	}
	return &types.Opportunity{
		Strategy:    strategy,
		Legs:        filled,
		Initial:     initial,
		FinalOutput: final,
		Profit:      final.Sub(initial),
	}, nil
}

// SellBase is the leg that swaps a venue's base token into its quote token.
func SellBase(v types.PricedVenue) types.Leg {
	return types.Leg{
		Venue:      v.Snapshot.Venue,
		PoolID:     v.Snapshot.PoolID,
		InputMint:  v.BaseMint,
		OutputMint: v.QuoteMint,
		ReserveIn:  v.Reserves.Base,
		ReserveOut: v.Reserves.Quote,
		FeeRate:    v.Reserves.FeeRate,
	}
}

// BuyBase is the leg that swaps a venue's quote token into its base token.
func BuyBase(v types.PricedVenue) types.Leg {
	return types.Leg{
		Venue:      v.Snapshot.Venue,
		PoolID:     v.Snapshot.PoolID,
		InputMint:  v.QuoteMint,
		OutputMint: v.BaseMint,
		ReserveIn:  v.Reserves.Quote,
		ReserveOut: v.Reserves.Base,
		FeeRate:    v.Reserves.FeeRate,
	}
}
