// Package amm holds the constant-product pricing math and reserve
// normalization. Everything here is pure and uses decimal arithmetic only.
package amm

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/types"
)

var (
	one       = decimal.NewFromInt(1)
	bpsDenom  = decimal.NewFromInt(10_000)
	maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)
)

// AmountOut returns the output of swapping amountIn into a constant-product
// pool. The fee is taken from the input before the swap:
//
//	effectiveIn = amountIn * (1 - feeRate)
//	amountOut   = effectiveIn * reserveOut / (reserveIn + effectiveIn)
func AmountOut(amountIn, reserveIn, reserveOut, feeRate decimal.Decimal) (decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amountIn %s", types.ErrInvalidQuoteInput, amountIn)
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: reserves %s/%s", types.ErrInvalidQuoteInput, reserveIn, reserveOut)
	}
	if err := ValidateFee(feeRate); err != nil {
		return decimal.Zero, err
	}
	effectiveIn := amountIn.Mul(one.Sub(feeRate))
	return effectiveIn.Mul(reserveOut).Div(reserveIn.Add(effectiveIn)), nil
}

// ValidateFee rejects fee rates outside [0, 1).
func ValidateFee(feeRate decimal.Decimal) error {
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: fee rate %s", types.ErrInvalidQuoteInput, feeRate)
	}
	return nil
}

// MinOut applies a slippage tolerance in basis points to a simulated output.
func MinOut(simulated decimal.Decimal, slippageBps int) decimal.Decimal {
	keep := bpsDenom.Sub(decimal.NewFromInt(int64(slippageBps)))
	if keep.IsNegative() {
		return decimal.Zero
	}
	return simulated.Mul(keep).Div(bpsDenom)
}

// ToRaw converts a human amount into integer base units, rounding down.
func ToRaw(amount decimal.Decimal, decimals int32) (uint64, error) {
	raw := amount.Shift(decimals).Floor()
	if raw.IsNegative() || raw.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %s does not fit base units", types.ErrInvalidQuoteInput, amount)
	}
	return raw.BigInt().Uint64(), nil
}

// FromRaw converts integer base units into a human amount.
func FromRaw(raw uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -decimals)
}

// SpreadPct is (hi-lo)/lo*100, the percentage gap between two mid prices.
func SpreadPct(lo, hi decimal.Decimal) decimal.Decimal {
	if !lo.IsPositive() {
		return decimal.Zero
	}
	return hi.Sub(lo).Div(lo).Mul(decimal.NewFromInt(100))
}
