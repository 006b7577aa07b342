package types

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Mint identifies one side of a pool.
type Mint struct {
	Address  solana.PublicKey
	Symbol   string
	Decimals int32
}

// PoolSnapshot is one venue's pool as reported by the liquidity directory at
// the time of the call. Amounts are in human units. Never mutated: every
// polling cycle fetches fresh snapshots.
type PoolSnapshot struct {
	Venue    string // venue id from the dex registry
	PoolID   solana.PublicKey
	MintA    Mint
	MintB    Mint
	ReserveA decimal.Decimal
	ReserveB decimal.Decimal
	FeeRate  decimal.Decimal // fraction, 0 <= fee < 1
	TVL      decimal.Decimal // in quote currency
	Ts       time.Time
}

// CanonicalReserves is a pool seen from the anchor asset: Base is the
// non-anchor reserve, Quote the anchor reserve.
type CanonicalReserves struct {
	Base    decimal.Decimal
	Quote   decimal.Decimal
	FeeRate decimal.Decimal
}

// MidPrice is Quote/Base. Callers guarantee Base > 0.
func (r CanonicalReserves) MidPrice() decimal.Decimal {
	return r.Quote.Div(r.Base)
}

// PricedVenue is a qualifying venue for a pair together with its reserves
// oriented against the pricing side of the pair.
type PricedVenue struct {
	Snapshot  PoolSnapshot
	BaseMint  Mint
	QuoteMint Mint
	Reserves  CanonicalReserves
	Mid       decimal.Decimal
}

// Leg is one swap of an Opportunity.
type Leg struct {
	Venue      string
	PoolID     solana.PublicKey
	InputMint  Mint
	OutputMint Mint
	ReserveIn  decimal.Decimal
	ReserveOut decimal.Decimal
	FeeRate    decimal.Decimal
	AmountIn   decimal.Decimal
	AmountOut  decimal.Decimal
}

// Strategy names.
const (
	StrategyTwoLeg     = "two_leg"
	StrategyTriangular = "triangular"
)

// Opportunity is a closed loop of 2 or 3 legs simulated from the same cycle's
// reserves. Created fresh per evaluation cycle.
type Opportunity struct {
	Strategy    string
	Legs        []Leg
	Initial     decimal.Decimal
	FinalOutput decimal.Decimal
	Profit      decimal.Decimal
	Ts          time.Time
}

// Path renders the loop as IN->MID->...->OUT using symbols where known.
func (o *Opportunity) Path() string {
	if o == nil || len(o.Legs) == 0 {
		return ""
	}
	s := mintLabel(o.Legs[0].InputMint)
	for _, l := range o.Legs {
		s += "->" + mintLabel(l.OutputMint)
	}
	return s
}

func mintLabel(m Mint) string {
	if m.Symbol != "" {
		return m.Symbol
	}
	a := m.Address.String()
	if len(a) > 4 {
		return a[:4]
	}
	return a
}

// Freshness is the short-lived network state handle a transaction is bound to.
type Freshness struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// ExecutionStatus is the terminal state of a submission.
type ExecutionStatus string

const (
	StatusConfirmed    ExecutionStatus = "confirmed"
	StatusExpired      ExecutionStatus = "expired"
	StatusRejected     ExecutionStatus = "rejected"
	StatusSizeExceeded ExecutionStatus = "size_exceeded"
	// StatusUnconfirmed: polling stopped while the transaction had landed
	// below the target commitment or its blockhash was still valid. It may
	// still execute.
	StatusUnconfirmed  ExecutionStatus = "unconfirmed"
)

// ExecutionResult is the terminal record of one intent.
type ExecutionResult struct {
	Status    ExecutionStatus
	Signature *solana.Signature
	Err       error
	Ts        time.Time
}

// Succeeded reports whether the transaction landed.
func (r ExecutionResult) Succeeded() bool { return r.Status == StatusConfirmed }
