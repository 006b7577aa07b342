package core

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/you/solana-arb/internal/types"
)

type VenueID string

const (
	VenueRaydiumAMM  VenueID = "raydium_amm"
	VenueRaydiumCPMM VenueID = "raydium_cpmm"
	VenueRaydiumCLMM VenueID = "raydium_clmm"
)

// Directory lists the pools quoting a pair. Results are only as fresh as the
// call that produced them.
type Directory interface {
	PoolsByMints(ctx context.Context, mintX, mintY solana.PublicKey) ([]types.PoolSnapshot, error)
}

// SwapRequest asks a venue for the instructions of one leg. Amounts are raw
// base units.
type SwapRequest struct {
	Venue       VenueID
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	AmountIn    uint64
	MinOut      uint64
	SlippageBps int
	User        solana.PublicKey
	Pool        solana.PublicKey // zero means any pool of the venue
}

// SwapPlan is what a venue returns for one leg. The engine never interprets
// instruction bytes: it orders, concatenates and forwards them.
type SwapPlan struct {
	AmountOut    uint64
	Threshold    uint64 // venue-enforced minimum output
	Instructions []solana.Instruction
	LookupTables []solana.PublicKey
	Signers      []solana.PrivateKey
}

// SwapQuoter is the per-venue quote/instruction service.
type SwapQuoter interface {
	SwapPlan(ctx context.Context, req SwapRequest) (*SwapPlan, error)
}

type Venue struct {
	ID        VenueID
	ProgramID solana.PublicKey
	DexLabel  string // label understood by the routing API
}
