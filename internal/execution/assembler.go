package execution

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/you/solana-arb/internal/amm"
	"github.com/you/solana-arb/internal/dex/core"
	imetrics "github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

// LegBound is the minimum output one leg must deliver, in raw units.
type LegBound struct {
	Venue     string
	AmountIn  uint64
	MinOut    uint64
	Threshold uint64 // what the venue instruction will enforce
}

// Intent is a signed transaction waiting for the submitter. It is single use.
type Intent struct {
	Tx        *solana.Transaction
	Payer     solana.PublicKey
	Freshness types.Freshness
	Bounds    []LegBound
	Size      int
	MaxSize   int
	Opp       *types.Opportunity

	used atomic.Bool
}

// Signature is the payer signature, valid once the intent is signed.
func (in *Intent) Signature() solana.Signature {
	if in == nil || in.Tx == nil || len(in.Tx.Signatures) == 0 {
		return solana.Signature{}
	}
	return in.Tx.Signatures[0]
}

type TableResolver interface {
	ResolveLookupTables(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
}

type AssemblerConfig struct {
	ComputeUnitLimit    uint32
	ComputeUnitPrice    uint64
	SlippageBps         int
	MaxTxBytes          int
	RequireLookupTables bool
}

type Assembler struct {
	cfg    AssemblerConfig
	venues core.SwapQuoter
	tables TableResolver
	signer Signer
	log    *zap.Logger
}

func NewAssembler(cfg AssemblerConfig, venues core.SwapQuoter, tables TableResolver, signer Signer, log *zap.Logger) *Assembler {
	return &Assembler{cfg: cfg, venues: venues, tables: tables, signer: signer, log: log}
}

// Assemble turns an opportunity into a signed intent bound to fresh. Any
// failure discards everything built so far.
func (a *Assembler) Assemble(ctx context.Context, opp *types.Opportunity, fresh types.Freshness) (*Intent, error) {
	if opp == nil || len(opp.Legs) == 0 {
		return nil, fmt.Errorf("%w: empty opportunity", types.ErrInvalidQuoteInput)
	}
	payer := a.signer.PublicKey()

	ixs := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(a.cfg.ComputeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(a.cfg.ComputeUnitPrice).Build(),
	}

	var (
		tableRefs []solana.PublicKey
		coSigners []solana.PrivateKey
		bounds    = make([]LegBound, 0, len(opp.Legs))
	)
	for i, leg := range opp.Legs {
		plan, bound, err := a.planLeg(ctx, leg, payer)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		ixs = append(ixs, plan.Instructions...)
		tableRefs = append(tableRefs, plan.LookupTables...)
		coSigners = append(coSigners, plan.Signers...)
		bounds = append(bounds, bound)
	}

	tables, err := a.resolveTables(ctx, dedupe(tableRefs))
	if err != nil {
		return nil, err
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(payer)}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(ixs, fresh.Blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	size, err := SignedSize(tx)
	if err != nil {
		return nil, err
	}
	imetrics.TxBytes.Observe(float64(size))
	if size > a.cfg.MaxTxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", types.ErrSizeExceeded, size, a.cfg.MaxTxBytes)
	}

	if err := a.signer.Sign(tx, coSigners); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	a.log.Info("assembler: intent ready",
		zap.String("path", opp.Path()),
		zap.Int("instructions", len(ixs)),
		zap.Int("lookup_tables", len(tables)),
		zap.Int("bytes", size),
		zap.String("signature", tx.Signatures[0].String()),
	)
	return &Intent{
		Tx:        tx,
		Payer:     payer,
		Freshness: fresh,
		Bounds:    bounds,
		Size:      size,
		MaxSize:   a.cfg.MaxTxBytes,
		Opp:       opp,
	}, nil
}

func (a *Assembler) planLeg(ctx context.Context, leg types.Leg, payer solana.PublicKey) (*core.SwapPlan, LegBound, error) {
	in, err := amm.ToRaw(leg.AmountIn, leg.InputMint.Decimals)
	if err != nil {
		return nil, LegBound{}, err
	}
	minOut, err := amm.ToRaw(amm.MinOut(leg.AmountOut, a.cfg.SlippageBps), leg.OutputMint.Decimals)
	if err != nil {
		return nil, LegBound{}, err
	}
	if in == 0 || minOut == 0 {
		return nil, LegBound{}, fmt.Errorf("%w: leg on %s rounds to zero base units", types.ErrInvalidQuoteInput, leg.Venue)
	}

	start := time.Now()
	plan, err := a.venues.SwapPlan(ctx, core.SwapRequest{
		Venue:       core.VenueID(leg.Venue),
		InputMint:   leg.InputMint.Address,
		OutputMint:  leg.OutputMint.Address,
		AmountIn:    in,
		MinOut:      minOut,
		SlippageBps: a.cfg.SlippageBps,
		User:        payer,
		Pool:        leg.PoolID,
	})
	imetrics.QuoteLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		imetrics.QuoterErrors.Inc()
		return nil, LegBound{}, &types.VenueError{Venue: leg.Venue, Err: err}
	}
	if plan.Threshold < minOut {
		return nil, LegBound{}, &types.VenueError{Venue: leg.Venue,
			Err: fmt.Errorf("%w: threshold %d < min out %d", types.ErrQuoteBelowBound, plan.Threshold, minOut)}
	}
	a.log.Debug("assembler: leg quoted",
		zap.String("venue", leg.Venue),
		zap.String("pool", leg.PoolID.String()),
		zap.String("simulated_out", leg.AmountOut.String()),
		zap.String("quoted_out", amm.FromRaw(plan.AmountOut, leg.OutputMint.Decimals).String()),
	)
	return plan, LegBound{Venue: leg.Venue, AmountIn: in, MinOut: minOut, Threshold: plan.Threshold}, nil
}

// resolveTables drops tables that do not resolve unless they are mandatory.
func (a *Assembler) resolveTables(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	got, err := a.tables.ResolveLookupTables(ctx, keys)
	if err != nil {
		if a.cfg.RequireLookupTables {
			return nil, fmt.Errorf("%w: %v", types.ErrLookupTableUnavailable, err)
		}
		a.log.Warn("assembler: lookup tables unavailable, building without", zap.Error(err))
		return nil, nil
	}
	for _, k := range keys {
		if _, ok := got[k]; ok {
			continue
		}
		if a.cfg.RequireLookupTables {
			return nil, fmt.Errorf("%w: %s", types.ErrLookupTableUnavailable, k)
		}
		a.log.Warn("assembler: dropping lookup table", zap.String("table", k.String()))
	}
	return got, nil
}

func dedupe(keys []solana.PublicKey) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// SignedSize is the wire size the transaction will have once every required
// signature is attached.
func SignedSize(tx *solana.Transaction) (int, error) {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("serialize message: %w", err)
	}
	n := int(tx.Message.Header.NumRequiredSignatures)
	return len(msg) + shortVecLen(n) + n*signatureLen, nil
}

const signatureLen = 64

func shortVecLen(n int) int {
	l := 1
	for n >= 0x80 {
		n >>= 7
		l++
	}
	return l
}
