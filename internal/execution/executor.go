package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	imetrics "github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

type Freshener interface {
	LatestBlockhash(ctx context.Context) (types.Freshness, error)
}

// WalletLock serializes submissions per wallet across processes.
type WalletLock interface {
	Acquire(ctx context.Context, wallet string, ttl time.Duration) (release func(context.Context) error, err error)
}

type Executor struct {
	fresh   Freshener
	asm     *Assembler
	sub     *Submitter
	lock    WalletLock
	lockTTL time.Duration
	dryRun  bool
	log     *zap.Logger
}

func NewExecutor(fresh Freshener, asm *Assembler, sub *Submitter, lock WalletLock, lockTTL time.Duration, dryRun bool, log *zap.Logger) *Executor {
	return &Executor{fresh: fresh, asm: asm, sub: sub, lock: lock, lockTTL: lockTTL, dryRun: dryRun, log: log}
}

// Execute assembles and submits one opportunity. The result is nil when
// nothing left the process: assembly aborted, or dry run.
func (e *Executor) Execute(ctx context.Context, opp *types.Opportunity) (*types.ExecutionResult, error) {
	if e.lock != nil && !e.dryRun {
		release, err := e.lock.Acquire(ctx, e.asm.signer.PublicKey().String(), e.lockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			// release must outlive a cancelled cycle context
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := release(rctx); err != nil {
				e.log.Warn("executor: wallet unlock failed", zap.Error(err))
			}
		}()
	}

	fresh, err := e.fresh.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("freshness: %w", err)
	}
	intent, err := e.asm.Assemble(ctx, opp, fresh)
	if errors.Is(err, types.ErrSizeExceeded) {
		imetrics.Submissions.WithLabelValues(string(types.StatusSizeExceeded)).Inc()
		e.log.Warn("executor: transaction too large", zap.String("path", opp.Path()), zap.Error(err))
		return &types.ExecutionResult{Status: types.StatusSizeExceeded, Err: err, Ts: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	if e.dryRun {
		e.log.Info("executor: dry run, not submitting",
			zap.String("path", opp.Path()),
			zap.String("profit", opp.Profit.String()),
			zap.Int("bytes", intent.Size),
		)
		return nil, nil
	}
	res := e.sub.Submit(ctx, intent)
	return &res, nil
}
