package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/you/solana-arb/internal/chain"
	imetrics "github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

// Network is the part of the chain client the submitter owns while a
// submission is in flight.
type Network interface {
	Send(ctx context.Context, tx *solana.Transaction, opts chain.SendOpts) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (chain.SignatureState, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

type SubmitterConfig struct {
	Commitment    rpc.CommitmentType
	Poll          time.Duration
	Timeout       time.Duration
	SkipPreflight bool
	MaxRetries    uint
}

// finalCheckTimeout bounds the last status poll made after the deadline or a
// cancellation.
const finalCheckTimeout = 5 * time.Second

type Submitter struct {
	net Network
	cfg SubmitterConfig
	log *zap.Logger
}

func NewSubmitter(net Network, cfg SubmitterConfig, log *zap.Logger) *Submitter {
	if cfg.Poll <= 0 {
		cfg.Poll = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Submitter{net: net, cfg: cfg, log: log}
}

// Submit sends the intent once and polls until it lands, fails on chain, or
// its blockhash stops being valid. A stale intent is never re-sent.
//
// Expired is returned only when the signature is unknown to the cluster and
// the block height has passed the intent's last valid height. A transaction
// that was seen, or whose blockhash is still valid when polling stops, ends
// Unconfirmed.
func (s *Submitter) Submit(ctx context.Context, in *Intent) types.ExecutionResult {
	if !in.used.CompareAndSwap(false, true) {
		return s.done(types.StatusRejected, nil, types.ErrIntentReused)
	}

	sig, err := s.net.Send(ctx, in.Tx, chain.SendOpts{SkipPreflight: s.cfg.SkipPreflight, MaxRetries: s.cfg.MaxRetries})
	if err != nil {
		return s.done(types.StatusRejected, nil, fmt.Errorf("send: %w", err))
	}
	s.log.Info("submitter: sent", zap.String("signature", sig.String()),
		zap.Uint64("last_valid_height", in.Freshness.LastValidBlockHeight))

	deadline := time.NewTimer(s.cfg.Timeout)
	defer deadline.Stop()
	t := time.NewTicker(s.cfg.Poll)
	defer t.Stop()

	var landed bool
	for {
		select {
		case <-ctx.Done():
			return s.settle(ctx, in, sig, landed, fmt.Errorf("abandoned: %w", ctx.Err()))
		case <-deadline.C:
			return s.settle(ctx, in, sig, landed, fmt.Errorf("no %s confirmation within %s", s.cfg.Commitment, s.cfg.Timeout))
		case <-t.C:
			res, ok := s.check(ctx, in, sig, &landed)
			if ok {
				return res
			}
		}
	}
}

// check runs one status and height poll. It reports a terminal result when
// one is reached.
func (s *Submitter) check(ctx context.Context, in *Intent, sig solana.Signature, landed *bool) (types.ExecutionResult, bool) {
	st, err := s.net.SignatureStatus(ctx, sig)
	if err != nil {
		s.log.Warn("submitter: status poll failed", zap.Error(err))
		return types.ExecutionResult{}, false
	}
	if st.Found {
		if st.Err != nil {
			return s.done(types.StatusRejected, &sig, fmt.Errorf("on-chain error: %v", st.Err)), true
		}
		if chain.Reaches(st.Commitment, s.cfg.Commitment) {
			return s.done(types.StatusConfirmed, &sig, nil), true
		}
		if !*landed {
			s.log.Info("submitter: landed", zap.String("signature", sig.String()),
				zap.String("commitment", string(st.Commitment)))
		}
		// a landed transaction can no longer expire
		*landed = true
		return types.ExecutionResult{}, false
	}
	if *landed {
		// dropped out of the status cache or a lagging node; keep waiting
		return types.ExecutionResult{}, false
	}
	h, err := s.net.BlockHeight(ctx)
	if err != nil {
		s.log.Warn("submitter: block height poll failed", zap.Error(err))
		return types.ExecutionResult{}, false
	}
	if h > in.Freshness.LastValidBlockHeight {
		return s.done(types.StatusExpired, &sig,
			fmt.Errorf("block height %d past %d", h, in.Freshness.LastValidBlockHeight)), true
	}
	return types.ExecutionResult{}, false
}

// settle classifies a submission once polling has to stop. The final check
// runs on a context that outlives ctx.
func (s *Submitter) settle(ctx context.Context, in *Intent, sig solana.Signature, landed bool, cause error) types.ExecutionResult {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalCheckTimeout)
	defer cancel()
	if res, ok := s.check(fctx, in, sig, &landed); ok {
		return res
	}
	return s.done(types.StatusUnconfirmed, &sig, cause)
}

func (s *Submitter) done(status types.ExecutionStatus, sig *solana.Signature, err error) types.ExecutionResult {
	imetrics.Submissions.WithLabelValues(string(status)).Inc()
	fields := []zap.Field{zap.String("status", string(status))}
	if sig != nil {
		fields = append(fields, zap.String("signature", sig.String()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if status == types.StatusRejected || status == types.StatusUnconfirmed {
		s.log.Warn("submitter: terminal", fields...)
	} else {
		s.log.Info("submitter: terminal", fields...)
	}
	return types.ExecutionResult{Status: status, Signature: sig, Err: err, Ts: time.Now()}
}
