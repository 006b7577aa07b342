// Package bot drives the evaluate-then-execute loop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/detector"
	imetrics "github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

// State of the scheduler. Ticks are accepted only in Idle.
type State int32

const (
	Idle State = iota
	Evaluating
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Cycle outcomes that never produce a record.
const (
	OutcomeNoOpportunity = "no_opportunity"
	OutcomeInsufficient  = "insufficient_venues"
	OutcomeRiskBlocked   = "risk_blocked"
	OutcomeError         = "error"
)

type Executor interface {
	Execute(ctx context.Context, opp *types.Opportunity) (*types.ExecutionResult, error)
}

type NotionalGuard interface {
	CheckNotional(n decimal.Decimal) error
}

type Journal interface {
	Record(ctx context.Context, r types.CycleRecord) error
}

type Feed interface {
	PublishCycle(ctx context.Context, r types.CycleRecord) error
}

type Board interface {
	SetState(state string)
	RecordCycle(id, outcome string, r *types.CycleRecord)
}

// Deps are the collaborators of a Scheduler. Journal, Feed and Board are
// optional.
type Deps struct {
	Strategy detector.Strategy
	Executor Executor
	Risk     NotionalGuard
	Journal  Journal
	Feed     Feed
	Board    Board
}

type Scheduler struct {
	deps     Deps
	notional decimal.Decimal
	interval time.Duration
	dryRun   bool

	state atomic.Int32
	wg    sync.WaitGroup
	log   *zap.Logger
}

func NewScheduler(deps Deps, notional decimal.Decimal, interval time.Duration, dryRun bool, log *zap.Logger) *Scheduler {
	return &Scheduler{deps: deps, notional: notional, interval: interval, dryRun: dryRun, log: log}
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Run ticks until ctx is done, then waits for the running cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started",
		zap.String("strategy", s.deps.Strategy.Name()),
		zap.String("notional", s.notional.String()),
		zap.Duration("interval", s.interval),
		zap.Bool("dry_run", s.dryRun),
	)
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Wait()
			s.log.Info("scheduler stopped")
			return nil
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts a cycle unless one is running. It reports whether a cycle
// was started.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.state.CompareAndSwap(int32(Idle), int32(Evaluating)) {
		imetrics.TicksSkipped.Inc()
		s.log.Debug("tick skipped", zap.Stringer("state", s.State()))
		return false
	}
	s.setBoard(Evaluating)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		s.cycle(ctx)
	}()
	return true
}

// Wait blocks until the running cycle, if any, has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) release() {
	if r := recover(); r != nil {
		imetrics.Cycles.WithLabelValues(OutcomeError).Inc()
		s.log.Error("cycle panic", zap.Any("panic", r), zap.Stack("stack"))
	}
	s.state.Store(int32(Idle))
	s.setBoard(Idle)
}

func (s *Scheduler) cycle(ctx context.Context) {
	id := uuid.NewString()
	log := s.log.With(zap.String("cycle", id))
	start := time.Now()
	defer func() { imetrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	finish := func(outcome string, rec *types.CycleRecord) {
		imetrics.Cycles.WithLabelValues(outcome).Inc()
		if s.deps.Board != nil {
			s.deps.Board.RecordCycle(id, outcome, rec)
		}
	}

	opp, err := s.deps.Strategy.Find(ctx, s.notional)
	switch {
	case errors.Is(err, types.ErrInsufficientVenues):
		log.Info("cycle: not enough venues", zap.Error(err))
		finish(OutcomeInsufficient, nil)
		return
	case err != nil:
		log.Warn("cycle: evaluation failed", zap.Error(err))
		finish(OutcomeError, nil)
		return
	case opp == nil:
		log.Info("cycle: no opportunity")
		finish(OutcomeNoOpportunity, nil)
		return
	}

	log.Info("cycle: opportunity",
		zap.String("strategy", opp.Strategy),
		zap.String("path", opp.Path()),
		zap.String("initial", opp.Initial.String()),
		zap.String("final", opp.FinalOutput.String()),
		zap.String("profit", opp.Profit.String()),
	)
	if err := s.deps.Risk.CheckNotional(opp.Initial); err != nil {
		log.Warn("cycle: blocked by risk", zap.Error(err))
		finish(OutcomeRiskBlocked, nil)
		return
	}

	s.state.Store(int32(Submitting))
	s.setBoard(Submitting)
	res, execErr := s.deps.Executor.Execute(ctx, opp)
	if res != nil && res.Succeeded() {
		imetrics.ConfirmedProfit.Add(opp.Profit.InexactFloat64())
	}

	rec := types.NewCycleRecord(opp, res, execErr, s.dryRun)
	rec.ID = id
	fields := []zap.Field{zap.String("outcome", rec.Outcome)}
	if rec.Signature != "" {
		fields = append(fields, zap.String("signature", rec.Signature))
	}
	if execErr != nil {
		log.Warn("cycle: execution aborted", append(fields, zap.Error(execErr))...)
	} else {
		log.Info("cycle: execution finished", append(fields, zap.String("error", rec.Error))...)
	}

	s.persist(ctx, log, rec)
	finish(rec.Outcome, &rec)
}

// persist writes rec to the journal and the feed. Writes outlive a
// cancelled cycle so a shutdown mid-submission still leaves a record.
func (s *Scheduler) persist(ctx context.Context, log *zap.Logger, rec types.CycleRecord) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if s.deps.Journal != nil {
		if err := s.deps.Journal.Record(pctx, rec); err != nil {
			log.Error("cycle: journal write failed", zap.Error(err))
		}
	}
	if s.deps.Feed != nil {
		if err := s.deps.Feed.PublishCycle(pctx, rec); err != nil {
			log.Warn("cycle: feed publish failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) setBoard(st State) {
	if s.deps.Board != nil {
		s.deps.Board.SetState(st.String())
	}
}
