package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record outcomes that never reached the network.
const (
	OutcomeDryRun  = "dry_run"
	OutcomeAborted = "aborted"
)

// CycleRecord is the persisted summary of one acted-upon opportunity.
type CycleRecord struct {
	ID        string
	Strategy  string
	Path      string
	Initial   decimal.Decimal
	Final     decimal.Decimal
	Profit    decimal.Decimal
	Outcome   string // an ExecutionStatus, OutcomeDryRun or OutcomeAborted
	Signature string
	Error     string
	Ts        time.Time
}

// NewCycleRecord summarizes opp with whatever execution produced. res is nil
// when nothing was submitted.
func NewCycleRecord(opp *Opportunity, res *ExecutionResult, execErr error, dryRun bool) CycleRecord {
	r := CycleRecord{
		ID:       uuid.New().String(),
		Strategy: opp.Strategy,
		Path:     opp.Path(),
		Initial:  opp.Initial,
		Final:    opp.FinalOutput,
		Profit:   opp.Profit,
		Ts:       time.Now().UTC(),
	}
	switch {
	case res != nil:
		r.Outcome = string(res.Status)
		if res.Signature != nil {
			r.Signature = res.Signature.String()
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
	case execErr != nil:
		r.Outcome = OutcomeAborted
		r.Error = execErr.Error()
	case dryRun:
		r.Outcome = OutcomeDryRun
	default:
		r.Outcome = OutcomeAborted
	}
	return r
}
