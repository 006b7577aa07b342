// Package dash keeps the last cycle's view of the market in memory and serves
// it as JSON.
package dash

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"
	"github.com/you/solana-arb/internal/amm"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

const historySize = 20

// Row is one qualifying venue of a pair.
type Row struct {
	Pair    string `json:"pair"`
	Venue   string `json:"venue"`
	Pool    string `json:"pool"`
	Mid     string `json:"mid"`
	TVL     string `json:"tvl"`
	FeeRate string `json:"feeRate"`
	TS      int64  `json:"ts"`
}

// Cycle is the outcome of the last finished evaluation cycle.
type Cycle struct {
	ID        string `json:"id"`
	Outcome   string `json:"outcome"`
	Path      string `json:"path,omitempty"`
	Profit    string `json:"profit,omitempty"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
	TS        int64  `json:"ts"`
}

// HistorySource is anything that can list recent cycle records.
type HistorySource interface {
	Recent(ctx context.Context, n int) ([]types.CycleRecord, error)
}

// ProfitSource totals the profit of confirmed loops.
type ProfitSource interface {
	RealizedProfit(ctx context.Context) (decimal.Decimal, error)
}

// Status is the document served at /status.
type Status struct {
	State          string            `json:"state"`
	Spreads        map[string]string `json:"spreads"`
	Venues         []Row             `json:"venues"`
	Last           *Cycle            `json:"last,omitempty"`
	History        []Cycle           `json:"history,omitempty"`
	RealizedProfit string            `json:"realizedProfit,omitempty"`
}

type Store struct {
	mu      sync.RWMutex
	rows    map[string][]Row // key: pair
	spreads map[string]string
	state   string
	last    *Cycle

	history HistorySource
	profit  ProfitSource
	log     *zap.Logger
}

// NewStore builds an empty board. history may be nil.
func NewStore(history HistorySource, log *zap.Logger) *Store {
	return &Store{
		rows:    make(map[string][]Row, 8),
		spreads: make(map[string]string, 8),
		state:   "idle",
		history: history,
		log:     log,
	}
}

// WithProfit adds the realized profit total to every Snapshot.
func (s *Store) WithProfit(p ProfitSource) *Store {
	s.profit = p
	return s
}

// ObserveVenues replaces the rows of the base/quote pair.
func (s *Store) ObserveVenues(base, quote solana.PublicKey, venues []types.PricedVenue) {
	pair := shortKey(base) + "/" + shortKey(quote)
	if len(venues) > 0 {
		pair = label(venues[0].BaseMint) + "/" + label(venues[0].QuoteMint)
	}
	now := time.Now().UnixMilli()
	rows := make([]Row, 0, len(venues))
	for _, v := range venues {
		rows = append(rows, Row{
			Pair:    pair,
			Venue:   v.Snapshot.Venue,
			Pool:    v.Snapshot.PoolID.String(),
			Mid:     v.Mid.String(),
			TVL:     v.Snapshot.TVL.StringFixed(2),
			FeeRate: v.Reserves.FeeRate.String(),
			TS:      now,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := base.String() + "|" + quote.String()
	s.rows[key] = rows
	if len(venues) >= 2 {
		s.spreads[pair] = amm.SpreadPct(venues[0].Mid, venues[len(venues)-1].Mid).StringFixed(4)
	} else {
		delete(s.spreads, pair)
	}
}

// SetState records the scheduler state.
func (s *Store) SetState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// RecordCycle stores the last cycle outcome. r is nil when the cycle found
// nothing to act on.
func (s *Store) RecordCycle(id, outcome string, r *types.CycleRecord) {
	c := &Cycle{ID: id, Outcome: outcome, TS: time.Now().UnixMilli()}
	if r != nil {
		c = fromRecord(*r)
		c.ID = id
	}
	s.mu.Lock()
	s.last = c
	s.mu.Unlock()
}

// List returns every venue row sorted by pair, then mid ascending.
func (s *Store) List() []Row {
	s.mu.RLock()
	out := make([]Row, 0, 16)
	for _, rows := range s.rows {
		out = append(out, rows...)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pair == out[j].Pair {
			return out[i].Pool < out[j].Pool
		}
		return out[i].Pair < out[j].Pair
	})
	return out
}

// Snapshot assembles the current Status. A failing history or profit source
// only drops its own section.
func (s *Store) Snapshot(ctx context.Context) Status {
	st := Status{Venues: s.List()}

	s.mu.RLock()
	st.State = s.state
	st.Spreads = make(map[string]string, len(s.spreads))
	for k, v := range s.spreads {
		st.Spreads[k] = v
	}
	if s.last != nil {
		last := *s.last
		st.Last = &last
	}
	s.mu.RUnlock()

	if s.profit != nil {
		if p, err := s.profit.RealizedProfit(ctx); err != nil {
			s.log.Warn("dash: realized profit unavailable", zap.Error(err))
		} else {
			st.RealizedProfit = p.String()
		}
	}
	if s.history == nil {
		return st
	}
	recs, err := s.history.Recent(ctx, historySize)
	if err != nil {
		s.log.Warn("dash: history unavailable", zap.Error(err))
		return st
	}
	st.History = make([]Cycle, 0, len(recs))
	for _, r := range recs {
		st.History = append(st.History, *fromRecord(r))
	}
	return st
}

// Handler serves Snapshot as JSON.
func (s *Store) Handler() http.Handler {
	return withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := sonnet.Marshal(s.Snapshot(r.Context()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func fromRecord(r types.CycleRecord) *Cycle {
	return &Cycle{
		ID:        r.ID,
		Outcome:   r.Outcome,
		Path:      r.Path,
		Profit:    r.Profit.String(),
		Signature: r.Signature,
		Error:     r.Error,
		TS:        r.Ts.UnixMilli(),
	}
}

func label(m types.Mint) string {
	if m.Symbol != "" {
		return m.Symbol
	}
	return shortKey(m.Address)
}

func shortKey(k solana.PublicKey) string {
	s := k.String()
	if len(s) > 6 {
		return s[:6]
	}
	return s
}
