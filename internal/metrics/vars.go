package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	VenuesConsidered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_venues_considered",
		Help: "Pools returned by the liquidity directory in the last scan",
	})

	VenuesQualified = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_venues_qualified",
		Help: "Pools that passed the liquidity floors in the last scan",
	})

	DirectoryErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_directory_errors_total",
		Help: "Number of liquidity directory failures",
	})

	DirectoryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_directory_latency_seconds",
		Help:    "Time to list pools for a pair",
		Buckets: prometheus.DefBuckets,
	})

	QuoterErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_quoter_errors_total",
		Help: "Number of swap instruction failures",
	})

	QuoteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_quoter_latency_seconds",
		Help:    "Time to obtain swap instructions for one leg",
		Buckets: prometheus.DefBuckets,
	})

	SpreadPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_spread_pct",
		Help: "Mid price gap between the cheapest and most expensive venue",
	})

	LastProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_last_profit",
		Help: "Simulated profit of the last evaluated loop, in anchor units",
	})

	ConfirmedProfit = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_confirmed_profit_total",
		Help: "Simulated profit of confirmed loops, in anchor units",
	})

	Cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_cycles_total",
		Help: "Evaluation cycles by outcome",
	}, []string{"outcome"})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_cycle_duration_seconds",
		Help:    "Wall time of one evaluate-then-execute cycle",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
	})

	TicksSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_ticks_skipped_total",
		Help: "Timer ticks ignored because a cycle was still running",
	})

	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_submissions_total",
		Help: "Terminal execution results by status",
	}, []string{"status"})

	TxBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_tx_bytes",
		Help:    "Serialized size of assembled transactions",
		Buckets: []float64{400, 600, 800, 1000, 1100, 1232, 1500},
	})
)

func init() {
	prometheus.MustRegister(
		VenuesConsidered,
		VenuesQualified,
		DirectoryErrors,
		DirectoryLatency,
		QuoterErrors,
		QuoteLatency,
		SpreadPct,
		LastProfit,
		ConfirmedProfit,
		Cycles,
		CycleDuration,
		TicksSkipped,
		Submissions,
		TxBytes,
	)
}
