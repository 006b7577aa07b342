package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/bot"
	"github.com/you/solana-arb/internal/chain"
	"github.com/you/solana-arb/internal/config"
	"github.com/you/solana-arb/internal/connectors/redisfeed"
	"github.com/you/solana-arb/internal/dash"
	"github.com/you/solana-arb/internal/detector"
	"github.com/you/solana-arb/internal/dex/jupiter"
	"github.com/you/solana-arb/internal/dex/raydium"
	"github.com/you/solana-arb/internal/discovery"
	"github.com/you/solana-arb/internal/execution"
	"github.com/you/solana-arb/internal/marketdata"
	"github.com/you/solana-arb/internal/metrics"
	"github.com/you/solana-arb/internal/risk"
	"github.com/you/solana-arb/internal/storage"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type flags struct {
	configPath string
	dryRun     bool
	once       bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "./config.yaml", "path to config")
	flag.BoolVar(&f.dryRun, "dry-run", false, "evaluate and assemble but never submit")
	flag.BoolVar(&f.once, "once", false, "run a single cycle and exit")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if f.dryRun {
		cfg.Execution.DryRun = true
	}

	logger, err := bot.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	anchor, err := solana.PublicKeyFromBase58(cfg.Anchor.Mint)
	if err != nil {
		logger.Fatal("anchor.mint", zap.Error(err))
	}

	rpcClient := chain.New(cfg.Chain.RPCHTTP, cfg.Chain.Commitment)
	hctx, hcancel := context.WithTimeout(ctx, 10*time.Second)
	err = rpcClient.Health(hctx)
	hcancel()
	if err != nil {
		logger.Fatal("rpc endpoint unreachable", zap.String("rpc", cfg.Chain.RPCHTTP), zap.Error(err))
	}

	signer := loadSigner(cfg, logger)

	// optional stores
	var (
		pub     *redisfeed.Publisher
		cons    *redisfeed.Consumer
		locker  *redisfeed.Locker
		journal *storage.Journal
	)
	if rdb := redisfeed.NewClient(cfg.Redis); rdb != nil {
		pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pctx).Err()
		pcancel()
		if err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
		pub = redisfeed.NewPublisher(rdb, cfg.Redis.Stream, cfg.Redis.RecentKey)
		cons = redisfeed.NewConsumer(rdb, cfg.Redis.Stream)
		locker = redisfeed.NewLocker(rdb)
	}
	if cfg.Journal.Path != "" {
		journal, err = storage.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("open journal", zap.String("path", cfg.Journal.Path), zap.Error(err))
		}
		defer journal.Close()
	}

	var history dash.HistorySource
	switch {
	case journal != nil:
		history = journal
	case cons != nil:
		history = cons
	}
	board := dash.NewStore(history, logger)
	if journal != nil {
		board.WithProfit(journal)
	}

	dir := raydium.New(cfg.Venues.DirectoryURL, cfg.Venues.Enabled, cfg.Venues.MaxPages, cfg.HTTPTimeout(), logger)
	scanner := marketdata.NewScanner(dir, marketdata.Floors{
		MinTVL:   cfg.Venues.MinTVL,
		MinBase:  cfg.Venues.MinBaseReserve,
		MinQuote: cfg.Venues.MinQuoteReserve,
	}, anchor, logger).WithObserver(board)

	var (
		cache discovery.MintCache
		sink  discovery.MintSink
	)
	if cons != nil {
		cache, sink = cons, pub
	}
	disc := discovery.NewService(scanner, anchor, cache, sink, logger)

	notional := resolveNotional(ctx, cfg, disc, logger)
	riskEng := risk.NewEngine(cfg)
	if err := riskEng.CheckNotional(notional); err != nil {
		logger.Fatal("notional", zap.Error(err))
	}

	var strategy detector.Strategy
	switch cfg.Trade.Strategy {
	case types.StrategyTriangular:
		mints, err := disc.Candidates(ctx, cfg.Trade.Candidates)
		if err != nil {
			logger.Fatal("triangular candidates", zap.Error(err))
		}
		keys := make([]solana.PublicKey, 0, len(mints))
		for _, m := range mints {
			keys = append(keys, m.Address)
		}
		strategy = detector.NewTriangular(scanner, riskEng, anchor, keys, logger)
	default:
		token, err := disc.Token(ctx, cfg.Trade.Token)
		if err != nil {
			logger.Fatal("trade token", zap.String("token", cfg.Trade.Token), zap.Error(err))
		}
		strategy = detector.NewTwoLeg(scanner, riskEng, anchor, token.Address, logger)
	}

	quoter := jupiter.New(cfg.Venues.QuoteURL, cfg.Venues.QuoteAPIKey, cfg.HTTPTimeout(), logger)
	asm := execution.NewAssembler(execution.AssemblerConfig{
		ComputeUnitLimit:    cfg.Execution.ComputeUnitLimit,
		ComputeUnitPrice:    cfg.PriorityFee(),
		SlippageBps:         cfg.Slippage(),
		MaxTxBytes:          cfg.Execution.MaxTxBytes,
		RequireLookupTables: cfg.Execution.RequireLookupTables,
	}, quoter, rpcClient, signer, logger)
	sub := execution.NewSubmitter(rpcClient, execution.SubmitterConfig{
		Commitment:    rpc.CommitmentType(cfg.Chain.Commitment),
		Poll:          cfg.ConfirmPoll(),
		Timeout:       cfg.ConfirmTimeout(),
		SkipPreflight: cfg.Execution.SkipPreflight,
		MaxRetries:    cfg.Execution.MaxRetries,
	}, logger)
	var lock execution.WalletLock
	if locker != nil {
		lock = locker
	}
	exec := execution.NewExecutor(rpcClient, asm, sub, lock, cfg.LockTTL(), cfg.Execution.DryRun, logger)

	deps := bot.Deps{Strategy: strategy, Executor: exec, Risk: riskEng, Board: board}
	if journal != nil {
		deps.Journal = journal
	}
	if pub != nil {
		deps.Feed = pub
	}
	sched := bot.NewScheduler(deps, notional, cfg.PollInterval(), cfg.Execution.DryRun, logger)

	if cfg.Execution.DryRun {
		logger.Warn("DRY-RUN: transactions are assembled and signed but never sent")
	}
	logger.Info("arb-bot starting",
		zap.String("strategy", strategy.Name()),
		zap.String("anchor", anchor.String()),
		zap.String("wallet", signer.PublicKey().String()),
		zap.String("commitment", cfg.Chain.Commitment),
	)

	if f.once {
		sched.Tick(ctx)
		sched.Wait()
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		metrics.Serve(gctx, cfg.Metrics.ListenAddr, nil, board.Handler(), logger)
		<-gctx.Done()
		return nil
	})
	g.Go(func() error { return sched.Run(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error("arb-bot stopped with error", zap.Error(err))
		return
	}
	logger.Info("arb-bot finished")
}

func loadSigner(cfg *config.Config, log *zap.Logger) execution.Signer {
	if cfg.Chain.WalletPK == "" && cfg.Chain.WalletKeyfile == "" {
		// Validate only lets this through in dry run
		w := solana.NewWallet()
		log.Warn("no wallet configured, signing with an ephemeral key", zap.String("wallet", w.PublicKey().String()))
		return execution.NewKeySigner(w.PrivateKey)
	}
	s, err := execution.LoadSigner(cfg.Chain.WalletPK, cfg.Chain.WalletKeyfile)
	if err != nil {
		log.Fatal("wallet credential", zap.Error(err))
	}
	return s
}

func resolveNotional(ctx context.Context, cfg *config.Config, disc *discovery.Service, log *zap.Logger) decimal.Decimal {
	var asset solana.PublicKey
	if cfg.Trade.NotionalAsset != "" {
		pk, err := solana.PublicKeyFromBase58(cfg.Trade.NotionalAsset)
		if err != nil {
			log.Fatal("trade.notional_asset", zap.Error(err))
		}
		asset = pk
	}
	n, err := disc.AnchorNotional(ctx, cfg.Trade.Notional, asset)
	if err != nil {
		log.Fatal("notional conversion", zap.Error(err))
	}
	return n
}
