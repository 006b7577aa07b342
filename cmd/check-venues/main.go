package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/amm"
	"github.com/you/solana-arb/internal/config"
	"github.com/you/solana-arb/internal/dex/raydium"
	"github.com/you/solana-arb/internal/marketdata"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	token := flag.String("token", "", "token mint (defaults to trade.token)")
	threshold := flag.Float64("threshold", 0.5, "spread percent worth flagging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	base, anchor, err := pairMints(cfg, *token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := raydium.New(cfg.Venues.DirectoryURL, cfg.Venues.Enabled, cfg.Venues.MaxPages, cfg.HTTPTimeout(), zap.NewNop())
	scanner := marketdata.NewScanner(dir, marketdata.Floors{
		MinTVL:   cfg.Venues.MinTVL,
		MinBase:  cfg.Venues.MinBaseReserve,
		MinQuote: cfg.Venues.MinQuoteReserve,
	}, anchor, zap.NewNop())

	venues, err := scanner.Scan(ctx, base, anchor, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", err)
		os.Exit(1)
	}
	report(os.Stdout, venues, decimal.NewFromFloat(*threshold))
}

// pairMints resolves the scanned token, defaulting to trade.token, and the
// anchor mint.
func pairMints(cfg *config.Config, token string) (base, anchor solana.PublicKey, err error) {
	if token == "" {
		token = cfg.Trade.Token
	}
	base, err = solana.PublicKeyFromBase58(token)
	if err != nil {
		return base, anchor, fmt.Errorf("token %q: %w", token, err)
	}
	anchor, err = solana.PublicKeyFromBase58(cfg.Anchor.Mint)
	if err != nil {
		return base, anchor, fmt.Errorf("anchor.mint %q: %w", cfg.Anchor.Mint, err)
	}
	return base, anchor, nil
}

func report(w io.Writer, venues []types.PricedVenue, threshold decimal.Decimal) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VENUE\tPOOL\tMID\tTVL\tFEE")
	for _, v := range venues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.Snapshot.Venue, v.Snapshot.PoolID, v.Mid.StringFixed(8),
			v.Snapshot.TVL.StringFixed(0), v.Reserves.FeeRate.String())
	}
	_ = tw.Flush()

	if len(venues) < 2 {
		fmt.Fprintln(w, "\nonly one venue qualifies; no spread")
		return
	}
	lo, hi := venues[0], venues[len(venues)-1]
	spread := amm.SpreadPct(lo.Mid, hi.Mid)
	fmt.Fprintf(w, "\nspread %s%% (buy %s, sell %s)", spread.StringFixed(3), lo.Snapshot.Venue, hi.Snapshot.Venue)
	if spread.GreaterThanOrEqual(threshold) {
		fmt.Fprint(w, "  ARB")
	}
	fmt.Fprintln(w)
}
