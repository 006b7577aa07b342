package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/solana-arb/internal/dex/core"
	"github.com/you/solana-arb/internal/types"
)

const sampleYAML = `
chain:
  rpc_http: https://rpc.example.org
  commitment: finalized
trade:
  strategy: triangular
  notional: 25.5
  candidates:
    - So11111111111111111111111111111111111111112
    - 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr
venues:
  min_tvl: "5000"
  enabled: [raydium_cpmm]
risk:
  min_profit: 0.01
  slippage_bps: 30
timings:
  poll_interval_ms: 2500
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_ParsesAndDefaults(t *testing.T) {
	t.Setenv("ARB_WALLET_PK", "secret-from-env")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.Chain.RPCHTTP)
	assert.Equal(t, "finalized", cfg.Chain.Commitment)
	assert.Equal(t, "secret-from-env", cfg.Chain.WalletPK)
	assert.Equal(t, types.StrategyTriangular, cfg.Trade.Strategy)
	assert.True(t, cfg.Trade.Notional.Equal(decimal.RequireFromString("25.5")))
	assert.True(t, cfg.Venues.MinTVL.Equal(decimal.NewFromInt(5000)))
	assert.True(t, cfg.Risk.MinProfit.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, []core.VenueID{core.VenueRaydiumCPMM}, cfg.Venues.Enabled)
	assert.Equal(t, 2500*time.Millisecond, cfg.PollInterval())

	// defaults
	assert.Equal(t, DefaultAnchorMint, cfg.Anchor.Mint)
	assert.Equal(t, int32(6), cfg.Anchor.Decimals)
	assert.Equal(t, DefaultMaxTxBytes, cfg.Execution.MaxTxBytes)
	assert.Equal(t, uint32(400_000), cfg.Execution.ComputeUnitLimit)
	assert.Equal(t, DefaultQuoteURL, cfg.Venues.QuoteURL)
	assert.Equal(t, "arb:stream", cfg.Redis.Stream)
	assert.Equal(t, 30, cfg.Slippage())
	assert.Equal(t, uint64(DefaultComputeUnitPrice), cfg.PriorityFee())

	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitZeroSurvivesDefaults(t *testing.T) {
	t.Setenv("ARB_WALLET_PK", "secret-from-env")
	body := sampleYAML + `execution:
  compute_unit_price: 0
`
	body = strings.Replace(body, "slippage_bps: 30", "slippage_bps: 0", 1)
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Slippage())
	assert.Equal(t, uint64(0), cfg.PriorityFee())
	assert.NoError(t, cfg.Validate())

	unset := &Config{}
	unset.ApplyDefaults()
	assert.Equal(t, DefaultSlippageBps, unset.Slippage())
	assert.Equal(t, uint64(DefaultComputeUnitPrice), unset.PriorityFee())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Chain.Commitment = "soon"
	bps := 10_000
	cfg.Risk.SlippageBps = &bps

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "chain.rpc_http")
	assert.Contains(t, msg, "chain.commitment")
	assert.Contains(t, msg, "trade.token")
	assert.Contains(t, msg, "trade.notional")
	assert.Contains(t, msg, "slippage_bps")
	assert.Contains(t, msg, "wallet credential missing")
}

func TestValidate_DryRunNeedsNoWallet(t *testing.T) {
	cfg := &Config{}
	cfg.Chain.RPCHTTP = "http://localhost:8899"
	cfg.Trade.Token = "So11111111111111111111111111111111111111112"
	cfg.Trade.Notional = decimal.NewFromInt(10)
	cfg.Execution.DryRun = true
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
}
