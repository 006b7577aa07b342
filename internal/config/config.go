package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/dex/core"
	"github.com/you/solana-arb/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAnchorMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" // USDC
	DefaultDirectoryURL = "https://api-v3.raydium.io"
	DefaultQuoteURL     = "https://quote-api.jup.ag/v6"
	DefaultMaxTxBytes   = 1232

	DefaultSlippageBps      = 50
	DefaultComputeUnitPrice = 1
)

type ChainCfg struct {
	RPCHTTP       string `yaml:"rpc_http"`
	Commitment    string `yaml:"commitment"`
	WalletKeyfile string `yaml:"wallet_keyfile"`
	WalletPK      string `yaml:"-"` // ARB_WALLET_PK only
}

type AnchorCfg struct {
	Mint     string `yaml:"mint"`
	Symbol   string `yaml:"symbol"`
	Decimals int32  `yaml:"decimals"`
}

type TradeCfg struct {
	Strategy      string          `yaml:"strategy"`
	Token         string          `yaml:"token"`
	Notional      decimal.Decimal `yaml:"notional"`
	NotionalAsset string          `yaml:"notional_asset"`
	Candidates    []string        `yaml:"candidates"`
}

type VenuesCfg struct {
	DirectoryURL    string          `yaml:"directory_url"`
	QuoteURL        string          `yaml:"quote_url"`
	QuoteAPIKey     string          `yaml:"-"` // ARB_QUOTE_API_KEY only
	Enabled         []core.VenueID  `yaml:"enabled"`
	MinTVL          decimal.Decimal `yaml:"min_tvl"`
	MinBaseReserve  decimal.Decimal `yaml:"min_base_reserve"`
	MinQuoteReserve decimal.Decimal `yaml:"min_quote_reserve"`
	MaxPages        int             `yaml:"max_pages"`
	HTTPTimeoutMs   int             `yaml:"http_timeout_ms"`
}

type RiskCfg struct {
	MinProfit   decimal.Decimal `yaml:"min_profit"`
	MaxNotional decimal.Decimal `yaml:"max_notional"`
	SlippageBps *int            `yaml:"slippage_bps"` // nil means default; 0 is allowed
}

type ExecutionCfg struct {
	DryRun              bool    `yaml:"dry_run"`
	ComputeUnitLimit    uint32  `yaml:"compute_unit_limit"`
	ComputeUnitPrice    *uint64 `yaml:"compute_unit_price"` // micro-lamports; nil means default
	MaxTxBytes          int     `yaml:"max_tx_bytes"`
	RequireLookupTables bool    `yaml:"require_lookup_tables"`
	SkipPreflight       bool    `yaml:"skip_preflight"`
	MaxRetries          uint    `yaml:"max_retries"`
	ConfirmPollMs       int     `yaml:"confirm_poll_ms"`
	ConfirmTimeoutMs    int     `yaml:"confirm_timeout_ms"`
}

type TimingsCfg struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RedisCfg struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	Username  string `yaml:"username"`
	Password  string `yaml:"-"` // ARB_REDIS_PASSWORD only
	Stream    string `yaml:"stream"`
	RecentKey string `yaml:"recent_key"`
	LockTTLMs int    `yaml:"lock_ttl_ms"`
}

type JournalCfg struct {
	Path string `yaml:"path"`
}

type LoggingCfg struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type Config struct {
	Chain     ChainCfg     `yaml:"chain"`
	Anchor    AnchorCfg    `yaml:"anchor"`
	Trade     TradeCfg     `yaml:"trade"`
	Venues    VenuesCfg    `yaml:"venues"`
	Risk      RiskCfg      `yaml:"risk"`
	Execution ExecutionCfg `yaml:"execution"`
	Timings   TimingsCfg   `yaml:"timings"`
	Metrics   MetricsCfg   `yaml:"metrics"`
	Redis     RedisCfg     `yaml:"redis"`
	Journal   JournalCfg   `yaml:"journal"`
	Logging   LoggingCfg   `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnvOverrides(&c)
	c.ApplyDefaults()
	return &c, nil
}

func (c *Config) ApplyDefaults() {
	if c.Chain.Commitment == "" {
		c.Chain.Commitment = "confirmed"
	}
	if c.Anchor.Mint == "" {
		c.Anchor.Mint = DefaultAnchorMint
		if c.Anchor.Symbol == "" {
			c.Anchor.Symbol = "USDC"
		}
		if c.Anchor.Decimals == 0 {
			c.Anchor.Decimals = 6
		}
	}
	if c.Trade.Strategy == "" {
		c.Trade.Strategy = types.StrategyTwoLeg
	}
	if c.Venues.DirectoryURL == "" {
		c.Venues.DirectoryURL = DefaultDirectoryURL
	}
	if c.Venues.QuoteURL == "" {
		c.Venues.QuoteURL = DefaultQuoteURL
	}
	if len(c.Venues.Enabled) == 0 {
		// CLMM pools are not constant-product; opt in explicitly.
		c.Venues.Enabled = []core.VenueID{core.VenueRaydiumAMM, core.VenueRaydiumCPMM}
	}
	if c.Venues.MinTVL.IsZero() {
		c.Venues.MinTVL = decimal.NewFromInt(1_000)
	}
	if c.Venues.MaxPages == 0 {
		c.Venues.MaxPages = 3
	}
	if c.Venues.HTTPTimeoutMs == 0 {
		c.Venues.HTTPTimeoutMs = 5_000
	}
	if c.Risk.SlippageBps == nil {
		v := DefaultSlippageBps
		c.Risk.SlippageBps = &v
	}
	if c.Execution.ComputeUnitLimit == 0 {
		c.Execution.ComputeUnitLimit = 400_000
	}
	if c.Execution.ComputeUnitPrice == nil {
		v := uint64(DefaultComputeUnitPrice)
		c.Execution.ComputeUnitPrice = &v
	}
	if c.Execution.MaxTxBytes == 0 {
		c.Execution.MaxTxBytes = DefaultMaxTxBytes
	}
	if c.Execution.ConfirmPollMs == 0 {
		c.Execution.ConfirmPollMs = 500
	}
	if c.Execution.ConfirmTimeoutMs == 0 {
		c.Execution.ConfirmTimeoutMs = 90_000
	}
	if c.Timings.PollIntervalMs == 0 {
		c.Timings.PollIntervalMs = 5_000
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "arb:stream"
	}
	if c.Redis.RecentKey == "" {
		c.Redis.RecentKey = "arb:recent"
	}
	if c.Redis.LockTTLMs == 0 {
		c.Redis.LockTTLMs = 120_000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations the engine cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Chain.RPCHTTP) == "" {
		errs = append(errs, errors.New("chain.rpc_http is required"))
	}
	switch c.Chain.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("chain.commitment %q: want processed|confirmed|finalized", c.Chain.Commitment))
	}
	switch c.Trade.Strategy {
	case types.StrategyTwoLeg:
		if c.Trade.Token == "" {
			errs = append(errs, errors.New("trade.token is required for two_leg"))
		}
	case types.StrategyTriangular:
		if len(c.Trade.Candidates) < 2 {
			errs = append(errs, errors.New("trade.candidates needs at least two mints for triangular"))
		}
	default:
		errs = append(errs, fmt.Errorf("trade.strategy %q: want two_leg|triangular", c.Trade.Strategy))
	}
	if !c.Trade.Notional.IsPositive() {
		errs = append(errs, errors.New("trade.notional must be positive"))
	}
	if c.Risk.MinProfit.IsNegative() {
		errs = append(errs, errors.New("risk.min_profit must not be negative"))
	}
	if bps := c.Slippage(); bps < 0 || bps >= 10_000 {
		errs = append(errs, fmt.Errorf("risk.slippage_bps %d out of range", bps))
	}
	if c.Execution.MaxTxBytes <= 0 {
		errs = append(errs, errors.New("execution.max_tx_bytes must be positive"))
	}
	if !c.Execution.DryRun && c.Chain.WalletPK == "" && c.Chain.WalletKeyfile == "" {
		errs = append(errs, errors.New("wallet credential missing: set ARB_WALLET_PK or chain.wallet_keyfile"))
	}
	return errors.Join(errs...)
}

// Slippage is risk.slippage_bps, falling back to the default when unset.
func (c *Config) Slippage() int {
	if c.Risk.SlippageBps == nil {
		return DefaultSlippageBps
	}
	return *c.Risk.SlippageBps
}

// PriorityFee is execution.compute_unit_price, falling back to the default
// when unset.
func (c *Config) PriorityFee() uint64 {
	if c.Execution.ComputeUnitPrice == nil {
		return DefaultComputeUnitPrice
	}
	return *c.Execution.ComputeUnitPrice
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timings.PollIntervalMs) * time.Millisecond
}
func (c *Config) ConfirmPoll() time.Duration {
	return time.Duration(c.Execution.ConfirmPollMs) * time.Millisecond
}
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Execution.ConfirmTimeoutMs) * time.Millisecond
}
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLMs) * time.Millisecond
}
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Venues.HTTPTimeoutMs) * time.Millisecond
}

func applyEnvOverrides(c *Config) {
	setStr(&c.Chain.WalletPK, "ARB_WALLET_PK")
	setStr(&c.Chain.WalletKeyfile, "ARB_WALLET_KEYFILE")
	setStr(&c.Chain.RPCHTTP, "ARB_RPC_HTTP")
	setStr(&c.Venues.QuoteAPIKey, "ARB_QUOTE_API_KEY")
	setStr(&c.Redis.Addr, "ARB_REDIS_ADDR")
	setStr(&c.Redis.Password, "ARB_REDIS_PASSWORD")
	setBool(&c.Execution.DryRun, "ARB_DRY_RUN")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
