package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/you/solana-arb/internal/config"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestActionable_StrictlyAboveFloor(t *testing.T) {
	cfg := &config.Config{}
	cfg.Risk.MinProfit = d("0.05")
	e := NewEngine(cfg)

	assert.False(t, e.Actionable(d("0.05")))
	assert.False(t, e.Actionable(d("0.049999")))
	assert.True(t, e.Actionable(d("0.050001")))
	assert.False(t, e.Actionable(d("-1")))
}

func TestActionable_ZeroFloor(t *testing.T) {
	e := NewEngine(&config.Config{})
	assert.False(t, e.Actionable(decimal.Zero))
	assert.True(t, e.Actionable(d("0.000001")))
}

func TestCheckNotional(t *testing.T) {
	cfg := &config.Config{}
	cfg.Risk.MaxNotional = d("100")
	e := NewEngine(cfg)

	assert.NoError(t, e.CheckNotional(d("100")))
	assert.Error(t, e.CheckNotional(d("100.01")))
	assert.Error(t, e.CheckNotional(decimal.Zero))

	assert.NoError(t, NewEngine(&config.Config{}).CheckNotional(d("1e9")))
}
