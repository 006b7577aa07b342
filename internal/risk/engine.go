package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/config"
)

// Engine holds the absolute profit floor and the notional cap.
type Engine struct {
	minProfit   decimal.Decimal
	maxNotional decimal.Decimal
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{minProfit: cfg.Risk.MinProfit, maxNotional: cfg.Risk.MaxNotional}
}

// Actionable is profit > min_profit, in anchor units.
func (e *Engine) Actionable(profit decimal.Decimal) bool {
	return profit.GreaterThan(e.minProfit)
}

// CheckNotional rejects a trade size above the configured cap. A zero cap
// means no cap.
func (e *Engine) CheckNotional(n decimal.Decimal) error {
	if !n.IsPositive() {
		return fmt.Errorf("risk: notional %s must be positive", n)
	}
	if e.maxNotional.IsPositive() && n.GreaterThan(e.maxNotional) {
		return fmt.Errorf("risk: notional %s above max %s", n, e.maxNotional)
	}
	return nil
}
