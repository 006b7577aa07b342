package redisfeed

import (
	"github.com/redis/go-redis/v9"
	"github.com/you/solana-arb/internal/config"
)

// NewClient returns nil when no address is configured; callers treat a nil
// client as "feed disabled".
func NewClient(cfg config.RedisCfg) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
}
