package redisfeed

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/you/solana-arb/internal/types"
)

const (
	mintMetaNS   = "mint:meta:"
	mintActive   = "mint:active"
	streamMaxLen = 10_000
	recentKeep   = 1_000
)

type Publisher struct {
	rdb    *redis.Client
	stream string
	recent string
}

func NewPublisher(rdb *redis.Client, stream, recent string) *Publisher {
	return &Publisher{rdb: rdb, stream: stream, recent: recent}
}

// PublishCycle appends the record to the stream and indexes it in the recent
// ZSET by timestamp.
func (p *Publisher) PublishCycle(ctx context.Context, r types.CycleRecord) error {
	tsMs := r.Ts.UnixMilli()
	pipe := p.rdb.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":        r.ID,
			"strategy":  r.Strategy,
			"path":      r.Path,
			"initial":   r.Initial.String(),
			"final":     r.Final.String(),
			"profit":    r.Profit.String(),
			"outcome":   r.Outcome,
			"signature": r.Signature,
			"error":     r.Error,
			"ts_ms":     tsMs,
		},
	})
	pipe.ZAdd(ctx, p.recent, redis.Z{Score: float64(tsMs), Member: r.ID})
	pipe.ZRemRangeByRank(ctx, p.recent, 0, -recentKeep-1)
	_, err := pipe.Exec(ctx)
	return err
}

// UpsertMint caches mint metadata resolved at discovery.
func (p *Publisher) UpsertMint(ctx context.Context, m types.Mint, tsMs int64) error {
	addr := m.Address.String()
	if err := p.rdb.HSet(ctx, mintMetaNS+addr, map[string]interface{}{
		"address":  addr,
		"symbol":   m.Symbol,
		"decimals": strconv.Itoa(int(m.Decimals)),
		"ts_ms":    tsMs,
	}).Err(); err != nil {
		return err
	}
	return p.rdb.ZAdd(ctx, mintActive, redis.Z{Score: float64(tsMs), Member: addr}).Err()
}
