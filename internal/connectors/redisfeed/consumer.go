package redisfeed

import (
	"context"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/types"
)

type Consumer struct {
	rdb    *redis.Client
	stream string
}

func NewConsumer(rdb *redis.Client, stream string) *Consumer {
	return &Consumer{rdb: rdb, stream: stream}
}

// Recent returns up to n cycle records, newest first.
func (c *Consumer) Recent(ctx context.Context, n int) ([]types.CycleRecord, error) {
	msgs, err := c.rdb.XRevRangeN(ctx, c.stream, "+", "-", int64(n)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]types.CycleRecord, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toRecord(m.Values))
	}
	return out, nil
}

// ReadMint returns cached mint metadata; redis.Nil when absent.
func (c *Consumer) ReadMint(ctx context.Context, addr solana.PublicKey) (types.Mint, error) {
	m, err := c.rdb.HGetAll(ctx, mintMetaNS+addr.String()).Result()
	if err != nil {
		return types.Mint{}, err
	}
	if len(m) == 0 {
		return types.Mint{}, redis.Nil
	}
	dec, err := strconv.Atoi(m["decimals"])
	if err != nil {
		return types.Mint{}, err
	}
	return types.Mint{Address: addr, Symbol: m["symbol"], Decimals: int32(dec)}, nil
}

func toRecord(v map[string]interface{}) types.CycleRecord {
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}
	dec := func(k string) decimal.Decimal {
		d, _ := decimal.NewFromString(str(k))
		return d
	}
	r := types.CycleRecord{
		ID:        str("id"),
		Strategy:  str("strategy"),
		Path:      str("path"),
		Initial:   dec("initial"),
		Final:     dec("final"),
		Profit:    dec("profit"),
		Outcome:   str("outcome"),
		Signature: str("signature"),
		Error:     str("error"),
	}
	if ms, err := strconv.ParseInt(str("ts_ms"), 10, 64); err == nil {
		r.Ts = time.UnixMilli(ms).UTC()
	}
	return r
}
