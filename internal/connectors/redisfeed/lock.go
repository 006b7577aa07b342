package redisfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/you/solana-arb/internal/types"
)

// unlockLua deletes the key only while it still holds our token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker guards a wallet so two engine processes never submit from it at once.
type Locker struct {
	rdb    *redis.Client
	unlock *redis.Script
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, unlock: redis.NewScript(unlockLua)}
}

func walletKey(wallet string) string { return "lock:wallet:" + wallet }

// Acquire takes the wallet lock for ttl. types.ErrWalletBusy means someone
// else holds it.
func (l *Locker) Acquire(ctx context.Context, wallet string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.New().String()
	key := walletKey(wallet)

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: lock wallet %s: %w", wallet, err)
	}
	if !ok {
		return nil, types.ErrWalletBusy
	}

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		return l.unlock.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
