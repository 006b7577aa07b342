package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/solana-arb/internal/types"
)

func rec(i int, outcome string, profit string) types.CycleRecord {
	return types.CycleRecord{
		ID:       fmt.Sprintf("r%d", i),
		Strategy: types.StrategyTriangular,
		Path:     "USDC->SOL->JUP->USDC",
		Initial:  decimal.NewFromInt(100),
		Final:    decimal.NewFromInt(100).Add(decimal.RequireFromString(profit)),
		Profit:   decimal.RequireFromString(profit),
		Outcome:  outcome,
		Ts:       time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, rec(1, "confirmed", "0.123456789012345678")))
	require.NoError(t, j.Record(ctx, rec(2, "expired", "0.5")))
	require.NoError(t, j.Record(ctx, rec(3, types.OutcomeDryRun, "0.7")))

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r3", got[0].ID)
	assert.Equal(t, "r2", got[1].ID)
	assert.Equal(t, types.StrategyTriangular, got[0].Strategy)
	assert.Equal(t, rec(3, "", "0").Ts, got[0].Ts)

	all, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "0.123456789012345678", all[2].Profit.String())
}

func TestJournal_RealizedProfitCountsConfirmedOnly(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, rec(1, "confirmed", "0.25")))
	require.NoError(t, j.Record(ctx, rec(2, "confirmed", "0.5")))
	require.NoError(t, j.Record(ctx, rec(3, "rejected", "9")))

	sum, err := j.RealizedProfit(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("0.75")), "sum %s", sum)
}

func TestJournal_DuplicateIDFails(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, rec(1, "confirmed", "1")))
	assert.Error(t, j.Record(ctx, rec(1, "confirmed", "1")))
}
