// Package storage keeps a local journal of acted-upon opportunities. It is
// an audit trail only; nothing here feeds back into pricing.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/you/solana-arb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CycleRow is the table layout of a types.CycleRecord. Decimals are stored as
// text so no precision is lost.
type CycleRow struct {
	ID        string `gorm:"primaryKey"`
	Strategy  string `gorm:"index"`
	Path      string
	Initial   string
	Final     string
	Profit    string
	Outcome   string `gorm:"index"`
	Signature string
	Error     string
	CreatedAt time.Time `gorm:"index"`
}

func (CycleRow) TableName() string { return "cycles" }

type Journal struct {
	db *gorm.DB
}

// Open creates the database file and its directory if needed. ":memory:" is
// accepted for tests.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one connection: sqlite serializes writers and ":memory:" is per connection
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&CycleRow{}); err != nil {
		return nil, fmt.Errorf("journal migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(ctx context.Context, r types.CycleRecord) error {
	row := CycleRow{
		ID:        r.ID,
		Strategy:  r.Strategy,
		Path:      r.Path,
		Initial:   r.Initial.String(),
		Final:     r.Final.String(),
		Profit:    r.Profit.String(),
		Outcome:   r.Outcome,
		Signature: r.Signature,
		Error:     r.Error,
		CreatedAt: r.Ts,
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

// Recent returns up to n records, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]types.CycleRecord, error) {
	var rows []CycleRow
	if err := j.db.WithContext(ctx).Order("created_at desc").Limit(n).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.CycleRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.CycleRecord{
			ID:        row.ID,
			Strategy:  row.Strategy,
			Path:      row.Path,
			Initial:   parseDec(row.Initial),
			Final:     parseDec(row.Final),
			Profit:    parseDec(row.Profit),
			Outcome:   row.Outcome,
			Signature: row.Signature,
			Error:     row.Error,
			Ts:        row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

// RealizedProfit sums the simulated profit of confirmed submissions.
func (j *Journal) RealizedProfit(ctx context.Context) (decimal.Decimal, error) {
	var profits []string
	err := j.db.WithContext(ctx).Model(&CycleRow{}).
		Where("outcome = ?", string(types.StatusConfirmed)).
		Pluck("profit", &profits).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, p := range profits {
		sum = sum.Add(parseDec(p))
	}
	return sum, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
