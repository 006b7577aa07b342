// Package raydium reads pool listings from the Raydium v3 REST API and turns
// them into validated PoolSnapshots.
package raydium

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"
	"github.com/you/solana-arb/internal/dex/core"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

const pageSize = 100

type Directory struct {
	baseURL  string
	http     *http.Client
	enabled  map[core.VenueID]bool
	maxPages int
	log      *zap.Logger
}

func New(baseURL string, enabled []core.VenueID, maxPages int, timeout time.Duration, log *zap.Logger) *Directory {
	if maxPages <= 0 {
		maxPages = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	on := make(map[core.VenueID]bool, len(enabled))
	for _, v := range core.Enabled(enabled) {
		on[v.ID] = true
	}
	return &Directory{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		enabled:  on,
		maxPages: maxPages,
		log:      log,
	}
}

type mintInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals *int32 `json:"decimals"`
}

type poolInfo struct {
	Type        string           `json:"type"`
	ProgramID   string           `json:"programId"`
	ID          string           `json:"id"`
	MintA       *mintInfo        `json:"mintA"`
	MintB       *mintInfo        `json:"mintB"`
	MintAmountA *decimal.Decimal `json:"mintAmountA"`
	MintAmountB *decimal.Decimal `json:"mintAmountB"`
	FeeRate     *decimal.Decimal `json:"feeRate"`
	TVL         *decimal.Decimal `json:"tvl"`
}

type poolsResp struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    struct {
		Count       int        `json:"count"`
		Data        []poolInfo `json:"data"`
		HasNextPage bool       `json:"hasNextPage"`
	} `json:"data"`
}

// ---------- core.Directory ----------

// PoolsByMints returns every enabled-venue pool holding both mints. Records
// that fail validation are dropped here and never reach the scanner.
func (d *Directory) PoolsByMints(ctx context.Context, mintX, mintY solana.PublicKey) ([]types.PoolSnapshot, error) {
	var out []types.PoolSnapshot
	now := time.Now()
	for page := 1; page <= d.maxPages; page++ {
		resp, err := d.fetchPage(ctx, mintX, mintY, page)
		if err != nil {
			return nil, err
		}
		for i := range resp.Data.Data {
			snap, err := d.toSnapshot(&resp.Data.Data[i], now)
			if err != nil {
				d.log.Debug("raydium: skip pool", zap.String("pool", resp.Data.Data[i].ID), zap.Error(err))
				continue
			}
			if snap == nil {
				continue
			}
			out = append(out, *snap)
		}
		if !resp.Data.HasNextPage {
			break
		}
	}
	return out, nil
}

func (d *Directory) fetchPage(ctx context.Context, mintX, mintY solana.PublicKey, page int) (*poolsResp, error) {
	q := url.Values{}
	q.Set("mint1", mintX.String())
	q.Set("mint2", mintY.String())
	q.Set("poolType", "all")
	q.Set("poolSortField", "default")
	q.Set("sortType", "desc")
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/pools/info/mint?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("raydium pools: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raydium pools %d: %s", resp.StatusCode, string(body))
	}
	var pr poolsResp
	if err := sonnet.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("raydium pools decode: %w", err)
	}
	if !pr.Success {
		return nil, fmt.Errorf("raydium pools: %s", pr.Msg)
	}
	return &pr, nil
}

// toSnapshot validates one record. A nil snapshot with a nil error means the
// pool belongs to a venue that is not enabled.
func (d *Directory) toSnapshot(p *poolInfo, ts time.Time) (*types.PoolSnapshot, error) {
	program, err := solana.PublicKeyFromBase58(p.ProgramID)
	if err != nil {
		return nil, nil
	}
	venue := core.ByProgram(program)
	if venue == nil || !d.enabled[venue.ID] {
		return nil, nil
	}
	id, err := solana.PublicKeyFromBase58(p.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: pool id %q", types.ErrInvalidQuoteInput, p.ID)
	}
	a, err := toMint(p.MintA)
	if err != nil {
		return nil, err
	}
	b, err := toMint(p.MintB)
	if err != nil {
		return nil, err
	}
	if p.MintAmountA == nil || p.MintAmountB == nil || p.FeeRate == nil {
		return nil, fmt.Errorf("%w: missing reserves or fee", types.ErrInvalidQuoteInput)
	}
	tvl := decimal.Zero
	if p.TVL != nil {
		tvl = *p.TVL
	}
	return &types.PoolSnapshot{
		Venue:    string(venue.ID),
		PoolID:   id,
		MintA:    a,
		MintB:    b,
		ReserveA: *p.MintAmountA,
		ReserveB: *p.MintAmountB,
		FeeRate:  *p.FeeRate,
		TVL:      tvl,
		Ts:       ts,
	}, nil
}

var errNoMint = errors.New("missing mint")

func toMint(m *mintInfo) (types.Mint, error) {
	if m == nil || m.Decimals == nil {
		return types.Mint{}, fmt.Errorf("%w: %v", types.ErrInvalidQuoteInput, errNoMint)
	}
	addr, err := solana.PublicKeyFromBase58(m.Address)
	if err != nil {
		return types.Mint{}, fmt.Errorf("%w: mint %q", types.ErrInvalidQuoteInput, m.Address)
	}
	if *m.Decimals < 0 {
		return types.Mint{}, fmt.Errorf("%w: mint %s decimals %d", types.ErrInvalidQuoteInput, m.Address, *m.Decimals)
	}
	return types.Mint{Address: addr, Symbol: m.Symbol, Decimals: *m.Decimals}, nil
}
