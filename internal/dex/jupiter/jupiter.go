// Package jupiter obtains per-leg swap instructions from the Jupiter v6 API,
// pinned to a single venue and, when the request names one, a single pool so
// the executed route matches the simulated one.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sugawarayuuta/sonnet"
	"github.com/you/solana-arb/internal/dex/core"
	"github.com/you/solana-arb/internal/types"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type quoteResp struct {
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	RoutePlan            []routeStep `json:"routePlan"`
}

type routeStep struct {
	SwapInfo struct {
		AmmKey string `json:"ammKey"`
		Label  string `json:"label"`
	} `json:"swapInfo"`
}

// through reports whether any hop of the route trades on pool.
func (q *quoteResp) through(pool solana.PublicKey) bool {
	for _, s := range q.RoutePlan {
		if s.SwapInfo.AmmKey == pool.String() {
			return true
		}
	}
	return false
}

type accountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type instruction struct {
	ProgramID string        `json:"programId"`
	Accounts  []accountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

type swapInstructionsReq struct {
	QuoteResponse     json.RawMessage `json:"quoteResponse"`
	UserPublicKey     string          `json:"userPublicKey"`
	WrapAndUnwrapSol  bool            `json:"wrapAndUnwrapSol"`
	UseSharedAccounts bool            `json:"useSharedAccounts"`
}

type swapInstructionsResp struct {
	ComputeBudgetInstructions   []instruction `json:"computeBudgetInstructions"`
	SetupInstructions           []instruction `json:"setupInstructions"`
	SwapInstruction             *instruction  `json:"swapInstruction"`
	CleanupInstruction          *instruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string      `json:"addressLookupTableAddresses"`
	Error                       string        `json:"error"`
}

// ---------- core.SwapQuoter ----------

// SwapPlan quotes one leg on the requested venue and returns its setup, swap
// and cleanup instructions in order. The venue's own compute-budget
// instructions are dropped; the assembler sets the budget once per transaction.
func (c *Client) SwapPlan(ctx context.Context, req core.SwapRequest) (*core.SwapPlan, error) {
	venue := core.Get(req.Venue)
	if venue == nil {
		return nil, fmt.Errorf("jupiter: unknown venue %q", req.Venue)
	}
	if req.AmountIn == 0 {
		return nil, fmt.Errorf("jupiter: zero amount for %s", req.Venue)
	}

	rawQuote, err := c.quote(ctx, venue, req)
	if err != nil {
		return nil, err
	}
	var q quoteResp
	if err := sonnet.Unmarshal(rawQuote, &q); err != nil {
		return nil, fmt.Errorf("jupiter quote decode: %w", err)
	}
	outAmt, err := strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote outAmount %q: %w", q.OutAmount, err)
	}
	threshold, err := strconv.ParseUint(q.OtherAmountThreshold, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote threshold %q: %w", q.OtherAmountThreshold, err)
	}
	if !req.Pool.IsZero() && !q.through(req.Pool) {
		return nil, fmt.Errorf("jupiter: %w: %s not in route", types.ErrRouteMismatch, req.Pool)
	}
	if threshold < req.MinOut {
		return nil, fmt.Errorf("jupiter: %w: threshold %d < min out %d", types.ErrQuoteBelowBound, threshold, req.MinOut)
	}

	si, err := c.swapInstructions(ctx, rawQuote, req.User)
	if err != nil {
		return nil, err
	}
	if si.SwapInstruction == nil {
		return nil, fmt.Errorf("jupiter: no swap instruction for %s", req.Venue)
	}

	plan := &core.SwapPlan{AmountOut: outAmt, Threshold: threshold}
	ordered := append([]instruction{}, si.SetupInstructions...)
	ordered = append(ordered, *si.SwapInstruction)
	if si.CleanupInstruction != nil {
		ordered = append(ordered, *si.CleanupInstruction)
	}
	for i := range ordered {
		ix, err := decodeInstruction(&ordered[i])
		if err != nil {
			return nil, err
		}
		plan.Instructions = append(plan.Instructions, ix)
	}
	for _, a := range si.AddressLookupTableAddresses {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("jupiter lookup table %q: %w", a, err)
		}
		plan.LookupTables = append(plan.LookupTables, pk)
	}
	c.log.Debug("jupiter: swap plan",
		zap.String("venue", string(req.Venue)),
		zap.Uint64("in", req.AmountIn),
		zap.Uint64("out", outAmt),
		zap.Uint64("threshold", threshold),
		zap.Int("ixs", len(plan.Instructions)),
		zap.Int("alts", len(plan.LookupTables)),
	)
	return plan, nil
}

func (c *Client) quote(ctx context.Context, venue *core.Venue, req core.SwapRequest) ([]byte, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.AmountIn, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	q.Set("swapMode", "ExactIn")
	q.Set("onlyDirectRoutes", "true")
	q.Set("dexes", venue.DexLabel)

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(hreq, "quote")
}

func (c *Client) swapInstructions(ctx context.Context, rawQuote []byte, user solana.PublicKey) (*swapInstructionsResp, error) {
	body, err := sonnet.Marshal(swapInstructionsReq{
		QuoteResponse: rawQuote,
		UserPublicKey: user.String(),
	})
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap-instructions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	raw, err := c.do(hreq, "swap-instructions")
	if err != nil {
		return nil, err
	}
	var si swapInstructionsResp
	if err := sonnet.Unmarshal(raw, &si); err != nil {
		return nil, fmt.Errorf("jupiter swap-instructions decode: %w", err)
	}
	if si.Error != "" {
		return nil, fmt.Errorf("jupiter swap-instructions: %s", si.Error)
	}
	return &si, nil
}

func (c *Client) do(req *http.Request, what string) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter %s: %w", what, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter %s %d: %s", what, resp.StatusCode, string(body))
	}
	return body, nil
}

func decodeInstruction(in *instruction) (solana.Instruction, error) {
	program, err := solana.PublicKeyFromBase58(in.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("jupiter instruction program %q: %w", in.ProgramID, err)
	}
	data, err := base64.StdEncoding.DecodeString(in.Data)
	if err != nil {
		return nil, fmt.Errorf("jupiter instruction data: %w", err)
	}
	metas := make(solana.AccountMetaSlice, 0, len(in.Accounts))
	for _, a := range in.Accounts {
		pk, err := solana.PublicKeyFromBase58(a.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("jupiter account %q: %w", a.Pubkey, err)
		}
		metas = append(metas, solana.NewAccountMeta(pk, a.IsWritable, a.IsSigner))
	}
	return solana.NewInstruction(program, metas, data), nil
}
