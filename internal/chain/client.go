// Package chain is the engine's only door to the Solana RPC endpoint.
package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/you/solana-arb/internal/types"
)

// SignatureState is a polled view of one signature.
type SignatureState struct {
	Found      bool
	Commitment rpc.ConfirmationStatusType
	Err        any // on-chain failure, nil on success
}

type IClient interface {
	LatestBlockhash(ctx context.Context) (types.Freshness, error)
	BlockHeight(ctx context.Context) (uint64, error)
	Send(ctx context.Context, tx *solana.Transaction, opts SendOpts) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (SignatureState, error)
	ResolveLookupTables(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
	Health(ctx context.Context) error
}

type SendOpts struct {
	SkipPreflight bool
	MaxRetries    uint
}

type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

func New(endpoint, commitment string) *Client {
	return &Client{rpc: rpc.New(endpoint), commitment: rpc.CommitmentType(commitment)}
}

func (c *Client) LatestBlockhash(ctx context.Context) (types.Freshness, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return types.Freshness{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return types.Freshness{}, fmt.Errorf("getLatestBlockhash: empty result")
	}
	return types.Freshness{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}

func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	h, err := c.rpc.GetBlockHeight(ctx, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("getBlockHeight: %w", err)
	}
	return h, nil
}

// Send submits once. Retries by the node are capped by opts.MaxRetries; the
// engine itself never re-sends.
func (c *Client) Send(ctx context.Context, tx *solana.Transaction, opts SendOpts) (solana.Signature, error) {
	maxRetries := opts.MaxRetries
	return c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: c.commitment,
		MaxRetries:          &maxRetries,
	})
}

func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (SignatureState, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return SignatureState{}, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return SignatureState{}, nil
	}
	st := res.Value[0]
	return SignatureState{Found: true, Commitment: st.ConfirmationStatus, Err: st.Err}, nil
}

func (c *Client) Health(ctx context.Context) error {
	out, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("getHealth: %w", err)
	}
	if out != "ok" {
		return fmt.Errorf("getHealth: %s", out)
	}
	return nil
}

// Reaches reports whether a polled commitment is at or beyond the target.
func Reaches(got rpc.ConfirmationStatusType, target rpc.CommitmentType) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	g, ok := rank[string(got)]
	if !ok {
		return false
	}
	t, ok := rank[string(target)]
	if !ok {
		t = rank["confirmed"]
	}
	return g >= t
}
