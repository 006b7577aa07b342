package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
)

// ResolveLookupTables fetches every table in one getMultipleAccounts call.
// Tables that are missing or fail to decode are absent from the result; the
// caller decides whether that is fatal.
func (c *Client) ResolveLookupTables(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	res, err := c.rpc.GetMultipleAccounts(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("getMultipleAccounts: %w", err)
	}
	if res == nil {
		return out, nil
	}
	for i, acct := range res.Value {
		if i >= len(keys) || acct == nil || acct.Data == nil {
			continue
		}
		state, err := addresslookuptable.DecodeAddressLookupTableState(acct.Data.GetBinary())
		if err != nil || len(state.Addresses) == 0 {
			continue
		}
		out[keys[i]] = state.Addresses
	}
	return out, nil
}
