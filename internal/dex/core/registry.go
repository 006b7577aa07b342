package core

import "github.com/gagliardetto/solana-go"

var registry = map[VenueID]*Venue{}

func Register(v *Venue)     { registry[v.ID] = v }
func Get(id VenueID) *Venue { return registry[id] }

// ByProgram resolves the venue that owns an AMM program.
func ByProgram(program solana.PublicKey) *Venue {
	for _, v := range registry {
		if v.ProgramID.Equals(program) {
			return v
		}
	}
	return nil
}

func Enabled(ids []VenueID) []*Venue {
	out := make([]*Venue, 0, len(ids))
	for _, id := range ids {
		if v := Get(id); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func init() {
	Register(&Venue{
		ID:        VenueRaydiumAMM,
		ProgramID: solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"),
		DexLabel:  "Raydium",
	})
	Register(&Venue{
		ID:        VenueRaydiumCPMM,
		ProgramID: solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"),
		DexLabel:  "Raydium CP",
	})
	Register(&Venue{
		ID:        VenueRaydiumCLMM,
		ProgramID: solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp26JouHNzVjcZpDQ"),
		DexLabel:  "Raydium CLMM",
	})
}
