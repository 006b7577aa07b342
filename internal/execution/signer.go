package execution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Signer holds the fee payer credential. Only the assembler calls it, and only
// after the size check has passed.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction, coSigners []solana.PrivateKey) error
}

type KeySigner struct {
	key solana.PrivateKey
}

// LoadSigner reads the payer key from a base58 secret or, failing that, a
// solana-keygen JSON file.
func LoadSigner(base58Key, keyfile string) (*KeySigner, error) {
	switch {
	case strings.TrimSpace(base58Key) != "":
		k, err := solana.PrivateKeyFromBase58(strings.TrimSpace(base58Key))
		if err != nil {
			return nil, fmt.Errorf("wallet key: %w", err)
		}
		return &KeySigner{key: k}, nil
	case keyfile != "":
		k, err := solana.PrivateKeyFromSolanaKeygenFile(keyfile)
		if err != nil {
			return nil, fmt.Errorf("wallet keyfile: %w", err)
		}
		return &KeySigner{key: k}, nil
	}
	return nil, errors.New("wallet credential missing")
}

func NewKeySigner(k solana.PrivateKey) *KeySigner { return &KeySigner{key: k} }

func (s *KeySigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *KeySigner) Sign(tx *solana.Transaction, coSigners []solana.PrivateKey) error {
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(s.key.PublicKey()) {
			return &s.key
		}
		for i := range coSigners {
			if coSigners[i].PublicKey().Equals(pk) {
				return &coSigners[i]
			}
		}
		return nil
	})
	return err
}
