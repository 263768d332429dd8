// Package wallet provides a local secp256k1 signer and the EOA signature
// verifier. Smart-account verification (ERC-1271, ERC-6492) requires chain
// reads and stays behind the domain.MessageSignatureVerifier interface.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"verbeth/internal/domain"
)

// LocalSigner signs EIP-191 personal messages with an in-process key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner generates a fresh key.
func NewLocalSigner() (*LocalSigner, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return FromKey(key), nil
}

// FromKey wraps an existing secp256k1 key.
func FromKey(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey)}
}

var _ domain.Signer = (*LocalSigner)(nil)

// Address returns the signer's EOA address.
func (s *LocalSigner) Address() common.Address { return s.address }

// SignMessage produces a personal_sign signature (v in {27, 28}).
func (s *LocalSigner) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	sig[64] += 27
	return sig, nil
}
