package crypto

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 hashes data with the EVM's keccak.
func Keccak256(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}

// Keccak256Hash hashes data into a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return ethcrypto.Keccak256Hash(data...)
}

// RecipientHash derives the Handshake addressing hash for a wallet address:
// keccak("contact:" + lowercased hex address).
func RecipientHash(addr common.Address) common.Hash {
	return ethcrypto.Keccak256Hash([]byte("contact:" + strings.ToLower(addr.Hex())))
}

// Fingerprint returns a short hex fingerprint of a public key for display.
// It hashes with keccak256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := ethcrypto.Keccak256(pub)
	return hex.EncodeToString(sum[:10])
}
