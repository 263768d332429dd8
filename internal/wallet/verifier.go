package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"verbeth/internal/domain"
)

// EOAVerifier verifies personal_sign signatures by public-key recovery.
// It never errors on a bad signature, only returns false; errors are
// reserved for transport faults, of which a local recovery has none.
type EOAVerifier struct{}

var _ domain.MessageSignatureVerifier = (*EOAVerifier)(nil)

// VerifyMessage recovers the signer of an EIP-191 message and compares the
// derived address.
func (EOAVerifier) VerifyMessage(_ context.Context, address common.Address, message []byte, signature []byte) (bool, error) {
	if len(signature) != 65 {
		return false, nil
	}
	sig := append([]byte(nil), signature...)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false, nil
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return false, nil
	}
	return ethcrypto.PubkeyToAddress(*pub) == address, nil
}
