package identity

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/domain"
)

// ExpectedKeys are the public keys a proof must bind verbatim.
type ExpectedKeys struct {
	X25519 domain.X25519Public
	Ed25519 domain.Ed25519Public
}

// VerifyProof checks an identity proof for an address. The signature check
// is delegated to the external verifier; every protocol-level mismatch
// yields (false, nil) so the caller can drop the proof without treating it
// as a fault. Only verifier transport failures surface as errors.
func VerifyProof(ctx context.Context, verifier domain.MessageSignatureVerifier, proof domain.IdentityProof, address common.Address, expected ExpectedKeys, cfg Config) (bool, error) {
	ok, err := verifier.VerifyMessage(ctx, address, []byte(proof.BindingMessage), proof.Signature)
	if err != nil {
		return false, fmt.Errorf("identity: verify binding signature: %w", err)
	}
	if !ok {
		return false, nil
	}

	binding, err := ParseBindingMessage(proof.BindingMessage)
	if err != nil {
		return false, nil
	}
	if binding.Address != address {
		return false, nil
	}
	if binding.PKX25519 != expected.X25519 || binding.PKEd25519 != expected.Ed25519 {
		return false, nil
	}
	if binding.Context != BindingContextValue || binding.Version != BindingVersionValue {
		return false, nil
	}
	if cfg.ChainID != 0 && binding.ChainID != cfg.ChainID {
		return false, nil
	}
	if cfg.RPID != "" && binding.RPID != cfg.RPID {
		return false, nil
	}
	return true, nil
}
