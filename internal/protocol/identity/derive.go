package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
)

const (
	deriveHeader   = "VerbEth Identity Derivation v1"
	infoIdentity   = "verbeth:identity-seed:v1"
	purposeEncrypt = "encryption"
	purposeSigning = "signing"
)

// Config carries the deployment parameters stamped into binding messages.
type Config struct {
	ChainID uint64
	RPID    string
}

// derivationMessage is the domain-separated text a wallet signs to produce
// one half of the key-derivation entropy.
func derivationMessage(addr common.Address, purpose string) string {
	var b strings.Builder
	b.WriteString(deriveHeader)
	b.WriteString("\naddress: ")
	b.WriteString(strings.ToLower(addr.Hex()))
	b.WriteString("\npurpose: ")
	b.WriteString(purpose)
	b.WriteString("\ncontext: ")
	b.WriteString(BindingContextValue)
	return b.String()
}

// Derive produces the deterministic identity key pair and its proof from
// two wallet signatures. The same wallet always derives the same keys.
func Derive(ctx context.Context, signer domain.Signer, cfg Config) (domain.IdentityKeyPair, domain.IdentityProof, error) {
	addr := signer.Address()

	sig1, err := signer.SignMessage(ctx, []byte(derivationMessage(addr, purposeEncrypt)))
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, fmt.Errorf("identity: encryption signature: %w", err)
	}
	sig2, err := signer.SignMessage(ctx, []byte(derivationMessage(addr, purposeSigning)))
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, fmt.Errorf("identity: signing signature: %w", err)
	}

	// 64 bytes of entropy; the signatures themselves never leave this scope.
	entropy := append(crypto.Keccak256(sig1), crypto.Keccak256(sig2)...)
	okm := crypto.HKDF(entropy, nil, infoIdentity, 64)
	crypto.Wipe(entropy)

	var kp domain.IdentityKeyPair
	var xPriv domain.X25519Private
	copy(xPriv[:], okm[:32])
	crypto.ClampX25519PrivateKey(&xPriv)
	xPub, err := crypto.X25519PublicFromSecret(xPriv)
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
	}
	edPriv, edPub := crypto.Ed25519FromSeed(okm[32:])
	crypto.Wipe(okm)

	kp = domain.IdentityKeyPair{
		X25519Pub:  xPub,
		X25519Priv: xPriv,
		EdPub:      edPub,
		EdPriv:     edPriv,
	}

	binding := BuildBindingMessage(addr, kp.X25519Pub, kp.EdPub, cfg.ChainID, cfg.RPID)
	bindingSig, err := signer.SignMessage(ctx, []byte(binding))
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, fmt.Errorf("identity: binding signature: %w", err)
	}

	return kp, domain.IdentityProof{BindingMessage: binding, Signature: bindingSig}, nil
}
