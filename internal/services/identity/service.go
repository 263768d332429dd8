// Package identity orchestrates key derivation and encrypted persistence
// of the long-term identity.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	protoidentity "verbeth/internal/protocol/identity"
)

// Service derives, stores and loads identities.
type Service struct {
	store domain.IdentityStore
	cfg   protoidentity.Config
}

// New constructs the service over an identity store.
func New(store domain.IdentityStore, cfg protoidentity.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// DeriveAndStore derives the deterministic identity from the signer and
// persists it encrypted under the passphrase. Deriving an address that is
// already stored is an error; the keys would be identical anyway.
func (s *Service) DeriveAndStore(ctx context.Context, signer domain.Signer, passphrase string) (domain.IdentityKeyPair, domain.IdentityProof, error) {
	kp, proof, err := protoidentity.Derive(ctx, signer, s.cfg)
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
	}
	if err := s.store.Save(passphrase, signer.Address(), kp, proof); err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
		}
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, fmt.Errorf("identity: store: %w", err)
	}
	return kp, proof, nil
}

// Load decrypts the stored identity for an address.
func (s *Service) Load(passphrase string, address common.Address) (domain.IdentityKeyPair, domain.IdentityProof, error) {
	return s.store.Load(passphrase, address)
}

// Fingerprint renders the short display fingerprint of the stored keys.
func (s *Service) Fingerprint(passphrase string, address common.Address) (string, error) {
	kp, _, err := s.store.Load(passphrase, address)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(kp.UnifiedPubKeys()), nil
}
