package domain

import "errors"

// UnifiedPubKeysSize is the length of the combined public-key blob carried
// in Handshake events: one version byte, the X25519 key, the Ed25519 key.
const UnifiedPubKeysSize = 1 + 32 + 32

// UnifiedPubKeysVersion is the only accepted version byte.
const UnifiedPubKeysVersion = 0x01

// IdentityKeyPair holds the long-term X25519 and Ed25519 keys derived from
// wallet signatures. Derived once per address and never mutated.
type IdentityKeyPair struct {
	X25519Pub  X25519Public  `json:"x25519_pub"`
	X25519Priv X25519Private `json:"x25519_priv"`
	EdPub      Ed25519Public `json:"ed_pub"`
	EdPriv     Ed25519Private `json:"ed_priv"`
}

// UnifiedPubKeys packs both public keys into the 65-byte on-log blob.
func (kp IdentityKeyPair) UnifiedPubKeys() []byte {
	out := make([]byte, 0, UnifiedPubKeysSize)
	out = append(out, UnifiedPubKeysVersion)
	out = append(out, kp.X25519Pub[:]...)
	out = append(out, kp.EdPub[:]...)
	return out
}

// ParseUnifiedPubKeys splits a 65-byte blob into its two public keys.
func ParseUnifiedPubKeys(blob []byte) (X25519Public, Ed25519Public, error) {
	if len(blob) != UnifiedPubKeysSize || blob[0] != UnifiedPubKeysVersion {
		return X25519Public{}, Ed25519Public{}, errors.New("domain: malformed unified public keys")
	}
	return MustX25519Public(blob[1:33]), MustEd25519Public(blob[33:65]), nil
}

// IdentityProof binds an identity key pair to a wallet address. The core
// treats it as opaque; the verification oracle interprets it.
type IdentityProof struct {
	BindingMessage string `json:"binding_message"`
	Signature      []byte `json:"signature"`
}
