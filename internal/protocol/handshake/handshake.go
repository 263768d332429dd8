// Package handshake implements the two-phase on-log contact protocol: an
// initiator's Handshake event carrying hybrid ephemerals, a responder's
// encrypted HandshakeResponse bound to it by hybrid tag, and the trial
// matching that pairs a response with its pending initiator.
package handshake

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
)

// Payload is the plaintext body of a Handshake event.
type Payload struct {
	Plaintext     string               `json:"plaintext"`
	IdentityProof domain.IdentityProof `json:"identity_proof"`
}

// ResponsePayload is the body sealed inside a HandshakeResponse. The
// ratchet ephemeral here is deliberately distinct from the on-log tag key:
// reusing one would link the response event to the first ratchet header.
type ResponsePayload struct {
	IdentityPubKey     domain.X25519Public  `json:"identity_pub_key"`
	SigningPubKey      domain.Ed25519Public `json:"signing_pub_key"`
	RatchetEphemeralPub domain.X25519Public `json:"ratchet_ephemeral_pub"`
	Note               string               `json:"note,omitempty"`
	IdentityProof      domain.IdentityProof `json:"identity_proof"`
	KEMCiphertext      []byte               `json:"kem_ciphertext"`
}

// Initiation is everything initiateHandshake produces. The caller must
// persist the two secrets keyed by contact; without them the response can
// never be matched.
type Initiation struct {
	Event           domain.HandshakeEvent
	EphemeralSecret domain.X25519Private
	EphemeralPublic domain.X25519Public
	KEMSecret       []byte
	KEMPublic       []byte
}

// Initiate builds the first-contact event for a recipient address.
func Initiate(sender, recipient common.Address, kp domain.IdentityKeyPair, plaintext string, proof domain.IdentityProof) (*Initiation, error) {
	ephSec, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	kemPub, kemSec, err := crypto.GenerateKEM()
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, domain.EphemeralBlobSize)
	blob = append(blob, ephPub[:]...)
	blob = append(blob, kemPub...)

	body, err := json.Marshal(Payload{Plaintext: plaintext, IdentityProof: proof})
	if err != nil {
		return nil, err
	}

	return &Initiation{
		Event: domain.HandshakeEvent{
			RecipientHash: crypto.RecipientHash(recipient),
			Sender:        sender,
			PubKeys:       kp.UnifiedPubKeys(),
			EphemeralBlob: blob,
			Payload:       body,
		},
		EphemeralSecret: ephSec,
		EphemeralPublic: ephPub,
		KEMSecret:       kemSec,
		KEMPublic:       kemPub,
	}, nil
}

// ParsePayload decodes a Handshake event body.
func ParsePayload(b []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("handshake: %w: %v", domain.ErrInvalidInput, err)
	}
	return &p, nil
}

// SplitEphemeralBlob separates the initiator blob into the X25519
// ephemeral and the KEM encapsulation key.
func SplitEphemeralBlob(blob []byte) (domain.X25519Public, []byte, error) {
	if len(blob) != domain.EphemeralBlobSize {
		return domain.X25519Public{}, nil, fmt.Errorf("handshake: %w: ephemeral blob is %d bytes", domain.ErrInvalidInput, len(blob))
	}
	return domain.MustX25519Public(blob[:32]), blob[32:], nil
}
