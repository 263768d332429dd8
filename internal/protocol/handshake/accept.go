package handshake

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
)

// AcceptResult is everything acceptHandshake derives. Tag, salt and the
// ratchet ephemerals feed straight into the responder session init.
type AcceptResult struct {
	Event domain.HandshakeResponseEvent

	Tag           domain.Topic
	RatchetSecret domain.X25519Private
	RatchetPublic domain.X25519Public
	KEMShared     []byte

	// Responder-labeled epoch-0 topics.
	TopicOutbound domain.Topic
	TopicInbound  domain.Topic
}

// Accept processes an initiator's ephemeral blob and produces the response
// event plus the responder-side session inputs. Two independent X25519
// pairs are generated: the tag pair (R, r) appears on the log, the ratchet
// pair (R', r') only inside the sealed payload.
func Accept(responder common.Address, blob []byte, kp domain.IdentityKeyPair, note string, proof domain.IdentityProof) (*AcceptResult, error) {
	initiatorEph, kemPub, err := SplitEphemeralBlob(blob)
	if err != nil {
		return nil, err
	}

	tagSec, tagPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	ratchetSec, ratchetPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	for ratchetPub == tagPub {
		// Distinctness is an invariant, not an optimization.
		ratchetSec, ratchetPub, err = crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
	}

	kemCT, kemShared, err := crypto.KEMEncapsulate(kemPub)
	if err != nil {
		return nil, err
	}

	dhTag, err := crypto.DH(tagSec, initiatorEph)
	if err != nil {
		return nil, err
	}
	tag := kdf.HybridTag(dhTag, kemShared)

	body, err := json.Marshal(ResponsePayload{
		IdentityPubKey:      kp.X25519Pub,
		SigningPubKey:       kp.EdPub,
		RatchetEphemeralPub: ratchetPub,
		Note:                note,
		IdentityProof:       proof,
		KEMCiphertext:       kemCT,
	})
	if err != nil {
		return nil, err
	}
	sealed, err := crypto.SealAnonymous(body, initiatorEph)
	if err != nil {
		return nil, err
	}

	dh0, err := crypto.DH(ratchetSec, initiatorEph)
	if err != nil {
		return nil, err
	}
	topicOut, topicIn := kdf.Epoch0Topics(dh0, tag, false)

	return &AcceptResult{
		Event: domain.HandshakeResponseEvent{
			InResponseTo:        tag,
			Responder:           responder,
			ResponderEphemeralR: tagPub,
			Ciphertext:          sealed,
		},
		Tag:           tag,
		RatchetSecret: ratchetSec,
		RatchetPublic: ratchetPub,
		KEMShared:     kemShared,
		TopicOutbound: topicOut,
		TopicInbound:  topicIn,
	}, nil
}
