package handshake

import (
	"encoding/json"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
)

// Match pairs a handshake response with the pending contact it was built
// for, along with the material recovered during the trial.
type Match struct {
	Contact   *domain.PendingContact
	Payload   *ResponsePayload
	KEMShared []byte

	// Initiator-labeled epoch-0 topics, salted by the tag.
	TopicOutbound domain.Topic
	TopicInbound  domain.Topic
}

// MatchResponse tries each pending contact against a response event:
// decrypt the sealed payload with the pending ephemeral, decapsulate the
// carried KEM ciphertext, recompute the hybrid tag, and accept on
// equality. First match wins; a tag collision is negligible. O(N) over
// pendings, which is expected to stay in the tens.
func MatchResponse(ev domain.HandshakeResponseEvent, pendings []*domain.PendingContact) (*Match, error) {
	for _, pending := range pendings {
		ephPub, err := crypto.X25519PublicFromSecret(pending.HandshakeEphemeralSecret)
		if err != nil {
			continue
		}
		body, ok := crypto.OpenAnonymous(ev.Ciphertext, ephPub, pending.HandshakeEphemeralSecret)
		if !ok {
			continue
		}
		var payload ResponsePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			continue
		}
		kemShared, err := crypto.KEMDecapsulate(pending.KEMSecretKey, payload.KEMCiphertext)
		if err != nil {
			continue
		}
		dhTag, err := crypto.DH(pending.HandshakeEphemeralSecret, ev.ResponderEphemeralR)
		if err != nil {
			continue
		}
		if kdf.HybridTag(dhTag, kemShared) != ev.InResponseTo {
			continue
		}

		dh0, err := crypto.DH(pending.HandshakeEphemeralSecret, payload.RatchetEphemeralPub)
		if err != nil {
			continue
		}
		topicOut, topicIn := kdf.Epoch0Topics(dh0, ev.InResponseTo, true)

		return &Match{
			Contact:       pending,
			Payload:       &payload,
			KEMShared:     kemShared,
			TopicOutbound: topicOut,
			TopicInbound:  topicIn,
		}, nil
	}
	return nil, domain.ErrNoMatchingPending
}
