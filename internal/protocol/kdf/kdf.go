// Package kdf holds every key and topic derivation of the protocol. All
// outputs are one-way and domain-separated by distinct info strings; a
// change to any of them is a wire-format break.
package kdf

import (
	"verbeth/internal/crypto"
	"verbeth/internal/domain"
)

const (
	infoHybridInit = "verbeth:hybrid-init:v1"
	infoRootInit   = "verbeth:root-init:v1"
	infoRatchet    = "verbeth:ratchet:v1"
	infoChain      = "verbeth:chain:v1"
	infoHybridTag  = "verbeth:hybrid-tag:v1"

	// Epoch-0 topics are derivable with handshake-only knowledge (v2);
	// later epochs bind the root key, which a quantum adversary breaking
	// the classical DH still cannot reach (v3).
	infoTopicV2Prefix = "verbeth:topic-"
	infoTopicV2Suffix = ":v2"
	infoTopicV3Suffix = ":v3"
)

// Direction labels a topic derivation. The initiator uses the labels as
// written; the responder swaps them so both parties agree on each wire
// topic without agreeing on a party order.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
)

// Swap returns the opposite direction label.
func (d Direction) Swap() Direction {
	if d == Outbound {
		return Inbound
	}
	return Outbound
}

// HybridInitialSecret combines the classical DH shared secret with the KEM
// shared secret into the 32-byte root seed.
func HybridInitialSecret(dh [32]byte, kemShared []byte) []byte {
	ikm := make([]byte, 0, 32+len(kemShared))
	ikm = append(ikm, dh[:]...)
	ikm = append(ikm, kemShared...)
	out := crypto.HKDF(ikm, nil, infoHybridInit, 32)
	crypto.Wipe(ikm)
	return out
}

// RootInit derives the initial root key and the epoch-0 chain key from the
// hybrid seed.
func RootInit(seed []byte) (rootKey, chainKey []byte) {
	okm := crypto.HKDF(seed, nil, infoRootInit, 64)
	return okm[:32], okm[32:]
}

// RootStep advances the root chain with a fresh DH output, yielding the new
// root key and the chain key for the stepping direction.
func RootStep(rootKey []byte, dh [32]byte) (newRoot, chainKey []byte) {
	ikm := make([]byte, 0, len(rootKey)+32)
	ikm = append(ikm, rootKey...)
	ikm = append(ikm, dh[:]...)
	okm := crypto.HKDF(ikm, nil, infoRatchet, 64)
	crypto.Wipe(ikm)
	return okm[:32], okm[32:]
}

// ChainStep advances a symmetric chain one message, returning the successor
// chain key and the message key.
func ChainStep(chainKey []byte) (nextChainKey, messageKey []byte) {
	okm := crypto.HKDF(chainKey, nil, infoChain, 64)
	return okm[:32], okm[32:]
}

// HybridTag binds a handshake response to a pending initiator contact. Both
// parties reach the same DH output from opposite key halves, so equality of
// the tag is the match criterion.
func HybridTag(dh [32]byte, kemShared []byte) domain.Topic {
	ikm := make([]byte, 0, 32+len(kemShared))
	ikm = append(ikm, dh[:]...)
	ikm = append(ikm, kemShared...)
	okm := crypto.HKDF(ikm, nil, infoHybridTag, 32)
	crypto.Wipe(ikm)
	return crypto.Keccak256Hash(okm)
}

// Epoch0Topic derives a routing topic with handshake-only knowledge: the
// ephemeral DH output salted by the hybrid tag bytes.
func Epoch0Topic(dh [32]byte, salt domain.Topic, dir Direction) domain.Topic {
	okm := crypto.HKDF(dh[:], salt[:], infoTopicV2Prefix+string(dir)+infoTopicV2Suffix, 32)
	return crypto.Keccak256Hash(okm)
}

// DeriveTopic derives a post-epoch routing topic bound to the root chain.
func DeriveTopic(rootKey []byte, dh [32]byte, dir Direction) domain.Topic {
	ikm := make([]byte, 0, len(rootKey)+32)
	ikm = append(ikm, rootKey...)
	ikm = append(ikm, dh[:]...)
	okm := crypto.HKDF(ikm, nil, infoTopicV2Prefix+string(dir)+infoTopicV3Suffix, 32)
	crypto.Wipe(ikm)
	return crypto.Keccak256Hash(okm)
}

// Epoch0Topics returns the (outbound, inbound) epoch-0 pair for one party.
func Epoch0Topics(dh [32]byte, salt domain.Topic, initiator bool) (out, in domain.Topic) {
	outDir, inDir := Outbound, Inbound
	if !initiator {
		outDir, inDir = outDir.Swap(), inDir.Swap()
	}
	return Epoch0Topic(dh, salt, outDir), Epoch0Topic(dh, salt, inDir)
}

// NextTopics returns the (outbound, inbound) pair for the epoch following a
// root-chain advancement.
func NextTopics(rootKey []byte, dh [32]byte, initiator bool) (out, in domain.Topic) {
	outDir, inDir := Outbound, Inbound
	if !initiator {
		outDir, inDir = outDir.Swap(), inDir.Swap()
	}
	return DeriveTopic(rootKey, dh, outDir), DeriveTopic(rootKey, dh, inDir)
}

// ConversationID hashes the two epoch-0 topics order-independently.
func ConversationID(a, b domain.Topic) domain.ConversationID {
	lo, hi := a, b
	for i := 0; i < len(lo); i++ {
		if lo[i] != hi[i] {
			if lo[i] > hi[i] {
				lo, hi = hi, lo
			}
			break
		}
	}
	return crypto.Keccak256Hash(lo[:], hi[:])
}
