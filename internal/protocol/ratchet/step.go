package ratchet

import (
	"time"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
)

// sendStep rotates this party's ratchet key: a fresh keypair against the
// peer's standing public key advances the root chain and opens a new
// sending chain. One topic epoch elapses.
func sendStep(s *domain.RatchetSession, opts Options) error {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dhOut, err := crypto.DH(priv, s.DHTheirPublicKey)
	if err != nil {
		return err
	}

	rotateTopics(s, opts)
	newRoot, chainKey := kdf.RootStep(s.RootKey, dhOut)
	setNextHints(s, newRoot, dhOut)
	crypto.Wipe(s.RootKey)
	s.RootKey = newRoot
	s.TopicEpoch++

	s.PreviousChainLength = s.SendingMsgNumber
	s.SendingMsgNumber = 0
	if s.SendingChainKey != nil {
		crypto.Wipe(s.SendingChainKey)
	}
	s.SendingChainKey = chainKey
	s.DHMySecretKey = priv
	s.DHMyPublicKey = pub
	return nil
}

// receiveStep adopts the peer's rotated public key: the standing secret
// against the new key advances the root chain and replaces the receiving
// chain. The sending chain is invalidated so the next send performs a
// fresh sendStep; the sending message number is left alone so it can feed
// the next header's pn.
func receiveStep(s *domain.RatchetSession, theirNewPub domain.X25519Public, opts Options) error {
	dhIn, err := crypto.DH(s.DHMySecretKey, theirNewPub)
	if err != nil {
		return err
	}

	rotateTopics(s, opts)
	newRoot, chainKey := kdf.RootStep(s.RootKey, dhIn)
	setNextHints(s, newRoot, dhIn)
	crypto.Wipe(s.RootKey)
	s.RootKey = newRoot
	s.TopicEpoch++

	if s.ReceivingChainKey != nil {
		crypto.Wipe(s.ReceivingChainKey)
	}
	s.ReceivingChainKey = chainKey
	s.ReceivingMsgNumber = 0
	if s.SendingChainKey != nil {
		crypto.Wipe(s.SendingChainKey)
		s.SendingChainKey = nil
	}
	s.DHTheirPublicKey = theirNewPub
	return nil
}

// rotateTopics promotes the stored next-epoch hints to current and opens
// the grace window on the displaced inbound topic. Both parties derive the
// same hint values from the same root material, one derivation behind the
// root chain, which is what keeps every message routable by a peer that
// has not performed the step yet.
func rotateTopics(s *domain.RatchetSession, opts Options) {
	prev := s.CurrentTopicInbound
	s.PreviousTopicInbound = &prev
	s.PreviousTopicExpiry = time.Now().Add(opts.TopicGrace).UnixMilli()

	if s.NextTopicOutbound != nil && s.NextTopicInbound != nil {
		s.CurrentTopicOutbound = *s.NextTopicOutbound
		s.CurrentTopicInbound = *s.NextTopicInbound
		return
	}

	// No stored hints: re-derive the pair from the pre-step root and the
	// standing DH output. Reachable only for a session restored from a
	// store that predates hint persistence.
	dhPrev, err := crypto.DH(s.DHMySecretKey, s.DHTheirPublicKey)
	if err != nil {
		return
	}
	out, in := kdf.NextTopics(s.RootKey, dhPrev, s.Initiator)
	s.CurrentTopicOutbound = out
	s.CurrentTopicInbound = in
}

func setNextHints(s *domain.RatchetSession, newRoot []byte, dh [32]byte) {
	nextOut, nextIn := kdf.NextTopics(newRoot, dh, s.Initiator)
	s.NextTopicOutbound = &nextOut
	s.NextTopicInbound = &nextIn
}
