package ratchet

import (
	"time"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
)

// DecryptResult is a successful decrypt: the plaintext and the advanced
// session the caller must persist before acting on it.
type DecryptResult struct {
	Session   *domain.RatchetSession
	Plaintext []byte
}

// Decrypt attempts to open one ratchet message. It returns nil on any
// failure — unknown chain, skip bound exceeded, AEAD mismatch, replay —
// and never mutates the input session: all work happens on a clone that is
// only surfaced on success.
func Decrypt(session *domain.RatchetSession, header domain.RatchetHeader, ciphertext []byte, opts Options) *DecryptResult {
	if session == nil {
		return nil
	}
	opts = opts.withDefaults()
	s := session.Clone()

	// Stragglers from an already-rotated chain resolve through the stash
	// before anything else; their message numbers no longer relate to the
	// live receiving chain.
	if mk, ok := takeSkippedKey(s, header.DH, header.N); ok {
		pt, ok := crypto.AEADOpen(mk, header.N, ciphertext, header.Bytes())
		crypto.Wipe(mk)
		if !ok {
			return nil
		}
		s.UpdatedAt = time.Now().UnixMilli()
		return &DecryptResult{Session: s, Plaintext: pt}
	}

	if header.DH != s.DHTheirPublicKey {
		// The sender rotated: close out the old receiving chain by
		// stashing its remaining keys up to the advertised chain length,
		// then perform the half-step.
		if s.ReceivingChainKey != nil {
			if header.PN < s.ReceivingMsgNumber {
				return nil
			}
			if !stashSkippedKeys(s, s.DHTheirPublicKey, header.PN, opts) {
				return nil
			}
		}
		if err := receiveStep(s, header.DH, opts); err != nil {
			return nil
		}
	} else if s.ReceivingChainKey == nil {
		// A responder before its first receive-step has no receiving
		// chain, and the initiator's headers always carry a stepped key,
		// so a standing-key message here cannot be decrypted.
		return nil
	}

	if header.N < s.ReceivingMsgNumber {
		// Already consumed and not in the stash: replay.
		return nil
	}
	if !stashSkippedKeys(s, header.DH, header.N, opts) {
		return nil
	}

	nextCK, msgKey := kdf.ChainStep(s.ReceivingChainKey)
	pt, ok := crypto.AEADOpen(msgKey, header.N, ciphertext, header.Bytes())
	crypto.Wipe(msgKey)
	if !ok {
		return nil
	}
	crypto.Wipe(s.ReceivingChainKey)
	s.ReceivingChainKey = nextCK
	s.ReceivingMsgNumber = header.N + 1
	s.UpdatedAt = time.Now().UnixMilli()
	return &DecryptResult{Session: s, Plaintext: pt}
}
