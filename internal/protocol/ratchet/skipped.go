package ratchet

import (
	"time"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
)

// stashSkippedKeys advances the receiving chain from its current position
// up to (but excluding) target, stashing each derived message key under
// the given chain public key. Returns false when the gap exceeds the
// per-decrypt skip bound.
func stashSkippedKeys(s *domain.RatchetSession, chainPub domain.X25519Public, target uint32, opts Options) bool {
	if s.ReceivingChainKey == nil || target <= s.ReceivingMsgNumber {
		return true
	}
	if target-s.ReceivingMsgNumber > uint32(opts.MaxSkipOnDecrypt) {
		return false
	}
	now := time.Now().UnixMilli()
	for s.ReceivingMsgNumber < target {
		nextCK, msgKey := kdf.ChainStep(s.ReceivingChainKey)
		crypto.Wipe(s.ReceivingChainKey)
		s.ReceivingChainKey = nextCK
		insertSkippedKey(s, domain.SkippedKey{
			DHPubKey:   chainPub,
			MsgNumber:  s.ReceivingMsgNumber,
			MessageKey: msgKey,
			CreatedAt:  now,
		}, opts)
		s.ReceivingMsgNumber++
	}
	return true
}

// insertSkippedKey appends an entry, evicting the oldest by CreatedAt when
// the table is at capacity.
func insertSkippedKey(s *domain.RatchetSession, key domain.SkippedKey, opts Options) {
	if len(s.SkippedKeys) >= opts.MaxStoredSkippedKeys {
		oldest := 0
		for i := 1; i < len(s.SkippedKeys); i++ {
			if s.SkippedKeys[i].CreatedAt < s.SkippedKeys[oldest].CreatedAt {
				oldest = i
			}
		}
		crypto.Wipe(s.SkippedKeys[oldest].MessageKey)
		s.SkippedKeys = append(s.SkippedKeys[:oldest], s.SkippedKeys[oldest+1:]...)
	}
	s.SkippedKeys = append(s.SkippedKeys, key)
}

// takeSkippedKey removes and returns the stashed key for (chainPub, n).
// Each entry is consumable exactly once.
func takeSkippedKey(s *domain.RatchetSession, chainPub domain.X25519Public, n uint32) ([]byte, bool) {
	for i, sk := range s.SkippedKeys {
		if sk.MsgNumber == n && sk.DHPubKey == chainPub {
			s.SkippedKeys = append(s.SkippedKeys[:i], s.SkippedKeys[i+1:]...)
			return sk.MessageKey, true
		}
	}
	return nil, false
}

// PruneExpiredSkippedKeys drops entries older than the TTL. The engine
// exposes the sweep but never schedules it; that cadence belongs to the
// caller. The returned session is a clone.
func PruneExpiredSkippedKeys(session *domain.RatchetSession, opts Options) *domain.RatchetSession {
	opts = opts.withDefaults()
	s := session.Clone()
	cutoff := time.Now().Add(-opts.SkippedKeyTTL).UnixMilli()
	kept := s.SkippedKeys[:0]
	for _, sk := range s.SkippedKeys {
		if sk.CreatedAt >= cutoff {
			kept = append(kept, sk)
		} else {
			crypto.Wipe(sk.MessageKey)
		}
	}
	s.SkippedKeys = kept
	return s
}
