package ratchet

import (
	"errors"
	"time"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
	"verbeth/internal/protocol/payload"
)

// EncryptResult carries everything the caller needs to frame and submit
// one outbound message, plus the session to persist.
type EncryptResult struct {
	Session    *domain.RatchetSession
	Header     domain.RatchetHeader
	Ciphertext []byte
	Signature  []byte
	Topic      domain.Topic
}

var errSessionNil = errors.New("ratchet: nil session")

// Encrypt derives the next message key on the sending chain, performing a
// DH half-step first when the chain was invalidated by a receive. The
// input session is not mutated.
func Encrypt(session *domain.RatchetSession, plaintext []byte, edPriv domain.Ed25519Private, opts Options) (*EncryptResult, error) {
	if session == nil {
		return nil, errSessionNil
	}
	opts = opts.withDefaults()
	s := session.Clone()

	if s.SendingChainKey == nil {
		if err := sendStep(s, opts); err != nil {
			return nil, err
		}
	}

	nextCK, msgKey := kdf.ChainStep(s.SendingChainKey)

	header := domain.RatchetHeader{
		DH: s.DHMyPublicKey,
		PN: s.PreviousChainLength,
		N:  s.SendingMsgNumber,
	}
	ct, err := crypto.AEADSeal(msgKey, header.N, plaintext, header.Bytes())
	crypto.Wipe(msgKey)
	if err != nil {
		return nil, err
	}
	sig := payload.Sign(edPriv, header, ct)

	crypto.Wipe(s.SendingChainKey)
	s.SendingChainKey = nextCK
	s.SendingMsgNumber++
	s.UpdatedAt = time.Now().UnixMilli()

	return &EncryptResult{
		Session:    s,
		Header:     header,
		Ciphertext: ct,
		Signature:  sig,
		Topic:      s.CurrentTopicOutbound,
	}, nil
}
