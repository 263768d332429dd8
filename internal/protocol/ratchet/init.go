package ratchet

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	"verbeth/internal/protocol/kdf"
)

// InitiatorParams seeds the initiator-side session from a matched
// handshake response.
type InitiatorParams struct {
	MyAddress      common.Address
	ContactAddress common.Address

	// EphemeralSecret is the handshake ephemeral the pending contact held.
	EphemeralSecret domain.X25519Private
	// RatchetRemotePub is R' from the decrypted response payload, distinct
	// from the on-log tag key.
	RatchetRemotePub domain.X25519Public

	TopicOutbound domain.Topic
	TopicInbound  domain.Topic

	KEMShared []byte

	ContactIdentityKey domain.X25519Public
	ContactSigningKey  domain.Ed25519Public
}

// ResponderParams seeds the responder-side session at accept time.
type ResponderParams struct {
	MyAddress      common.Address
	ContactAddress common.Address

	// RatchetSecret / RatchetPublic are the fresh r'/R' pair generated by
	// the accept, never the tag pair.
	RatchetSecret domain.X25519Private
	RatchetPublic domain.X25519Public
	// InitiatorEphemeralPub is e_pk_A from the handshake blob.
	InitiatorEphemeralPub domain.X25519Public

	TopicOutbound domain.Topic
	TopicInbound  domain.Topic

	KEMShared []byte

	ContactIdentityKey domain.X25519Public
	ContactSigningKey  domain.Ed25519Public
}

var errHybridRequired = errors.New("ratchet: handshake carried no KEM secret")

// InitSessionAsResponder builds the responder session. The root-init chain
// key is installed as the sending chain for the epoch-0 channel; the
// receiving chain stays nil until the initiator's first ratchet message
// arrives. No next-topic pre-computation happens here beyond the epoch-1
// hints that both parties derive from dh0.
func InitSessionAsResponder(p ResponderParams, opts Options) (*domain.RatchetSession, error) {
	opts = opts.withDefaults()
	dh0, err := crypto.DH(p.RatchetSecret, p.InitiatorEphemeralPub)
	if err != nil {
		return nil, err
	}
	seed, err := initialSeed(dh0, p.KEMShared, opts)
	if err != nil {
		return nil, err
	}
	rootKey, ck0 := kdf.RootInit(seed)
	crypto.Wipe(seed)

	now := time.Now().UnixMilli()
	s := &domain.RatchetSession{
		ConversationID:     kdf.ConversationID(p.TopicOutbound, p.TopicInbound),
		MyAddress:          p.MyAddress,
		ContactAddress:     p.ContactAddress,
		ContactIdentityKey: p.ContactIdentityKey,
		ContactSigningKey:  p.ContactSigningKey,
		Initiator:          false,
		RootKey:            rootKey,
		DHMySecretKey:      p.RatchetSecret,
		DHMyPublicKey:      p.RatchetPublic,
		DHTheirPublicKey:   p.InitiatorEphemeralPub,
		SendingChainKey:    ck0,
		TopicEpoch:         0,
		CurrentTopicOutbound: p.TopicOutbound,
		CurrentTopicInbound:  p.TopicInbound,
		TopicOutbound:      p.TopicOutbound,
		TopicInbound:       p.TopicInbound,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	setEpochOneHints(s, dh0)
	return s, nil
}

// InitSessionAsInitiator builds the initiator session and performs the
// first DH ratchet pre-computation: a fresh ratchet key against R'
// advances the root chain once, so the sending chain and the next-epoch
// topics are in place before anything has been sent. The root-init chain
// key becomes the receiving chain for the responder's epoch-0 channel.
func InitSessionAsInitiator(p InitiatorParams, opts Options) (*domain.RatchetSession, error) {
	opts = opts.withDefaults()
	dh0, err := crypto.DH(p.EphemeralSecret, p.RatchetRemotePub)
	if err != nil {
		return nil, err
	}
	seed, err := initialSeed(dh0, p.KEMShared, opts)
	if err != nil {
		return nil, err
	}
	rootKey, ck0 := kdf.RootInit(seed)
	crypto.Wipe(seed)

	ephPub, err := crypto.X25519PublicFromSecret(p.EphemeralSecret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	s := &domain.RatchetSession{
		ConversationID:     kdf.ConversationID(p.TopicOutbound, p.TopicInbound),
		MyAddress:          p.MyAddress,
		ContactAddress:     p.ContactAddress,
		ContactIdentityKey: p.ContactIdentityKey,
		ContactSigningKey:  p.ContactSigningKey,
		Initiator:          true,
		RootKey:            rootKey,
		DHMySecretKey:      p.EphemeralSecret,
		DHMyPublicKey:      ephPub,
		DHTheirPublicKey:   p.RatchetRemotePub,
		ReceivingChainKey:  ck0,
		TopicEpoch:         0,
		CurrentTopicOutbound: p.TopicOutbound,
		CurrentTopicInbound:  p.TopicInbound,
		TopicOutbound:      p.TopicOutbound,
		TopicInbound:       p.TopicInbound,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	setEpochOneHints(s, dh0)
	if err := sendStep(s, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// setEpochOneHints stores the epoch-1 topic pair, derivable by both parties
// from handshake knowledge alone. They are the routing bridge between the
// epoch-0 channel and the first real ratchet step.
func setEpochOneHints(s *domain.RatchetSession, dh0 [32]byte) {
	nextOut, nextIn := kdf.NextTopics(s.RootKey, dh0, s.Initiator)
	s.NextTopicOutbound = &nextOut
	s.NextTopicInbound = &nextIn
}

func initialSeed(dh0 [32]byte, kemShared []byte, opts Options) ([]byte, error) {
	if len(kemShared) == 0 {
		if opts.HybridRequired {
			return nil, errHybridRequired
		}
		seed := make([]byte, 32)
		copy(seed, dh0[:])
		return seed, nil
	}
	return kdf.HybridInitialSecret(dh0, kemShared), nil
}
