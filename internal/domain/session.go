package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Topic is a 32-byte public routing identifier for log events.
type Topic = common.Hash

// ConversationID identifies a session; it is the order-independent hash of
// the two epoch-0 topics and is stable for the life of the session.
type ConversationID = common.Hash

// TopicMatch classifies which of a session's inbound topic slots an
// incoming event matched.
type TopicMatch string

const (
	TopicMatchCurrent  TopicMatch = "current"
	TopicMatchNext     TopicMatch = "next"
	TopicMatchPrevious TopicMatch = "previous"
)

// SkippedKey is a stashed message key for a not-yet-received message,
// keyed by the sender's ratchet public key and message number.
type SkippedKey struct {
	DHPubKey   X25519Public `json:"dh_pub"`
	MsgNumber  uint32       `json:"n"`
	MessageKey []byte       `json:"mk"`
	CreatedAt  int64        `json:"created_at"` // unix milliseconds
}

// RatchetSession is the entwined DH + chain + topic state for one
// conversation. All engine operations treat it as immutable and return a
// successor; callers persist the successor before acting on any output.
type RatchetSession struct {
	ConversationID ConversationID `json:"conversation_id"`
	MyAddress      common.Address `json:"my_address"`
	ContactAddress common.Address `json:"contact_address"`

	// Contact keys learned during the handshake; the signing key gates
	// every inbound payload before the ratchet is touched.
	ContactIdentityKey X25519Public  `json:"contact_identity_key"`
	ContactSigningKey  Ed25519Public `json:"contact_signing_key"`

	// Initiator records which side of the handshake this party took; it
	// selects the direction labels in topic derivation.
	Initiator bool `json:"initiator"`

	RootKey []byte `json:"root_key"`

	DHMySecretKey  X25519Private `json:"dh_my_secret"`
	DHMyPublicKey  X25519Public  `json:"dh_my_public"`
	DHTheirPublicKey X25519Public `json:"dh_their_public"`

	SendingChainKey     []byte `json:"send_ck,omitempty"`
	SendingMsgNumber    uint32 `json:"ns"`
	PreviousChainLength uint32 `json:"pn"`

	ReceivingChainKey []byte `json:"recv_ck,omitempty"`
	ReceivingMsgNumber uint32 `json:"nr"`

	TopicEpoch           uint32 `json:"topic_epoch"`
	CurrentTopicOutbound Topic  `json:"cur_topic_out"`
	CurrentTopicInbound  Topic  `json:"cur_topic_in"`
	NextTopicOutbound    *Topic `json:"next_topic_out,omitempty"`
	NextTopicInbound     *Topic `json:"next_topic_in,omitempty"`
	PreviousTopicInbound *Topic `json:"prev_topic_in,omitempty"`
	PreviousTopicExpiry  int64  `json:"prev_topic_expiry,omitempty"` // unix milliseconds

	// Epoch-0 topics, immutable after init; they anchor store lookups and
	// the conversation identifier.
	TopicOutbound Topic `json:"topic_outbound"`
	TopicInbound  Topic `json:"topic_inbound"`

	SkippedKeys []SkippedKey `json:"skipped_keys,omitempty"`

	CreatedAt int64 `json:"created_at"` // unix milliseconds
	UpdatedAt int64 `json:"updated_at"` // unix milliseconds
}

// Clone returns a deep copy. The engine mutates only clones so that a
// failed operation leaves the caller's session untouched.
func (s *RatchetSession) Clone() *RatchetSession {
	out := *s
	out.RootKey = append([]byte(nil), s.RootKey...)
	if s.SendingChainKey != nil {
		out.SendingChainKey = append([]byte(nil), s.SendingChainKey...)
	}
	if s.ReceivingChainKey != nil {
		out.ReceivingChainKey = append([]byte(nil), s.ReceivingChainKey...)
	}
	out.NextTopicOutbound = copyTopic(s.NextTopicOutbound)
	out.NextTopicInbound = copyTopic(s.NextTopicInbound)
	out.PreviousTopicInbound = copyTopic(s.PreviousTopicInbound)
	if s.SkippedKeys != nil {
		out.SkippedKeys = make([]SkippedKey, len(s.SkippedKeys))
		for i, sk := range s.SkippedKeys {
			sk.MessageKey = append([]byte(nil), sk.MessageKey...)
			out.SkippedKeys[i] = sk
		}
	}
	return &out
}

func copyTopic(t *Topic) *Topic {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// RatchetHeader rides in front of every ciphertext.
type RatchetHeader struct {
	DH X25519Public
	PN uint32
	N  uint32
}

// HeaderSize is the serialized header length: dh(32) + pn(4) + n(4).
const HeaderSize = 40

// Bytes serializes the header as dh ‖ pn ‖ n with big-endian counters.
func (h RatchetHeader) Bytes() []byte {
	out := make([]byte, HeaderSize)
	copy(out[:32], h.DH[:])
	putU32(out[32:36], h.PN)
	putU32(out[36:40], h.N)
	return out
}

// ParseRatchetHeader reads a 40-byte serialized header.
func ParseRatchetHeader(b []byte) (RatchetHeader, bool) {
	if len(b) != HeaderSize {
		return RatchetHeader{}, false
	}
	var h RatchetHeader
	copy(h.DH[:], b[:32])
	h.PN = getU32(b[32:36])
	h.N = getU32(b[36:40])
	return h, true
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Message is a decrypted inbound message delivered to the caller together
// with the session state that must be persisted before acting on it.
type Message struct {
	ConversationID ConversationID
	Plaintext      []byte
	Topic          Topic
	TopicMatch     TopicMatch
	Session        *RatchetSession
}
