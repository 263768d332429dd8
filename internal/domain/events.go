package domain

import "github.com/ethereum/go-ethereum/common"

// EphemeralBlobSize is the initiator handshake blob: the X25519 ephemeral
// followed by the ML-KEM-768 encapsulation key.
const EphemeralBlobSize = 32 + 1184

// HandshakeEvent is an initiator's first-contact event on the log.
type HandshakeEvent struct {
	RecipientHash common.Hash
	Sender        common.Address
	PubKeys       []byte // 65-byte unified blob
	EphemeralBlob []byte // EphemeralBlobSize bytes
	Payload       []byte // serialized HandshakePayload
}

// HandshakeResponseEvent is a responder's reply, addressed by hybrid tag.
type HandshakeResponseEvent struct {
	InResponseTo        common.Hash
	Responder           common.Address
	ResponderEphemeralR X25519Public
	Ciphertext          []byte // anonymous box over HandshakeResponsePayload
}

// MessageEvent is a routed ciphertext on the log.
type MessageEvent struct {
	Sender     common.Address
	Topic      Topic
	Ciphertext []byte
	Timestamp  uint64 // unix seconds
	Nonce      uint64
}

// TxRef identifies a submitted transaction.
type TxRef struct {
	Hash common.Hash
}
