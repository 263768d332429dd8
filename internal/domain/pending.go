package domain

import "github.com/ethereum/go-ethereum/common"

// PendingContact is the initiator-side record of an outstanding handshake.
// It exclusively owns the handshake ephemerals until a matching response is
// consumed, then it is destroyed.
type PendingContact struct {
	ContactAddress           common.Address `json:"contact_address"`
	HandshakeEphemeralSecret X25519Private  `json:"handshake_ephemeral_secret"`
	KEMSecretKey             []byte         `json:"kem_secret_key"`
	CreatedAt                int64          `json:"created_at"` // unix milliseconds
	TxHash                   common.Hash    `json:"tx_hash"`
}

// OutboundStatus is the lifecycle state of a pending outbound message.
type OutboundStatus string

const (
	OutboundPreparing OutboundStatus = "preparing"
	OutboundSubmitted OutboundStatus = "submitted"
	OutboundFailed    OutboundStatus = "failed"
)

// PendingOutbound records one prepared-but-unconfirmed message. The session
// snapshots bracket the ratchet advancement the prepare performed; the slot
// is burned the moment the after-snapshot is persisted, regardless of what
// the submitter does with the payload.
type PendingOutbound struct {
	ID             string          `json:"id"`
	ConversationID ConversationID  `json:"conversation_id"`
	Topic          Topic           `json:"topic"`
	PayloadBytes   []byte          `json:"payload"`
	Plaintext      []byte          `json:"plaintext"`
	SessionBefore  *RatchetSession `json:"session_before"`
	SessionAfter   *RatchetSession `json:"session_after"`
	CreatedAt      int64           `json:"created_at"` // unix milliseconds
	TxHash         *common.Hash    `json:"tx_hash,omitempty"`
	Status         OutboundStatus  `json:"status"`
}

// ConfirmResult is surfaced to the caller when a submitted transaction is
// observed confirmed on the log.
type ConfirmResult struct {
	ConversationID ConversationID
	PendingID      string
	TxHash         common.Hash
}
