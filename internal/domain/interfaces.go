package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// SessionStore persists ratchet sessions. Writes on the same conversation
// id must be serialized by the implementation.
type SessionStore interface {
	GetByConversationID(ctx context.Context, id ConversationID) (*RatchetSession, error)
	// GetByInboundTopic resolves a session across its current, next and
	// unexpired previous inbound topics.
	GetByInboundTopic(ctx context.Context, topic Topic) (*RatchetSession, TopicMatch, error)
	Save(ctx context.Context, session *RatchetSession) error
	Delete(ctx context.Context, id ConversationID) error
	List(ctx context.Context) ([]*RatchetSession, error)
}

// PendingStore persists pending outbound records.
type PendingStore interface {
	Create(ctx context.Context, record *PendingOutbound) error
	MarkSubmitted(ctx context.Context, id string, txHash common.Hash) error
	MarkFailed(ctx context.Context, id string) error
	GetByTxHash(ctx context.Context, txHash common.Hash) (*PendingOutbound, error)
	GetByConversationID(ctx context.Context, id ConversationID) ([]*PendingOutbound, error)
	// Finalize removes the record and returns it, or ErrPendingNotFound.
	Finalize(ctx context.Context, id string) (*PendingOutbound, error)
	Delete(ctx context.Context, id string) error
}

// PendingContactStore persists initiator-side handshake ephemerals keyed by
// the contact address, until a response consumes them.
type PendingContactStore interface {
	Save(ctx context.Context, contact *PendingContact) error
	List(ctx context.Context) ([]*PendingContact, error)
	Delete(ctx context.Context, address common.Address) error
}

// EventLog reads the three event kinds off the append-only log. The engine
// is agnostic to the wire format behind it.
type EventLog interface {
	HandshakesFor(ctx context.Context, recipientHash common.Hash) ([]HandshakeEvent, error)
	Responses(ctx context.Context) ([]HandshakeResponseEvent, error)
	MessagesOn(ctx context.Context, topic Topic) ([]MessageEvent, error)
}

// TransactionSubmitter posts events to the log. It may be synchronous or
// eventually consistent; the coordinator only relies on the returned hash.
type TransactionSubmitter interface {
	SendMessage(ctx context.Context, payload []byte, topic Topic, timestamp uint64, nonce uint64) (TxRef, error)
	SendHandshake(ctx context.Context, ev HandshakeEvent) (TxRef, error)
	SendHandshakeResponse(ctx context.Context, ev HandshakeResponseEvent) (TxRef, error)
}

// MessageSignatureVerifier checks a signature over an arbitrary message for
// an address. Implementations own the EOA / ERC-1271 / ERC-6492 nuances;
// the core treats it as a pure predicate.
type MessageSignatureVerifier interface {
	VerifyMessage(ctx context.Context, address common.Address, message []byte, signature []byte) (bool, error)
}

// Signer produces wallet signatures for identity derivation.
type Signer interface {
	Address() common.Address
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// IdentityStore persists the long-term key pair, encrypted at rest.
type IdentityStore interface {
	Save(passphrase string, address common.Address, kp IdentityKeyPair, proof IdentityProof) error
	Load(passphrase string, address common.Address) (IdentityKeyPair, IdentityProof, error)
}
