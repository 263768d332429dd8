// Package message is the outbound commit coordinator and the inbound
// router.
//
// Outbound follows a two-phase discipline: prepare advances the ratchet
// and persists the new session together with a pending record BEFORE any
// submission happens. Rolling the session back on a failed submission
// would mean reusing a message key, so a failed slot is burned instead:
// the peer skips over it like any other lost message.
package message

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"verbeth/internal/domain"
	"verbeth/internal/protocol/payload"
	"verbeth/internal/protocol/ratchet"
)

// Service coordinates per-conversation outbound sends and routes inbound
// message events to their sessions.
type Service struct {
	sessions  domain.SessionStore
	pendings  domain.PendingStore
	submitter domain.TransactionSubmitter
	identity  domain.IdentityKeyPair
	opts      ratchet.Options

	mu    sync.Mutex
	convs map[domain.ConversationID]*sync.Mutex
}

// New constructs the coordinator for one local identity.
func New(
	sessions domain.SessionStore,
	pendings domain.PendingStore,
	submitter domain.TransactionSubmitter,
	identity domain.IdentityKeyPair,
	opts ratchet.Options,
) *Service {
	return &Service{
		sessions:  sessions,
		pendings:  pendings,
		submitter: submitter,
		identity:  identity,
		opts:      opts,
		convs:     make(map[domain.ConversationID]*sync.Mutex),
	}
}

// convLock serializes sends per conversation with a plain sync.Mutex;
// concurrent callers waiting on it are not guaranteed to acquire it in
// arrival order. Cross-conversation sends run freely in parallel.
func (s *Service) convLock(id domain.ConversationID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.convs[id]
	if !ok {
		l = &sync.Mutex{}
		s.convs[id] = l
	}
	return l
}

// PrepareMessage encrypts plaintext for a conversation, persists the
// advanced session, then creates a new pending record. The two writes are
// not one transaction: if the pending write fails, the session stays
// advanced with no pending record. The slot is burned from this point on,
// whatever happens to the submission.
func (s *Service) PrepareMessage(ctx context.Context, conversationID domain.ConversationID, plaintext []byte) (*domain.PendingOutbound, error) {
	lock := s.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()
	return s.prepareLocked(ctx, conversationID, plaintext)
}

func (s *Service) prepareLocked(ctx context.Context, conversationID domain.ConversationID, plaintext []byte) (*domain.PendingOutbound, error) {
	session, err := s.sessions.GetByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	res, err := ratchet.Encrypt(session, plaintext, s.identity.EdPriv, s.opts)
	if err != nil {
		return nil, fmt.Errorf("message: encrypt: %w", err)
	}
	framed := payload.Encode(res.Signature, res.Header, res.Ciphertext)

	pending := &domain.PendingOutbound{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Topic:          res.Topic,
		PayloadBytes:   framed,
		Plaintext:      append([]byte(nil), plaintext...),
		SessionBefore:  session,
		SessionAfter:   res.Session,
		CreatedAt:      time.Now().UnixMilli(),
		Status:         domain.OutboundPreparing,
	}

	// Session advancement is persisted before submission, never after.
	if err := s.sessions.Save(ctx, res.Session); err != nil {
		return nil, fmt.Errorf("message: persist session: %w", err)
	}
	if err := s.pendings.Create(ctx, pending); err != nil {
		return nil, fmt.Errorf("message: persist pending: %w", err)
	}
	return pending, nil
}

// SendMessage prepares and submits in one call. On submission failure the
// pending is marked failed and returned with the error; the caller may
// retry with a fresh SendMessage, which produces a new message at a new
// slot, or delete the record.
func (s *Service) SendMessage(ctx context.Context, conversationID domain.ConversationID, plaintext []byte) (*domain.PendingOutbound, error) {
	lock := s.convLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	pending, err := s.prepareLocked(ctx, conversationID, plaintext)
	if err != nil {
		return nil, err
	}
	ref, err := s.submitter.SendMessage(ctx, pending.PayloadBytes, pending.Topic,
		uint64(time.Now().Unix()), uint64(uuid.New().ID()))
	if err != nil {
		if markErr := s.pendings.MarkFailed(ctx, pending.ID); markErr != nil {
			return pending, fmt.Errorf("message: submit failed (%v) and marking failed: %w", err, markErr)
		}
		pending.Status = domain.OutboundFailed
		return pending, fmt.Errorf("message: submit: %w", err)
	}
	if err := s.pendings.MarkSubmitted(ctx, pending.ID, ref.Hash); err != nil {
		return pending, fmt.Errorf("message: mark submitted: %w", err)
	}
	pending.Status = domain.OutboundSubmitted
	pending.TxHash = &ref.Hash
	return pending, nil
}

// ConfirmTx resolves a submitted pending when its transaction is observed
// confirmed. The session needs no further action; it was committed at
// prepare time.
func (s *Service) ConfirmTx(ctx context.Context, txHash common.Hash) (*domain.ConfirmResult, error) {
	pending, err := s.pendings.GetByTxHash(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if _, err := s.pendings.Finalize(ctx, pending.ID); err != nil {
		return nil, err
	}
	return &domain.ConfirmResult{
		ConversationID: pending.ConversationID,
		PendingID:      pending.ID,
		TxHash:         txHash,
	}, nil
}

// RevertTx cleans up a pending whose transaction was dropped or reverted.
// The session stays advanced; the slot is burned and the peer will skip
// it.
func (s *Service) RevertTx(ctx context.Context, txHash common.Hash) error {
	pending, err := s.pendings.GetByTxHash(ctx, txHash)
	if err != nil {
		return err
	}
	return s.pendings.Delete(ctx, pending.ID)
}

// DeletePending removes a failed record by id, for sends that never got a
// transaction hash.
func (s *Service) DeletePending(ctx context.Context, id string) error {
	return s.pendings.Delete(ctx, id)
}

// HandleMessageEvent routes one inbound event: topic lookup, sender
// signature verification, then decryption. The signature is checked
// before the ratchet sees the header, so forged payloads cannot force
// skipped-key allocation. The advanced session is persisted before the
// plaintext is returned.
func (s *Service) HandleMessageEvent(ctx context.Context, ev domain.MessageEvent) (*domain.Message, error) {
	parsed := payload.Parse(ev.Ciphertext)
	if parsed == nil {
		return nil, domain.ErrInvalidInput
	}

	session, match, err := s.sessions.GetByInboundTopic(ctx, ev.Topic)
	if err != nil {
		return nil, err
	}

	lock := s.convLock(session.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	// Reload under the lock; a concurrent decrypt may have advanced it.
	session, err = s.sessions.GetByConversationID(ctx, session.ConversationID)
	if err != nil {
		return nil, err
	}

	if !payload.Verify(session.ContactSigningKey, parsed.Signature, parsed.Header, parsed.Ciphertext) {
		return nil, fmt.Errorf("message: sender signature: %w", domain.ErrCryptoFailure)
	}
	res := ratchet.Decrypt(session, parsed.Header, parsed.Ciphertext, s.opts)
	if res == nil {
		return nil, domain.ErrCryptoFailure
	}
	if err := s.sessions.Save(ctx, res.Session); err != nil {
		return nil, fmt.Errorf("message: persist session: %w", err)
	}
	return &domain.Message{
		ConversationID: session.ConversationID,
		Plaintext:      res.Plaintext,
		Topic:          ev.Topic,
		TopicMatch:     match,
		Session:        res.Session,
	}, nil
}
