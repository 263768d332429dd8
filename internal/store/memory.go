package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/domain"
	"verbeth/internal/protocol/ratchet"
)

// MemorySessionStore keeps sessions in process memory. A single mutex
// serializes all writes, which trivially satisfies the per-conversation
// serialization contract.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.ConversationID]*domain.RatchetSession
}

// NewMemorySessionStore returns an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[domain.ConversationID]*domain.RatchetSession)}
}

var _ domain.SessionStore = (*MemorySessionStore)(nil)

func (m *MemorySessionStore) GetByConversationID(_ context.Context, id domain.ConversationID) (*domain.RatchetSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemorySessionStore) GetByInboundTopic(_ context.Context, topic domain.Topic) (*domain.RatchetSession, domain.TopicMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if match := ratchet.MatchesSessionTopic(s, topic); match != "" {
			return s.Clone(), match, nil
		}
	}
	return nil, "", domain.ErrSessionNotFound
}

func (m *MemorySessionStore) Save(_ context.Context, session *domain.RatchetSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ConversationID] = session.Clone()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id domain.ConversationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) List(_ context.Context) ([]*domain.RatchetSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.RatchetSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

// MemoryPendingStore keeps pending outbound records in process memory.
type MemoryPendingStore struct {
	mu       sync.RWMutex
	pendings map[string]*domain.PendingOutbound
}

// NewMemoryPendingStore returns an empty pending store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{pendings: make(map[string]*domain.PendingOutbound)}
}

var _ domain.PendingStore = (*MemoryPendingStore)(nil)

func (m *MemoryPendingStore) Create(_ context.Context, record *domain.PendingOutbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendings[record.ID] = record
	return nil
}

func (m *MemoryPendingStore) MarkSubmitted(_ context.Context, id string, txHash common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pendings[id]
	if !ok {
		return domain.ErrPendingNotFound
	}
	p.Status = domain.OutboundSubmitted
	p.TxHash = &txHash
	return nil
}

func (m *MemoryPendingStore) MarkFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pendings[id]
	if !ok {
		return domain.ErrPendingNotFound
	}
	p.Status = domain.OutboundFailed
	return nil
}

func (m *MemoryPendingStore) GetByTxHash(_ context.Context, txHash common.Hash) (*domain.PendingOutbound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pendings {
		if p.TxHash != nil && *p.TxHash == txHash {
			return p, nil
		}
	}
	return nil, domain.ErrPendingNotFound
}

func (m *MemoryPendingStore) GetByConversationID(_ context.Context, id domain.ConversationID) ([]*domain.PendingOutbound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PendingOutbound
	for _, p := range m.pendings {
		if p.ConversationID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryPendingStore) Finalize(_ context.Context, id string) (*domain.PendingOutbound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pendings[id]
	if !ok {
		return nil, domain.ErrPendingNotFound
	}
	delete(m.pendings, id)
	return p, nil
}

func (m *MemoryPendingStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pendings, id)
	return nil
}

// MemoryContactStore keeps pending handshake contacts in process memory.
type MemoryContactStore struct {
	mu       sync.RWMutex
	contacts map[common.Address]*domain.PendingContact
}

// NewMemoryContactStore returns an empty contact store.
func NewMemoryContactStore() *MemoryContactStore {
	return &MemoryContactStore{contacts: make(map[common.Address]*domain.PendingContact)}
}

var _ domain.PendingContactStore = (*MemoryContactStore)(nil)

func (m *MemoryContactStore) Save(_ context.Context, contact *domain.PendingContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[contact.ContactAddress] = contact
	return nil
}

func (m *MemoryContactStore) List(_ context.Context) ([]*domain.PendingContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.PendingContact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryContactStore) Delete(_ context.Context, address common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contacts, address)
	return nil
}
