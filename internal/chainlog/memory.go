// Package chainlog provides an in-memory stand-in for the on-chain event
// log and its transaction submitter. The real contract, its ABI and the
// RPC transport live outside the core; tests and the demo run against this
// implementation, including its fault injection.
package chainlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
)

// ErrSubmissionDropped is returned when fault injection eats a submission.
var ErrSubmissionDropped = errors.New("chainlog: submission dropped")

// MemoryLog is an append-only event log with deterministic transaction
// hashes. It implements both domain.EventLog and
// domain.TransactionSubmitter.
type MemoryLog struct {
	mu         sync.Mutex
	seq        uint64
	handshakes []domain.HandshakeEvent
	responses  []domain.HandshakeResponseEvent
	messages   []domain.MessageEvent

	// failNext makes that many upcoming submissions fail, in order.
	failNext int
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

var (
	_ domain.EventLog             = (*MemoryLog)(nil)
	_ domain.TransactionSubmitter = (*MemoryLog)(nil)
)

// FailNext arranges for the next n submissions to be dropped. The dropped
// submissions still consume a sequence number, mirroring a transaction
// that was signed but never mined.
func (l *MemoryLog) FailNext(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = n
}

func (l *MemoryLog) nextRef(payload []byte) (domain.TxRef, bool) {
	l.seq++
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], l.seq)
	ref := domain.TxRef{Hash: crypto.Keccak256Hash(seq[:], payload)}
	if l.failNext > 0 {
		l.failNext--
		return ref, false
	}
	return ref, true
}

// ---------- TransactionSubmitter ----------

func (l *MemoryLog) SendMessage(_ context.Context, payload []byte, topic domain.Topic, timestamp uint64, nonce uint64) (domain.TxRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ref, ok := l.nextRef(payload)
	if !ok {
		return domain.TxRef{}, ErrSubmissionDropped
	}
	l.messages = append(l.messages, domain.MessageEvent{
		Topic:      topic,
		Ciphertext: append([]byte(nil), payload...),
		Timestamp:  timestamp,
		Nonce:      nonce,
	})
	return ref, nil
}

func (l *MemoryLog) SendHandshake(_ context.Context, ev domain.HandshakeEvent) (domain.TxRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ref, ok := l.nextRef(ev.Payload)
	if !ok {
		return domain.TxRef{}, ErrSubmissionDropped
	}
	l.handshakes = append(l.handshakes, ev)
	return ref, nil
}

func (l *MemoryLog) SendHandshakeResponse(_ context.Context, ev domain.HandshakeResponseEvent) (domain.TxRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ref, ok := l.nextRef(ev.Ciphertext)
	if !ok {
		return domain.TxRef{}, ErrSubmissionDropped
	}
	l.responses = append(l.responses, ev)
	return ref, nil
}

// ---------- EventLog ----------

func (l *MemoryLog) HandshakesFor(_ context.Context, recipientHash common.Hash) ([]domain.HandshakeEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.HandshakeEvent
	for _, ev := range l.handshakes {
		if ev.RecipientHash == recipientHash {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (l *MemoryLog) Responses(_ context.Context) ([]domain.HandshakeResponseEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.HandshakeResponseEvent(nil), l.responses...), nil
}

func (l *MemoryLog) MessagesOn(_ context.Context, topic domain.Topic) ([]domain.MessageEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.MessageEvent
	for _, ev := range l.messages {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out, nil
}

// AllMessages returns every message event in log order; the demo drains
// the log with it instead of tracking topics itself.
func (l *MemoryLog) AllMessages() []domain.MessageEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.MessageEvent(nil), l.messages...)
}
