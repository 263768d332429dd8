// Package ingress drains the event log for one party: inbound handshakes
// are surfaced for the caller to accept, handshake responses are bound to
// pending contacts, and message events are routed to their sessions by
// topic. The router never trial-decrypts; dispatch is the O(1) topic
// lookup over current, next and graced previous inbound topics.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	handshakesvc "verbeth/internal/services/handshake"
	messagesvc "verbeth/internal/services/message"
)

// Delta is the outcome of one poll.
type Delta struct {
	// Handshakes addressed to this party that have not been accepted;
	// accepting needs a user decision, so they are surfaced, not consumed.
	Handshakes []domain.HandshakeEvent
	// NewSessions created by binding handshake responses.
	NewSessions []*domain.RatchetSession
	// Messages decrypted and persisted this poll.
	Messages []*domain.Message
}

// Service polls the log on behalf of one address.
type Service struct {
	log       domain.EventLog
	sessions  domain.SessionStore
	handshake *handshakesvc.Service
	messages  *messagesvc.Service
	myAddress common.Address

	mu            sync.Mutex
	seenHandshake int
	seenResponses int
	seenOnTopic   map[domain.Topic]int
}

// New constructs the router.
func New(
	log domain.EventLog,
	sessions domain.SessionStore,
	handshake *handshakesvc.Service,
	messages *messagesvc.Service,
	myAddress common.Address,
) *Service {
	return &Service{
		log:         log,
		sessions:    sessions,
		handshake:   handshake,
		messages:    messages,
		myAddress:   myAddress,
		seenOnTopic: make(map[domain.Topic]int),
	}
}

// Poll reads everything new since the last call. Events that fail to
// decode or decrypt are skipped; store and log faults abort the poll.
func (s *Service) Poll(ctx context.Context) (*Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := &Delta{}
	if err := s.pollHandshakes(ctx, delta); err != nil {
		return nil, err
	}
	if err := s.pollResponses(ctx, delta); err != nil {
		return nil, err
	}
	if err := s.pollMessages(ctx, delta); err != nil {
		return nil, err
	}
	return delta, nil
}

func (s *Service) pollHandshakes(ctx context.Context, delta *Delta) error {
	events, err := s.log.HandshakesFor(ctx, crypto.RecipientHash(s.myAddress))
	if err != nil {
		return fmt.Errorf("ingress: read handshakes: %w", err)
	}
	for ; s.seenHandshake < len(events); s.seenHandshake++ {
		delta.Handshakes = append(delta.Handshakes, events[s.seenHandshake])
	}
	return nil
}

func (s *Service) pollResponses(ctx context.Context, delta *Delta) error {
	events, err := s.log.Responses(ctx)
	if err != nil {
		return fmt.Errorf("ingress: read responses: %w", err)
	}
	for ; s.seenResponses < len(events); s.seenResponses++ {
		session, err := s.handshake.ProcessResponse(ctx, s.myAddress, events[s.seenResponses])
		if err != nil {
			// Responses for other parties bind to none of our pendings;
			// that is the expected common case on a shared log.
			if errors.Is(err, domain.ErrNoMatchingPending) {
				continue
			}
			if errors.Is(err, domain.ErrProtocolMismatch) {
				continue
			}
			return err
		}
		delta.NewSessions = append(delta.NewSessions, session)
	}
	return nil
}

func (s *Service) pollMessages(ctx context.Context, delta *Delta) error {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("ingress: list sessions: %w", err)
	}
	seen := make(map[domain.Topic]bool)
	for _, session := range sessions {
		for _, topic := range inboundTopics(session) {
			if seen[topic] {
				continue
			}
			seen[topic] = true
			events, err := s.log.MessagesOn(ctx, topic)
			if err != nil {
				return fmt.Errorf("ingress: read topic %s: %w", topic.Hex(), err)
			}
			cursor := s.seenOnTopic[topic]
			for ; cursor < len(events); cursor++ {
				msg, err := s.messages.HandleMessageEvent(ctx, events[cursor])
				if err != nil {
					// Undecryptable or misrouted events are dropped
					// silently, as a failed decrypt must be.
					continue
				}
				delta.Messages = append(delta.Messages, msg)
			}
			s.seenOnTopic[topic] = cursor
		}
	}
	return nil
}

func inboundTopics(s *domain.RatchetSession) []domain.Topic {
	out := []domain.Topic{s.CurrentTopicInbound}
	if s.NextTopicInbound != nil {
		out = append(out, *s.NextTopicInbound)
	}
	if s.PreviousTopicInbound != nil {
		out = append(out, *s.PreviousTopicInbound)
	}
	return out
}
