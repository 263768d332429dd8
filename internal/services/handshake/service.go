// Package handshake drives the on-log contact flow: emitting Handshake
// events, accepting them, and binding responses back to pending contacts.
package handshake

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"verbeth/internal/domain"
	protohandshake "verbeth/internal/protocol/handshake"
	protoidentity "verbeth/internal/protocol/identity"
	"verbeth/internal/protocol/ratchet"
)

// Service wires the handshake protocol to the submitter, the stores and
// the identity-proof oracle.
type Service struct {
	submitter domain.TransactionSubmitter
	contacts  domain.PendingContactStore
	sessions  domain.SessionStore
	verifier  domain.MessageSignatureVerifier
	cfg       protoidentity.Config
	opts      ratchet.Options
}

// New constructs the handshake service.
func New(
	submitter domain.TransactionSubmitter,
	contacts domain.PendingContactStore,
	sessions domain.SessionStore,
	verifier domain.MessageSignatureVerifier,
	cfg protoidentity.Config,
	opts ratchet.Options,
) *Service {
	return &Service{
		submitter: submitter,
		contacts:  contacts,
		sessions:  sessions,
		verifier:  verifier,
		cfg:       cfg,
		opts:      opts,
	}
}

// Initiate emits a Handshake event for the recipient and persists the
// pending contact holding the handshake ephemerals. The pending record is
// the only copy of those secrets; losing it orphans the handshake.
func (s *Service) Initiate(ctx context.Context, myAddress, recipient common.Address, kp domain.IdentityKeyPair, plaintext string, proof domain.IdentityProof) (*domain.PendingContact, error) {
	init, err := protohandshake.Initiate(myAddress, recipient, kp, plaintext, proof)
	if err != nil {
		return nil, err
	}
	ref, err := s.submitter.SendHandshake(ctx, init.Event)
	if err != nil {
		return nil, fmt.Errorf("handshake: submit: %w", err)
	}
	contact := &domain.PendingContact{
		ContactAddress:           recipient,
		HandshakeEphemeralSecret: init.EphemeralSecret,
		KEMSecretKey:             init.KEMSecret,
		CreatedAt:                time.Now().UnixMilli(),
		TxHash:                   ref.Hash,
	}
	if err := s.contacts.Save(ctx, contact); err != nil {
		return nil, fmt.Errorf("handshake: persist pending contact: %w", err)
	}
	return contact, nil
}

// Accept processes an inbound Handshake event: verifies the initiator's
// identity proof, emits the response, and persists the responder-side
// session. The returned session is already saved.
func (s *Service) Accept(ctx context.Context, myAddress common.Address, ev domain.HandshakeEvent, kp domain.IdentityKeyPair, note string, proof domain.IdentityProof) (*domain.RatchetSession, error) {
	initiatorX, initiatorEd, err := domain.ParseUnifiedPubKeys(ev.PubKeys)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w: %v", domain.ErrInvalidInput, err)
	}
	body, err := protohandshake.ParsePayload(ev.Payload)
	if err != nil {
		return nil, err
	}
	ok, err := protoidentity.VerifyProof(ctx, s.verifier, body.IdentityProof, ev.Sender,
		protoidentity.ExpectedKeys{X25519: initiatorX, Ed25519: initiatorEd}, s.cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("handshake: initiator proof: %w", domain.ErrProtocolMismatch)
	}

	accept, err := protohandshake.Accept(myAddress, ev.EphemeralBlob, kp, note, proof)
	if err != nil {
		return nil, err
	}

	initiatorEph, _, err := protohandshake.SplitEphemeralBlob(ev.EphemeralBlob)
	if err != nil {
		return nil, err
	}
	session, err := ratchet.InitSessionAsResponder(ratchet.ResponderParams{
		MyAddress:             myAddress,
		ContactAddress:        ev.Sender,
		RatchetSecret:         accept.RatchetSecret,
		RatchetPublic:         accept.RatchetPublic,
		InitiatorEphemeralPub: initiatorEph,
		TopicOutbound:         accept.TopicOutbound,
		TopicInbound:          accept.TopicInbound,
		KEMShared:             accept.KEMShared,
		ContactIdentityKey:    initiatorX,
		ContactSigningKey:     initiatorEd,
	}, s.opts)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("handshake: persist session: %w", err)
	}
	if _, err := s.submitter.SendHandshakeResponse(ctx, accept.Event); err != nil {
		return nil, fmt.Errorf("handshake: submit response: %w", err)
	}
	return session, nil
}

// ProcessResponse binds an inbound HandshakeResponse to a pending contact.
// A response matching none of them is dropped silently with
// ErrNoMatchingPending; the caller may log it. On a match the responder's
// proof is verified, the initiator session is created and saved, and the
// pending contact is destroyed.
func (s *Service) ProcessResponse(ctx context.Context, myAddress common.Address, ev domain.HandshakeResponseEvent) (*domain.RatchetSession, error) {
	pendings, err := s.contacts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("handshake: list pending contacts: %w", err)
	}
	match, err := protohandshake.MatchResponse(ev, pendings)
	if err != nil {
		return nil, err
	}

	ok, err := protoidentity.VerifyProof(ctx, s.verifier, match.Payload.IdentityProof, ev.Responder,
		protoidentity.ExpectedKeys{
			X25519:  match.Payload.IdentityPubKey,
			Ed25519: match.Payload.SigningPubKey,
		}, s.cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("handshake: responder proof: %w", domain.ErrProtocolMismatch)
	}

	session, err := ratchet.InitSessionAsInitiator(ratchet.InitiatorParams{
		MyAddress:          myAddress,
		ContactAddress:     ev.Responder,
		EphemeralSecret:    match.Contact.HandshakeEphemeralSecret,
		RatchetRemotePub:   match.Payload.RatchetEphemeralPub,
		TopicOutbound:      match.TopicOutbound,
		TopicInbound:       match.TopicInbound,
		KEMShared:          match.KEMShared,
		ContactIdentityKey: match.Payload.IdentityPubKey,
		ContactSigningKey:  match.Payload.SigningPubKey,
	}, s.opts)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("handshake: persist session: %w", err)
	}
	if err := s.contacts.Delete(ctx, match.Contact.ContactAddress); err != nil {
		return nil, fmt.Errorf("handshake: destroy pending contact: %w", err)
	}
	return session, nil
}
