package handshake_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"verbeth/internal/chainlog"
	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	protoidentity "verbeth/internal/protocol/identity"
	"verbeth/internal/protocol/ratchet"
	handshakesvc "verbeth/internal/services/handshake"
	"verbeth/internal/store"
	"verbeth/internal/wallet"
)

var testCfg = protoidentity.Config{ChainID: 1, RPID: "test.verbeth"}

type fixture struct {
	signer   *wallet.LocalSigner
	keys     domain.IdentityKeyPair
	proof    domain.IdentityProof
	contacts *store.MemoryContactStore
	sessions *store.MemorySessionStore
	svc      *handshakesvc.Service
}

func newFixture(t *testing.T, log *chainlog.MemoryLog) *fixture {
	t.Helper()
	signer, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	keys, proof, err := protoidentity.Derive(context.Background(), signer, testCfg)
	require.NoError(t, err)
	contacts := store.NewMemoryContactStore()
	sessions := store.NewMemorySessionStore()
	return &fixture{
		signer:   signer,
		keys:     keys,
		proof:    proof,
		contacts: contacts,
		sessions: sessions,
		svc:      handshakesvc.New(log, contacts, sessions, wallet.EOAVerifier{}, testCfg, ratchet.DefaultOptions()),
	}
}

func TestInitiate_PersistsPendingContact(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice := newFixture(t, log)
	bob := newFixture(t, log)

	pending, err := alice.svc.Initiate(ctx, alice.signer.Address(), bob.signer.Address(), alice.keys, "hi", alice.proof)
	require.NoError(t, err)
	require.Equal(t, bob.signer.Address(), pending.ContactAddress)
	require.NotEmpty(t, pending.KEMSecretKey)

	stored, err := alice.contacts.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	events, err := log.HandshakesFor(ctx, crypto.RecipientHash(bob.signer.Address()))
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestAccept_RejectsForgedInitiatorProof(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice := newFixture(t, log)
	bob := newFixture(t, log)
	mallory := newFixture(t, log)

	// Mallory replays alice's event under her own keys: the embedded
	// proof binds alice's keys to alice's address, not mallory's blob.
	_, err := alice.svc.Initiate(ctx, alice.signer.Address(), bob.signer.Address(), alice.keys, "hi", alice.proof)
	require.NoError(t, err)
	events, err := log.HandshakesFor(ctx, crypto.RecipientHash(bob.signer.Address()))
	require.NoError(t, err)

	forged := events[0]
	forged.PubKeys = mallory.keys.UnifiedPubKeys()
	_, err = bob.svc.Accept(ctx, bob.signer.Address(), forged, bob.keys, "hey", bob.proof)
	require.ErrorIs(t, err, domain.ErrProtocolMismatch)

	forged = events[0]
	forged.Sender = mallory.signer.Address()
	_, err = bob.svc.Accept(ctx, bob.signer.Address(), forged, bob.keys, "hey", bob.proof)
	require.ErrorIs(t, err, domain.ErrProtocolMismatch)
}

func TestProcessResponse_ConsumesPendingOnce(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice := newFixture(t, log)
	bob := newFixture(t, log)

	_, err := alice.svc.Initiate(ctx, alice.signer.Address(), bob.signer.Address(), alice.keys, "hi", alice.proof)
	require.NoError(t, err)
	events, err := log.HandshakesFor(ctx, crypto.RecipientHash(bob.signer.Address()))
	require.NoError(t, err)
	_, err = bob.svc.Accept(ctx, bob.signer.Address(), events[0], bob.keys, "hey", bob.proof)
	require.NoError(t, err)

	responses, err := log.Responses(ctx)
	require.NoError(t, err)
	session, err := alice.svc.ProcessResponse(ctx, alice.signer.Address(), responses[0])
	require.NoError(t, err)
	require.Equal(t, bob.signer.Address(), session.ContactAddress)
	require.True(t, session.Initiator)

	// The pending contact is destroyed; replaying the response matches
	// nothing.
	_, err = alice.svc.ProcessResponse(ctx, alice.signer.Address(), responses[0])
	require.ErrorIs(t, err, domain.ErrNoMatchingPending)
}
