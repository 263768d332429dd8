package ingress_test

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
	"verbeth/internal/services/ingress"
	messagesvc "verbeth/internal/services/message"
	"verbeth/internal/store"
	"verbeth/internal/wallet"
)

var testCfg = protoidentity.Config{ChainID: 1, RPID: "test.verbeth"}

type testParty struct {
	signer    *wallet.LocalSigner
	keys      domain.IdentityKeyPair
	proof     domain.IdentityProof
	sessions  *store.MemorySessionStore
	handshake *handshakesvc.Service
	messages  *messagesvc.Service
	ingress   *ingress.Service
}

func newTestParty(t *testing.T, log *chainlog.MemoryLog) *testParty {
	t.Helper()
	signer, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	keys, proof, err := protoidentity.Derive(context.Background(), signer, testCfg)
	require.NoError(t, err)

	sessions := store.NewMemorySessionStore()
	opts := ratchet.DefaultOptions()
	hs := handshakesvc.New(log, store.NewMemoryContactStore(), sessions, wallet.EOAVerifier{}, testCfg, opts)
	ms := messagesvc.New(sessions, store.NewMemoryPendingStore(), log, keys, opts)
	return &testParty{
		signer:    signer,
		keys:      keys,
		proof:     proof,
		sessions:  sessions,
		handshake: hs,
		messages:  ms,
		ingress:   ingress.New(log, sessions, hs, ms, signer.Address()),
	}
}

func TestPoll_FullConversation(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice := newTestParty(t, log)
	bob := newTestParty(t, log)

	// Alice initiates; bob's poll surfaces the handshake but does not
	// auto-accept it.
	_, err := alice.handshake.Initiate(ctx, alice.signer.Address(), bob.signer.Address(), alice.keys, "hi", alice.proof)
	require.NoError(t, err)

	delta, err := bob.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, delta.Handshakes, 1)
	require.Empty(t, delta.NewSessions)

	// A second poll reports nothing new.
	delta, err = bob.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, delta.Handshakes)

	// Bob accepts; alice's poll binds the response into a session.
	inbound, err := log.HandshakesFor(ctx, cryptoRecipientHash(bob))
	require.NoError(t, err)
	bobSession, err := bob.handshake.Accept(ctx, bob.signer.Address(), inbound[0], bob.keys, "hey", bob.proof)
	require.NoError(t, err)

	delta, err = alice.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, delta.NewSessions, 1)
	conv := delta.NewSessions[0].ConversationID
	require.Equal(t, bobSession.ConversationID, conv)

	// Messages flow both ways through polls alone.
	_, err = alice.messages.SendMessage(ctx, conv, []byte("m1"))
	require.NoError(t, err)
	delta, err = bob.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, delta.Messages, 1)
	require.Equal(t, []byte("m1"), delta.Messages[0].Plaintext)

	_, err = bob.messages.SendMessage(ctx, conv, []byte("m2"))
	require.NoError(t, err)
	delta, err = alice.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, delta.Messages, 1)
	require.Equal(t, []byte("m2"), delta.Messages[0].Plaintext)

	// Replayed polls never re-deliver.
	delta, err = alice.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, delta.Messages)
}

func TestPoll_IgnoresForeignResponses(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice := newTestParty(t, log)
	bob := newTestParty(t, log)
	carol := newTestParty(t, log)

	// Carol initiates to bob; bob responds. Alice has no pending contact
	// for that response and must skip it silently.
	_, err := carol.handshake.Initiate(ctx, carol.signer.Address(), bob.signer.Address(), carol.keys, "hi", carol.proof)
	require.NoError(t, err)
	inbound, err := log.HandshakesFor(ctx, cryptoRecipientHash(bob))
	require.NoError(t, err)
	_, err = bob.handshake.Accept(ctx, bob.signer.Address(), inbound[0], bob.keys, "", bob.proof)
	require.NoError(t, err)

	delta, err := alice.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, delta.NewSessions)

	// Carol's poll binds it.
	delta, err = carol.ingress.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, delta.NewSessions, 1)
}

func cryptoRecipientHash(p *testParty) domain.Topic {
	return crypto.RecipientHash(p.signer.Address())
}
