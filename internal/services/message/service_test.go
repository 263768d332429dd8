package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"verbeth/internal/chainlog"
	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	protoidentity "verbeth/internal/protocol/identity"
	"verbeth/internal/protocol/payload"
	"verbeth/internal/protocol/ratchet"
	handshakesvc "verbeth/internal/services/handshake"
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
	pendings  *store.MemoryPendingStore
	contacts  *store.MemoryContactStore
	handshake *handshakesvc.Service
	messages  *messagesvc.Service
}

func newTestParty(t *testing.T, log *chainlog.MemoryLog) *testParty {
	t.Helper()
	signer, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	keys, proof, err := protoidentity.Derive(context.Background(), signer, testCfg)
	require.NoError(t, err)

	sessions := store.NewMemorySessionStore()
	pendings := store.NewMemoryPendingStore()
	contacts := store.NewMemoryContactStore()
	opts := ratchet.DefaultOptions()
	return &testParty{
		signer:    signer,
		keys:      keys,
		proof:     proof,
		sessions:  sessions,
		pendings:  pendings,
		contacts:  contacts,
		handshake: handshakesvc.New(log, contacts, sessions, wallet.EOAVerifier{}, testCfg, opts),
		messages:  messagesvc.New(sessions, pendings, log, keys, opts),
	}
}

// establish runs the full on-log handshake between two fresh parties and
// returns them with sessions in place.
func establish(t *testing.T, log *chainlog.MemoryLog) (alice, bob *testParty, conv domain.ConversationID) {
	t.Helper()
	ctx := context.Background()
	alice = newTestParty(t, log)
	bob = newTestParty(t, log)

	_, err := alice.handshake.Initiate(ctx, alice.signer.Address(), bob.signer.Address(), alice.keys, "hi", alice.proof)
	require.NoError(t, err)

	inbound, err := log.HandshakesFor(ctx, crypto.RecipientHash(bob.signer.Address()))
	require.NoError(t, err)
	require.Len(t, inbound, 1)

	bobSession, err := bob.handshake.Accept(ctx, bob.signer.Address(), inbound[0], bob.keys, "hey", bob.proof)
	require.NoError(t, err)

	responses, err := log.Responses(ctx)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	aliceSession, err := alice.handshake.ProcessResponse(ctx, alice.signer.Address(), responses[0])
	require.NoError(t, err)
	require.Equal(t, bobSession.ConversationID, aliceSession.ConversationID)

	// The pending contact was consumed.
	left, err := alice.contacts.List(ctx)
	require.NoError(t, err)
	require.Empty(t, left)

	return alice, bob, aliceSession.ConversationID
}

// deliver routes every log message newer than *cursor into the party.
func deliver(t *testing.T, log *chainlog.MemoryLog, p *testParty, cursor *int) []*domain.Message {
	t.Helper()
	var out []*domain.Message
	events := log.AllMessages()
	for ; *cursor < len(events); *cursor++ {
		msg, err := p.messages.HandleMessageEvent(context.Background(), events[*cursor])
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func TestEndToEnd_ThreeTurns(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice, bob, conv := establish(t, log)
	aliceCur, bobCur := 0, 0

	_, err := alice.messages.SendMessage(ctx, conv, []byte("m1"))
	require.NoError(t, err)
	got := deliver(t, log, bob, &bobCur)
	require.Len(t, got, 1)
	require.Equal(t, []byte("m1"), got[0].Plaintext)

	_, err = bob.messages.SendMessage(ctx, conv, []byte("m2"))
	require.NoError(t, err)
	got = deliver(t, log, alice, &aliceCur)
	require.Len(t, got, 1)
	require.Equal(t, []byte("m2"), got[0].Plaintext)

	_, err = alice.messages.SendMessage(ctx, conv, []byte("m3"))
	require.NoError(t, err)
	got = deliver(t, log, bob, &bobCur)
	require.Len(t, got, 1)
	require.Equal(t, []byte("m3"), got[0].Plaintext)

	a, err := alice.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	b, err := bob.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.Equal(t, uint32(3), a.TopicEpoch)
	require.Equal(t, uint32(3), b.TopicEpoch)
	require.Equal(t, a.CurrentTopicOutbound, b.CurrentTopicInbound)
}

func TestPrepare_CommitsSessionBeforeSubmission(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice, _, conv := establish(t, log)

	before, err := alice.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)

	pending, err := alice.messages.PrepareMessage(ctx, conv, []byte("queued"))
	require.NoError(t, err)
	require.Equal(t, domain.OutboundPreparing, pending.Status)
	require.Equal(t, before.SendingMsgNumber, pending.SessionBefore.SendingMsgNumber)
	require.Equal(t, before.SendingMsgNumber+1, pending.SessionAfter.SendingMsgNumber)

	// The store already holds the advanced session even though nothing was
	// submitted.
	stored, err := alice.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.Equal(t, pending.SessionAfter.SendingMsgNumber, stored.SendingMsgNumber)
}

func TestSendFailure_BurnsSlot(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice, bob, conv := establish(t, log)
	bobCur := 0

	log.FailNext(1)
	failed, err := alice.messages.SendMessage(ctx, conv, []byte("lost"))
	require.Error(t, err)
	require.Equal(t, domain.OutboundFailed, failed.Status)

	// The retry goes out at a strictly later slot.
	retried, err := alice.messages.SendMessage(ctx, conv, []byte("lost")) // retry
	require.NoError(t, err)
	require.Equal(t, domain.OutboundSubmitted, retried.Status)

	burnedHeader := payload.Parse(failed.PayloadBytes).Header
	retriedHeader := payload.Parse(retried.PayloadBytes).Header
	require.Greater(t, retriedHeader.N, burnedHeader.N)

	got := deliver(t, log, bob, &bobCur)
	require.Len(t, got, 1)
	require.Equal(t, []byte("lost"), got[0].Plaintext)

	// The peer carries exactly one orphan key for the burned slot.
	b, err := bob.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.Len(t, b.SkippedKeys, 1)
	require.Equal(t, burnedHeader.N, b.SkippedKeys[0].MsgNumber)

	require.NoError(t, alice.messages.DeletePending(ctx, failed.ID))
}

func TestConfirmAndRevert(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice, _, conv := establish(t, log)

	sent, err := alice.messages.SendMessage(ctx, conv, []byte("confirm me"))
	require.NoError(t, err)
	require.NotNil(t, sent.TxHash)

	result, err := alice.messages.ConfirmTx(ctx, *sent.TxHash)
	require.NoError(t, err)
	require.Equal(t, conv, result.ConversationID)
	_, err = alice.messages.ConfirmTx(ctx, *sent.TxHash)
	require.ErrorIs(t, err, domain.ErrPendingNotFound)

	// Revert path: the record disappears, the session stays advanced.
	sent2, err := alice.messages.SendMessage(ctx, conv, []byte("revert me"))
	require.NoError(t, err)
	before, err := alice.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.NoError(t, alice.messages.RevertTx(ctx, *sent2.TxHash))
	after, err := alice.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.Equal(t, before.SendingMsgNumber, after.SendingMsgNumber)
	_, err = alice.pendings.GetByTxHash(ctx, *sent2.TxHash)
	require.ErrorIs(t, err, domain.ErrPendingNotFound)
}

func TestInbound_AuthFirstBlocksForgedPayloads(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice, bob, conv := establish(t, log)
	bobCur := 0

	sent, err := alice.messages.SendMessage(ctx, conv, []byte("real"))
	require.NoError(t, err)

	// A forged copy with a bumped message number would force skipped-key
	// allocation if it reached the ratchet.
	parsed := payload.Parse(sent.PayloadBytes)
	forgedHeader := parsed.Header
	forgedHeader.N += 50
	forged := payload.Encode(parsed.Signature, forgedHeader, parsed.Ciphertext)

	events := log.AllMessages()
	forgedEvent := events[len(events)-1]
	forgedEvent.Ciphertext = forged

	_, err = bob.messages.HandleMessageEvent(ctx, forgedEvent)
	require.ErrorIs(t, err, domain.ErrCryptoFailure)

	b, err := bob.sessions.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.Empty(t, b.SkippedKeys, "forged payload must not allocate skipped keys")

	// The genuine event still decrypts.
	got := deliver(t, log, bob, &bobCur)
	require.Len(t, got, 1)
	require.Equal(t, []byte("real"), got[0].Plaintext)
}

func TestInbound_UnknownTopicAndGarbage(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	_, bob, _ := establish(t, log)

	_, err := bob.messages.HandleMessageEvent(ctx, domain.MessageEvent{Ciphertext: []byte{0x00, 0x01}})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	valid := payload.Encode(make([]byte, 64), domain.RatchetHeader{}, []byte("x"))
	_, err = bob.messages.HandleMessageEvent(ctx, domain.MessageEvent{Ciphertext: valid})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReplayOnLog_SecondDeliveryRejected(t *testing.T) {
	ctx := context.Background()
	log := chainlog.NewMemoryLog()
	alice, bob, conv := establish(t, log)
	bobCur := 0

	_, err := alice.messages.SendMessage(ctx, conv, []byte("once"))
	require.NoError(t, err)
	got := deliver(t, log, bob, &bobCur)
	require.Len(t, got, 1)

	// Replaying the same event yields a crypto failure, not a plaintext.
	events := log.AllMessages()
	_, err = bob.messages.HandleMessageEvent(ctx, events[len(events)-1])
	require.ErrorIs(t, err, domain.ErrCryptoFailure)
}
