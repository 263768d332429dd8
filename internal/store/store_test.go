package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"verbeth/internal/domain"
	"verbeth/internal/store"
)

func testSession(conv byte) *domain.RatchetSession {
	var id domain.ConversationID
	id[0] = conv
	var curIn, nextIn, prevIn domain.Topic
	curIn[0], nextIn[0], prevIn[0] = conv, conv+0x10, conv+0x20
	now := time.Now().UnixMilli()
	return &domain.RatchetSession{
		ConversationID:       id,
		RootKey:              []byte{1, 2, 3},
		CurrentTopicInbound:  curIn,
		NextTopicInbound:     &nextIn,
		PreviousTopicInbound: &prevIn,
		PreviousTopicExpiry:  now + int64(time.Hour/time.Millisecond),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestMemorySessionStore_TopicLookup(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()
	sess := testSession(1)
	require.NoError(t, s.Save(ctx, sess))

	got, match, err := s.GetByInboundTopic(ctx, sess.CurrentTopicInbound)
	require.NoError(t, err)
	require.Equal(t, domain.TopicMatchCurrent, match)
	require.Equal(t, sess.ConversationID, got.ConversationID)

	_, match, err = s.GetByInboundTopic(ctx, *sess.NextTopicInbound)
	require.NoError(t, err)
	require.Equal(t, domain.TopicMatchNext, match)

	_, match, err = s.GetByInboundTopic(ctx, *sess.PreviousTopicInbound)
	require.NoError(t, err)
	require.Equal(t, domain.TopicMatchPrevious, match)

	_, _, err = s.GetByInboundTopic(ctx, common.HexToHash("0x9999"))
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemorySessionStore_SaveIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()
	sess := testSession(2)
	require.NoError(t, s.Save(ctx, sess))

	// Mutating the caller's copy must not reach the store.
	sess.RootKey[0] = 0xff
	got, err := s.GetByConversationID(ctx, sess.ConversationID)
	require.NoError(t, err)
	require.Equal(t, byte(1), got.RootKey[0])

	require.NoError(t, s.Delete(ctx, sess.ConversationID))
	_, err = s.GetByConversationID(ctx, sess.ConversationID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryPendingStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryPendingStore()
	var conv domain.ConversationID
	conv[0] = 9

	rec := &domain.PendingOutbound{ID: "p1", ConversationID: conv, Status: domain.OutboundPreparing}
	require.NoError(t, s.Create(ctx, rec))

	tx := common.HexToHash("0xabc1")
	require.NoError(t, s.MarkSubmitted(ctx, "p1", tx))

	got, err := s.GetByTxHash(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundSubmitted, got.Status)

	list, err := s.GetByConversationID(ctx, conv)
	require.NoError(t, err)
	require.Len(t, list, 1)

	fin, err := s.Finalize(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", fin.ID)
	_, err = s.GetByTxHash(ctx, tx)
	require.ErrorIs(t, err, domain.ErrPendingNotFound)

	require.ErrorIs(t, s.MarkFailed(ctx, "missing"), domain.ErrPendingNotFound)
}

func TestMemoryContactStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryContactStore()
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	require.NoError(t, s.Save(ctx, &domain.PendingContact{ContactAddress: addr}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, addr))
	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSQLiteStore_SessionsAndPendings(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	sess := testSession(4)
	require.NoError(t, db.Save(ctx, sess))

	got, err := db.GetByConversationID(ctx, sess.ConversationID)
	require.NoError(t, err)
	require.Equal(t, sess.CurrentTopicInbound, got.CurrentTopicInbound)

	_, match, err := db.GetByInboundTopic(ctx, *sess.NextTopicInbound)
	require.NoError(t, err)
	require.Equal(t, domain.TopicMatchNext, match)

	// Expired previous topics stop matching.
	sess.PreviousTopicExpiry = time.Now().Add(-time.Minute).UnixMilli()
	require.NoError(t, db.Save(ctx, sess))
	_, _, err = db.GetByInboundTopic(ctx, *sess.PreviousTopicInbound)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	pendings := db.Pendings()
	rec := &domain.PendingOutbound{ID: "q1", ConversationID: sess.ConversationID, Status: domain.OutboundPreparing, CreatedAt: 1}
	require.NoError(t, pendings.Create(ctx, rec))
	tx := common.HexToHash("0xbeef")
	require.NoError(t, pendings.MarkSubmitted(ctx, "q1", tx))
	got2, err := pendings.GetByTxHash(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundSubmitted, got2.Status)
	_, err = pendings.Finalize(ctx, "q1")
	require.NoError(t, err)
	_, err = pendings.GetByTxHash(ctx, tx)
	require.ErrorIs(t, err, domain.ErrPendingNotFound)

	contacts := db.Contacts()
	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	require.NoError(t, contacts.Save(ctx, &domain.PendingContact{ContactAddress: addr, KEMSecretKey: []byte{1}}))
	list, err := contacts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, contacts.Delete(ctx, addr))
}

func TestIdentityFileStore_RoundTripAndWrongPassphrase(t *testing.T) {
	s := store.NewIdentityFileStore(t.TempDir())
	addr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	kp := domain.IdentityKeyPair{}
	kp.X25519Pub[0] = 7
	proof := domain.IdentityProof{BindingMessage: "b", Signature: []byte{1, 2}}

	require.NoError(t, s.Save("pass", addr, kp, proof))
	require.ErrorIs(t, s.Save("pass", addr, kp, proof), domain.ErrIdentityExists)

	got, gotProof, err := s.Load("pass", addr)
	require.NoError(t, err)
	require.Equal(t, kp.X25519Pub, got.X25519Pub)
	require.Equal(t, proof.BindingMessage, gotProof.BindingMessage)

	_, _, err = s.Load("wrong", addr)
	require.Error(t, err)
}
