package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"verbeth/internal/chainlog"
	"verbeth/internal/crypto"
	"verbeth/internal/domain"
	protoidentity "verbeth/internal/protocol/identity"
	"verbeth/internal/protocol/ratchet"
	handshakesvc "verbeth/internal/services/handshake"
	messagesvc "verbeth/internal/services/message"
	"verbeth/internal/store"
	"verbeth/internal/wallet"
)

// demoParty is one side of the demo conversation with its own stores.
type demoParty struct {
	name      string
	signer    *wallet.LocalSigner
	keys      domain.IdentityKeyPair
	proof     domain.IdentityProof
	sessions  *store.MemorySessionStore
	handshake *handshakesvc.Service
	messages  *messagesvc.Service
}

// demoCmd runs a complete two-party exchange over the in-memory log:
// handshake, three messages with topic rotation, and a dropped submission
// demonstrating the burned-slot recovery.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a two-party conversation against the in-memory log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func newDemoParty(ctx context.Context, name string, log *chainlog.MemoryLog, cfg protoidentity.Config, opts ratchet.Options) (*demoParty, error) {
	signer, err := wallet.NewLocalSigner()
	if err != nil {
		return nil, err
	}
	keys, proof, err := protoidentity.Derive(ctx, signer, cfg)
	if err != nil {
		return nil, err
	}
	sessions := store.NewMemorySessionStore()
	contacts := store.NewMemoryContactStore()
	pendings := store.NewMemoryPendingStore()
	return &demoParty{
		name:      name,
		signer:    signer,
		keys:      keys,
		proof:     proof,
		sessions:  sessions,
		handshake: handshakesvc.New(log, contacts, sessions, wallet.EOAVerifier{}, cfg, opts),
		messages:  messagesvc.New(sessions, pendings, log, keys, opts),
	}, nil
}

// receive drains log messages newer than *cursor into the party's session.
func (p *demoParty) receive(ctx context.Context, log *chainlog.MemoryLog, cursor *int) error {
	events := log.AllMessages()
	for ; *cursor < len(events); *cursor++ {
		msg, err := p.messages.HandleMessageEvent(ctx, events[*cursor])
		if err != nil {
			continue // not addressed to this party
		}
		fmt.Printf("  %s <- %q (topic match %s, epoch %d)\n",
			p.name, msg.Plaintext, msg.TopicMatch, msg.Session.TopicEpoch)
	}
	return nil
}

func runDemo(ctx context.Context) error {
	log := chainlog.NewMemoryLog()
	cfg := protoidentity.Config{ChainID: 1, RPID: "demo.verbeth"}
	opts := ratchet.DefaultOptions()

	alice, err := newDemoParty(ctx, "alice", log, cfg, opts)
	if err != nil {
		return err
	}
	bob, err := newDemoParty(ctx, "bob", log, cfg, opts)
	if err != nil {
		return err
	}
	fmt.Printf("alice %s\nbob   %s\n", alice.signer.Address(), bob.signer.Address())

	// Handshake: alice initiates, bob accepts, alice binds the response.
	if _, err := alice.handshake.Initiate(ctx, alice.signer.Address(), bob.signer.Address(), alice.keys, "hi", alice.proof); err != nil {
		return err
	}
	inbound, err := log.HandshakesFor(ctx, crypto.RecipientHash(bob.signer.Address()))
	if err != nil || len(inbound) == 0 {
		return fmt.Errorf("no handshake delivered: %v", err)
	}
	bobSession, err := bob.handshake.Accept(ctx, bob.signer.Address(), inbound[0], bob.keys, "hey", bob.proof)
	if err != nil {
		return err
	}
	responses, err := log.Responses(ctx)
	if err != nil {
		return err
	}
	aliceSession, err := alice.handshake.ProcessResponse(ctx, alice.signer.Address(), responses[0])
	if err != nil {
		return err
	}
	fmt.Printf("conversation %s established\n", aliceSession.ConversationID.Hex())

	// Three turns with a dropped submission in the middle.
	aliceCursor, bobCursor := 0, 0
	if _, err := alice.messages.SendMessage(ctx, aliceSession.ConversationID, []byte("m1")); err != nil {
		return err
	}
	if err := bob.receive(ctx, log, &bobCursor); err != nil {
		return err
	}

	log.FailNext(1)
	if _, err := bob.messages.SendMessage(ctx, bobSession.ConversationID, []byte("m2 (dropped)")); err != nil {
		fmt.Printf("  bob's submission dropped, slot burned: %v\n", err)
	}
	if _, err := bob.messages.SendMessage(ctx, bobSession.ConversationID, []byte("m2")); err != nil {
		return err
	}
	if err := alice.receive(ctx, log, &aliceCursor); err != nil {
		return err
	}

	if _, err := alice.messages.SendMessage(ctx, aliceSession.ConversationID, []byte("m3")); err != nil {
		return err
	}
	if err := bob.receive(ctx, log, &bobCursor); err != nil {
		return err
	}

	a, _ := alice.sessions.GetByConversationID(ctx, aliceSession.ConversationID)
	b, _ := bob.sessions.GetByConversationID(ctx, bobSession.ConversationID)
	fmt.Printf("final epochs: alice=%d bob=%d\n", a.TopicEpoch, b.TopicEpoch)
	fmt.Printf("alice outbound topic %s\nbob   inbound topic  %s\n",
		a.CurrentTopicOutbound.Hex(), b.CurrentTopicInbound.Hex())
	return nil
}
