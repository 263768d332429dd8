// Package app wires application dependencies for the CLI.
//
// It builds the concrete stores, the log stand-in, and the high-level
// services from Config, exposing them via the Wire struct for commands to
// use.
package app

import (
	"fmt"
	"path/filepath"

	"verbeth/internal/chainlog"
	"verbeth/internal/domain"
	protoidentity "verbeth/internal/protocol/identity"
	"verbeth/internal/protocol/ratchet"
	handshakesvc "verbeth/internal/services/handshake"
	identitysvc "verbeth/internal/services/identity"
	messagesvc "verbeth/internal/services/message"
	"verbeth/internal/store"
	"verbeth/internal/wallet"
)

// Wire bundles the stores and services the CLI uses.
type Wire struct {
	Identity  *identitysvc.Service
	Handshake *handshakesvc.Service

	Sessions  domain.SessionStore
	Pendings  domain.PendingStore
	Contacts  domain.PendingContactStore
	Log       *chainlog.MemoryLog
	Verifier  domain.MessageSignatureVerifier
	Store     *store.SQLiteStore
	IDConfig  protoidentity.Config
	Options   ratchet.Options
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.HomeDir, "verbeth.db")
	}
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	idStore := store.NewIdentityFileStore(cfg.HomeDir)
	log := chainlog.NewMemoryLog()
	verifier := wallet.EOAVerifier{}
	idConfig := protoidentity.Config{ChainID: cfg.ChainID, RPID: cfg.RPID}
	opts := ratchet.DefaultOptions()

	return &Wire{
		Identity:  identitysvc.New(idStore, idConfig),
		Handshake: handshakesvc.New(log, db.Contacts(), db, verifier, idConfig, opts),
		Sessions:  db,
		Pendings:  db.Pendings(),
		Contacts:  db.Contacts(),
		Log:       log,
		Verifier:  verifier,
		Store:     db,
		IDConfig:  idConfig,
		Options:   opts,
	}, nil
}

// Messages builds the per-identity outbound coordinator.
func (w *Wire) Messages(identity domain.IdentityKeyPair) *messagesvc.Service {
	return messagesvc.New(w.Sessions, w.Pendings, w.Log, identity, w.Options)
}

// Close releases the durable store.
func (w *Wire) Close() error { return w.Store.Close() }
