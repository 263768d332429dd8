package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"verbeth/internal/domain"
)

// SQLiteStore is the durable backend for sessions, pending outbound
// records and pending contacts. Sessions are stored as JSON blobs with
// their inbound topics denormalized into indexed columns so topic routing
// is a point lookup instead of a scan.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (and migrates) a store at path. Use ":memory:" for an
// ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
	conversation_id TEXT PRIMARY KEY,
	cur_topic_in    TEXT NOT NULL,
	next_topic_in   TEXT,
	prev_topic_in   TEXT,
	prev_expiry     INTEGER NOT NULL DEFAULT 0,
	blob            BLOB NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_cur  ON sessions(cur_topic_in);
CREATE INDEX IF NOT EXISTS idx_sessions_next ON sessions(next_topic_in);
CREATE INDEX IF NOT EXISTS idx_sessions_prev ON sessions(prev_topic_in);

CREATE TABLE IF NOT EXISTS pending_outbound (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	tx_hash         TEXT,
	status          TEXT NOT NULL,
	blob            BLOB NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_conv ON pending_outbound(conversation_id);
CREATE INDEX IF NOT EXISTS idx_pending_tx   ON pending_outbound(tx_hash);

CREATE TABLE IF NOT EXISTS pending_contacts (
	contact_address TEXT PRIMARY KEY,
	blob            BLOB NOT NULL,
	created_at      INTEGER NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

var _ domain.SessionStore = (*SQLiteStore)(nil)

// Pendings returns the pending-outbound view over the same database.
func (s *SQLiteStore) Pendings() *SQLitePendingStore {
	return &SQLitePendingStore{db: s.db, mu: &s.mu}
}

// Contacts returns the pending-contact view over the same database.
func (s *SQLiteStore) Contacts() *SQLiteContactStore {
	return &SQLiteContactStore{db: s.db, mu: &s.mu}
}

func topicKey(t domain.Topic) string { return strings.ToLower(t.Hex()) }

// ---------- SessionStore ----------

func (s *SQLiteStore) GetByConversationID(ctx context.Context, id domain.ConversationID) (*domain.RatchetSession, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM sessions WHERE conversation_id = ?`, topicKey(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return decodeSession(blob)
}

func (s *SQLiteStore) GetByInboundTopic(ctx context.Context, topic domain.Topic) (*domain.RatchetSession, domain.TopicMatch, error) {
	key := topicKey(topic)
	now := time.Now().UnixMilli()
	row := s.db.QueryRowContext(ctx, `
SELECT blob,
	CASE
		WHEN cur_topic_in = ?1 THEN 'current'
		WHEN next_topic_in = ?1 THEN 'next'
		ELSE 'previous'
	END
FROM sessions
WHERE cur_topic_in = ?1
   OR next_topic_in = ?1
   OR (prev_topic_in = ?1 AND prev_expiry > ?2)
LIMIT 1`, key, now)

	var blob []byte
	var match string
	err := row.Scan(&blob, &match)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("store: topic lookup: %w", err)
	}
	session, derr := decodeSession(blob)
	if derr != nil {
		return nil, "", derr
	}
	return session, domain.TopicMatch(match), nil
}

func (s *SQLiteStore) Save(ctx context.Context, session *domain.RatchetSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: encode session: %w", err)
	}
	var next, prev any
	if session.NextTopicInbound != nil {
		next = topicKey(*session.NextTopicInbound)
	}
	if session.PreviousTopicInbound != nil {
		prev = topicKey(*session.PreviousTopicInbound)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (conversation_id, cur_topic_in, next_topic_in, prev_topic_in, prev_expiry, blob, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET
	cur_topic_in = excluded.cur_topic_in,
	next_topic_in = excluded.next_topic_in,
	prev_topic_in = excluded.prev_topic_in,
	prev_expiry = excluded.prev_expiry,
	blob = excluded.blob,
	updated_at = excluded.updated_at`,
		topicKey(session.ConversationID), topicKey(session.CurrentTopicInbound),
		next, prev, session.PreviousTopicExpiry, blob, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE conversation_id = ?`, topicKey(id)); err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*domain.RatchetSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT blob FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()
	var out []*domain.RatchetSession
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		session, err := decodeSession(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func decodeSession(blob []byte) (*domain.RatchetSession, error) {
	var session domain.RatchetSession
	if err := json.Unmarshal(blob, &session); err != nil {
		return nil, fmt.Errorf("store: decode session: %w", err)
	}
	return &session, nil
}

// SQLitePendingStore is the pending-outbound view of a SQLiteStore.
type SQLitePendingStore struct {
	db *sql.DB
	mu *sync.Mutex
}

var _ domain.PendingStore = (*SQLitePendingStore)(nil)

func (s *SQLitePendingStore) Create(ctx context.Context, record *domain.PendingOutbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: encode pending: %w", err)
	}
	var txHash any
	if record.TxHash != nil {
		txHash = strings.ToLower(record.TxHash.Hex())
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO pending_outbound (id, conversation_id, tx_hash, status, blob, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, topicKey(record.ConversationID), txHash, string(record.Status), blob, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create pending: %w", err)
	}
	return nil
}

func (s *SQLitePendingStore) MarkSubmitted(ctx context.Context, id string, txHash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(ctx, `id = ?`, id)
	if err != nil {
		return err
	}
	p.Status = domain.OutboundSubmitted
	p.TxHash = &txHash
	return s.update(ctx, p)
}

func (s *SQLitePendingStore) MarkFailed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(ctx, `id = ?`, id)
	if err != nil {
		return err
	}
	p.Status = domain.OutboundFailed
	return s.update(ctx, p)
}

func (s *SQLitePendingStore) GetByTxHash(ctx context.Context, txHash common.Hash) (*domain.PendingOutbound, error) {
	return s.get(ctx, `tx_hash = ?`, strings.ToLower(txHash.Hex()))
}

func (s *SQLitePendingStore) GetByConversationID(ctx context.Context, id domain.ConversationID) ([]*domain.PendingOutbound, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT blob FROM pending_outbound WHERE conversation_id = ? ORDER BY created_at`, topicKey(id))
	if err != nil {
		return nil, fmt.Errorf("store: pendings by conversation: %w", err)
	}
	defer rows.Close()
	var out []*domain.PendingOutbound
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var p domain.PendingOutbound
		if err := json.Unmarshal(blob, &p); err != nil {
			return nil, fmt.Errorf("store: decode pending: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *SQLitePendingStore) Finalize(ctx context.Context, id string) (*domain.PendingOutbound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(ctx, `id = ?`, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_outbound WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("store: finalize pending: %w", err)
	}
	return p, nil
}

func (s *SQLitePendingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_outbound WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete pending: %w", err)
	}
	return nil
}

func (s *SQLitePendingStore) get(ctx context.Context, where string, arg any) (*domain.PendingOutbound, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM pending_outbound WHERE `+where, arg).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get pending: %w", err)
	}
	var p domain.PendingOutbound
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, fmt.Errorf("store: decode pending: %w", err)
	}
	return &p, nil
}

func (s *SQLitePendingStore) update(ctx context.Context, p *domain.PendingOutbound) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode pending: %w", err)
	}
	var txHash any
	if p.TxHash != nil {
		txHash = strings.ToLower(p.TxHash.Hex())
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE pending_outbound SET tx_hash = ?, status = ?, blob = ? WHERE id = ?`,
		txHash, string(p.Status), blob, p.ID); err != nil {
		return fmt.Errorf("store: update pending: %w", err)
	}
	return nil
}

// SQLiteContactStore is the pending-contact view of a SQLiteStore.
type SQLiteContactStore struct {
	db *sql.DB
	mu *sync.Mutex
}

var _ domain.PendingContactStore = (*SQLiteContactStore)(nil)

func (s *SQLiteContactStore) Save(ctx context.Context, contact *domain.PendingContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("store: encode contact: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO pending_contacts (contact_address, blob, created_at)
VALUES (?, ?, ?)
ON CONFLICT(contact_address) DO UPDATE SET blob = excluded.blob, created_at = excluded.created_at`,
		strings.ToLower(contact.ContactAddress.Hex()), blob, contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save contact: %w", err)
	}
	return nil
}

func (s *SQLiteContactStore) List(ctx context.Context) ([]*domain.PendingContact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT blob FROM pending_contacts`)
	if err != nil {
		return nil, fmt.Errorf("store: list contacts: %w", err)
	}
	defer rows.Close()
	var out []*domain.PendingContact
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var c domain.PendingContact
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, fmt.Errorf("store: decode contact: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLiteContactStore) Delete(ctx context.Context, address common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_contacts WHERE contact_address = ?`, strings.ToLower(address.Hex())); err != nil {
		return fmt.Errorf("store: delete contact: %w", err)
	}
	return nil
}
