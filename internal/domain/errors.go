package domain

import "errors"

// Error taxonomy surfaced by the core. Pure crypto paths return nil results
// instead of these so session state stays atomic; services translate.
var (
	// ErrProtocolMismatch covers header, version or context mismatches and
	// failed binding verification. Non-retryable.
	ErrProtocolMismatch = errors.New("protocol mismatch")

	// ErrCryptoFailure covers AEAD, signature and KEM failures. The session
	// is never mutated when it is returned.
	ErrCryptoFailure = errors.New("cryptographic failure")

	// ErrSessionNotFound means no session matched the conversation id or
	// topic. The caller may trigger a handshake.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoMatchingPending means a handshake response bound to none of the
	// pending initiator contacts.
	ErrNoMatchingPending = errors.New("no matching pending contact")

	// ErrCapacityExceeded names a full skipped-key table. The ratchet engine
	// does not return it: an insert past capacity evicts the oldest entry.
	ErrCapacityExceeded = errors.New("skipped-key capacity exceeded")

	// ErrInvalidInput covers malformed payloads and wrong lengths.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPendingNotFound means no pending outbound matched the reference.
	ErrPendingNotFound = errors.New("pending outbound not found")

	// ErrIdentityExists guards against overwriting a stored identity.
	ErrIdentityExists = errors.New("identity already exists")
)
