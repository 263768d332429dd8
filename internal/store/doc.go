// Package store provides the persistence backends for sessions, pending
// outbound records, pending contacts and the encrypted identity file.
//
// The Memory*Store types back tests and the demo; SQLiteStore is the durable
// backend. Both serialize writes per key as the engine contract requires.
package store
