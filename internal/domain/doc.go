// Package domain holds the semantic types shared across the VerbEth core:
// key material, sessions, pending records, log events and the interfaces
// the engine expects its collaborators (stores, submitter, verifier) to
// implement. It contains no protocol logic.
package domain
