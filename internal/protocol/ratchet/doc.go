// Package ratchet implements the VerbEth session engine: a Double-Ratchet
// variant whose DH ratchet advances one half-step per change of speaker,
// with a topic ratchet rotating the public routing identifier in lockstep.
//
// Every operation is a pure function from (session, input) to (session',
// output): the input session is cloned, the clone is mutated, and the clone
// is returned only on success. A failed decrypt therefore leaves the
// caller's session byte-identical. Callers must persist the returned
// session before acting on any output.
package ratchet
