// Package commands defines the verbeth CLI: identity management against
// the encrypted local store, session inspection, and a self-contained
// two-party demo over the in-memory log.
package commands
