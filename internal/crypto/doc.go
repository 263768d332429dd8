// Package crypto exposes the primitives used by the VerbEth core.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519,
//     ClampX25519PrivateKey, DH)
//   - Ed25519 derivation from seed, signing and verification
//   - ML-KEM-768 key generation, encapsulation and decapsulation
//   - ChaCha20-Poly1305 sealing with counter-derived nonces
//   - Anonymous sealed boxes for handshake responses
//   - HKDF-SHA256, keccak256 and contact hashing
//   - Best-effort memory wiping and constant-time comparison
//
// # Notes
//
// X25519 and Ed25519 keys use the fixed-size array types in internal/domain
// to avoid accidental reallocations; ML-KEM keys, AEAD keys and derived
// secrets are byte slices. Callers should treat returned secrets
// as sensitive and rely on Wipe when practical.
package crypto
