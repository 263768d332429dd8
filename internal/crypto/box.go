package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"

	"verbeth/internal/domain"
)

// SealAnonymous encrypts msg to an X25519 recipient key without revealing
// the sender. Used for handshake response payloads so the on-log bytes do
// not identify the responder.
func SealAnonymous(msg []byte, recipient domain.X25519Public) ([]byte, error) {
	pub := [32]byte(recipient)
	return box.SealAnonymous(nil, msg, &pub, rand.Reader)
}

// OpenAnonymous decrypts an anonymous box with the recipient's key pair.
func OpenAnonymous(ciphertext []byte, recipientPub domain.X25519Public, recipientSec domain.X25519Private) ([]byte, bool) {
	pub := [32]byte(recipientPub)
	sec := [32]byte(recipientSec)
	return box.OpenAnonymous(nil, ciphertext, &pub, &sec)
}
