package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	aeadKeySize = chacha20poly1305.KeySize
	nonceSize   = chacha20poly1305.NonceSize
)

// AEADSeal encrypts plaintext under a 32-byte message key. The nonce is
// derived from the message number so keys are never reused across numbers;
// the serialized header is bound as associated data.
func AEADSeal(key []byte, msgNumber uint32, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:aeadKeySize])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, counterNonce(msgNumber), plaintext, aad), nil
}

// AEADOpen reverses AEADSeal; it returns nil and false on any failure.
func AEADOpen(key []byte, msgNumber uint32, ciphertext, aad []byte) ([]byte, bool) {
	aead, err := chacha20poly1305.New(key[:aeadKeySize])
	if err != nil {
		return nil, false
	}
	pt, err := aead.Open(nil, counterNonce(msgNumber), ciphertext, aad)
	if err != nil {
		return nil, false
	}
	if pt == nil {
		pt = []byte{}
	}
	return pt, true
}

// AEADOverhead is the ciphertext expansion of the AEAD.
const AEADOverhead = chacha20poly1305.Overhead

func counterNonce(n uint32) []byte {
	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(nonce[nonceSize-4:], n)
	return nonce
}
