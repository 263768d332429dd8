// Package payload frames ratchet messages for the log and authenticates
// them before the session engine sees a byte.
package payload

import (
	"verbeth/internal/crypto"
	"verbeth/internal/domain"
)

// Version is the framing version byte. Pre-v1 JSON payloads are not
// recognized.
const Version = 0x01

const (
	signatureSize = 64
	// MinSize is version + signature + header with an empty ciphertext.
	MinSize = 1 + signatureSize + domain.HeaderSize
)

// Ratchet is a parsed ratchet payload.
type Ratchet struct {
	Signature  []byte
	Header     domain.RatchetHeader
	Ciphertext []byte
}

// IsRatchetPayload reports whether the bytes can be a framed ratchet
// message. Cheap pre-filter for ingress routing.
func IsRatchetPayload(b []byte) bool {
	return len(b) >= MinSize && b[0] == Version
}

// Encode frames a signed ratchet message:
//
//	version(1) ‖ signature(64) ‖ dh(32) ‖ pn(4) ‖ n(4) ‖ ciphertext
func Encode(signature []byte, header domain.RatchetHeader, ciphertext []byte) []byte {
	out := make([]byte, 0, MinSize+len(ciphertext))
	out = append(out, Version)
	out = append(out, signature...)
	out = append(out, header.Bytes()...)
	out = append(out, ciphertext...)
	return out
}

// Parse splits a framed payload with strict length and version checks. It
// returns nil on any malformed input.
func Parse(b []byte) *Ratchet {
	if !IsRatchetPayload(b) {
		return nil
	}
	sig := b[1 : 1+signatureSize]
	header, ok := domain.ParseRatchetHeader(b[1+signatureSize : MinSize])
	if !ok {
		return nil
	}
	return &Ratchet{
		Signature:  append([]byte(nil), sig...),
		Header:     header,
		Ciphertext: append([]byte(nil), b[MinSize:]...),
	}
}

// Sign authenticates header ‖ ciphertext with the sender's signing key.
func Sign(edPriv domain.Ed25519Private, header domain.RatchetHeader, ciphertext []byte) []byte {
	return crypto.SignEd25519(edPriv, signedBytes(header, ciphertext))
}

// Verify checks the sender signature. It must pass before any ratchet
// state is touched: a forged header could otherwise drive skipped-key
// allocation to capacity.
func Verify(edPub domain.Ed25519Public, sig []byte, header domain.RatchetHeader, ciphertext []byte) bool {
	return crypto.VerifyEd25519(edPub, signedBytes(header, ciphertext), sig)
}

func signedBytes(header domain.RatchetHeader, ciphertext []byte) []byte {
	hb := header.Bytes()
	msg := make([]byte, 0, len(hb)+len(ciphertext))
	msg = append(msg, hb...)
	msg = append(msg, ciphertext...)
	return msg
}
