package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF expands ikm with HKDF-SHA256 under the given salt and info string.
func HKDF(ikm, salt []byte, info string, outLen int) []byte {
	hk := hkdf.New(sha256.New, ikm, salt, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(hk, out); err != nil {
		// Only reachable when outLen exceeds the RFC 5869 limit, which no
		// caller in this module does.
		panic("hkdf: " + err.Error())
	}
	return out
}
