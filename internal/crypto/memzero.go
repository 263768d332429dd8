package crypto

import (
	"crypto/subtle"
	"runtime"
)

// Wipe zeroes the provided buffer. Best-effort to prevent compiler elision.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// Keep b alive until after the loop.
	runtime.KeepAlive(&b)
}

// Equal32 compares two 32-byte values in constant time.
func Equal32(a, b []byte) bool {
	if len(a) != 32 || len(b) != 32 {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
