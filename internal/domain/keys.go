package domain

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// IsZero reports whether the key is all zeroes.
func (p X25519Public) IsZero() bool { return p == X25519Public{} }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// MustX25519Public copies b into a fixed-size public key; b must be 32 bytes.
func MustX25519Public(b []byte) (p X25519Public) {
	if len(b) != 32 {
		panic("domain: bad x25519 public key size")
	}
	copy(p[:], b)
	return p
}

// MustX25519Private copies b into a fixed-size private key; b must be 32 bytes.
func MustX25519Private(b []byte) (k X25519Private) {
	if len(b) != 32 {
		panic("domain: bad x25519 private key size")
	}
	copy(k[:], b)
	return k
}

// MustEd25519Public copies b into a fixed-size public key; b must be 32 bytes.
func MustEd25519Public(b []byte) (p Ed25519Public) {
	if len(b) != 32 {
		panic("domain: bad ed25519 public key size")
	}
	copy(p[:], b)
	return p
}

// MustEd25519Private copies b into a fixed-size private key; b must be 64 bytes.
func MustEd25519Private(b []byte) (k Ed25519Private) {
	if len(b) != 64 {
		panic("domain: bad ed25519 private key size")
	}
	copy(k[:], b)
	return k
}
