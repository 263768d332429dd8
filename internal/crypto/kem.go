package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// ML-KEM-768 wire sizes.
var (
	KEMPublicKeySize  = mlkem768.Scheme().PublicKeySize()
	KEMSecretKeySize  = mlkem768.Scheme().PrivateKeySize()
	KEMCiphertextSize = mlkem768.Scheme().CiphertextSize()
	KEMSharedSize     = mlkem768.Scheme().SharedKeySize()
)

// GenerateKEM returns a fresh ML-KEM-768 key pair in serialized form.
func GenerateKEM() (pub, sec []byte, err error) {
	pk, sk, err := mlkem768.Scheme().GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("mlkem768: generate: %w", err)
	}
	pub, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("mlkem768: marshal public: %w", err)
	}
	sec, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("mlkem768: marshal secret: %w", err)
	}
	return pub, sec, nil
}

// KEMEncapsulate encapsulates to a serialized public key, returning the
// ciphertext and the 32-byte shared secret.
func KEMEncapsulate(pub []byte) (ct, shared []byte, err error) {
	pk, err := mlkem768.Scheme().UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("mlkem768: bad public key: %w", err)
	}
	ct, shared, err = mlkem768.Scheme().Encapsulate(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("mlkem768: encapsulate: %w", err)
	}
	return ct, shared, nil
}

// KEMDecapsulate recovers the shared secret from a ciphertext with the
// serialized secret key.
func KEMDecapsulate(sec, ct []byte) ([]byte, error) {
	sk, err := mlkem768.Scheme().UnmarshalBinaryPrivateKey(sec)
	if err != nil {
		return nil, fmt.Errorf("mlkem768: bad secret key: %w", err)
	}
	shared, err := mlkem768.Scheme().Decapsulate(sk, ct)
	if err != nil {
		return nil, fmt.Errorf("mlkem768: decapsulate: %w", err)
	}
	return shared, nil
}
