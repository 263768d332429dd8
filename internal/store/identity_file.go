package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"verbeth/internal/domain"
)

// IdentityFileStore keeps one encrypted identity file per address under its
// home directory.
type IdentityFileStore struct {
	home string
}

// NewIdentityFileStore returns a store rooted at home.
func NewIdentityFileStore(home string) *IdentityFileStore {
	return &IdentityFileStore{home: home}
}

var _ domain.IdentityStore = (*IdentityFileStore)(nil)

var errWrongPassphrase = errors.New("store: wrong passphrase or corrupted identity")

func (s *IdentityFileStore) path(address common.Address) string {
	return filepath.Join(s.home, "identity-"+strings.ToLower(address.Hex())+".json")
}

type identityOnDisk struct {
	Version int                  `json:"version"`
	Address common.Address       `json:"address"`
	Proof   domain.IdentityProof `json:"proof"`
	Keys    []byte               `json:"keys"` // encrypted envelope over the key pair
}

// Save writes the key pair encrypted under the passphrase. It refuses to
// overwrite an existing identity: the pair is deterministic per wallet, so
// a second derivation is a caller bug.
func (s *IdentityFileStore) Save(passphrase string, address common.Address, kp domain.IdentityKeyPair, proof domain.IdentityProof) error {
	if _, err := os.Stat(s.path(address)); err == nil {
		return domain.ErrIdentityExists
	}

	raw, err := json.Marshal(kp)
	if err != nil {
		return err
	}
	sealed, err := encryptEnvelope(passphrase, raw)
	if err != nil {
		return err
	}
	out := identityOnDisk{
		Version: 1,
		Address: address,
		Proof:   proof,
		Keys:    sealed,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(address), data, 0o600)
}

// Load decrypts a stored identity.
func (s *IdentityFileStore) Load(passphrase string, address common.Address) (domain.IdentityKeyPair, domain.IdentityProof, error) {
	data, err := os.ReadFile(s.path(address))
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
	}
	var in identityOnDisk
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
	}
	if in.Version != 1 {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, fmt.Errorf("store: unsupported identity version %d", in.Version)
	}
	raw, err := decryptEnvelope(passphrase, in.Keys)
	if err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
	}
	var kp domain.IdentityKeyPair
	if err := json.Unmarshal(raw, &kp); err != nil {
		return domain.IdentityKeyPair{}, domain.IdentityProof{}, err
	}
	return kp, in.Proof, nil
}

// envelope is the on-disk JSON structure holding the ciphertext and KDF
// parameters.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

const envelopeVersion = 1

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

// encryptEnvelope derives a key from the passphrase and seals raw.
func encryptEnvelope(passphrase string, raw []byte) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	N, r, p := scryptParamsDefault()
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(envelope{
		V:      envelopeVersion,
		Salt:   salt[:],
		N:      N,
		R:      r,
		P:      p,
		Cipher: ct,
	})
}

// decryptEnvelope opens the JSON envelope using a key derived from the
// passphrase.
func decryptEnvelope(passphrase string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("store: unsupported envelope version %d", env.V)
	}
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, env.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}
