package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"verbeth/internal/protocol/identity"
	"verbeth/internal/wallet"
)

var testCfg = identity.Config{ChainID: 1, RPID: "test.verbeth"}

func TestDerive_DeterministicPerWallet(t *testing.T) {
	ctx := context.Background()
	signer, err := wallet.NewLocalSigner()
	require.NoError(t, err)

	kp1, proof1, err := identity.Derive(ctx, signer, testCfg)
	require.NoError(t, err)
	kp2, _, err := identity.Derive(ctx, signer, testCfg)
	require.NoError(t, err)

	require.Equal(t, kp1.X25519Pub, kp2.X25519Pub)
	require.Equal(t, kp1.EdPub, kp2.EdPub)
	require.NotEmpty(t, proof1.Signature)

	other, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	kp3, _, err := identity.Derive(ctx, other, testCfg)
	require.NoError(t, err)
	require.NotEqual(t, kp1.X25519Pub, kp3.X25519Pub)
}

func TestBindingMessage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	signer, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	kp, proof, err := identity.Derive(ctx, signer, testCfg)
	require.NoError(t, err)

	binding, err := identity.ParseBindingMessage(proof.BindingMessage)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), binding.Address)
	require.Equal(t, kp.X25519Pub, binding.PKX25519)
	require.Equal(t, kp.EdPub, binding.PKEd25519)
	require.Equal(t, identity.BindingContextValue, binding.Context)
	require.Equal(t, identity.BindingVersionValue, binding.Version)
	require.Equal(t, uint64(1), binding.ChainID)
	require.Equal(t, "test.verbeth", binding.RPID)
}

func TestParseBindingMessage_RejectsBadHeader(t *testing.T) {
	_, err := identity.ParseBindingMessage("Not A Binding\naddress: 0x00")
	require.Error(t, err)
}

func TestVerifyProof(t *testing.T) {
	ctx := context.Background()
	verifier := wallet.EOAVerifier{}
	signer, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	kp, proof, err := identity.Derive(ctx, signer, testCfg)
	require.NoError(t, err)

	expected := identity.ExpectedKeys{X25519: kp.X25519Pub, Ed25519: kp.EdPub}

	ok, err := identity.VerifyProof(ctx, verifier, proof, signer.Address(), expected, testCfg)
	require.NoError(t, err)
	require.True(t, ok)

	// Wrong address.
	other, err := wallet.NewLocalSigner()
	require.NoError(t, err)
	ok, err = identity.VerifyProof(ctx, verifier, proof, other.Address(), expected, testCfg)
	require.NoError(t, err)
	require.False(t, ok)

	// Wrong expected keys.
	otherKP, _, err := identity.Derive(ctx, other, testCfg)
	require.NoError(t, err)
	ok, err = identity.VerifyProof(ctx, verifier, proof, signer.Address(),
		identity.ExpectedKeys{X25519: otherKP.X25519Pub, Ed25519: kp.EdPub}, testCfg)
	require.NoError(t, err)
	require.False(t, ok)

	// Wrong deployment context.
	ok, err = identity.VerifyProof(ctx, verifier, proof, signer.Address(), expected,
		identity.Config{ChainID: 5, RPID: "test.verbeth"})
	require.NoError(t, err)
	require.False(t, ok)

	// Tampered signature.
	bad := proof
	bad.Signature = append([]byte(nil), proof.Signature...)
	bad.Signature[3] ^= 1
	ok, err = identity.VerifyProof(ctx, verifier, bad, signer.Address(), expected, testCfg)
	require.NoError(t, err)
	require.False(t, ok)
}
