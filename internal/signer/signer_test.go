package signer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idwallet/internal/signer"
)

func TestFromSecret_Deterministic(t *testing.T) {
	a, err := signer.FromSecret([]byte("session secret"))
	require.NoError(t, err)
	b, err := signer.FromSecret([]byte("session secret"))
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address(), "same secret must derive the same address")

	c, err := signer.FromSecret([]byte("different secret"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Address(), c.Address())
}

func TestFromSecret_RejectsEmpty(t *testing.T) {
	_, err := signer.FromSecret(nil)
	require.Error(t, err)
}

func TestAddressFormat(t *testing.T) {
	w, err := signer.FromSecret([]byte("format check"))
	require.NoError(t, err)

	assert.Regexp(t, `^0x[0-9a-f]{40}$`, w.Address())
}

func TestSignRecover_RoundTrip(t *testing.T) {
	w, err := signer.FromSecret([]byte("round trip"))
	require.NoError(t, err)

	digest := signer.Keccak256([]byte("canonical payload"))
	sig, err := w.Sign(digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	recovered, err := signer.RecoverAddress(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), recovered)
}

func TestRecoverAddress_WrongDigest(t *testing.T) {
	w, err := signer.FromSecret([]byte("wrong digest"))
	require.NoError(t, err)

	sig, err := w.Sign(signer.Keccak256([]byte("original")))
	require.NoError(t, err)

	recovered, err := signer.RecoverAddress(signer.Keccak256([]byte("tampered")), sig)
	if err == nil {
		// Recovery may still yield a key, but never the signer's.
		assert.NotEqual(t, w.Address(), recovered)
	}
}

func TestSign_RejectsBadDigestLength(t *testing.T) {
	w, err := signer.FromSecret([]byte("digest length"))
	require.NoError(t, err)

	_, err = w.Sign([]byte("short"))
	require.Error(t, err)
}

func TestDIDHelpers(t *testing.T) {
	did := signer.DID("ethr", "0xAbCd000000000000000000000000000000001234")
	assert.Equal(t, "did:ethr:0xabcd000000000000000000000000000000001234", did)
	assert.Equal(t, "0xabcd000000000000000000000000000000001234", signer.AddressFromDID(did))
	assert.Empty(t, signer.AddressFromDID("no-colons-here"))
}
