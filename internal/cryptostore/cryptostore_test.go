package cryptostore_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idwallet/internal/cryptostore"
	"idwallet/internal/storage"
	dErrors "idwallet/pkg/domain-errors"
	"idwallet/pkg/securerand"
)

func newVault(t *testing.T) *cryptostore.Vault {
	t.Helper()
	key, err := securerand.New().Bytes(32)
	require.NoError(t, err)
	v, err := cryptostore.NewVault(key, securerand.New())
	require.NoError(t, err)
	return v
}

func TestNewVault_RejectsBadKeyLength(t *testing.T) {
	_, err := cryptostore.NewVault([]byte("too short"), securerand.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	v := newVault(t)

	blob, err := v.Seal([]byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Contains(t, blob, ".")

	plaintext, err := v.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"world"}`, string(plaintext))
}

// Encrypting the same plaintext twice must produce different blobs because
// every call draws a fresh nonce. Nonce reuse under one key breaks AEAD
// confidentiality.
func TestSeal_FreshNoncePerCall(t *testing.T) {
	v := newVault(t)

	first, err := v.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	second, err := v.Seal([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, blob := range []string{first, second} {
		plaintext, err := v.Open(blob)
		require.NoError(t, err)
		assert.Equal(t, "same plaintext", string(plaintext))
	}
}

func TestOpen_RejectsTamperedCiphertext(t *testing.T) {
	v := newVault(t)

	blob, err := v.Seal([]byte("integrity matters"))
	require.NoError(t, err)

	nonce, ct, ok := strings.Cut(blob, ".")
	require.True(t, ok)
	tampered := nonce + "." + ct[:len(ct)-4] + "AAAA"

	_, err = v.Open(tampered)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
}

func TestOpen_RejectsMalformedBlob(t *testing.T) {
	v := newVault(t)

	for _, blob := range []string{"", "no-separator", "not base64.!!!", "."} {
		_, err := v.Open(blob)
		assert.Error(t, err, "blob %q", blob)
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	blob, err := newVault(t).Seal([]byte("sealed under key A"))
	require.NoError(t, err)

	_, err = newVault(t).Open(blob)
	require.Error(t, err)
}

func TestStore_SetGetItem(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	store := cryptostore.NewStore(newVault(t), backend)

	require.NoError(t, store.SetItem(ctx, "profile", "sensitive value"))

	// The backing medium only ever sees ciphertext.
	raw, err := backend.Get(ctx, "profile")
	require.NoError(t, err)
	assert.NotContains(t, raw, "sensitive value")

	value, err := store.GetItem(ctx, "profile")
	require.NoError(t, err)
	assert.Equal(t, "sensitive value", value)
}

func TestStore_GetItemMiss(t *testing.T) {
	store := cryptostore.NewStore(newVault(t), storage.NewMemoryStore())

	_, err := store.GetItem(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound))
}
