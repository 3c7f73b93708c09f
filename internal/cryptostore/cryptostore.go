// Package cryptostore wraps the persistence surface with AES-256-GCM
// encryption. Every write draws a fresh random nonce from the injected
// secure source.
//
// Correctness-critical invariant: a GCM nonce must never repeat for the
// lifetime of a key. Reuse breaks AEAD confidentiality, which is why nonces
// come from fresh randomness on every call rather than a counter.
package cryptostore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"idwallet/internal/storage"
	dErrors "idwallet/pkg/domain-errors"
	"idwallet/pkg/securerand"
)

// EncryptionMethod names the AEAD scheme recorded on encrypted records.
const EncryptionMethod = "AES-256-GCM"

// Vault performs the raw seal/open operations for a single symmetric key.
type Vault struct {
	aead cipher.AEAD
	rand securerand.Source
}

// NewVault builds a vault around a 32-byte key. The key is generated per
// session by the credential service and never persisted.
func NewVault(key []byte, rand securerand.Source) (*Vault, error) {
	if len(key) != 32 {
		return nil, dErrors.Newf(dErrors.CodeCryptoFailure, "encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "init cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "init GCM")
	}
	return &Vault{aead: aead, rand: rand}, nil
}

// Seal encrypts plaintext and returns the "<nonce_b64>.<ciphertext_b64>"
// at-rest encoding.
func (v *Vault) Seal(plaintext []byte) (string, error) {
	nonce, err := v.rand.Bytes(v.aead.NonceSize())
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCryptoFailure, "draw nonce")
	}
	ciphertext := v.aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(nonce) + "." + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a blob produced by Seal. Any malformed or tampered input
// yields a crypto_failure error; callers on read paths degrade it to a miss.
func (v *Vault) Open(blob string) ([]byte, error) {
	nonceB64, ctB64, ok := strings.Cut(blob, ".")
	if !ok {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "malformed encrypted blob")
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode nonce")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode ciphertext")
	}
	if len(nonce) != v.aead.NonceSize() {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "bad nonce length")
	}
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decrypt")
	}
	return plaintext, nil
}

// Store is the transparent encrypted key-value wrapper: SetItem encrypts
// before delegating to the backend, GetItem reverses it.
type Store struct {
	vault   *Vault
	backend storage.Store
}

func NewStore(vault *Vault, backend storage.Store) *Store {
	return &Store{vault: vault, backend: backend}
}

// SetItem encrypts value under a fresh nonce and persists it.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	blob, err := s.vault.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}
	return s.backend.Set(ctx, key, blob)
}

// GetItem fetches and decrypts a value. Backend misses surface as
// storage.ErrNotFound; decryption failures keep their crypto_failure code.
func (s *Store) GetItem(ctx context.Context, key string) (string, error) {
	blob, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", err
	}
	plaintext, err := s.vault.Open(blob)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
