// Package signer provides the wallet signing capability: an ethereum-style
// secp256k1 keypair with compact signatures and public-key recovery. The
// Signer interface is the boundary the credential service depends on; the
// Wallet type is the in-process implementation.
package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// Signer is the signing capability consumed by the credential service.
// Signatures are 65-byte compact form (recovery code first) over a 32-byte
// digest.
type Signer interface {
	Address() string
	Sign(digest []byte) ([]byte, error)
	RecoverAddress(digest, signature []byte) (string, error)
}

// Wallet holds a secp256k1 private key derived from the session secret.
type Wallet struct {
	priv    *secp256k1.PrivateKey
	address string
}

var hkdfInfo = []byte("idwallet/signing-key/v1")

// FromSecret deterministically derives a wallet from the session secret via
// HKDF-SHA256. The same secret always yields the same address.
func FromSecret(secret []byte) (*Wallet, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("empty wallet secret")
	}
	kdf := hkdf.New(sha256.New, secret, nil, hkdfInfo)
	seed := make([]byte, 32)
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(seed)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("derived signing key is invalid")
	}
	return &Wallet{
		priv:    priv,
		address: AddressFromPubKey(priv.PubKey()),
	}, nil
}

// Address returns the lowercase 0x-prefixed address of the wallet key.
func (w *Wallet) Address() string {
	return w.address
}

// Sign produces a 65-byte compact recoverable signature over digest.
func (w *Wallet) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	return secpecdsa.SignCompact(w.priv, digest, false), nil
}

// RecoverAddress recovers the signing address from a compact signature.
func (w *Wallet) RecoverAddress(digest, signature []byte) (string, error) {
	return RecoverAddress(digest, signature)
}

// RecoverAddress recovers the address that produced a compact signature over
// digest. It does not need key material, so verification works for foreign
// credentials too.
func RecoverAddress(digest, signature []byte) (string, error) {
	if len(digest) != 32 {
		return "", fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	pub, _, err := secpecdsa.RecoverCompact(signature, digest)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return AddressFromPubKey(pub), nil
}

// AddressFromPubKey derives the ethereum-style address: the last 20 bytes of
// keccak-256 over the uncompressed public key (without the 0x04 prefix).
func AddressFromPubKey(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	sum := Keccak256(raw[1:])
	return "0x" + hex.EncodeToString(sum[12:])
}

// Keccak256 computes the legacy keccak-256 digest used for addresses and
// signing payload hashes.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// DID builds a DID from a method and address, lowercasing the address so the
// derivation is deterministic.
func DID(method, address string) string {
	return "did:" + method + ":" + strings.ToLower(address)
}

// AddressFromDID extracts the method-specific suffix of a DID, which for the
// ethr method is the account address.
func AddressFromDID(did string) string {
	i := strings.LastIndex(did, ":")
	if i < 0 {
		return ""
	}
	return did[i+1:]
}
