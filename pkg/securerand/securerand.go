// Package securerand abstracts the cryptographically secure randomness source
// used for keys, nonces, and identifiers. There is deliberately no fallback:
// if the platform source fails, callers must abort. Non-cryptographic
// randomness is never an acceptable substitute for key or IV material.
package securerand

import (
	"crypto/rand"
	"fmt"
)

// Source yields cryptographically secure random bytes.
type Source interface {
	Bytes(n int) ([]byte, error)
}

// Reader is the default Source backed by crypto/rand.
type Reader struct{}

// New returns the process-default secure source.
func New() Source {
	return Reader{}
}

// Bytes returns n random bytes or an error if the platform source fails.
func (Reader) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("secure randomness unavailable: %w", err)
	}
	return buf, nil
}
