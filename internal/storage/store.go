// Package storage defines the key-value persistence surface the encrypted
// store writes through. Implementations are interface-driven so in-memory,
// redis, or future backends can be swapped without touching business code.
package storage

import (
	"context"

	dErrors "idwallet/pkg/domain-errors"
)

// ErrNotFound keeps storage-level misses consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// Store is the persistence surface: string keys to string values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
