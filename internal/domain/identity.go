package domain

import "time"

// ClaimStatus tracks the lifecycle of an identity claim. Transitions are
// driven externally (verification results, expiry); claims are otherwise
// immutable once issued.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "PENDING"
	ClaimVerified ClaimStatus = "VERIFIED"
	ClaimExpired  ClaimStatus = "EXPIRED"
	ClaimRevoked  ClaimStatus = "REVOKED"
)

// Claim is a single identity assertion attached to a DID.
type Claim struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Value     string      `json:"value"`
	Issuer    string      `json:"issuer"`
	Timestamp time.Time   `json:"timestamp"`
	Signature string      `json:"signature"`
	Status    ClaimStatus `json:"status"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// Identity is the read-only view returned by the identity provider. The DID
// is derived deterministically from the wallet address.
type Identity struct {
	DID         string    `json:"did"`
	Address     string    `json:"address"`
	Reputation  int       `json:"reputation"`
	Claims      []Claim   `json:"claims"`
	LastUpdated time.Time `json:"lastUpdated"`
}
