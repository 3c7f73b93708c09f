package domain

import (
	"time"
)

// DefaultContext is the W3C credentials context every issued credential
// carries.
var DefaultContext = []string{"https://www.w3.org/2018/credentials/v1"}

// Subject is the credential subject tree: a generic map of string keys to
// values (strings, numbers, bools, nested Subjects after JSON round-trips
// nested map[string]any). Field access by dot-path lives in the credential
// package so this type stays a plain data shape.
type Subject map[string]any

// Clone returns a deep copy of the subject tree. Nested maps and slices are
// copied; scalar leaves are shared (they are immutable values).
func (s Subject) Clone() Subject {
	if s == nil {
		return nil
	}
	out := make(Subject, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Subject:
		return t.Clone()
	case map[string]any:
		return Subject(t).Clone()
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}

// Issuer identifies the credential issuer by DID, with an optional display
// name.
type Issuer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// CredentialStatus is the (placeholder) status entry; real revocation
// infrastructure is out of scope, so Status is maintained locally.
type CredentialStatus struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
)

// Proof is a linked-data proof over the canonical credential payload.
// ProofValue signs every envelope field except the proof itself.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verificationMethod"`
	ProofPurpose       string    `json:"proofPurpose"`
	ProofValue         string    `json:"proofValue"`
}

// VerifiableCredential is the signed envelope in the W3C VC data model shape.
type VerifiableCredential struct {
	Context           []string         `json:"@context"`
	ID                string           `json:"id"`
	Type              []string         `json:"type"`
	Issuer            Issuer           `json:"issuer"`
	IssuanceDate      time.Time        `json:"issuanceDate"`
	ExpirationDate    *time.Time       `json:"expirationDate,omitempty"`
	CredentialSubject Subject          `json:"credentialSubject"`
	CredentialStatus  CredentialStatus `json:"credentialStatus"`
	Proof             *Proof           `json:"proof,omitempty"`
}

// Expired reports whether the credential's expiration date has passed at the
// given instant. Credentials without an expiration never expire.
func (vc *VerifiableCredential) Expired(now time.Time) bool {
	return vc.ExpirationDate != nil && vc.ExpirationDate.Before(now)
}

// PrimaryType returns the most specific type entry (the last one that is not
// the generic "VerifiableCredential"), used for public metadata.
func (vc *VerifiableCredential) PrimaryType() string {
	for i := len(vc.Type) - 1; i >= 0; i-- {
		if vc.Type[i] != "VerifiableCredential" {
			return vc.Type[i]
		}
	}
	return "VerifiableCredential"
}

// PublicMetadata is the non-sensitive projection of a credential used for
// listings. It must never contain subject personal data, only classification
// and lifecycle fields, so lists render without touching the encryption key.
type PublicMetadata struct {
	Issuer         string     `json:"issuer"`
	IssuanceDate   time.Time  `json:"issuanceDate"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	CredentialType string     `json:"credentialType"`
	Status         string     `json:"status"`
}

// EncryptedCredential is the persisted, encrypted-at-rest form of a
// credential. EncryptedData is "<nonce_b64>.<ciphertext_b64>".
type EncryptedCredential struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	EncryptedData    string         `json:"encryptedData"`
	EncryptionMethod string         `json:"encryptionMethod"`
	PublicMetadata   PublicMetadata `json:"publicMetadata"`
}

// CredentialMetadata pairs a credential id with its public metadata for
// listing responses.
type CredentialMetadata struct {
	ID       string         `json:"id"`
	Metadata PublicMetadata `json:"metadata"`
}
