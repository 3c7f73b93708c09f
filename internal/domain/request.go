package domain

import "time"

// RequestStatus is the lifecycle state of an inbound credential request.
// A request is mutated to approved/denied exactly once.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// CredentialRequest is an inbound request from a relying party asking the
// wallet holder to disclose credential fields.
type CredentialRequest struct {
	ID              string        `json:"id"`
	RequesterDID    string        `json:"requesterDid"`
	RequesterName   string        `json:"requesterName"`
	RequestDate     time.Time     `json:"requestDate"`
	CredentialTypes []string      `json:"credentialTypes"`
	RequiredFields  []string      `json:"requiredFields"`
	Purpose         string        `json:"purpose"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	CallbackURL     string        `json:"callbackUrl,omitempty"`
	Status          RequestStatus `json:"status"`
}

// Expired reports whether the request's expiry has passed at the given
// instant.
func (r *CredentialRequest) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}
