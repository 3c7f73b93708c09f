package domain

import "time"

// SelectiveDisclosure is a signed subset-extraction of a credential's
// subject. Data contains only the resolved field values, preserving the
// original path shape; the source credential is never mutated.
type SelectiveDisclosure struct {
	ID              string    `json:"id"`
	CredentialID    string    `json:"credentialId"`
	RecipientDID    string    `json:"recipientDid"`
	DisclosedFields []string  `json:"disclosedFields"`
	Purpose         string    `json:"purpose"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Data            Subject   `json:"data"`
	Proof           string    `json:"proof"`
}
