package domain

import "time"

// KYCPersonal holds the personal-data section of a KYC credential subject.
type KYCPersonal struct {
	FirstName          string
	LastName           string
	DateOfBirth        string
	Nationality        string
	CountryOfResidence string
}

// KYCDocument describes the identity document the verification was performed
// against.
type KYCDocument struct {
	Type      string
	Number    string
	Issuer    string
	IssuedAt  string
	ExpiresAt string
}

// KYCVerification captures how and when the subject was verified.
type KYCVerification struct {
	Level        string
	Methods      []string
	LastVerified time.Time
}

// NewKYCSubject assembles the subject tree for a KYC credential. The base
// fields (id, type, issuanceDate) are stamped by the credential service at
// issuance; only domain content is set here.
func NewKYCSubject(personal KYCPersonal, doc KYCDocument, verification KYCVerification) Subject {
	methods := make([]any, len(verification.Methods))
	for i, m := range verification.Methods {
		methods[i] = m
	}
	return Subject{
		"name": map[string]any{
			"firstName": personal.FirstName,
			"lastName":  personal.LastName,
		},
		"dateOfBirth":        personal.DateOfBirth,
		"nationality":        personal.Nationality,
		"countryOfResidence": personal.CountryOfResidence,
		"document": map[string]any{
			"type":      doc.Type,
			"number":    doc.Number,
			"issuer":    doc.Issuer,
			"issuedAt":  doc.IssuedAt,
			"expiresAt": doc.ExpiresAt,
		},
		"verification": map[string]any{
			"level":        verification.Level,
			"methods":      methods,
			"lastVerified": verification.LastVerified.UTC().Format(time.RFC3339),
		},
	}
}
