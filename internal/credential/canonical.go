package credential

import (
	"bytes"
	"encoding/json"
	"fmt"

	"idwallet/internal/domain"
)

// Canonical signing payloads use an explicit, fixed field order so signer and
// verifier always hash identical bytes. Nested maps rely on encoding/json's
// sorted-key output, which is deterministic for a given value. The proof is
// never part of its own signing input.

type canonicalField struct {
	name  string
	value any
	omit  bool
}

func canonicalJSON(fields []canonicalField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range fields {
		if f.omit {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", f.name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// credentialSigningInput serializes every credential envelope field except
// the proof, in issuance order.
func credentialSigningInput(vc *domain.VerifiableCredential) ([]byte, error) {
	return canonicalJSON([]canonicalField{
		{name: "@context", value: vc.Context},
		{name: "id", value: vc.ID},
		{name: "type", value: vc.Type},
		{name: "issuer", value: vc.Issuer},
		{name: "issuanceDate", value: vc.IssuanceDate},
		{name: "expirationDate", value: vc.ExpirationDate, omit: vc.ExpirationDate == nil},
		{name: "credentialSubject", value: vc.CredentialSubject},
		{name: "credentialStatus", value: vc.CredentialStatus},
	})
}

// disclosureSigningInput serializes the disclosure record minus its proof.
// The extracted field values are part of the signed bytes, not the full
// credential.
func disclosureSigningInput(d *domain.SelectiveDisclosure) ([]byte, error) {
	return canonicalJSON([]canonicalField{
		{name: "id", value: d.ID},
		{name: "credentialId", value: d.CredentialID},
		{name: "recipientDid", value: d.RecipientDID},
		{name: "fields", value: d.DisclosedFields},
		{name: "purpose", value: d.Purpose},
		{name: "expiresAt", value: d.ExpiresAt},
		{name: "data", value: d.Data},
	})
}
