// Package identity defines the identity-provider collaborator: reputation
// and claims lookups for a wallet address. Real chain-backed resolution is
// out of scope; the static provider below is deterministic so the core never
// depends on mock behavior.
package identity

import (
	"context"
	"strings"
	"time"

	"idwallet/internal/domain"
	"idwallet/internal/signer"
	dErrors "idwallet/pkg/domain-errors"
)

// Provider resolves identity data for an address or DID.
type Provider interface {
	GetIdentity(ctx context.Context, address string) (domain.Identity, error)
	GetClaims(ctx context.Context, did string) ([]domain.Claim, error)
	GetReputation(ctx context.Context, address string) (int, error)
}

// StaticProvider derives reputation and claims deterministically from the
// address bytes. Same address, same answer — tests can rely on it.
type StaticProvider struct {
	Method string
	Now    func() time.Time
}

func NewStaticProvider(method string) *StaticProvider {
	return &StaticProvider{Method: method, Now: time.Now}
}

func (p *StaticProvider) GetIdentity(ctx context.Context, address string) (domain.Identity, error) {
	rep, err := p.GetReputation(ctx, address)
	if err != nil {
		return domain.Identity{}, err
	}
	did := signer.DID(p.Method, address)
	claims, err := p.GetClaims(ctx, did)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		DID:         did,
		Address:     strings.ToLower(address),
		Reputation:  rep,
		Claims:      claims,
		LastUpdated: p.Now(),
	}, nil
}

func (p *StaticProvider) GetClaims(_ context.Context, did string) ([]domain.Claim, error) {
	if did == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "did is required")
	}
	issued := p.Now().Add(-24 * time.Hour)
	return []domain.Claim{
		{
			ID:        did + "#claim-identity",
			Type:      "IdentityVerification",
			Value:     "verified",
			Issuer:    did,
			Timestamp: issued,
			Status:    domain.ClaimVerified,
		},
		{
			ID:        did + "#claim-residence",
			Type:      "ProofOfResidence",
			Value:     "pending review",
			Issuer:    did,
			Timestamp: issued,
			Status:    domain.ClaimPending,
		},
	}, nil
}

func (p *StaticProvider) GetReputation(_ context.Context, address string) (int, error) {
	addr := strings.ToLower(strings.TrimPrefix(address, "0x"))
	if addr == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	// Fold the address bytes into a stable 0-100 score.
	sum := 0
	for _, c := range addr {
		sum += int(c)
	}
	return sum % 101, nil
}
