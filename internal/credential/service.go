// Package credential implements the wallet's credential lifecycle: issuance
// over a canonical signed payload, encrypted-at-rest storage, verification by
// signature recovery, selective disclosure, and the inbound request workflow.
package credential

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idwallet/internal/cryptostore"
	"idwallet/internal/domain"
	"idwallet/internal/platform/metrics"
	"idwallet/internal/ratelimit"
	"idwallet/internal/security"
	"idwallet/internal/signer"
	"idwallet/internal/storage"
	"idwallet/internal/validate"
	dErrors "idwallet/pkg/domain-errors"
	"idwallet/pkg/securerand"
)

const (
	proofType          = "EcdsaSecp256k1RecoverySignature2020"
	proofPurpose       = "assertionMethod"
	statusType         = "WalletStatusEntry"
	credentialKeySpace = "credential:"
)

// Rule is a single rate-limit setting.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limits gates each guarded operation independently, keyed by action name.
type Limits struct {
	Issue    Rule
	Verify   Rule
	Disclose Rule
	Request  Rule
}

func DefaultLimits() Limits {
	return Limits{
		Issue:    Rule{Limit: 10, Window: time.Minute},
		Verify:   Rule{Limit: 30, Window: time.Minute},
		Disclose: Rule{Limit: 10, Window: time.Minute},
		Request:  Rule{Limit: 20, Window: time.Minute},
	}
}

// Service orchestrates DID derivation, issuance, encrypted storage,
// verification, and disclosure. The credential and request collections are
// owned exclusively by the service for the lifetime of the session.
//
// Concurrent Store/Get on the same credential id are not serialized per id;
// the persistence layer is last-write-wins and callers needing read-after-
// write ordering across concurrent calls must sequence externally.
type Service struct {
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	monitor *security.Monitor
	rand    securerand.Source
	tracer  trace.Tracer

	backend    storage.Store
	limits     Limits
	didMethod  string
	issuerName string
	now        func() time.Time
	httpClient *http.Client

	// Session state, populated by Initialize.
	wallet      signer.Signer
	vault       *cryptostore.Vault
	callbackKey []byte

	credentials map[string]domain.EncryptedCredential
	requests    map[string]*domain.CredentialRequest
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIssuerName(name string) Option {
	return func(s *Service) { s.issuerName = name }
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.httpClient = client }
}

func New(
	backend storage.Store,
	limiter *ratelimit.Limiter,
	monitor *security.Monitor,
	rand securerand.Source,
	opts ...Option,
) *Service {
	s := &Service{
		logger:      slog.Default(),
		limiter:     limiter,
		monitor:     monitor,
		rand:        rand,
		tracer:      otel.Tracer("idwallet/credential"),
		backend:     backend,
		limits:      DefaultLimits(),
		didMethod:   "ethr",
		now:         time.Now,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		credentials: make(map[string]domain.EncryptedCredential),
		requests:    make(map[string]*domain.CredentialRequest),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize derives the signing identity from the session secret and
// generates a fresh symmetric encryption key. It fails closed: on any key
// derivation or randomness error the service stays uninitialized.
func (s *Service) Initialize(ctx context.Context, secret string) error {
	if secret == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "wallet secret is required")
	}

	wallet, err := signer.FromSecret([]byte(secret))
	if err != nil {
		s.securityEvent(security.EventInitializationFailed, security.SeverityHigh, map[string]any{
			"stage": "wallet", "error": err.Error(),
		})
		return dErrors.Wrap(err, dErrors.CodeCryptoFailure, "derive wallet")
	}

	encKey, err := s.rand.Bytes(32)
	if err != nil {
		s.securityEvent(security.EventInitializationFailed, security.SeverityCritical, map[string]any{
			"stage": "encryption_key", "error": err.Error(),
		})
		return dErrors.Wrap(err, dErrors.CodeCryptoFailure, "generate encryption key")
	}
	vault, err := cryptostore.NewVault(encKey, s.rand)
	if err != nil {
		s.securityEvent(security.EventInitializationFailed, security.SeverityCritical, map[string]any{
			"stage": "vault", "error": err.Error(),
		})
		return err
	}
	callbackKey, err := s.rand.Bytes(32)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeCryptoFailure, "generate callback key")
	}

	s.mu.Lock()
	s.wallet = wallet
	s.vault = vault
	s.callbackKey = callbackKey
	s.credentials = make(map[string]domain.EncryptedCredential)
	s.requests = make(map[string]*domain.CredentialRequest)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "wallet initialized", "did", signer.DID(s.didMethod, wallet.Address()))
	return nil
}

// Initialized reports whether Initialize has completed successfully.
func (s *Service) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet != nil
}

// DID returns the wallet's decentralized identifier.
func (s *Service) DID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return "", errUninitialized()
	}
	return signer.DID(s.didMethod, s.wallet.Address()), nil
}

// Address returns the wallet's signing address.
func (s *Service) Address() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return "", errUninitialized()
	}
	return s.wallet.Address(), nil
}

// IssueCredential builds, signs, and persists a new self-issued credential.
// The returned credential's proof verifies against the stored envelope.
func (s *Service) IssueCredential(ctx context.Context, credentialType string, subject domain.Subject, expirationDate *time.Time) (*domain.VerifiableCredential, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Issue",
		trace.WithAttributes(attribute.String("credential.type", credentialType)))
	defer span.End()

	if !s.Initialized() {
		return nil, errUninitialized()
	}
	if err := s.allow("issue_credential", s.limits.Issue); err != nil {
		return nil, err
	}
	credentialType = validate.Sanitize(credentialType)
	if credentialType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential type is required")
	}
	if subject == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential subject is required")
	}

	did, err := s.DID()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := "urn:uuid:" + uuid.NewString()

	sub := sanitizeSubject(subject.Clone())
	sub["id"] = did
	sub["type"] = credentialType
	sub["issuanceDate"] = now.Format(time.RFC3339)
	if expirationDate != nil {
		sub["expirationDate"] = expirationDate.UTC().Format(time.RFC3339)
	}

	vc := &domain.VerifiableCredential{
		Context:           domain.DefaultContext,
		ID:                id,
		Type:              []string{"VerifiableCredential", credentialType},
		Issuer:            domain.Issuer{ID: did, Name: s.issuerName},
		IssuanceDate:      now,
		ExpirationDate:    expirationDate,
		CredentialSubject: sub,
		CredentialStatus: domain.CredentialStatus{
			ID:     id + "#status",
			Type:   statusType,
			Status: domain.StatusActive,
		},
	}

	proofValue, err := s.signCredential(vc)
	if err != nil {
		s.securityEvent(security.EventCryptoFailure, security.SeverityHigh, map[string]any{
			"operation": "issue", "error": err.Error(),
		})
		return nil, err
	}
	vc.Proof = &domain.Proof{
		Type:               proofType,
		Created:            now,
		VerificationMethod: did + "#controller",
		ProofPurpose:       proofPurpose,
		ProofValue:         proofValue,
	}

	if err := s.storeCredential(ctx, vc); err != nil {
		return nil, err
	}

	s.metrics.IncCredentialsIssued()
	s.securityEvent(security.EventCredentialIssued, security.SeverityLow, map[string]any{
		"credential_id": vc.ID, "credential_type": credentialType,
	})
	s.logger.InfoContext(ctx, "credential issued", "credential_id", vc.ID, "type", credentialType)
	return vc, nil
}

// storeCredential serializes the credential, encrypts it under a fresh
// nonce, and persists the encrypted envelope. Plaintext is never stored;
// public metadata carries only classification and lifecycle fields.
func (s *Service) storeCredential(ctx context.Context, vc *domain.VerifiableCredential) error {
	s.mu.RLock()
	vault := s.vault
	s.mu.RUnlock()
	if vault == nil {
		return errUninitialized()
	}

	plaintext, err := json.Marshal(vc)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "serialize credential")
	}
	blob, err := vault.Seal(plaintext)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeCryptoFailure, "encrypt credential")
	}

	record := domain.EncryptedCredential{
		ID:               vc.ID,
		Type:             vc.PrimaryType(),
		EncryptedData:    blob,
		EncryptionMethod: cryptostore.EncryptionMethod,
		PublicMetadata: domain.PublicMetadata{
			Issuer:         vc.Issuer.ID,
			IssuanceDate:   vc.IssuanceDate,
			ExpirationDate: vc.ExpirationDate,
			CredentialType: vc.PrimaryType(),
			Status:         vc.CredentialStatus.Status,
		},
	}

	envelope, err := json.Marshal(record)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "serialize encrypted record")
	}
	if err := s.backend.Set(ctx, credentialKeySpace+vc.ID, string(envelope)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist credential")
	}

	s.mu.Lock()
	s.credentials[vc.ID] = record
	s.mu.Unlock()
	return nil
}

// GetCredential loads and decrypts a stored credential. Any miss, decryption
// failure, or parse failure yields (nil, false) — read paths never throw.
func (s *Service) GetCredential(ctx context.Context, id string) (*domain.VerifiableCredential, bool) {
	s.mu.RLock()
	vault := s.vault
	record, cached := s.credentials[id]
	s.mu.RUnlock()
	if vault == nil {
		return nil, false
	}

	if !cached {
		raw, err := s.backend.Get(ctx, credentialKeySpace+id)
		if err != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			s.logger.WarnContext(ctx, "corrupt credential envelope", "credential_id", id)
			return nil, false
		}
	}

	plaintext, err := vault.Open(record.EncryptedData)
	if err != nil {
		s.securityEvent(security.EventCryptoFailure, security.SeverityMedium, map[string]any{
			"operation": "get_credential", "credential_id": id,
		})
		return nil, false
	}
	var vc domain.VerifiableCredential
	if err := json.Unmarshal(plaintext, &vc); err != nil {
		return nil, false
	}
	return &vc, true
}

// AllCredentialMetadata lists public metadata for every stored credential.
// It never touches the encryption key.
func (s *Service) AllCredentialMetadata(ctx context.Context) ([]domain.CredentialMetadata, error) {
	if !s.Initialized() {
		return nil, errUninitialized()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CredentialMetadata, 0, len(s.credentials))
	for id, record := range s.credentials {
		out = append(out, domain.CredentialMetadata{ID: id, Metadata: record.PublicMetadata})
	}
	return out, nil
}

// VerifyCredential checks expiry, recomputes the canonical payload, recovers
// the signing address, and compares it to the issuer DID's address. It never
// returns an error to the caller: every failure mode degrades to false.
func (s *Service) VerifyCredential(ctx context.Context, vc *domain.VerifiableCredential) bool {
	_, span := s.tracer.Start(ctx, "credential.Verify")
	defer span.End()

	// Verification degrades instead of throwing, so a rate-limit denial
	// reports the credential as unverifiable rather than erroring.
	if err := s.allow("verify_credential", s.limits.Verify); err != nil {
		return false
	}

	valid := s.verify(vc)
	s.metrics.IncVerification(valid)
	if !valid {
		s.securityEvent(security.EventVerificationFailed, security.SeverityLow, map[string]any{
			"credential_id": credentialID(vc),
		})
	}
	return valid
}

func (s *Service) verify(vc *domain.VerifiableCredential) bool {
	if vc == nil || vc.Proof == nil {
		return false
	}
	if vc.Expired(s.now()) {
		return false
	}

	payload, err := credentialSigningInput(vc)
	if err != nil {
		return false
	}
	sig, err := decodeSignature(vc.Proof.ProofValue)
	if err != nil {
		return false
	}
	recovered, err := signer.RecoverAddress(signer.Keccak256(payload), sig)
	if err != nil {
		return false
	}
	issuerAddr := signer.AddressFromDID(vc.Issuer.ID)
	if issuerAddr == "" {
		return false
	}
	return strings.EqualFold(recovered, issuerAddr)
}

// CreateSelectiveDisclosure extracts a field subset from a stored, valid
// credential and returns a signed disclosure record. The source credential
// is never mutated; a credential revoked after a disclosure was issued does
// not retract that disclosure (its own expiry bounds its lifetime).
func (s *Service) CreateSelectiveDisclosure(ctx context.Context, credentialID, recipientDID string, fields []string, purpose string, expiresAt time.Time) (*domain.SelectiveDisclosure, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Disclose",
		trace.WithAttributes(attribute.Int("disclosure.fields", len(fields))))
	defer span.End()

	if !s.Initialized() {
		return nil, errUninitialized()
	}
	if err := s.allow("create_disclosure", s.limits.Disclose); err != nil {
		return nil, err
	}
	if !validate.IsDID(recipientDID) {
		s.securityEvent(security.EventInvalidInput, security.SeverityLow, map[string]any{
			"operation": "create_disclosure", "field": "recipient_did",
		})
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient DID is malformed")
	}
	if len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one field is required")
	}

	vc, ok := s.GetCredential(ctx, credentialID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if !s.verify(vc) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential failed verification")
	}

	disclosure := &domain.SelectiveDisclosure{
		ID:              "urn:uuid:" + uuid.NewString(),
		CredentialID:    credentialID,
		RecipientDID:    recipientDID,
		DisclosedFields: validate.SanitizeAll(append([]string(nil), fields...)),
		Purpose:         validate.Sanitize(purpose),
		ExpiresAt:       expiresAt.UTC(),
		Data:            extractFields(vc.CredentialSubject, fields),
	}

	payload, err := disclosureSigningInput(disclosure)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "serialize disclosure")
	}
	s.mu.RLock()
	wallet := s.wallet
	s.mu.RUnlock()
	sig, err := wallet.Sign(signer.Keccak256(payload))
	if err != nil {
		s.securityEvent(security.EventCryptoFailure, security.SeverityHigh, map[string]any{
			"operation": "create_disclosure", "error": err.Error(),
		})
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "sign disclosure")
	}
	disclosure.Proof = encodeSignature(sig)

	s.metrics.IncDisclosuresCreated()
	s.securityEvent(security.EventDisclosureCreated, security.SeverityLow, map[string]any{
		"credential_id": credentialID, "recipient": recipientDID, "fields": len(fields),
	})
	return disclosure, nil
}

func (s *Service) signCredential(vc *domain.VerifiableCredential) (string, error) {
	payload, err := credentialSigningInput(vc)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "serialize signing payload")
	}
	s.mu.RLock()
	wallet := s.wallet
	s.mu.RUnlock()
	sig, err := wallet.Sign(signer.Keccak256(payload))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCryptoFailure, "sign credential")
	}
	return encodeSignature(sig), nil
}

// allow consults the rate limiter and logs a security event on denial.
func (s *Service) allow(action string, rule Rule) error {
	if s.limiter == nil {
		return nil
	}
	if s.limiter.Allow(action, rule.Limit, rule.Window) {
		return nil
	}
	s.metrics.IncRateLimitDenials()
	s.securityEvent(security.EventRateLimitExceeded, security.SeverityMedium, map[string]any{
		"action": action, "limit": rule.Limit, "window": rule.Window.String(),
	})
	return dErrors.Newf(dErrors.CodeRateLimited, "too many %s attempts, retry shortly", strings.ReplaceAll(action, "_", " "))
}

func (s *Service) securityEvent(eventType string, severity security.Severity, details map[string]any) {
	if s.monitor == nil {
		return
	}
	s.monitor.LogEvent(security.Event{Type: eventType, Severity: severity, Details: details})
	s.metrics.IncSecurityEvents(string(severity))
}

func sanitizeSubject(sub domain.Subject) domain.Subject {
	for k, v := range sub {
		switch t := v.(type) {
		case string:
			sub[k] = validate.Sanitize(t)
		case domain.Subject:
			sub[k] = sanitizeSubject(t)
		case map[string]any:
			sub[k] = map[string]any(sanitizeSubject(domain.Subject(t)))
		case []any:
			for i, e := range t {
				if str, ok := e.(string); ok {
					t[i] = validate.Sanitize(str)
				}
			}
		}
	}
	return sub
}

func encodeSignature(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}

func decodeSignature(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func credentialID(vc *domain.VerifiableCredential) string {
	if vc == nil {
		return ""
	}
	return vc.ID
}

func errUninitialized() error {
	return dErrors.New(dErrors.CodeUninitialized, "credential service is not initialized")
}
