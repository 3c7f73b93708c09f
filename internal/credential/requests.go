package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"idwallet/internal/domain"
	"idwallet/internal/security"
	"idwallet/internal/validate"
	dErrors "idwallet/pkg/domain-errors"
)

const (
	callbackAttempts   = 3
	callbackRetryDelay = 500 * time.Millisecond
	callbackTokenTTL   = 10 * time.Minute
	disclosureTTL      = 24 * time.Hour
)

// ReceiveRequest validates and enqueues an inbound credential request.
// Requests already past their expiry are rejected at ingestion.
func (s *Service) ReceiveRequest(ctx context.Context, req domain.CredentialRequest) error {
	if !s.Initialized() {
		return errUninitialized()
	}
	if err := s.allow("receive_request", s.limits.Request); err != nil {
		return err
	}
	if !validate.IsDID(req.RequesterDID) {
		s.securityEvent(security.EventInvalidInput, security.SeverityLow, map[string]any{
			"operation": "receive_request", "field": "requester_did",
		})
		return dErrors.New(dErrors.CodeInvalidInput, "requester DID is malformed")
	}
	if req.Expired(s.now()) {
		return dErrors.New(dErrors.CodeExpired, "credential request has already expired")
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestDate.IsZero() {
		req.RequestDate = s.now().UTC()
	}
	req.RequesterName = validate.Sanitize(req.RequesterName)
	req.Purpose = validate.Sanitize(req.Purpose)
	req.RequiredFields = validate.SanitizeAll(req.RequiredFields)
	req.Status = domain.RequestPending

	s.mu.Lock()
	s.requests[req.ID] = &req
	s.mu.Unlock()

	s.metrics.IncRequestsReceived()
	s.logger.InfoContext(ctx, "credential request received",
		"request_id", req.ID, "requester", req.RequesterDID)
	return nil
}

// PendingRequests returns requests that are still pending AND unexpired.
// Expiry is a computed view at read time, not a stored flag.
func (s *Service) PendingRequests() ([]domain.CredentialRequest, error) {
	if !s.Initialized() {
		return nil, errUninitialized()
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CredentialRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if req.Status != domain.RequestPending || req.Expired(now) {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.Before(out[j].RequestDate) })
	return out, nil
}

// RespondToRequest transitions a pending request to approved or denied,
// exactly once. On approval the required fields of the chosen credential are
// disclosed to the requester and, when a callback URL is present, delivered.
// The status transition is final: delivery failures are logged as security
// events but never roll it back.
func (s *Service) RespondToRequest(ctx context.Context, requestID string, approved bool, credentialID string) error {
	if !s.Initialized() {
		return errUninitialized()
	}

	s.mu.Lock()
	req, ok := s.requests[requestID]
	if !ok {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "credential request not found")
	}
	if req.Status != domain.RequestPending {
		s.mu.Unlock()
		return dErrors.Newf(dErrors.CodeInvalidInput, "request already %s", req.Status)
	}
	if approved {
		req.Status = domain.RequestApproved
	} else {
		req.Status = domain.RequestDenied
	}
	snapshot := *req
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "credential request responded",
		"request_id", requestID, "status", string(snapshot.Status))

	if !approved {
		return nil
	}

	disclosure, err := s.CreateSelectiveDisclosure(ctx,
		credentialID, snapshot.RequesterDID, snapshot.RequiredFields,
		snapshot.Purpose, s.now().Add(disclosureTTL))
	if err != nil {
		s.securityEvent(security.EventCallbackDeliveryFailed, security.SeverityMedium, map[string]any{
			"request_id": requestID, "stage": "disclosure", "error": err.Error(),
		})
		return nil
	}

	if snapshot.CallbackURL == "" {
		return nil
	}
	if err := s.deliverResponse(ctx, snapshot, disclosure); err != nil {
		s.securityEvent(security.EventCallbackDeliveryFailed, security.SeverityMedium, map[string]any{
			"request_id": requestID, "stage": "delivery", "error": err.Error(),
		})
	}
	return nil
}

type callbackPayload struct {
	RequestID   string                       `json:"requestId"`
	Approved    bool                         `json:"approved"`
	Disclosures []domain.SelectiveDisclosure `json:"disclosures"`
}

// deliverResponse posts the disclosures to the requester's callback URL with
// a short-lived bearer assertion, retrying with exponential backoff.
func (s *Service) deliverResponse(ctx context.Context, req domain.CredentialRequest, disclosure *domain.SelectiveDisclosure) error {
	body, err := json.Marshal(callbackPayload{
		RequestID:   req.ID,
		Approved:    true,
		Disclosures: []domain.SelectiveDisclosure{*disclosure},
	})
	if err != nil {
		return fmt.Errorf("serialize callback payload: %w", err)
	}

	token, err := s.callbackToken(req)
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.CallbackURL, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+token)

			resp, err := s.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)
			if resp.StatusCode >= 300 {
				return fmt.Errorf("callback returned %d", resp.StatusCode)
			}
			return nil
		},
		retry.Attempts(callbackAttempts),
		retry.Delay(callbackRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// callbackToken signs a short-lived HS256 assertion identifying the wallet
// as issuer and the requester as audience.
func (s *Service) callbackToken(req domain.CredentialRequest) (string, error) {
	did, err := s.DID()
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	key := s.callbackKey
	s.mu.RUnlock()

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    did,
		Subject:   req.ID,
		Audience:  []string{req.RequesterDID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(callbackTokenTTL)),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign callback token: %w", err)
	}
	return signed, nil
}
