package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idwallet/internal/credential"
	"idwallet/internal/credential/handler"
	"idwallet/internal/domain"
	"idwallet/internal/identity"
	"idwallet/internal/ratelimit"
	"idwallet/internal/security"
	"idwallet/internal/storage"
	httptransport "idwallet/internal/transport/http"
	"idwallet/pkg/securerand"
)

// HandlerSuite exercises the wallet routes over a real router and service;
// only the network is replaced by httptest.
type HandlerSuite struct {
	suite.Suite
	limiter *ratelimit.Limiter
	svc     *credential.Service
	server  *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.limiter = ratelimit.New(ratelimit.WithLogger(logger))
	s.svc = credential.New(storage.NewMemoryStore(), s.limiter, security.NewMonitor(100),
		securerand.New(), credential.WithLogger(logger))
	s.Require().NoError(s.svc.Initialize(context.Background(), "handler-suite-secret"))

	h := handler.New(s.svc, identity.NewStaticProvider("ethr"), logger)
	s.server = httptest.NewServer(httptransport.NewRouter(h, logger))
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.limiter.Close()
}

func (s *HandlerSuite) postJSON(path string, body any) *http.Response {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(payload))
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) getJSON(path string, out any) *http.Response {
	resp, err := http.Get(s.server.URL + path)
	s.Require().NoError(err)
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	resp.Body.Close()
	return resp
}

func (s *HandlerSuite) issue() domain.VerifiableCredential {
	resp := s.postJSON("/v1/credentials", map[string]any{
		"credentialType": "KYCCredential",
		"subject": map[string]any{
			"name":        map[string]any{"firstName": "Jane", "lastName": "Doe"},
			"dateOfBirth": "1990-04-01",
		},
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var vc domain.VerifiableCredential
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&vc))
	return vc
}

func (s *HandlerSuite) TestHealthz() {
	resp, err := http.Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestMetricsExposed() {
	resp, err := http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestIdentity() {
	var ident domain.Identity
	resp := s.getJSON("/v1/identity", &ident)
	s.Equal(http.StatusOK, resp.StatusCode)

	did, err := s.svc.DID()
	s.Require().NoError(err)
	s.Equal(did, ident.DID)
	s.NotEmpty(ident.Claims)
}

func (s *HandlerSuite) TestIssueAndGet() {
	vc := s.issue()
	s.NotNil(vc.Proof)

	var got domain.VerifiableCredential
	resp := s.getJSON("/v1/credentials/"+vc.ID, &got)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(vc.ID, got.ID)
	s.Equal("Jane", got.CredentialSubject["name"].(map[string]any)["firstName"])
}

func (s *HandlerSuite) TestGet_UnknownIs404() {
	resp, err := http.Get(s.server.URL + "/v1/credentials/urn:uuid:missing")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("not_found", body["error"])
}

func (s *HandlerSuite) TestList() {
	s.issue()
	s.issue()

	var list []domain.CredentialMetadata
	resp := s.getJSON("/v1/credentials", &list)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(list, 2)
	s.Equal("KYCCredential", list[0].Metadata.CredentialType)
}

func (s *HandlerSuite) TestVerify() {
	vc := s.issue()

	resp := s.postJSON("/v1/credentials/verify", map[string]any{"credential": vc})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var result struct {
		Valid bool `json:"valid"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	s.True(result.Valid)
}

func (s *HandlerSuite) TestVerify_TamperedIsInvalidNot500() {
	vc := s.issue()
	vc.ID = "urn:uuid:00000000-0000-0000-0000-000000000000"

	resp := s.postJSON("/v1/credentials/verify", map[string]any{"credential": vc})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var result struct {
		Valid bool `json:"valid"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	s.False(result.Valid)
}

func (s *HandlerSuite) TestDisclose() {
	vc := s.issue()

	resp := s.postJSON("/v1/disclosures", map[string]any{
		"credentialId": vc.ID,
		"recipientDid": "did:ethr:0x4444444444444444444444444444444444444444",
		"fields":       []string{"name.firstName"},
		"purpose":      "greeting",
		"expiresAt":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var disclosure domain.SelectiveDisclosure
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&disclosure))
	data, err := json.Marshal(disclosure.Data)
	s.Require().NoError(err)
	s.JSONEq(`{"name":{"firstName":"Jane"}}`, string(data))
}

func (s *HandlerSuite) TestRequestWorkflow() {
	vc := s.issue()

	resp := s.postJSON("/v1/requests", domain.CredentialRequest{
		RequesterDID:   "did:ethr:0x5555555555555555555555555555555555555555",
		RequesterName:  "Acme",
		RequiredFields: []string{"name.firstName"},
		Purpose:        "onboarding",
		ExpiresAt:      time.Now().Add(time.Hour),
	})
	resp.Body.Close()
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)

	var pending []domain.CredentialRequest
	listResp := s.getJSON("/v1/requests/pending", &pending)
	s.Equal(http.StatusOK, listResp.StatusCode)
	s.Require().Len(pending, 1)

	respondResp := s.postJSON("/v1/requests/"+pending[0].ID+"/respond", map[string]any{
		"approved":     true,
		"credentialId": vc.ID,
	})
	respondResp.Body.Close()
	s.Equal(http.StatusNoContent, respondResp.StatusCode)

	pending = nil
	s.getJSON("/v1/requests/pending", &pending)
	s.Empty(pending)
}

func (s *HandlerSuite) TestRequest_ExpiredIs410() {
	resp := s.postJSON("/v1/requests", domain.CredentialRequest{
		RequesterDID: "did:ethr:0x5555555555555555555555555555555555555555",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})
	defer resp.Body.Close()
	s.Equal(http.StatusGone, resp.StatusCode)
}

func (s *HandlerSuite) TestPost_WrongContentType() {
	resp, err := http.Post(s.server.URL+"/v1/credentials", "text/plain", bytes.NewReader([]byte("hi")))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)
}

func (s *HandlerSuite) TestPost_MalformedBodyIs400() {
	resp, err := http.Post(s.server.URL+"/v1/credentials", "application/json", bytes.NewReader([]byte("{not json")))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
