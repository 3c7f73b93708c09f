// Package handler is the thin HTTP layer over the credential service. It
// decodes requests, delegates, and translates errors; no business logic
// lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idwallet/internal/domain"
	"idwallet/internal/platform/middleware"
	"idwallet/internal/transport/http/shared"
	dErrors "idwallet/pkg/domain-errors"
)

// Service is the credential service surface the handler depends on.
type Service interface {
	DID() (string, error)
	Address() (string, error)
	IssueCredential(ctx context.Context, credentialType string, subject domain.Subject, expirationDate *time.Time) (*domain.VerifiableCredential, error)
	GetCredential(ctx context.Context, id string) (*domain.VerifiableCredential, bool)
	AllCredentialMetadata(ctx context.Context) ([]domain.CredentialMetadata, error)
	VerifyCredential(ctx context.Context, vc *domain.VerifiableCredential) bool
	CreateSelectiveDisclosure(ctx context.Context, credentialID, recipientDID string, fields []string, purpose string, expiresAt time.Time) (*domain.SelectiveDisclosure, error)
	ReceiveRequest(ctx context.Context, req domain.CredentialRequest) error
	PendingRequests() ([]domain.CredentialRequest, error)
	RespondToRequest(ctx context.Context, requestID string, approved bool, credentialID string) error
}

// IdentityProvider resolves the dashboard identity view.
type IdentityProvider interface {
	GetIdentity(ctx context.Context, address string) (domain.Identity, error)
}

type Handler struct {
	logger   *slog.Logger
	service  Service
	provider IdentityProvider
}

func New(service Service, provider IdentityProvider, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, provider: provider}
}

// Register mounts the wallet routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/identity", h.handleIdentity)
		r.Post("/credentials", h.handleIssue)
		r.Get("/credentials", h.handleList)
		r.Get("/credentials/{id}", h.handleGet)
		r.Post("/credentials/verify", h.handleVerify)
		r.Post("/disclosures", h.handleDisclose)
		r.Post("/requests", h.handleReceiveRequest)
		r.Get("/requests/pending", h.handlePendingRequests)
		r.Post("/requests/{id}/respond", h.handleRespond)
	})
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	address, err := h.service.Address()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	identity, err := h.provider.GetIdentity(r.Context(), address)
	if err != nil {
		h.logError(r, "resolve identity", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, identity)
}

type issueRequest struct {
	CredentialType string         `json:"credentialType"`
	Subject        domain.Subject `json:"subject"`
	ExpirationDate *time.Time     `json:"expirationDate,omitempty"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	vc, err := h.service.IssueCredential(r.Context(), req.CredentialType, req.Subject, req.ExpirationDate)
	if err != nil {
		h.logError(r, "issue credential", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, vc)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.AllCredentialMetadata(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vc, ok := h.service.GetCredential(r.Context(), id)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "credential not found"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, vc)
}

type verifyRequest struct {
	Credential *domain.VerifiableCredential `json:"credential"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifyResponse{
		Valid: h.service.VerifyCredential(r.Context(), req.Credential),
	})
}

type discloseRequest struct {
	CredentialID string    `json:"credentialId"`
	RecipientDID string    `json:"recipientDid"`
	Fields       []string  `json:"fields"`
	Purpose      string    `json:"purpose"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (h *Handler) handleDisclose(w http.ResponseWriter, r *http.Request) {
	var req discloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	disclosure, err := h.service.CreateSelectiveDisclosure(r.Context(),
		req.CredentialID, req.RecipientDID, req.Fields, req.Purpose, req.ExpiresAt)
	if err != nil {
		h.logError(r, "create disclosure", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, disclosure)
}

func (h *Handler) handleReceiveRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := h.service.ReceiveRequest(r.Context(), req); err != nil {
		h.logError(r, "receive request", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingRequests()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, pending)
}

type respondRequest struct {
	Approved     bool   `json:"approved"`
	CredentialID string `json:"credentialId,omitempty"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := h.service.RespondToRequest(r.Context(), requestID, req.Approved, req.CredentialID); err != nil {
		h.logError(r, "respond to request", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(r *http.Request, op string, err error) {
	device := middleware.GetDevice(r.Context())
	h.logger.WarnContext(r.Context(), "request failed",
		"operation", op,
		"error", err.Error(),
		"request_id", middleware.GetRequestID(r.Context()),
		"browser", device.Browser,
		"os", device.OS,
	)
}
