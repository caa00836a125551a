package handlers

import (
	"context"
	"net/http"

	"github.com/upb/orders-backend/middleware"
	"github.com/upb/orders-backend/services"
	"github.com/upb/orders-backend/services/accounts"
	"github.com/upb/orders-backend/utils"
	"go.uber.org/zap"
)

// CredentialsRequest is the body of signup and login
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
}

// AccountService defines the password account operations
type AccountService interface {
	// Signup registers a new account and returns a session
	Signup(ctx context.Context, email, password string) (*accounts.Session, error)

	// Login verifies credentials and returns a session
	Login(ctx context.Context, email, password string) (*accounts.Session, error)
}

// AuthHandler handles signup, login and identity requests
type AuthHandler struct {
	accounts AccountService
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts AccountService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleSignup handles POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.accounts.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, sessionPayload(session))
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, sessionPayload(session))
}

// HandleMe handles GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		HandleServiceError(w, services.ErrMissingCredential, h.logger)
		return
	}

	_ = utils.WriteOK(w, utils.Payload{"user": identity})
}

func (h *AuthHandler) parseCredentials(w http.ResponseWriter, r *http.Request) (*CredentialsRequest, bool) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req CredentialsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return nil, false
	}

	return &req, true
}

func sessionPayload(session *accounts.Session) utils.Payload {
	return utils.Payload{
		"token": session.Token,
		"user":  session.Account,
	}
}
