package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/service"
)

// AuthHandler exposes the two login flows over HTTP: SMS code and GitHub
// OAuth.
type AuthHandler struct {
	auth        *service.AuthService
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. frontendURL is where the OAuth
// callback redirects with the freshly issued token.
func NewAuthHandler(auth *service.AuthService, frontendURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, frontendURL: frontendURL, logger: logger}
}

// HandleSendCode requests an SMS login code for a phone number.
//
// HTTP: POST /api/v1/auth/send-code
// REQUEST BODY: {"phone": "13800001234"}
//
// On success data is null; the code travels out of band, by SMS (or the
// server log, with the development sender).
func (h *AuthHandler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.auth.SendCode(r.Context(), req.Phone); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

// HandleLoginBySMS redeems a login code for a JWT.
//
// HTTP: POST /api/v1/auth/login-by-sms
// REQUEST BODY: {"phone": "13800001234", "code": "654321"}
//
// data is the bare token string. The frontend stores it and sends it back
// as "Authorization: Bearer <token>" on every write.
func (h *AuthHandler) HandleLoginBySMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	token, _, err := h.auth.LoginBySMS(r.Context(), req.Phone, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, token)
}

// HandleOAuthURL starts the GitHub flow.
//
// HTTP: GET /api/v1/auth/oauth/url
//
// Mints a state nonce, parks it server-side, and returns the GitHub
// authorization URL for the frontend to navigate to. data is the bare URL
// string, same convention as the login endpoints.
func (h *AuthHandler) HandleOAuthURL(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	authURL, err := h.auth.BeginOAuth(r.Context(), state)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, authURL)
}

// HandleOAuthCallback finishes the GitHub flow.
//
// HTTP: GET /api/v1/auth/oauth/callback?state=...&code=...
//
// This is the one endpoint that does NOT answer with the envelope on
// success: the browser arrives here following GitHub's redirect, so the
// right response is another redirect — to the frontend, with the token in
// the query string. Failures still get an envelope; there is no frontend
// page to bounce an error to.
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		writeError(w, apperror.ValidationFailed("query", "state and code are required"))
		return
	}

	token, _, err := h.auth.CompleteOAuth(r.Context(), state, code)
	if err != nil {
		writeError(w, err)
		return
	}

	redirect := h.frontendURL + "?token=" + url.QueryEscape(token)
	h.logger.Info("oauth login complete, redirecting to frontend")
	http.Redirect(w, r, redirect, http.StatusFound)
}
