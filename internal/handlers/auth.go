package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/flatcms/accounts/internal/services"
	"github.com/flatcms/accounts/internal/session"
	"github.com/flatcms/accounts/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const (
	loginPath        = "/accounts/login"
	registrationPath = "/accounts/registration"
	dashboardPath    = "/accounts"
)

// AuthHandler provides the login, registration and password reset endpoints.
type AuthHandler struct {
	auth         *services.AuthService
	reset        *services.ResetService
	bootstrap    *services.Bootstrap
	codec        *session.Codec
	log          logrus.FieldLogger
	secureCookie bool
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, reset *services.ResetService, bootstrap *services.Bootstrap, codec *session.Codec, log logrus.FieldLogger, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		reset:        reset,
		bootstrap:    bootstrap,
		codec:        codec,
		log:          log,
		secureCookie: secureCookie,
	}
}

// AuthRouter registers auth routes on the given router. The router must run
// behind LoadSession.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/registration", h.RegistrationPage)
	r.Post("/registration", h.Register)
	r.Post("/reset-password", h.RequestReset)
	r.Get("/new-password/{id}/{hash}", h.NewPassword)
	r.Get("/no-access", h.NoAccess)
	r.With(RequireAuth).Get("/me", h.Me)
}

// LoginPage sends unregistered sites to registration and logged-in users to
// the dashboard.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	open, err := h.bootstrap.CanRegister(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if open {
		redirect(w, r, registrationPath)
		return
	}
	if session.FromContext(r.Context()).IsLoggedIn() {
		redirect(w, r, dashboardPath)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Page: "login"})
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.ID) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	sess := session.FromContext(r.Context())
	principal, err := h.auth.Login(r.Context(), sess, req.ID, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	token, err := h.codec.Issue(principal)
	if err != nil {
		sess.Clear()
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.setSessionCookie(w, token, int(h.codec.TTL().Seconds()))

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, Principal: principal})
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), session.FromContext(r.Context()))
	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "logged out"})
}

// RegistrationPage is only reachable until the super admin exists.
func (h *AuthHandler) RegistrationPage(w http.ResponseWriter, r *http.Request) {
	open, err := h.bootstrap.CanRegister(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if !open {
		redirect(w, r, loginPath)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Page: "registration"})
}

// Register creates the super admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, _, err := h.auth.Register(r.Context(), req)
	if errors.Is(err, services.ErrRegistrationClosed) {
		redirect(w, r, loginPath)
		return
	}
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// RequestReset emails a reset link. The response is the same whether or not
// the account exists.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.reset.RequestReset(r.Context(), req.ID); err != nil && !errors.Is(err, services.ErrNotFound) {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "if the account exists, a reset link has been sent"})
}

// NewPassword consumes a reset link. The new password is sent by email.
func (h *AuthHandler) NewPassword(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or unknown reset link")
		return
	}

	if _, err := h.reset.ConsumeReset(r.Context(), id, chi.URLParam(r, "hash")); err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "invalid or unknown reset link")
			return
		}
		writeServiceError(w, h.log, err)
		return
	}
	redirect(w, r, loginPath)
}

func (h *AuthHandler) NoAccess(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusForbidden, PageResponse{Page: "no-access"})
}

// Me returns the principal of the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := session.FromContext(r.Context()).Principal()
	writeJSON(w, http.StatusOK, principal)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type ResetRequest struct {
	ID string `json:"id"`
}

type AuthResponse struct {
	Token     string          `json:"token"`
	Principal types.Principal `json:"principal"`
}
