package handlers

import (
	"net/http"
	"net/url"

	"github.com/flatcms/accounts/internal/services"
	"github.com/flatcms/accounts/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// AccountsHandler serves account administration.
type AccountsHandler struct {
	accounts *services.AccountService
	log      logrus.FieldLogger
}

func NewAccountsHandler(accounts *services.AccountService, log logrus.FieldLogger) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, log: log}
}

// AccountsRouter registers the admin routes. All of them need the admin role.
func AccountsRouter(r chi.Router, h *AccountsHandler) {
	r.Use(RequireAdmin)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountListResponse{Items: accounts, Total: len(accounts)})
}

func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Fetch(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var patch types.AccountPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	deleted, err := h.accounts.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return "", false
	}
	return id, true
}

// AccountListResponse is the list response payload.
type AccountListResponse struct {
	Items []types.Account `json:"items"`
	Total int             `json:"total"`
}
