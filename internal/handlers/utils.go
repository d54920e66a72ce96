package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/flatcms/accounts/internal/services"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// PageResponse tells a client which page to show.
type PageResponse struct {
	Page string `json:"page"`
}

// StatusResponse acknowledges an action without returning data.
type StatusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service errors onto statuses. Messages stay generic
// so that neither paths nor account existence leak.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: validationErr.Fields})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid or unknown reset link")
	case errors.Is(err, services.ErrRegistrationClosed):
		writeError(w, http.StatusForbidden, "registration is closed")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, "account already exists")
	default:
		log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "something went wrong, try again")
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
