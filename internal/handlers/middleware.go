package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/flatcms/accounts/internal/services"
	"github.com/flatcms/accounts/internal/session"
	"github.com/flatcms/accounts/types"
	"github.com/sirupsen/logrus"
)

// PrincipalResolver checks a token principal against the stored account.
type PrincipalResolver interface {
	Resolve(ctx context.Context, claimed types.Principal) (types.Principal, error)
}

// LoadSession attaches a Session to every request. It carries the principal
// of a valid session token whose account still exists and is enabled, and
// is anonymous otherwise.
func LoadSession(codec *session.Codec, resolver PrincipalResolver, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.New()
			if token, err := session.FromRequest(r); err == nil {
				if claimed, err := codec.Parse(token); err == nil {
					principal, err := resolver.Resolve(r.Context(), claimed)
					switch {
					case err == nil:
						sess.SetPrincipal(principal)
					case !errors.Is(err, services.ErrInvalidCredentials):
						log.WithError(err).WithField("account_id", claimed.ID).Warn("Failed to resolve session")
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).IsLoggedIn() {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose principal lacks the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := session.FromContext(r.Context()).Principal()
		if !principal.HasRole(types.RoleAdmin) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
