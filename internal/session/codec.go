package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flatcms/accounts/types"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName carries the signed session token for browser clients.
	CookieName = "accounts_session"
	defaultTTL = 24 * time.Hour
)

// Claims is the JWT payload of a session token.
type Claims struct {
	Roles types.Roles `json:"roles"`
	UUID  string      `json:"uuid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens so a principal can travel between
// requests without a server-side session store.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for p.
func (c *Codec) Issue(p types.Principal) (string, error) {
	now := c.now()
	claims := Claims{
		Roles: p.Roles,
		UUID:  p.UUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Parse verifies tokenString and returns the principal it carries.
func (c *Codec) Parse(tokenString string) (types.Principal, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return types.Principal{}, err
	}
	if !token.Valid {
		return types.Principal{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return types.Principal{}, errors.New("missing subject")
	}
	return types.Principal{
		ID:    claims.Subject,
		Roles: claims.Roles,
		UUID:  claims.UUID,
	}, nil
}

// FromRequest reads the session token from the Authorization header or,
// failing that, the session cookie.
func FromRequest(r *http.Request) (string, error) {
	if token, err := bearerToken(r); err == nil {
		return token, nil
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", errors.New("missing session")
	}
	return cookie.Value, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
