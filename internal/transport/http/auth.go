package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"notiplay/internal/app"
	"notiplay/internal/domain"
)

type sessionKey struct{}

// Authenticator turns the identity provider's HS256 tokens into sessions. A request
// without a token is anonymous; a request with a bad token is rejected.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for userID. Used by the token command and tests.
func (a *Authenticator) Issue(userID string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Session resolves the caller. The token comes from the Authorization header, or the
// token query parameter for WebSocket upgrades.
func (a *Authenticator) Session(r *http.Request) (app.Session, error) {
	raw := bearerToken(r)
	if raw == "" {
		return app.Anonymous(), nil
	}
	if len(a.secret) == 0 {
		return app.Session{}, domain.ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return app.Session{}, domain.ErrUnauthenticated
	}
	return app.Session{UserID: claims.Subject}, nil
}

// Middleware stores the session in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.Session(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

// SessionFrom returns the session stored by Middleware, or an anonymous one.
func SessionFrom(ctx context.Context) app.Session {
	if s, ok := ctx.Value(sessionKey{}).(app.Session); ok {
		return s
	}
	return app.Anonymous()
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		// Unsupported scheme; fails verification.
		return h
	}
	return r.URL.Query().Get("token")
}
