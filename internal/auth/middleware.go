package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hzj/miniblog/internal/model"
)

// contextKey is an unexported type for context keys in this package.
//
// context.WithValue takes any key, but a plain string key like "identity"
// could be read or shadowed by any package that knows the string. A private
// type makes the key unforgeable: only this package can set or get it.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the immutable request-scoped identity the gate attaches to the
// context. Handlers receive it as a value — nothing downstream can mutate
// the authenticated state mid-request.
type Identity struct {
	UserID int64
	Phone  string
}

// SubjectResolver loads the user a token subject refers to. Satisfied by
// repository.UserRepository; declared here so the gate doesn't depend on a
// concrete storage package.
type SubjectResolver interface {
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
}

// Authenticator is the request gate: it turns "Authorization: Bearer <jwt>"
// headers into an Identity in the request context.
type Authenticator struct {
	tokens *TokenService
	users  SubjectResolver
	logger *slog.Logger
}

// NewAuthenticator creates the gate middleware provider.
func NewAuthenticator(tokens *TokenService, users SubjectResolver, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// Gate annotates the request with an authenticated Identity when a valid,
// non-expired bearer token referring to an existing user is present.
//
// It NEVER rejects a request. No header, a malformed token, an expired
// token, or a token for a deleted user all pass through unauthenticated —
// route-level guards (Require) decide what anonymous requests may do.
// This mirrors the public-read API: GET /posts works for everyone, with or
// without a token.
func (a *Authenticator) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := a.resolve(r)
		if ok {
			ctx := context.WithValue(r.Context(), identityKey, identity)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// Require guards a route: if Gate did not establish an identity, the request
// is answered with 401 and the standard response envelope, and the handler
// never runs. Chain it AFTER Gate.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":401,"message":"valid authentication required","data":null}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext retrieves the authenticated identity, if any.
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok { /* anonymous request */ }
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// resolve runs the gate's state machine for one request:
// no header → anonymous; header → extract → validate → resolve subject →
// authenticated, with any failure falling back to anonymous.
func (a *Authenticator) resolve(r *http.Request) (Identity, bool) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, false
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")

	subject, expired, err := a.tokens.Validate(tokenStr)
	if err != nil {
		a.logger.Debug("request gate: rejected token", slog.String("error", err.Error()))
		return Identity{}, false
	}
	if expired {
		a.logger.Debug("request gate: expired token", slog.String("subject", subject))
		return Identity{}, false
	}

	// A token referring to a nonexistent user is treated as invalid, not as
	// an error to surface — the row may have been removed since issuance.
	user, err := a.users.GetByPhone(r.Context(), subject)
	if err != nil {
		a.logger.Debug("request gate: unresolvable subject", slog.String("subject", subject))
		return Identity{}, false
	}

	return Identity{UserID: user.ID, Phone: user.Phone}, true
}
