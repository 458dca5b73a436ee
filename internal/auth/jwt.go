// Package auth provides JWT issuing/validation, the GitHub OAuth provider,
// and the request-gate middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Client logs in by SMS code or GitHub OAuth (see service.AuthService)
// 2. Server issues a JWT access token; the client keeps it
// 3. On subsequent API calls, the client sends "Authorization: Bearer <jwt>";
//    the gate middleware validates it and annotates the request context with
//    the authenticated identity
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server stores no session. All the
// information needed (subject, expiry) is inside the signed token, and the
// HMAC signature ensures nobody can tamper with it without the secret key.
// The flip side: there is no revocation — expiry is the only invalidation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hzj/miniblog/internal/model"
)

const issuer = "miniblog"

// Validation failure classes. Expired tokens are NOT an error — Validate
// reports expiry through its second return value so the gate can distinguish
// "was a real token, too old" from garbage.
var (
	// ErrInvalidSignature means the token was tampered with or signed with a
	// different secret.
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	// ErrMalformed means the string is not a parseable token of ours
	// (wrong structure, wrong algorithm, wrong issuer, missing subject).
	ErrMalformed = errors.New("auth: malformed token")
)

// TokenService issues and validates JWT access tokens.
//
// It holds the HMAC secret used to sign and verify — the same secret for both
// operations (HS256 is symmetric). Keep it safe; rotating it invalidates all
// outstanding tokens at once.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. The secret should be at least 32 bytes of random data in
// production, e.g. JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is the JWT payload. The registered "sub" claim carries the user's
// phone identifier (the unique login key); UserID carries the stable numeric
// database id as a custom claim.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Issue creates and signs an access token for the given user.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single-server deployment. The expiry is now + the configured TTL.
func (s *TokenService) Issue(user *model.User) (string, error) {
	now := time.Now()

	c := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// IssueWithTTL creates a token with a custom lifetime instead of the
// configured one. A negative d produces an already-expired token, which the
// expiry tests rely on.
func (s *TokenService) IssueWithTTL(user *model.User, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string.
//
// Returns the subject (phone identifier) and whether the token has expired.
// An expired but correctly-signed token yields (subject, true, nil) — the
// caller decides what expiry means. Tampered tokens fail with
// ErrInvalidSignature; anything unparseable fails with ErrMalformed.
//
// Passing jwt.WithValidMethods prevents algorithm-confusion attacks: without
// it, an attacker could present a token declaring alg "none" and some
// libraries would accept it.
func (s *TokenService) Validate(tokenStr string) (subject string, expired bool, err error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		switch {
		case token != nil && errors.Is(err, jwt.ErrTokenExpired):
			// The signature checked out — the token is genuine, just old.
			// ParseWithClaims still populated the claims, so we can report
			// the subject alongside expired=true.
			if c, ok := token.Claims.(*Claims); ok && c.Subject != "" {
				return c.Subject, true, nil
			}
			return "", true, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", false, ErrInvalidSignature
		default:
			return "", false, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", false, ErrMalformed
	}
	if c.Subject == "" {
		return "", false, fmt.Errorf("%w: token has no subject", ErrMalformed)
	}

	return c.Subject, false, nil
}
