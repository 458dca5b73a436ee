package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hzj/miniblog/internal/model"
)

// newTestTokenService creates a TokenService with a fixed, known secret so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testUser() *model.User {
	return &model.User{ID: 42, Phone: "13800001234", Username: "user_1234"}
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE TESTS
// =========================================================================

func TestIssue_ReturnsWellFormedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Error("Issue() returned empty token")
	}

	// JWTs have 3 dot-separated parts: header.payload.signature
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("Issue() token doesn't look like a JWT (got %d parts)", len(parts))
	}
}

func TestIssue_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.Issue(&model.User{ID: 1, Phone: "13800000001"})
	token2, _ := ts.Issue(&model.User{ID: 2, Phone: "13800000002"})

	if token1 == token2 {
		t.Error("Issue() returned identical tokens for different users")
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	subject, expired, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if expired {
		t.Error("Validate() reported a fresh token as expired")
	}
	if subject != user.Phone {
		t.Errorf("Validate() subject = %q, want %q", subject, user.Phone)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.IssueWithTTL(user, -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithTTL() error = %v", err)
	}

	// An expired but genuine token is NOT an error — the subject still comes
	// back, with expired=true. The gate treats it as unauthenticated.
	subject, expired, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil for expired-but-genuine token", err)
	}
	if !expired {
		t.Error("Validate() expired = false, want true")
	}
	if subject != user.Phone {
		t.Errorf("Validate() subject = %q, want %q", subject, user.Phone)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(testUser())

	// Flip a character in the payload segment. The signature no longer
	// matches, so validation must fail with ErrInvalidSignature.
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, _, err := ts.Validate(tampered)
	if err == nil {
		t.Fatal("Validate() accepted a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1 := newTestTokenService(t)
	ts2, err := NewTokenService("a-completely-different-secret!!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts1.Issue(testUser())

	_, _, err = ts2.Validate(token)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Validate() error = %v, want ErrInvalidSignature", err)
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tokenStr := range []string{"", "garbage", "a.b.c", "Bearer abc"} {
		_, _, err := ts.Validate(tokenStr)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Validate(%q) error = %v, want ErrMalformed", tokenStr, err)
		}
	}
}
