package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateToken("user-123", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expected expiry in the future, got %s", expiresAt)
	}

	p, err := NewJWTVerifier("test-secret").Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if p.UserID != "user-123" {
		t.Errorf("expected user-123, got %q", p.UserID)
	}
}

func TestJWTVerifier_Rejects(t *testing.T) {
	good, _, _ := GenerateToken("user-123", "test-secret", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredStr, _ := expired.SignedString([]byte("test-secret"))

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	noSubjectStr, _ := noSubject.SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", good},
		{"expired", expiredStr},
		{"no subject", noSubjectStr},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret := "test-secret"
			if tt.name == "wrong secret" {
				secret = "other"
			}
			if _, err := NewJWTVerifier(secret).Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGenerateToken_Validation(t *testing.T) {
	if _, _, err := GenerateToken(" ", "s", time.Hour); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, _, err := GenerateToken("u", "", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, _, err := GenerateToken("u", "s", 0); err == nil {
		t.Error("expected error for non-positive expiry")
	}
}

func TestMiddleware(t *testing.T) {
	var seen Principal
	handler := Middleware(Any{StaticToken("static-secret"), NewJWTVerifier("jwt-secret")}, testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	jwtToken, _, _ := GenerateToken("ops-user", "jwt-secret", time.Hour)

	tests := []struct {
		name   string
		header string
		want   int
		user   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad static", "Bearer nope", http.StatusUnauthorized, ""},
		{"static", "Bearer static-secret", http.StatusNoContent, "api"},
		{"jwt", "Bearer " + jwtToken, http.StatusNoContent, "ops-user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Principal{}
			req := httptest.NewRequest("GET", "/api/v1/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if seen.UserID != tt.user {
				t.Errorf("expected principal %q, got %q", tt.user, seen.UserID)
			}
		})
	}
}

func TestMiddleware_NilVerifierAllowsAll(t *testing.T) {
	handler := Middleware(nil, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestStaticToken_EmptyNeverMatches(t *testing.T) {
	if _, err := StaticToken("").Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestStaticToken_IsServicePrincipal(t *testing.T) {
	p, err := StaticToken("s").Verify("s")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !p.Service {
		t.Error("expected static token principal to be a service principal")
	}

	jwtToken, _, _ := GenerateToken("ops-user", "jwt-secret", time.Hour)
	p, err = NewJWTVerifier("jwt-secret").Verify(jwtToken)
	if err != nil || p.Service {
		t.Errorf("expected user principal, got %+v / %v", p, err)
	}
}
