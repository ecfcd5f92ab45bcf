package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func adminHandler() http.Handler {
	m := NewJWTMiddleware(testSecret)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ClaimsFromContext(r.Context()).Role))
	})
	return m.Authenticate(RequireRole("service_role")(ok))
}

func TestAdminAccess(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, "other-secret", Claims{Role: "service_role",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, testSecret, Claims{Role: "service_role",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}), http.StatusUnauthorized},
		{"no expiry", "Bearer " + sign(t, testSecret, Claims{Role: "service_role"}), http.StatusUnauthorized},
		{"bad subject", "Bearer " + sign(t, testSecret, Claims{Role: "service_role",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: future}}), http.StatusUnauthorized},
		{"authenticated user", "Bearer " + sign(t, testSecret, Claims{Role: "authenticated",
			RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: future}}), http.StatusForbidden},
		{"service role", "Bearer " + sign(t, testSecret, Claims{Role: "service_role",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}), http.StatusOK},
	}

	h := adminHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/admin/cache/local", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
