package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sharedcart/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

const testSecret = "mw-test-secret"

func signToken(t *testing.T, userID, email string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func protected(t *testing.T) (http.Handler, *string, *string) {
	var gotUserID, gotEmail string
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(UserIDKey).(string)
		gotEmail, _ = r.Context().Value(EmailKey).(string)
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &gotUserID, &gotEmail
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	handler, userID, email := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", "alice@example.com", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", *userID)
	assert.Equal(t, "alice@example.com", *email)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	// WebSocket connections pass the token in the query string.
	handler, userID, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, "user-2", "b@example.com", time.Hour), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", *userID)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	handler, _, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	handler, _, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", "a@example.com", -time.Minute))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
