package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithAuth(t *testing.T, token, header string) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()

	BearerAuth(token)(handler).ServeHTTP(w, req)
	return w, called
}

func TestBearerAuth_Success(t *testing.T) {
	w, called := serveWithAuth(t, "secret-token", "Bearer secret-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	w, called := serveWithAuth(t, "secret-token", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
	assert.False(t, called)
}

func TestBearerAuth_InvalidFormat(t *testing.T) {
	w, called := serveWithAuth(t, "secret-token", "Basic dXNlcjpwYXNz")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid authorization format")
	assert.False(t, called)
}

func TestBearerAuth_WrongToken(t *testing.T) {
	for _, header := range []string{"Bearer wrong-token", "Bearer secret-token ", "Bearer "} {
		w, called := serveWithAuth(t, "secret-token", header)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), "[UNAUTHORIZED] invalid bearer token")
		assert.False(t, called)
	}
}

func TestBearerAuth_EmptyConfiguredToken(t *testing.T) {
	w, called := serveWithAuth(t, "", "Bearer ")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}
