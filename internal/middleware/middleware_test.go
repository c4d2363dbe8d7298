package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakePerms struct {
	codes map[string][]string
	calls int
	err   error
}

func (f *fakePerms) GetPermissionsByRoleName(_ context.Context, role string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.codes[role], nil
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func newRouter(auth *Authenticator, perms ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/protected", auth.RequirePermission(perms...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(CtxUsername)})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestRequirePermission(t *testing.T) {
	perms := &fakePerms{codes: map[string][]string{"staff": {"orders.read"}}}
	auth := NewAuthenticator(testSecret, perms, false)
	r := newRouter(auth, "orders.read")

	valid := signToken(t, jwt.MapClaims{"sub": "u1", "role": "staff", "username": "ana", "exp": time.Now().Add(time.Hour).Unix()})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad format", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequirePermission_MissingPermissionAndCache(t *testing.T) {
	perms := &fakePerms{codes: map[string][]string{"staff": {"orders.read"}}}
	auth := NewAuthenticator(testSecret, perms, false)
	r := newRouter(auth, "users.write")
	token := signToken(t, jwt.MapClaims{"sub": "u1", "role": "staff", "exp": time.Now().Add(time.Hour).Unix()})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	}
	assert.Equal(t, 1, perms.calls)

	auth.ClearPermissionCache("staff")
	_, err := auth.PermissionsForRole(context.Background(), "staff")
	require.NoError(t, err)
	assert.Equal(t, 2, perms.calls)
}

func TestRequirePermission_ExpiredToken(t *testing.T) {
	auth := NewAuthenticator(testSecret, &fakePerms{}, false)
	r := newRouter(auth)
	token := signToken(t, jwt.MapClaims{"sub": "u1", "role": "staff", "exp": time.Now().Add(-time.Minute).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission_SourceError(t *testing.T) {
	auth := NewAuthenticator(testSecret, &fakePerms{err: errors.New("db down")}, false)
	r := newRouter(auth, "orders.read")
	token := signToken(t, jwt.MapClaims{"sub": "u1", "role": "staff", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := newRouter(NewAuthenticator(testSecret, &fakePerms{}, false))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), "Internal server error")
}
