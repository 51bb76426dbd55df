package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_ValidToken_AuthorizationHeader(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	token, err := jwtService.GenerateToken("alice", "alice@example.com", auth.RolePublisher)
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", GetUsername(r.Context()))
		assert.Equal(t, "alice@example.com", GetUserEmail(r.Context()))
		assert.Equal(t, auth.RolePublisher, GetUserRole(r.Context()))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("GET", "/api/v1/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth_ValidToken_XAuthTokenHeader(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	token, err := jwtService.GenerateToken("bob", "bob@example.com", auth.RoleApprover)
	require.NoError(t, err)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bob", GetUsername(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/organizations", nil)
	req.Header.Set("X-Auth-Token", token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejected(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	otherSecret, err := auth.NewJWTService("other-secret", 24*time.Hour).GenerateToken("alice", "", auth.RolePublisher)
	require.NoError(t, err)
	noUsername, err := jwtService.GenerateToken("", "", auth.RolePublisher)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no token", ""},
		{"malformed token", "Bearer invalid-token"},
		{"different secret", "Bearer " + otherSecret},
		{"no username", "Bearer " + noUsername},
		{"not bearer", "Basic YWxpY2U6c2VjcmV0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("Handler should not be called")
			}))

			req := httptest.NewRequest("GET", "/api/v1/organizations", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "Unauthorized")
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 1*time.Nanosecond)

	token, err := jwtService.GenerateToken("alice", "alice@example.com", auth.RolePublisher)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	handler := Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for expired token")
	}))

	req := httptest.NewRequest("GET", "/api/v1/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContextHelpers_NotInContext(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", GetUsername(ctx))
	assert.Equal(t, "", GetUserEmail(ctx))
	assert.Equal(t, "", GetUserRole(ctx))
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

	tests := []struct {
		name           string
		userRole       string
		requiredRoles  []string
		expectedStatus int
	}{
		{
			name:           "approver_has_access",
			userRole:       auth.RoleApprover,
			requiredRoles:  []string{auth.RoleApprover},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "either_role",
			userRole:       auth.RolePublisher,
			requiredRoles:  []string{auth.RoleApprover, auth.RolePublisher},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "publisher_denied",
			userRole:       auth.RolePublisher,
			requiredRoles:  []string{auth.RoleApprover},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "no_role_denied",
			userRole:       "",
			requiredRoles:  []string{auth.RoleApprover},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtService.GenerateToken("carol", "carol@example.com", tt.userRole)
			require.NoError(t, err)

			handler := Auth(jwtService)(RequireRole(tt.requiredRoles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest("POST", "/api/v1/review", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/api/v1/organizations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "/api/v1/organizations")
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"size":15`)
}

func TestLogging_Caller(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	jwtService := auth.NewJWTService("test-secret", time.Hour)

	token, err := jwtService.GenerateToken("alice", "", auth.RolePublisher)
	require.NoError(t, err)

	handler := Logging(logger)(Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))

	req := httptest.NewRequest("POST", "/api/v1/organizations/x/submit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"username":"alice"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
