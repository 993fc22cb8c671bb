package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mssp-stack/portal-backend/audit"
	"github.com/mssp-stack/portal-backend/testutil"
)

const testSessionSecret = "test-session-secret"

func setupRequestContext(t *testing.T) *RequestContext {
	t.Helper()
	os.Setenv("SESSION_JWT_SECRET", testSessionSecret)
	t.Cleanup(func() { os.Unsetenv("SESSION_JWT_SECRET") })

	db := testutil.SetupTestDB(t)
	return NewRequestContext(audit.NewService(db))
}

// serveAndCapture runs a request through the middleware and returns what the
// wrapped handler saw in its context.
func serveAndCapture(t *testing.T, m *RequestContext, req *http.Request) (audit.Actor, *audit.Logger) {
	t.Helper()
	var actor audit.Actor
	var logger *audit.Logger

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = GetActor(r.Context())
		logger = GetLogger(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return actor, logger
}

func signSessionToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestMiddleware_SessionTokenIdentifiesActor(t *testing.T) {
	m := setupRequestContext(t)
	userID := uuid.New()

	token := signSessionToken(t, testSessionSecret, jwt.MapClaims{
		"sub": userID.String(),
		"sid": "sess-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "portal-frontend/2.1")

	actor, logger := serveAndCapture(t, m, req)

	require.NotNil(t, actor.UserID)
	assert.Equal(t, userID, *actor.UserID)
	require.NotNil(t, actor.SessionID)
	assert.Equal(t, "sess-42", *actor.SessionID)
	require.NotNil(t, actor.UserAgent)
	assert.Equal(t, "portal-frontend/2.1", *actor.UserAgent)
	require.NotNil(t, actor.IPAddress)
	assert.NotNil(t, logger)
}

func TestMiddleware_TokenWinsOverIdentityHeaders(t *testing.T) {
	m := setupRequestContext(t)
	tokenUser := uuid.New()
	headerUser := uuid.New()

	token := signSessionToken(t, testSessionSecret, jwt.MapClaims{
		"sub": tokenUser.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-User-ID", headerUser.String())
	req.Header.Set("X-Session-ID", "header-session")

	actor, _ := serveAndCapture(t, m, req)

	require.NotNil(t, actor.UserID)
	assert.Equal(t, tokenUser, *actor.UserID)
	// The token carried no sid, and header fallback is skipped once the
	// token parses
	assert.Nil(t, actor.SessionID)
}

func TestMiddleware_IdentityHeaderFallback(t *testing.T) {
	m := setupRequestContext(t)
	userID := uuid.New()

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-Session-ID", "internal-batch-7")

	actor, _ := serveAndCapture(t, m, req)

	require.NotNil(t, actor.UserID)
	assert.Equal(t, userID, *actor.UserID)
	require.NotNil(t, actor.SessionID)
	assert.Equal(t, "internal-batch-7", *actor.SessionID)
}

func TestMiddleware_MalformedIdentityHeaderIgnored(t *testing.T) {
	m := setupRequestContext(t)

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")

	actor, _ := serveAndCapture(t, m, req)

	assert.Nil(t, actor.UserID)
}

func TestMiddleware_BadTokensFallBackToAnonymous(t *testing.T) {
	m := setupRequestContext(t)
	userID := uuid.New()

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "Garbage",
			token: "not.a.token",
		},
		{
			name: "WrongSecret",
			token: signSessionToken(t, "some-other-secret", jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			name: "Expired",
			token: signSessionToken(t, testSessionSecret, jwt.MapClaims{
				"sub": userID.String(),
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "SubjectNotAUserID",
			token: signSessionToken(t, testSessionSecret, jwt.MapClaims{
				"sub": "service-account",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/clients", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)

			actor, logger := serveAndCapture(t, m, req)

			assert.Nil(t, actor.UserID)
			assert.Nil(t, actor.SessionID)
			// The request is still recorded, just without an identity
			assert.NotNil(t, actor.IPAddress)
			assert.NotNil(t, logger)
		})
	}
}

func TestMiddleware_RejectsUnexpectedSigningMethod(t *testing.T) {
	m := setupRequestContext(t)
	userID := uuid.New()

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+unsigned)

	actor, _ := serveAndCapture(t, m, req)

	assert.Nil(t, actor.UserID)
}

func TestMiddleware_NoSecretSkipsTokenParsing(t *testing.T) {
	os.Unsetenv("SESSION_JWT_SECRET")
	db := testutil.SetupTestDB(t)
	m := NewRequestContext(audit.NewService(db))

	userID := uuid.New()
	token := signSessionToken(t, testSessionSecret, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	headerUser := uuid.New()

	req := httptest.NewRequest("GET", "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-User-ID", headerUser.String())

	actor, _ := serveAndCapture(t, m, req)

	// Without a secret the token cannot be verified, so the identity
	// headers apply instead
	require.NotNil(t, actor.UserID)
	assert.Equal(t, headerUser, *actor.UserID)
}

func TestExtractIPAddress(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "XForwardedForSingle",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			expected:   "203.0.113.7",
		},
		{
			name:       "XForwardedForChainTakesFirst",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			expected:   "203.0.113.7",
		},
		{
			name:       "XRealIP",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			expected:   "198.51.100.4",
		},
		{
			name:       "RemoteAddrStripsPort",
			remoteAddr: "192.0.2.10:52110",
			expected:   "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, extractIPAddress(req))
		})
	}
}

func TestGetActor_DefaultsOutsideMiddleware(t *testing.T) {
	actor := GetActor(context.Background())
	assert.Nil(t, actor.UserID)
	assert.Nil(t, actor.IPAddress)
}

func TestGetLogger_NilOutsideMiddleware(t *testing.T) {
	assert.Nil(t, GetLogger(context.Background()))
}
