package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{
		ServiceName:   "portal-backend-test",
		ResourceAttrs: map[string]string{"deployment.environment": "test"},
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Second call is a no-op and must not error.
	_, err = Setup(context.Background(), Config{ServiceName: "portal-backend-test"})
	require.NoError(t, err)

	t.Run("MetricsEndpointServes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()

		Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Body.String())
	})

	t.Run("MiddlewarePreservesStatus", func(t *testing.T) {
		wrapped := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("MiddlewareDefaultsToOK", func(t *testing.T) {
		wrapped := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RecordersDoNotPanic", func(t *testing.T) {
		ctx := context.Background()

		RecordDBLatency(ctx, "postgres", "audit_insert", 3*time.Millisecond)
		RecordBusinessEvent(ctx, "client_created", true)
		RecordBusinessEvent(ctx, "contract_deleted", false)
		RecordStreamEvent(ctx, "security-events", "processed")
	})
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "success", outcomeLabel(true))
	assert.Equal(t, "failure", outcomeLabel(false))
}
