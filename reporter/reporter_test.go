package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mssp-stack/portal-backend/audit"
	"github.com/mssp-stack/portal-backend/consumer"
	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/testutil"
)

func TestNewSecurityEventReporter(t *testing.T) {
	t.Run("NilClientIsNoOp", func(t *testing.T) {
		r := NewSecurityEventReporter(nil)

		_, isNoOp := r.(*noOpReporter)
		assert.True(t, isNoOp)
		assert.NoError(t, r.ReportSecurityEvent(context.Background(), Event{
			EventType: models.SecurityEventLogin,
			Success:   true,
		}))
	})
}

func TestEventValidate(t *testing.T) {
	assert.Error(t, Event{Success: true}.Validate())
	assert.NoError(t, Event{EventType: models.SecurityEventLogout}.Validate())
}

func TestEventToStreamValues(t *testing.T) {
	t.Run("FullEvent", func(t *testing.T) {
		userID := uuid.NewString()
		occurredAt := time.Date(2026, 5, 2, 17, 4, 11, 0, time.UTC)

		values, err := Event{
			EventType:  models.SecurityEventAccessDenied,
			Success:    false,
			UserID:     userID,
			Email:      "analyst@meridian.example",
			IPAddress:  "198.51.100.9",
			UserAgent:  "sso-gateway/3.2",
			Reason:     "role lacks billing scope",
			Details:    map[string]interface{}{"resource": "invoices"},
			OccurredAt: occurredAt,
		}.ToStreamValues()
		require.NoError(t, err)

		assert.Equal(t, models.SecurityEventAccessDenied, values["event_type"])
		assert.Equal(t, "false", values["success"])
		assert.Equal(t, userID, values["user_id"])
		assert.Equal(t, "analyst@meridian.example", values["email"])
		assert.Equal(t, "198.51.100.9", values["ip_address"])
		assert.Equal(t, "role lacks billing scope", values["reason"])
		assert.Equal(t, `{"resource":"invoices"}`, values["details"])
		assert.Equal(t, "2026-05-02T17:04:11Z", values["occurred_at"])
	})

	t.Run("MinimalEventOmitsEmptyFields", func(t *testing.T) {
		values, err := Event{
			EventType: models.SecurityEventLogin,
			Success:   true,
		}.ToStreamValues()
		require.NoError(t, err)

		assert.Equal(t, "true", values["success"])
		assert.NotContains(t, values, "user_id")
		assert.NotContains(t, values, "reason")
		assert.NotContains(t, values, "occurred_at")
	})
}

// TestStreamRoundTrip proves the reporter's wire format is exactly what the
// portal's consumer parses.
func TestStreamRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	processor := consumer.NewSecurityEventProcessor(audit.NewService(db))

	userID := uuid.New()
	values, err := Event{
		EventType: models.SecurityEventLoginFailed,
		Success:   false,
		UserID:    userID.String(),
		IPAddress: "203.0.113.77",
		Reason:    "expired credentials",
	}.ToStreamValues()
	require.NoError(t, err)

	require.NoError(t, processor.ProcessSecurityEvent(context.Background(), values))

	var event models.SecurityEvent
	require.NoError(t, db.First(&event, "user_id = ?", userID).Error)
	assert.Equal(t, models.SecurityEventLoginFailed, event.EventType)
	assert.False(t, event.Success)
	assert.Equal(t, "203.0.113.77", *event.IPAddress)
	assert.Equal(t, "expired credentials", *event.Reason)
}
