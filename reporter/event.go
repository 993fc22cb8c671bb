package reporter

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one security event on the wire. Field names in ToStreamValues
// match what the portal's stream consumer parses.
type Event struct {
	EventType  string                 // login, login_failed, logout, permission_change, access_denied, password_reset
	Success    bool                   //
	UserID     string                 // uuid, empty for anonymous events
	Email      string                 //
	IPAddress  string                 //
	UserAgent  string                 //
	Reason     string                 // detail for denied or failed attempts
	Details    map[string]interface{} // optional structured context
	OccurredAt time.Time              // zero means the consumer stamps arrival time
}

// Validate checks the fields the consumer will reject anyway, so bad events
// fail at the call site instead of in the dead letter stream.
func (e Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("missing required field: eventType")
	}
	return nil
}

// ToStreamValues flattens the event into XADD field-value pairs.
func (e Event) ToStreamValues() (map[string]interface{}, error) {
	values := map[string]interface{}{
		"event_type": e.EventType,
		"success":    fmt.Sprintf("%t", e.Success),
	}

	if e.UserID != "" {
		values["user_id"] = e.UserID
	}
	if e.Email != "" {
		values["email"] = e.Email
	}
	if e.IPAddress != "" {
		values["ip_address"] = e.IPAddress
	}
	if e.UserAgent != "" {
		values["user_agent"] = e.UserAgent
	}
	if e.Reason != "" {
		values["reason"] = e.Reason
	}
	if len(e.Details) > 0 {
		detailsJSON, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		values["details"] = string(detailsJSON)
	}
	if !e.OccurredAt.IsZero() {
		values["occurred_at"] = e.OccurredAt.UTC().Format(time.RFC3339)
	}

	return values, nil
}
