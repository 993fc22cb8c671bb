package services

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/mssp-stack/portal-backend/audit"
)

// RedactedPlaceholder replaces sensitive values in audit copies
const RedactedPlaceholder = "[REDACTED]"

// Redactor masks secret-bearing fields before snapshots reach the audit
// trail. Values are masked rather than removed so change rows and rollback
// payloads keep their shape; a rollback restores the placeholder for masked
// fields, never the secret itself.
type Redactor struct {
	// Pattern matching key names that carry credentials or secrets.
	// "pin" is only matched as a whole word or trailing segment so keys
	// like "shipping" stay untouched.
	sensitivePattern *regexp.Regexp
}

// NewRedactor creates a redactor covering the credential field names used
// across the client-management schema
func NewRedactor() *Redactor {
	pattern := regexp.MustCompile(`(?i)(password|passwd|secret|token|api_?key|credentials?|private_?key|access_?key|authorization|(^|_)pin(_|$)|pin$)`)
	return &Redactor{sensitivePattern: pattern}
}

// Redact returns a copy of the map with sensitive values masked. Nested maps
// and arrays are walked recursively.
func (r *Redactor) Redact(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	return r.redactMap(data)
}

func (r *Redactor) redactMap(m map[string]interface{}) map[string]interface{} {
	redacted := make(map[string]interface{}, len(m))
	for key, value := range m {
		if r.sensitivePattern.MatchString(key) {
			if value != nil {
				redacted[key] = RedactedPlaceholder
			} else {
				redacted[key] = nil
			}
			continue
		}
		switch v := value.(type) {
		case map[string]interface{}:
			redacted[key] = r.redactMap(v)
		case []interface{}:
			redacted[key] = r.redactArray(v)
		default:
			redacted[key] = v
		}
	}
	return redacted
}

func (r *Redactor) redactArray(arr []interface{}) []interface{} {
	redacted := make([]interface{}, 0, len(arr))
	for _, item := range arr {
		switch v := item.(type) {
		case map[string]interface{}:
			redacted = append(redacted, r.redactMap(v))
		case []interface{}:
			redacted = append(redacted, r.redactArray(v))
		default:
			redacted = append(redacted, v)
		}
	}
	return redacted
}

// RedactChanges masks old and new values of sensitive fields while keeping
// the change rows themselves, so the trail still shows that a credential
// changed without recording either value
func (r *Redactor) RedactChanges(changes []audit.FieldChange) []audit.FieldChange {
	redacted := make([]audit.FieldChange, len(changes))
	for i, change := range changes {
		redacted[i] = change
		if !r.sensitivePattern.MatchString(change.Field) {
			continue
		}
		if redacted[i].OldValue != nil {
			redacted[i].OldValue = RedactedPlaceholder
		}
		if redacted[i].NewValue != nil {
			redacted[i].NewValue = RedactedPlaceholder
		}
	}
	return redacted
}

// RedactJSONString masks sensitive fields in a JSON document, used for
// payloads arriving from outside the process
func (r *Redactor) RedactJSONString(jsonStr string) (string, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	var redacted interface{}
	switch v := data.(type) {
	case map[string]interface{}:
		redacted = r.redactMap(v)
	case []interface{}:
		redacted = r.redactArray(v)
	default:
		redacted = v
	}

	out, err := json.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("failed to marshal redacted data: %w", err)
	}
	return string(out), nil
}
