package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FieldChange is one detected difference between two versions of a record
type FieldChange struct {
	Field    string      `json:"field"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}

// excludedFields are bookkeeping columns never reported as changes. Both
// camelCase and snake_case spellings are listed because callers build maps
// from JSON payloads as well as scanned rows.
var excludedFields = map[string]struct{}{
	"id":         {},
	"createdAt":  {},
	"created_at": {},
	"updatedAt":  {},
	"updated_at": {},
	"deletedAt":  {},
	"deleted_at": {},
}

// DetectChanges compares two versions of a record field by field and returns
// one entry per field whose serialized form differs. The union of keys from
// both maps is considered, so added and removed fields are reported too.
// Bookkeeping fields and timestamp fields are skipped. Results are sorted by
// field name so output is deterministic.
func DetectChanges(oldData, newData map[string]interface{}) []FieldChange {
	keys := make(map[string]struct{}, len(oldData)+len(newData))
	for k := range oldData {
		keys[k] = struct{}{}
	}
	for k := range newData {
		keys[k] = struct{}{}
	}

	fields := make([]string, 0, len(keys))
	for k := range keys {
		if isExcludedField(k) {
			continue
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)

	changes := make([]FieldChange, 0)
	for _, field := range fields {
		oldValue := oldData[field]
		newValue := newData[field]
		if serialize(oldValue) == serialize(newValue) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}
	return changes
}

// isExcludedField skips bookkeeping columns plus anything following the
// "...At"/"..._at" timestamp naming convention. Matching is by suffix, not
// substring, so a field like "attachment" is still compared.
func isExcludedField(field string) bool {
	if _, ok := excludedFields[field]; ok {
		return true
	}
	return strings.HasSuffix(field, "At") || strings.HasSuffix(field, "_at")
}

// serialize renders a value for deep comparison. JSON keeps equivalent
// values equal regardless of how they were produced (1 and 1.0 compare equal).
func serialize(v interface{}) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Stringify renders a change value for the old/new columns. Strings are kept
// raw; everything else is JSON-serialized so the column type stays uniform.
// Nil stays nil so absent values are distinguishable from empty strings.
func Stringify(v interface{}) *string {
	if v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(b)
		}
	}
	return &s
}

// Snapshot converts a struct (or anything JSON-serializable) into a plain
// map through a JSON round-trip, so callers can feed models straight into
// DetectChanges and rollback payloads. Returns nil when the value cannot be
// represented as a JSON object.
func Snapshot(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	b, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to snapshot value for change tracking", "error", err)
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		slog.Warn("Failed to snapshot value for change tracking", "error", err)
		return nil
	}
	return out
}
