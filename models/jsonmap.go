package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONMap is a JSONB type for storing schemaless context on a row
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for JSONB
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), m)
	}

	return json.Unmarshal(bytes, m)
}
