// Package models contains domain models for periscope.
package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// JSON column types stored as TEXT in SQLite. Each implements sql.Scanner and
// driver.Valuer so GORM can persist them without custom serializers.

// JSONMap is an arbitrary JSON object column.
type JSONMap map[string]any

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	return scanJSON(value, m)
}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return marshalJSON(m)
}

// JSONIntMap is a JSON object of integer counters (e.g. token usage).
type JSONIntMap map[string]int64

// Scan implements sql.Scanner.
func (m *JSONIntMap) Scan(value any) error {
	return scanJSON(value, m)
}

// Value implements driver.Valuer.
func (m JSONIntMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return marshalJSON(m)
}

// JSONStringMap is a JSON object of string values (e.g. environment variables).
type JSONStringMap map[string]string

// Scan implements sql.Scanner.
func (m *JSONStringMap) Scan(value any) error {
	return scanJSON(value, m)
}

// Value implements driver.Valuer.
func (m JSONStringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return marshalJSON(m)
}

// JSONStringArray is a JSON array of strings.
type JSONStringArray []string

// Scan implements sql.Scanner.
func (a *JSONStringArray) Scan(value any) error {
	return scanJSON(value, a)
}

// Value implements driver.Valuer.
func (a JSONStringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return marshalJSON(a)
}

// JSONObjectArray is a JSON array of objects (e.g. tool calls).
// A nil array is stored as NULL, not as "[]".
type JSONObjectArray []map[string]any

// Scan implements sql.Scanner.
func (a *JSONObjectArray) Scan(value any) error {
	return scanJSON(value, a)
}

// Value implements driver.Valuer.
func (a JSONObjectArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return marshalJSON(a)
}

// scanJSON unmarshals a TEXT/BLOB column into dest. NULL and empty strings
// leave dest at its zero value.
func scanJSON(value any, dest any) error {
	if value == nil {
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T for JSON scan", value)
	}

	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func marshalJSON(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
