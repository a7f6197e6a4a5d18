package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList stores a []string column as JSON text so the same model works
// on both postgres and the in-memory store.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// JSONMap stores a free-form JSON object column (games, charges, transport).
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		m = JSONMap{}
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *JSONMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
}
