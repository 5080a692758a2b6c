package klogame

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is the free-form key/value annotations on a location
// (address, district, fun facts). The catalog serves it as a JSON
// object; insertion order is preserved for display.
type Metadata []MetadataEntry

type MetadataEntry struct {
	Key   string
	Value string
}

// Get returns the value for key, or "" if absent.
func (m Metadata) Get(key string) string {
	for _, e := range m {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}

// UnmarshalJSON decodes a JSON object token by token so that key order
// survives. Non-string values are kept as their compact JSON text.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	var entries Metadata
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			// Not a JSON string: keep the raw text (numbers, bools).
			s = string(raw)
		}
		entries = append(entries, MetadataEntry{Key: key, Value: s})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = entries
	return nil
}

// MarshalJSON writes the entries back as an object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
