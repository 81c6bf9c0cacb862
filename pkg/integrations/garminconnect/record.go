package garminconnect

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a loosely typed JSON object from the remote API. Every accessor
// is try-get: a missing key or an unexpected shape reports false.
type Record map[string]any

// Has reports whether key is present and not null.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Object returns the nested object at path.
func (r Record) Object(path ...string) (Record, bool) {
	cur := r
	for _, key := range path {
		v, ok := cur[key]
		if !ok {
			return nil, false
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = Record(m)
	}
	return cur, true
}

func (r Record) lookup(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent, ok := r.Object(path[:len(path)-1]...)
	if !ok {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the string at path. Numbers are formatted.
func (r Record) String(path ...string) (string, bool) {
	v, ok := r.lookup(path)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// Float returns the number at path. Numeric strings, including the
// "-Infinity" the remote emits for some speeds, are parsed.
func (r Record) Float(path ...string) (float64, bool) {
	v, ok := r.lookup(path)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns the integer at path.
func (r Record) Int(path ...string) (int64, bool) {
	v, ok := r.lookup(path)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return i, true
		}
	}
	f, ok := r.Float(path...)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// List returns the array at path, keeping only object elements.
func (r Record) List(path ...string) ([]Record, bool) {
	v, ok := r.lookup(path)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out, true
}

// decodeRecord decodes a JSON object keeping numbers exact.
func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return Record(out), nil
}
