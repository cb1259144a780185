package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// State is the mutable record threaded through a run. Keys keep their
// insertion order, so serialized states are structurally stable across
// save/load cycles.
//
// Values are expected to be JSON-representable: strings, booleans, numbers,
// nil, []any and map[string]any. A State is owned by exactly one run and is
// not safe for concurrent use; concurrent runs each get their own instance.
type State struct {
	keys   []string
	values map[string]any
}

// NewState returns an empty state.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// FromMap builds a state from a plain map. Keys are inserted in sorted
// order so the resulting layout is deterministic. Values are deep-copied.
func FromMap(m map[string]any) *State {
	s := NewState()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, copyValue(m[k]))
	}
	return s
}

// Pair is an ordered key/value entry for FromPairs.
type Pair struct {
	Key   string
	Value any
}

// FromPairs builds a state with keys in the order given, for callers that
// need a specific layout rather than FromMap's sorted one. Values are
// deep-copied. A repeated key keeps its first position and takes the last
// value.
func FromPairs(pairs ...Pair) *State {
	s := NewState()
	for _, p := range pairs {
		s.Set(p.Key, copyValue(p.Value))
	}
	return s
}

// Get returns the value for key. The second return is false when the key
// is absent; a missing key is an ordinary, non-exceptional outcome.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetOr returns the value for key, or def when the key is absent.
func (s *State) GetOr(key string, def any) any {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// GetString returns the value for key as a string.
func (s *State) GetString(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetBool returns the value for key as a bool.
func (s *State) GetBool(key string) (bool, bool) {
	v, ok := s.values[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetFloat64 returns the value for key as a float64. Integer values are
// widened, so states built in Go code and states decoded from JSON behave
// the same.
func (s *State) GetFloat64(key string) (float64, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// GetInt returns the value for key as an int, truncating float values.
func (s *State) GetInt(key string) (int, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}

// Set stores value under key and returns the state for chaining. A new key
// is appended to the key order; an existing key keeps its position.
func (s *State) Set(key string, value any) *State {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return s
}

// Delete removes key and its order entry. It reports whether the key existed.
func (s *State) Delete(key string) bool {
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of keys.
func (s *State) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *State) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Snapshot returns an independent deep copy. Mutating the copy (or the
// original, including nested maps and slices) never affects the other.
func (s *State) Snapshot() *State {
	c := &State{
		keys:   make([]string, len(s.keys)),
		values: make(map[string]any, len(s.values)),
	}
	copy(c.keys, s.keys)
	for k, v := range s.values {
		c.values[k] = copyValue(v)
	}
	return c
}

// ToMap returns a deep-copied plain-map form of the state, suitable for
// handing to serialization layers. Key order is not carried by the map;
// use MarshalJSON when order matters.
func (s *State) ToMap() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = copyValue(v)
	}
	return out
}

// MarshalJSON encodes the state as a JSON object with keys in insertion
// order.
func (s *State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal state key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the document's key order.
// Numbers decode as float64.
func (s *State) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("state: expected JSON object, got %v", tok)
	}
	s.keys = nil
	s.values = make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("state: expected object key, got %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode state key %q: %w", key, err)
		}
		s.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// copyValue deep-copies the JSON-shaped container types and returns every
// other value as-is.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}
