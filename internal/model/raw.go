package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Raw is the original server record as delivered, field names untouched.
// View-models keep it so downstream consumers can recover server-specific
// fields the mappers did not anticipate.
type Raw map[string]json.RawMessage

// ParseRaw decodes a JSON object body into a Raw record. Non-object bodies
// yield an empty record rather than an error; mappers must stay total.
func ParseRaw(data []byte) Raw {
	var r Raw
	if err := json.Unmarshal(data, &r); err != nil {
		return Raw{}
	}
	return r
}

// Number returns the first candidate field that parses as a finite number.
// Candidates are evaluated strictly in the order given; JSON numbers and
// numeric strings both qualify.
func (r Raw) Number(keys ...string) (float64, bool) {
	for _, key := range keys {
		raw, ok := r[key]
		if !ok {
			continue
		}
		if n, ok := finiteNumber(raw); ok {
			return n, true
		}
	}
	return 0, false
}

// Int is Number truncated to int64.
func (r Raw) Int(keys ...string) (int64, bool) {
	n, ok := r.Number(keys...)
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// String returns the first candidate field holding a non-empty string.
func (r Raw) String(keys ...string) (string, bool) {
	for _, key := range keys {
		raw, ok := r[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}

// Bool returns the first candidate field holding a boolean. Numeric 0/1 and
// the strings "true"/"false" also qualify; some endpoints encode flags that
// way.
func (r Raw) Bool(keys ...string) (bool, bool) {
	for _, key := range keys {
		raw, ok := r[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b, true
		}
		if n, ok := finiteNumber(raw); ok {
			return n != 0, true
		}
	}
	return false, false
}

// Time returns the first candidate field parsing as a timestamp.
func (r Raw) Time(keys ...string) (time.Time, bool) {
	s, ok := r.String(keys...)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Some endpoints ship epoch seconds.
	if n, ok := r.Number(keys...); ok && n > 0 {
		return time.Unix(int64(n), 0).UTC(), true
	}
	return time.Time{}, false
}

// Strings returns the first candidate field holding a string array, accepting
// a comma-separated string as a fallback shape.
func (r Raw) Strings(keys ...string) []string {
	for _, key := range keys {
		raw, ok := r[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
		var joined string
		if err := json.Unmarshal(raw, &joined); err == nil && joined != "" {
			parts := strings.Split(joined, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					out = append(out, trimmed)
				}
			}
			return out
		}
	}
	return nil
}

func finiteNumber(raw json.RawMessage) (float64, bool) {
	// Unmarshal into *float64 leaves the target untouched on null, which
	// would read as a finite zero here.
	if string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func intPtr(v int64) *int {
	i := int(v)
	return &i
}

func boolPtr(b bool) *bool {
	return &b
}

func int64Ptr(v int64) *int64 {
	return &v
}
