// Package emt provides the HTTP client for EaseMyTrip's internal booking
// management APIs. The vendor backend is a single system exposed through
// several sub-APIs that disagree with each other about field-name casing,
// boolean encoding, and sometimes whether a response is a JSON object or a
// bare string. Document wraps a parsed response and absorbs those
// inconsistencies in one place so callers never touch raw maps.
package emt

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Document is a loosely-typed view over a vendor JSON response.
// The zero value behaves as an empty object.
type Document struct {
	fields map[string]any
	raw    string
	isStr  bool
}

// ParseDocument interprets a vendor response body. It handles the three body
// shapes the vendor produces: a JSON object, a JSON object double-encoded as
// a JSON string literal, and a bare string. Empty bodies parse as an empty
// object (the vendor's 204 convention).
func ParseDocument(body []byte) Document {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return Document{}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		return Document{fields: obj}
	}

	var str string
	if err := json.Unmarshal([]byte(trimmed), &str); err == nil {
		// Double-encoded JSON: the string itself may be an object.
		var inner map[string]any
		if err := json.Unmarshal([]byte(str), &inner); err == nil {
			return Document{fields: inner}
		}
		return Document{raw: str, isStr: true}
	}

	// Not JSON at all; treat as a plain string response.
	return Document{raw: trimmed, isStr: true}
}

// DocumentFrom wraps an already-decoded map. Used when descending into
// nested objects and by tests.
func DocumentFrom(fields map[string]any) Document {
	return Document{fields: fields}
}

// IsString reports whether the response was a bare string rather than an object.
func (d Document) IsString() bool { return d.isStr }

// Raw returns the bare string form of the response, or "" for objects.
func (d Document) Raw() string { return d.raw }

// Fields returns the underlying map for result passthrough. May be nil.
func (d Document) Fields() map[string]any { return d.fields }

// Empty reports whether the document carries no data at all.
func (d Document) Empty() bool { return len(d.fields) == 0 && !d.isStr }

// First returns the value of the first candidate key that is present and
// non-nil. Candidate ordering matters: the same logical field appears under
// different casings across vendor endpoints.
func (d Document) First(keys ...string) any {
	for _, k := range keys {
		if v, ok := d.fields[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Str resolves candidate keys to a trimmed string. Numbers are formatted,
// everything else yields "".
func (d Document) Str(keys ...string) string {
	return coerceString(d.First(keys...))
}

// Bool resolves candidate keys to a boolean, tolerating the vendor's string
// encodings "true"/"True"/"TRUE" alongside native booleans.
func (d Document) Bool(keys ...string) bool {
	return coerceBool(d.First(keys...))
}

// Child descends into a nested object. Missing or non-object values return
// an empty Document.
func (d Document) Child(keys ...string) Document {
	if m, ok := d.First(keys...).(map[string]any); ok {
		return Document{fields: m}
	}
	return Document{}
}

// List resolves candidate keys to a slice of Documents. A single object is
// coerced to a one-element list; the vendor returns either shape for the
// same field.
func (d Document) List(keys ...string) []Document {
	switch v := d.First(keys...).(type) {
	case []any:
		out := make([]Document, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Document{fields: m})
			}
		}
		return out
	case map[string]any:
		return []Document{{fields: v}}
	default:
		return nil
	}
}

// MarshalJSON renders the document back to JSON: the wrapped string for
// bare-string responses, the field map otherwise.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.isStr {
		return json.Marshal(d.raw)
	}
	if d.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.fields)
}

// Keys returns the field names present, for diagnostics when an expected
// field is missing under every known casing.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	return keys
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers decode as float64; format without exponent for ids.
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	default:
		return false
	}
}
