// Package codec converts between raw edit-box input and the typed values an
// annotation field declares, and renders stored values back into editable
// text. It only type-coerces: domain validation (required, length, range) is
// the buffer's local required check plus the authoritative server.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Kind is the primitive kind a field declares for its value.
type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindTime     Kind = "time"
	KindEnum     Kind = "enum"
	KindObject   Kind = "object"
	KindArray    Kind = "array"
)

// Parse converts a raw edit value to the declared kind. The second return is
// false when the field is to be treated as unset (the annotator cleared it).
//
// Coercion rules:
//   - An empty string is unset for every kind except string, where the
//     explicit empty string is preserved for the server to judge.
//   - int/float pass numbers through untouched and parse numeric strings; a
//     string that fails to parse is kept verbatim so the server can reject it
//     with its own message.
//   - bool maps true/1/yes and false/0/no case-insensitively.
//   - For string-ish kinds, when the previous value was structured (list or
//     mapping) and the raw input is text, the text is JSON-parsed back into a
//     structured value; unparsable text is kept as the raw string so
//     annotators can free-type JSON for complex fields.
func Parse(raw any, kind Kind, prev any) (any, bool) {
	if s, ok := raw.(string); ok && s == "" && kind != KindString {
		return nil, false
	}
	switch kind {
	case KindInt:
		return parseInt(raw), true
	case KindFloat:
		return parseFloat(raw), true
	case KindBool:
		return parseBool(raw), true
	default:
		if t, ok := raw.(time.Time); ok {
			return t.UTC().Format(time.RFC3339), true
		}
		s, ok := raw.(string)
		if !ok {
			return raw, true
		}
		if isStructured(prev) {
			var v any
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				return v, true
			}
		}
		return s, true
	}
}

func parseInt(raw any) any {
	switch n := raw.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return raw
	case string:
		if v, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return v
		}
		// unparsable input passes through for server-side rejection
		return n
	}
	return raw
}

func parseFloat(raw any) any {
	switch n := raw.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return raw
	case string:
		if v, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return v
		}
		return n
	}
	return raw
}

func parseBool(raw any) any {
	if b, ok := raw.(bool); ok {
		return b
	}
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return raw
}

func isStructured(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

// Format renders a stored value for an edit box or read-only display.
// Primitives render via their natural string form; lists of primitives join
// with ", "; mappings and lists of mappings render as indented JSON.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []any:
		if listOfPrimitives(t) {
			parts := make([]string, len(t))
			for i, e := range t {
				parts[i] = Format(e)
			}
			return strings.Join(parts, ", ")
		}
		return prettyJSON(t)
	case map[string]any:
		return prettyJSON(t)
	}
	return fmt.Sprintf("%v", v)
}

func listOfPrimitives(list []any) bool {
	for _, e := range list {
		if isStructured(e) {
			return false
		}
	}
	return true
}

// prettyJSON renders structured values as indented JSON. Map keys marshal in
// sorted order, which keeps Format deterministic for fixtures.
func prettyJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
