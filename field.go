package annobuf

import "github.com/nkmrtty/annobuf/codec"

// Constraints carries the optional per-field limits declared by a template.
// The engine does not enforce them; they travel with the field so the UI and
// the authoritative server share one source of truth.
type Constraints struct {
	MaxLength *int     `json:"max_length,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	GE        *float64 `json:"ge,omitempty"`
	LE        *float64 `json:"le,omitempty"`
	Enum      []any    `json:"enum,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// Field declares one annotatable location: where it lives (Path), what kind
// of value it holds, and whether the annotator must fill it in. Fields are
// built once from a template and are immutable for the editing session.
type Field struct {
	Path        string      `json:"path"`
	Kind        codec.Kind  `json:"field_type"`
	Required    bool        `json:"required"`
	Description string      `json:"description,omitempty"`
	Constraints Constraints `json:"constraints,omitempty"`
	Default     any         `json:"default_value,omitempty"`
}

// IsSet reports whether v counts toward completion: defined, non-null, and
// non-empty. Empty strings, lists, and mappings count as unset.
func IsSet(v any, ok bool) bool {
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
