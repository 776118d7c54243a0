package annobuf

import (
	"reflect"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Segment is one step of a parsed path. A segment with ArrayWildcard set
// descends through Key into a list and continues with its first element
// (templates address array fields positionally).
type Segment struct {
	Key           string
	ArrayWildcard bool
}

// Path is a parsed field path expression such as "sections[].text".
// Paths are opaque strings at the API boundary; String reproduces the
// exact expression the path was parsed from.
type Path []Segment

// ParsePath parses a dotted path expression. Each dot-separated segment is an
// identifier, optionally suffixed with "[]" to mark an array wildcard.
// Returns Issues with CodeMalformedPath for empty paths or empty segments.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, singleIssue(CodeMalformedPath, s, "empty path")
	}
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		wild := strings.HasSuffix(part, "[]")
		if wild {
			part = strings.TrimSuffix(part, "[]")
		}
		if part == "" {
			return nil, singleIssue(CodeMalformedPath, s, "empty path segment")
		}
		p = append(p, Segment{Key: part, ArrayWildcard: wild})
	}
	return p, nil
}

// MustParsePath is ParsePath for paths known to be well formed; it panics on
// malformed input. Intended for fixtures and literals.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String re-serializes the path; ParsePath and String round-trip exactly.
func (p Path) String() string {
	b := &strings.Builder{}
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
		if seg.ArrayWildcard {
			b.WriteString("[]")
		}
	}
	return b.String()
}

// Get resolves p inside v. The second return is false when any step of the
// walk fails: a non-mapping value at a key segment, an absent key, or a
// missing/empty list at a wildcard segment.
func Get(v any, p Path) (any, bool) {
	cur := v
	for _, seg := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		child, ok := m[seg.Key]
		if !ok {
			return nil, false
		}
		if seg.ArrayWildcard {
			list, ok := child.([]any)
			if !ok || len(list) == 0 {
				return nil, false
			}
			cur = list[0]
		} else {
			cur = child
		}
	}
	return cur, true
}

// Set returns a new value with the location at p replaced by nv. The input is
// never mutated: every container along the path is shallow-copied, while
// siblings off the path stay shared by reference. Missing intermediate
// mappings are created; a wildcard segment whose list is missing or empty is
// materialized as a single-element list holding an empty mapping. Overwriting
// a non-container, non-nil value on an intermediate segment fails with
// CodeInvalidPathTarget rather than silently destroying data.
func Set(v any, p Path, nv any) (any, error) {
	if len(p) == 0 {
		return nil, singleIssue(CodeMalformedPath, "", "empty path")
	}
	return setValue(v, p, 0, nv)
}

func setValue(v any, p Path, i int, nv any) (any, error) {
	if i == len(p) {
		return nv, nil
	}
	seg := p[i]
	m, err := writableMap(v, p, i)
	if err != nil {
		return nil, err
	}
	if seg.ArrayWildcard {
		existing := m[seg.Key]
		list, isList := existing.([]any)
		if existing != nil && !isList {
			return nil, Issues{{
				Code:    CodeInvalidPathTarget,
				Path:    p.String(),
				Message: "segment " + strconv.Quote(seg.Key+"[]") + " addresses a non-list value",
			}}
		}
		if len(list) == 0 {
			head, err := setValue(map[string]any{}, p, i+1, nv)
			if err != nil {
				return nil, err
			}
			m[seg.Key] = []any{head}
			return m, nil
		}
		head, err := setValue(list[0], p, i+1, nv)
		if err != nil {
			return nil, err
		}
		nl := make([]any, len(list))
		copy(nl, list)
		nl[0] = head
		m[seg.Key] = nl
		return m, nil
	}
	child, err := setValue(m[seg.Key], p, i+1, nv)
	if err != nil {
		return nil, err
	}
	m[seg.Key] = child
	return m, nil
}

// writableMap returns a shallow copy of v as a mapping, materializing a fresh
// mapping when v is nil. Anything else cannot be descended into by key.
func writableMap(v any, p Path, i int) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return copyMap(m), nil
	default:
		return nil, Issues{{
			Code:    CodeInvalidPathTarget,
			Path:    p.String(),
			Message: "segment " + strconv.Quote(p[i].Key) + " would overwrite a non-container value",
		}}
	}
}

// Remove returns a new value with the location at p deleted. When p does not
// resolve, the input is returned unchanged. A trailing wildcard segment drops
// the first element of the addressed list.
func Remove(v any, p Path) any {
	if len(p) == 0 {
		return v
	}
	out, changed := removeValue(v, p, 0)
	if !changed {
		return v
	}
	return out
}

func removeValue(v any, p Path, i int) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, false
	}
	seg := p[i]
	child, ok := m[seg.Key]
	if !ok {
		return v, false
	}
	last := i == len(p)-1
	if seg.ArrayWildcard {
		list, ok := child.([]any)
		if !ok || len(list) == 0 {
			return v, false
		}
		nm := copyMap(m)
		if last {
			nl := make([]any, len(list)-1)
			copy(nl, list[1:])
			nm[seg.Key] = nl
			return nm, true
		}
		head, changed := removeValue(list[0], p, i+1)
		if !changed {
			return v, false
		}
		nl := make([]any, len(list))
		copy(nl, list)
		nl[0] = head
		nm[seg.Key] = nl
		return nm, true
	}
	if last {
		nm := copyMap(m)
		delete(nm, seg.Key)
		return nm, true
	}
	nc, changed := removeValue(child, p, i+1)
	if !changed {
		return v, false
	}
	nm := copyMap(m)
	nm[seg.Key] = nc
	return nm, true
}

func copyMap(m map[string]any) map[string]any {
	nm := make(map[string]any, len(m))
	for k, v := range m {
		nm[k] = v
	}
	return nm
}

// DeepEqual reports deep structural equality over JSON-like values: lists are
// order-sensitive, mappings are key-order-insensitive, and numbers compare by
// value across int/int64/float64/json.Number representations.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !DeepEqual(v, w) {
				return false
			}
		}
		return true
	}
	if af, ok := numericValue(a); ok {
		bf, ok := numericValue(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
