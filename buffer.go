package annobuf

import (
	"sort"

	"github.com/nkmrtty/annobuf/codec"
	"github.com/nkmrtty/annobuf/i18n"
)

// fieldErrors binds one path to its messages. Error state is kept as sorted
// slices rather than maps so buffers stay value-comparable and iteration is
// deterministic.
type fieldErrors struct {
	path     string
	messages []string
}

type errorList []fieldErrors

func (el errorList) at(path string) ([]string, bool) {
	i := sort.Search(len(el), func(i int) bool { return el[i].path >= path })
	if i < len(el) && el[i].path == path {
		return el[i].messages, true
	}
	return nil, false
}

// with returns a new list with the messages at path replaced (or inserted).
func (el errorList) with(path string, messages []string) errorList {
	out := make(errorList, 0, len(el)+1)
	inserted := false
	for _, fe := range el {
		switch {
		case fe.path == path:
			out = append(out, fieldErrors{path: path, messages: messages})
			inserted = true
		case fe.path > path && !inserted:
			out = append(out, fieldErrors{path: path, messages: messages})
			inserted = true
			out = append(out, fe)
		default:
			out = append(out, fe)
		}
	}
	if !inserted {
		out = append(out, fieldErrors{path: path, messages: messages})
	}
	return out
}

// without returns a new list with the entry at path dropped.
func (el errorList) without(path string) errorList {
	out := make(errorList, 0, len(el))
	for _, fe := range el {
		if fe.path != path {
			out = append(out, fe)
		}
	}
	return out
}

func errorListFromMap(grouped map[string][]string) errorList {
	paths := make([]string, 0, len(grouped))
	for p := range grouped {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make(errorList, 0, len(paths))
	for _, p := range paths {
		msgs := append([]string(nil), grouped[p]...)
		out = append(out, fieldErrors{path: p, messages: msgs})
	}
	return out
}

// ObjectBuffer holds one JSON object's original data alongside its edited
// annotation state. Buffers are functional values: every mutation returns a
// new ObjectBuffer and OriginalData is never modified, so a caller can hold a
// snapshot across an asynchronous save without it shifting underneath.
//
// Validation errors live in two layers with distinct provenance: the local
// layer holds only the synchronous required-field check and is recomputed per
// edit; the server layer is replaced wholesale by ApplyServerErrors after a
// save attempt. A local edit never clears a server-origin error on another
// path.
type ObjectBuffer struct {
	index      int
	original   any
	annotation any
	fields     []Field
	tr         i18n.Translator
	modified   []string // sorted, distinct
	localErrs  errorList
	serverErrs errorList
	completion float64
}

// NewObjectBuffer builds the buffer for one object. annotation starts as the
// original value with, per declared field, any value found in prev overlaid
// and template defaults filled into still-unset fields. The dirty set and
// completion are computed from the result.
func NewObjectBuffer(index int, original any, fields []Field, prev any, tr i18n.Translator) (ObjectBuffer, error) {
	if tr == nil {
		tr = i18n.Default()
	}
	b := ObjectBuffer{
		index:      index,
		original:   original,
		annotation: original,
		fields:     fields,
		tr:         tr,
	}
	for _, f := range fields {
		segs, err := ParsePath(f.Path)
		if err != nil {
			return ObjectBuffer{}, err
		}
		if v, ok := Get(prev, segs); ok {
			na, err := Set(b.annotation, segs, v)
			if err != nil {
				return ObjectBuffer{}, err
			}
			b.annotation = na
			continue
		}
		if f.Default != nil && !IsSet(Get(b.annotation, segs)) {
			na, err := Set(b.annotation, segs, f.Default)
			if err != nil {
				return ObjectBuffer{}, err
			}
			b.annotation = na
		}
	}
	b.modified = computeModified(b.original, b.annotation, fields)
	b.completion = computeCompletion(b.annotation, fields)
	return b, nil
}

// Index is the object's position within its document.
func (b ObjectBuffer) Index() int { return b.index }

// OriginalData returns the object's pristine value. Callers must treat it as
// read-only; the engine never mutates it.
func (b ObjectBuffer) OriginalData() any { return b.original }

// AnnotationData returns the current edited value.
func (b ObjectBuffer) AnnotationData() any { return b.annotation }

// ModifiedPaths lists, in sorted order, the field paths whose current value
// differs from the original by deep equality.
func (b ObjectBuffer) ModifiedPaths() []string {
	return append([]string(nil), b.modified...)
}

// CompletionPercentage is 100 times the fraction of declared fields holding a
// defined, non-null, non-empty value; 0 when no fields are declared.
func (b ObjectBuffer) CompletionPercentage() float64 { return b.completion }

// ErrorsByPath merges the local and server error layers into one view.
func (b ObjectBuffer) ErrorsByPath() map[string][]string {
	out := make(map[string][]string, len(b.localErrs)+len(b.serverErrs))
	for _, fe := range b.serverErrs {
		out[fe.path] = append(out[fe.path], fe.messages...)
	}
	for _, fe := range b.localErrs {
		out[fe.path] = append(out[fe.path], fe.messages...)
	}
	return out
}

// IsValid reports whether no validation errors are attached, in either layer.
func (b ObjectBuffer) IsValid() bool {
	return len(b.localErrs) == 0 && len(b.serverErrs) == 0
}

// IsDirty reports whether any field differs from the original.
func (b ObjectBuffer) IsDirty() bool { return len(b.modified) > 0 }

// ApplyFieldEdit coerces raw via the value codec for f's kind, writes the
// result at path, and recomputes the dirty set, the local required check for
// this path, and completion. An unset result (cleared edit box) removes the
// key. Only malformed paths and invalid path targets return an error; the
// buffer is returned unchanged in that case.
func (b ObjectBuffer) ApplyFieldEdit(path string, raw any, f Field) (ObjectBuffer, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return b, err
	}
	prev, ok := Get(b.annotation, segs)
	if !ok {
		prev, _ = Get(b.original, segs)
	}
	parsed, set := codec.Parse(raw, f.Kind, prev)
	return b.applyValue(path, segs, parsed, set, f)
}

// ResetField restores the field at path to its original value.
func (b ObjectBuffer) ResetField(path string, f Field) (ObjectBuffer, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return b, err
	}
	orig, ok := Get(b.original, segs)
	return b.applyValue(path, segs, orig, ok, f)
}

// ResetAll restores every declared field to its original value.
func (b ObjectBuffer) ResetAll() (ObjectBuffer, error) {
	out := b
	for _, f := range b.fields {
		var err error
		out, err = out.ResetField(f.Path, f)
		if err != nil {
			return b, err
		}
	}
	return out, nil
}

// ApplyServerErrors replaces the server error layer with grouped messages.
// Called after a save attempt; the local required layer is untouched since it
// reflects current buffer state, not the server verdict.
func (b ObjectBuffer) ApplyServerErrors(grouped map[string][]string) ObjectBuffer {
	b.serverErrs = errorListFromMap(grouped)
	return b
}

func (b ObjectBuffer) applyValue(path string, segs Path, value any, set bool, f Field) (ObjectBuffer, error) {
	var na any
	if set {
		var err error
		na, err = Set(b.annotation, segs, value)
		if err != nil {
			return b, err
		}
	} else {
		na = Remove(b.annotation, segs)
	}
	nb := b
	nb.annotation = na

	origVal, origOK := Get(nb.original, segs)
	curVal, curOK := Get(na, segs)
	dirty := curOK != origOK || (curOK && !DeepEqual(curVal, origVal))
	nb.modified = withModified(nb.modified, path, dirty)

	if f.Required && !IsSet(curVal, curOK) {
		msg := nb.tr.Message("required", map[string]string{"field": path})
		nb.localErrs = nb.localErrs.with(path, []string{msg})
	} else {
		nb.localErrs = nb.localErrs.without(path)
	}
	nb.completion = computeCompletion(na, nb.fields)
	return nb, nil
}

func withModified(modified []string, path string, dirty bool) []string {
	i := sort.SearchStrings(modified, path)
	present := i < len(modified) && modified[i] == path
	if dirty == present {
		return modified
	}
	if dirty {
		out := make([]string, 0, len(modified)+1)
		out = append(out, modified[:i]...)
		out = append(out, path)
		out = append(out, modified[i:]...)
		return out
	}
	out := make([]string, 0, len(modified)-1)
	out = append(out, modified[:i]...)
	out = append(out, modified[i+1:]...)
	return out
}

func computeModified(original, annotation any, fields []Field) []string {
	var modified []string
	for _, f := range fields {
		segs, err := ParsePath(f.Path)
		if err != nil {
			continue
		}
		origVal, origOK := Get(original, segs)
		curVal, curOK := Get(annotation, segs)
		if curOK != origOK || (curOK && !DeepEqual(curVal, origVal)) {
			modified = append(modified, f.Path)
		}
	}
	sort.Strings(modified)
	return modified
}

func computeCompletion(annotation any, fields []Field) float64 {
	if len(fields) == 0 {
		return 0
	}
	set := 0
	for _, f := range fields {
		segs, err := ParsePath(f.Path)
		if err != nil {
			continue
		}
		if IsSet(Get(annotation, segs)) {
			set++
		}
	}
	return 100 * float64(set) / float64(len(fields))
}
