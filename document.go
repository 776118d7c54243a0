package annobuf

import (
	"strconv"

	"github.com/nkmrtty/annobuf/i18n"
)

// DocumentShape records, once at construction, how a document's content
// encodes its objects. Unwrapping and rewrapping is DocumentBuffer's job
// exclusively; the path functions themselves never look at wrappers.
type DocumentShape int

const (
	// ShapeBare: the content is a single object.
	ShapeBare DocumentShape = iota
	// ShapeList: the content is a list of objects.
	ShapeList
	// ShapeItemsWrapper: the content is a mapping carrying the objects under
	// an "items" key, plus arbitrary other wrapper keys to preserve.
	ShapeItemsWrapper
)

func (s DocumentShape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeItemsWrapper:
		return "items_wrapper"
	default:
		return "bare"
	}
}

func detectShape(content any) DocumentShape {
	switch c := content.(type) {
	case []any:
		return ShapeList
	case map[string]any:
		if _, ok := c["items"].([]any); ok {
			return ShapeItemsWrapper
		}
	}
	return ShapeBare
}

// splitObjects returns the per-object values of content under its shape.
func splitObjects(content any, shape DocumentShape) []any {
	switch shape {
	case ShapeList:
		return content.([]any)
	case ShapeItemsWrapper:
		return content.(map[string]any)["items"].([]any)
	default:
		return []any{content}
	}
}

// DocumentBuffer owns the ordered ObjectBuffers extracted from one document.
// Like ObjectBuffer it is a functional value; navigation and edits return new
// DocumentBuffer values and never touch sibling objects.
type DocumentBuffer struct {
	id      string
	shape   DocumentShape
	wrapper map[string]any // original wrapper, ShapeItemsWrapper only
	objects []ObjectBuffer
	current int
	fields  []Field
	tr      i18n.Translator
}

// BufferOpt bundles optional construction knobs for FromDocument.
type BufferOpt struct {
	// Translator localizes the engine's per-field messages. Defaults to the
	// English dictionary.
	Translator i18n.Translator
}

// FromDocument builds the buffer set for one opened document. content may be
// a bare object, a list of objects, or an {items: [...]} wrapper; prev is a
// previously-saved annotation payload with the same shape possibilities,
// overlaid per declared field path onto the object at the matching position.
func FromDocument(documentID string, content any, fields []Field, prev any, opts ...BufferOpt) (DocumentBuffer, error) {
	var opt BufferOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	tr := opt.Translator
	if tr == nil {
		tr = i18n.Default()
	}

	shape := detectShape(content)
	d := DocumentBuffer{
		id:     documentID,
		shape:  shape,
		fields: fields,
		tr:     tr,
	}
	if shape == ShapeItemsWrapper {
		d.wrapper = content.(map[string]any)
	}

	values := splitObjects(content, shape)
	var prevValues []any
	if prev != nil {
		prevValues = splitObjects(prev, detectShape(prev))
	}
	d.objects = make([]ObjectBuffer, 0, len(values))
	for i, v := range values {
		var pv any
		if i < len(prevValues) {
			pv = prevValues[i]
		}
		ob, err := NewObjectBuffer(i, v, fields, pv, tr)
		if err != nil {
			return DocumentBuffer{}, err
		}
		d.objects = append(d.objects, ob)
	}
	return d, nil
}

// DocumentID returns the identifier the buffer was opened with.
func (d DocumentBuffer) DocumentID() string { return d.id }

// Shape reports how the document encodes its objects.
func (d DocumentBuffer) Shape() DocumentShape { return d.shape }

// Len returns the number of objects in the document.
func (d DocumentBuffer) Len() int { return len(d.objects) }

// Objects returns a copy of the object buffer slice.
func (d DocumentBuffer) Objects() []ObjectBuffer {
	return append([]ObjectBuffer(nil), d.objects...)
}

// Object returns the buffer at index i.
func (d DocumentBuffer) Object(i int) (ObjectBuffer, bool) {
	if i < 0 || i >= len(d.objects) {
		return ObjectBuffer{}, false
	}
	return d.objects[i], true
}

// CurrentIndex returns the navigation position.
func (d DocumentBuffer) CurrentIndex() int { return d.current }

// Current returns the buffer at the navigation position.
func (d DocumentBuffer) Current() ObjectBuffer {
	if len(d.objects) == 0 {
		return ObjectBuffer{}
	}
	return d.objects[d.current]
}

// Next advances the navigation position, clamping at the last object.
// Navigation is a pure index change; no object state is touched.
func (d DocumentBuffer) Next() DocumentBuffer {
	if d.current < len(d.objects)-1 {
		d.current++
	}
	return d
}

// Previous moves the navigation position back, clamping at zero.
func (d DocumentBuffer) Previous() DocumentBuffer {
	if d.current > 0 {
		d.current--
	}
	return d
}

// GoTo jumps the navigation position to index i.
func (d DocumentBuffer) GoTo(i int) (DocumentBuffer, error) {
	if i < 0 || i >= len(d.objects) {
		return d, singleIssue(CodeIndexOutOfRange, "", "object index "+strconv.Itoa(i)+" out of range")
	}
	d.current = i
	return d, nil
}

// ApplyFieldEdit applies an edit to the object at objIndex.
func (d DocumentBuffer) ApplyFieldEdit(objIndex int, path string, raw any, f Field) (DocumentBuffer, error) {
	if objIndex < 0 || objIndex >= len(d.objects) {
		return d, singleIssue(CodeIndexOutOfRange, path, "object index "+strconv.Itoa(objIndex)+" out of range")
	}
	ob, err := d.objects[objIndex].ApplyFieldEdit(path, raw, f)
	if err != nil {
		return d, err
	}
	return d.withObject(objIndex, ob), nil
}

// ResetField restores one field of the object at objIndex to its original.
func (d DocumentBuffer) ResetField(objIndex int, path string, f Field) (DocumentBuffer, error) {
	if objIndex < 0 || objIndex >= len(d.objects) {
		return d, singleIssue(CodeIndexOutOfRange, path, "object index "+strconv.Itoa(objIndex)+" out of range")
	}
	ob, err := d.objects[objIndex].ResetField(path, f)
	if err != nil {
		return d, err
	}
	return d.withObject(objIndex, ob), nil
}

// withObject returns a copy of d with the buffer at index i replaced.
func (d DocumentBuffer) withObject(i int, ob ObjectBuffer) DocumentBuffer {
	objs := make([]ObjectBuffer, len(d.objects))
	copy(objs, d.objects)
	objs[i] = ob
	d.objects = objs
	return d
}

// ToSubmissionPayload reassembles every object's annotation data into the
// document's original shape: the object itself when bare, a list when the
// content was a list, or the original wrapper with its "items" replaced and
// every other wrapper key preserved.
func (d DocumentBuffer) ToSubmissionPayload() any {
	switch d.shape {
	case ShapeList:
		out := make([]any, len(d.objects))
		for i, ob := range d.objects {
			out[i] = ob.AnnotationData()
		}
		return out
	case ShapeItemsWrapper:
		out := copyMap(d.wrapper)
		items := make([]any, len(d.objects))
		for i, ob := range d.objects {
			items[i] = ob.AnnotationData()
		}
		out["items"] = items
		return out
	default:
		if len(d.objects) == 0 {
			return nil
		}
		return d.objects[0].AnnotationData()
	}
}

// originalContent reassembles the pristine document the same way, for diffing
// and export.
func (d DocumentBuffer) originalContent() any {
	switch d.shape {
	case ShapeList:
		out := make([]any, len(d.objects))
		for i, ob := range d.objects {
			out[i] = ob.OriginalData()
		}
		return out
	case ShapeItemsWrapper:
		return d.wrapper
	default:
		if len(d.objects) == 0 {
			return nil
		}
		return d.objects[0].OriginalData()
	}
}

// IsDirty reports whether any object carries a modified field.
func (d DocumentBuffer) IsDirty() bool {
	for _, ob := range d.objects {
		if ob.IsDirty() {
			return true
		}
	}
	return false
}

// IsValid reports whether every object is free of validation errors.
func (d DocumentBuffer) IsValid() bool {
	for _, ob := range d.objects {
		if !ob.IsValid() {
			return false
		}
	}
	return true
}

// ResolveInContent resolves p against raw document content, applying the
// loader's array normalization first: content shaped as
// {items: [...], type: "array"} resolves from its first item rather than the
// wrapper itself. Buffered code never needs this (object buffers already
// hold unwrapped values) but callers holding raw content do.
func ResolveInContent(content any, p Path) (any, bool) {
	if m, ok := content.(map[string]any); ok {
		if t, _ := m["type"].(string); t == "array" {
			if items, ok := m["items"].([]any); ok {
				if len(items) == 0 {
					return nil, false
				}
				return Get(items[0], p)
			}
		}
	}
	return Get(content, p)
}
