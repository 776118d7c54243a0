package annobuf_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	annobuf "github.com/nkmrtty/annobuf"
	"github.com/nkmrtty/annobuf/codec"
)

var nameField = annobuf.Field{Path: "name", Kind: codec.KindString, Required: true}

func TestFromDocument_ShapeDetection(t *testing.T) {
	fields := []annobuf.Field{nameField}

	bare, err := annobuf.FromDocument("d1", map[string]any{"name": "a"}, fields, nil)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if bare.Shape() != annobuf.ShapeBare || bare.Len() != 1 {
		t.Fatalf("bare: shape=%v len=%d", bare.Shape(), bare.Len())
	}

	list, err := annobuf.FromDocument("d2", []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}, fields, nil)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if list.Shape() != annobuf.ShapeList || list.Len() != 2 {
		t.Fatalf("list: shape=%v len=%d", list.Shape(), list.Len())
	}

	wrapped, err := annobuf.FromDocument("d3", map[string]any{
		"items": []any{map[string]any{"name": "a"}},
		"type":  "array",
	}, fields, nil)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if wrapped.Shape() != annobuf.ShapeItemsWrapper || wrapped.Len() != 1 {
		t.Fatalf("wrapped: shape=%v len=%d", wrapped.Shape(), wrapped.Len())
	}
}

func TestToSubmissionPayload_PreservesWrapper(t *testing.T) {
	fields := []annobuf.Field{nameField}
	content := map[string]any{
		"items": []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b"},
		},
		"type":   "array",
		"source": "upload-17",
	}
	doc, err := annobuf.FromDocument("d1", content, fields, nil)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	doc, err = doc.ApplyFieldEdit(0, "name", "edited-a", nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}
	doc, err = doc.ApplyFieldEdit(1, "name", "edited-b", nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}

	want := map[string]any{
		"items": []any{
			map[string]any{"name": "edited-a"},
			map[string]any{"name": "edited-b"},
		},
		"type":   "array",
		"source": "upload-17",
	}
	if diff := cmp.Diff(want, doc.ToSubmissionPayload()); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	// the original content value is untouched
	if v := content["items"].([]any)[0].(map[string]any)["name"]; v != "a" {
		t.Fatalf("original content mutated: %v", v)
	}
}

func TestToSubmissionPayload_BareAndList(t *testing.T) {
	fields := []annobuf.Field{nameField}

	bare, _ := annobuf.FromDocument("d1", map[string]any{"name": "a"}, fields, nil)
	bare, err := bare.ApplyFieldEdit(0, "name", "x", nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "x"}, bare.ToSubmissionPayload()); diff != "" {
		t.Fatalf("bare payload mismatch (-want +got):\n%s", diff)
	}

	list, _ := annobuf.FromDocument("d2", []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}, fields, nil)
	list, err = list.ApplyFieldEdit(1, "name", "y", nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}
	want := []any{map[string]any{"name": "a"}, map[string]any{"name": "y"}}
	if diff := cmp.Diff(want, list.ToSubmissionPayload()); diff != "" {
		t.Fatalf("list payload mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigation_PureIndexChange(t *testing.T) {
	fields := []annobuf.Field{nameField}
	doc, _ := annobuf.FromDocument("d1", []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}, fields, nil)

	doc, err := doc.ApplyFieldEdit(0, "name", "edited", nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}
	doc = doc.Next()
	if doc.CurrentIndex() != 1 {
		t.Fatalf("Next: index = %d", doc.CurrentIndex())
	}
	doc = doc.Next() // clamps at the last object
	if doc.CurrentIndex() != 1 {
		t.Fatalf("Next clamp: index = %d", doc.CurrentIndex())
	}
	doc = doc.Previous()
	if doc.CurrentIndex() != 0 {
		t.Fatalf("Previous: index = %d", doc.CurrentIndex())
	}
	// switching objects must not reset edits
	ob, _ := doc.Object(0)
	if got := ob.ModifiedPaths(); len(got) != 1 || got[0] != "name" {
		t.Fatalf("navigation reset edits: %v", got)
	}

	if _, err := doc.GoTo(5); err == nil {
		t.Fatalf("GoTo out of range should error")
	}
	doc, err = doc.GoTo(1)
	if err != nil || doc.CurrentIndex() != 1 {
		t.Fatalf("GoTo: %v, index=%d", err, doc.CurrentIndex())
	}
}

func TestDocumentDirtyAndValid(t *testing.T) {
	fields := []annobuf.Field{nameField}
	doc, _ := annobuf.FromDocument("d1", []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}, fields, nil)
	if doc.IsDirty() || !doc.IsValid() {
		t.Fatalf("fresh document: dirty=%v valid=%v", doc.IsDirty(), doc.IsValid())
	}
	doc, err := doc.ApplyFieldEdit(1, "name", "", nameField)
	if err != nil {
		t.Fatalf("ApplyFieldEdit: %v", err)
	}
	if !doc.IsDirty() || doc.IsValid() {
		t.Fatalf("after clearing a required field: dirty=%v valid=%v", doc.IsDirty(), doc.IsValid())
	}
}

func TestFromDocument_PreviousAnnotationByPosition(t *testing.T) {
	fields := []annobuf.Field{nameField}
	content := map[string]any{
		"items": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}},
		"type":  "array",
	}
	prev := map[string]any{
		"items": []any{map[string]any{"name": "saved-a"}},
		"type":  "array",
	}
	doc, err := annobuf.FromDocument("d1", content, fields, prev)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	first, _ := doc.Object(0)
	if v, _ := annobuf.Get(first.AnnotationData(), annobuf.MustParsePath("name")); v != "saved-a" {
		t.Fatalf("object 0 overlay missing: %v", v)
	}
	second, _ := doc.Object(1)
	if v, _ := annobuf.Get(second.AnnotationData(), annobuf.MustParsePath("name")); v != "b" {
		t.Fatalf("object 1 should be pristine: %v", v)
	}
}

func TestResolveInContent_UnwrapsLoaderArrays(t *testing.T) {
	content := map[string]any{
		"items": []any{map[string]any{"name": "first"}},
		"type":  "array",
	}
	v, ok := annobuf.ResolveInContent(content, annobuf.MustParsePath("name"))
	if !ok || v != "first" {
		t.Fatalf("wrapped resolution = %v, %v", v, ok)
	}
	// plain mappings resolve from the root
	v, ok = annobuf.ResolveInContent(map[string]any{"name": "root"}, annobuf.MustParsePath("name"))
	if !ok || v != "root" {
		t.Fatalf("bare resolution = %v, %v", v, ok)
	}
	// an empty items list resolves nothing
	if _, ok := annobuf.ResolveInContent(map[string]any{"items": []any{}, "type": "array"}, annobuf.MustParsePath("name")); ok {
		t.Fatalf("empty wrapper should not resolve")
	}
}
