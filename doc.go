package annobuf

// Package annobuf is the data engine behind a structured-annotation UI:
// annotators fill in declared fields over semi-structured JSON documents,
// and the engine reconciles their local edits with server-side validation.
//
// It provides:
//
// - Path addressing into nested JSON values with array-wildcard segments (Get/Set/Remove)
// - Per-object annotation buffers tracking original vs. edited data, dirty paths, and completion
// - Document buffers that split a document into objects and reassemble a submission payload
// - A structural diff between original and annotated values for review
// - Mapping of server field errors back onto the owning buffers
//
// Design policy:
// - The engine is pure data/state logic: no I/O, no logging, deterministic results.
// - Validation conditions never cross the API as errors; buffers carry error state.
//   Only malformed paths and malformed payload shapes return Issues.
// - Every buffer mutation returns a new value; OriginalData is never modified.
// - Place the value codec under codec/, localized messages under i18n/, and the
//   edit debouncer under schedule/.
//
// Typical usage:
//
//	fields, err := annobuf.LoadTemplateJSON(templateBytes)
//	doc, err := annobuf.FromDocument("doc-1", content, fields, previous)
//	doc, err = doc.ApplyFieldEdit(0, "age", "42", fields[0])
//	payload := doc.ToSubmissionPayload()
//
//	grouped := annobuf.GroupByField(resp.Detail.ErrorDetails, tr)
//	doc = annobuf.ApplyToDocument(doc, grouped)
