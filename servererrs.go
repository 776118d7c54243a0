package annobuf

import (
	"regexp"
	"strconv"

	"github.com/nkmrtty/annobuf/codec"
	"github.com/nkmrtty/annobuf/i18n"
)

// ErrorDetail mirrors one record of the server's detail.error_details array.
type ErrorDetail struct {
	Field           string `json:"field"`
	Message         string `json:"message,omitempty"`
	OriginalMessage string `json:"original_message,omitempty"`
	Type            string `json:"type,omitempty"`
	Input           any    `json:"input,omitempty"`
}

// SaveResponseDetail carries the field-level errors of a failed save.
type SaveResponseDetail struct {
	ErrorDetails []ErrorDetail `json:"error_details"`
}

// SaveResponse is the save/submit result shape the backend returns.
type SaveResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Detail  *SaveResponseDetail `json:"detail,omitempty"`
}

// FieldErrors extracts the error_details array, or nil for a success
// response or a failure without field detail.
func (r SaveResponse) FieldErrors() []ErrorDetail {
	if r.Success || r.Detail == nil {
		return nil
	}
	return r.Detail.ErrorDetails
}

// GroupByField groups raw server error records by field path, formatting each
// into one display string: the message (falling back to the original
// backend message, then a generic localized one), prefixed with a bracketed
// type tag when the record carries a machine type distinct from the message,
// and suffixed with the localized "(current input: X)" note when the
// offending input is present.
func GroupByField(items []ErrorDetail, tr i18n.Translator) map[string][]string {
	if tr == nil {
		tr = i18n.Default()
	}
	grouped := make(map[string][]string, len(items))
	for _, d := range items {
		msg := d.Message
		if msg == "" {
			msg = d.OriginalMessage
		}
		if msg == "" {
			msg = tr.Message("invalid_value", nil)
		}
		if d.Type != "" && d.Type != msg {
			msg = "[" + d.Type + "] " + msg
		}
		if d.Input != nil {
			msg += " " + tr.Message("current_input", map[string]string{"input": codec.Format(d.Input)})
		}
		grouped[d.Field] = append(grouped[d.Field], msg)
	}
	return grouped
}

// indexedFieldRe matches index-qualified server paths such as
// "items[2].name", capturing the object index and the object-level path.
var indexedFieldRe = regexp.MustCompile(`^items\[(\d+)\]\.(.+)$`)

// splitByObject partitions grouped errors into per-object routed maps (for
// index-qualified paths) and a broadcast map for everything else.
func splitByObject(grouped map[string][]string) (routed map[int]map[string][]string, broadcast map[string][]string) {
	routed = make(map[int]map[string][]string)
	broadcast = make(map[string][]string)
	for field, msgs := range grouped {
		m := indexedFieldRe.FindStringSubmatch(field)
		if m == nil {
			broadcast[field] = append(broadcast[field], msgs...)
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			broadcast[field] = append(broadcast[field], msgs...)
			continue
		}
		if routed[idx] == nil {
			routed[idx] = make(map[string][]string)
		}
		routed[idx][m[2]] = append(routed[idx][m[2]], msgs...)
	}
	return routed, broadcast
}

// ApplyToDocument fans grouped server errors back onto the owning buffers.
// With a single object everything applies to it directly. With multiple
// objects, errors whose path carries an "items[N]." qualifier route to object
// N; unqualified errors broadcast to every object, since the backend does not
// say which object they belong to. Broadcasting loses precision and is kept
// only as the compatible fallback.
func ApplyToDocument(doc DocumentBuffer, grouped map[string][]string) DocumentBuffer {
	if len(doc.objects) == 0 {
		return doc
	}
	if len(doc.objects) == 1 {
		return doc.withObject(0, doc.objects[0].ApplyServerErrors(grouped))
	}
	routed, broadcast := splitByObject(grouped)
	objs := make([]ObjectBuffer, len(doc.objects))
	for i, ob := range doc.objects {
		merged := make(map[string][]string, len(broadcast)+len(routed[i]))
		for k, v := range broadcast {
			merged[k] = append(merged[k], v...)
		}
		for k, v := range routed[i] {
			merged[k] = append(merged[k], v...)
		}
		objs[i] = ob.ApplyServerErrors(merged)
	}
	doc.objects = objs
	return doc
}

// ApplySaveResponse applies a save's outcome to the document: a success
// clears every object's server error layer, a failure with field detail fans
// the grouped errors back on, and a failure without detail leaves buffers
// untouched (the failure is document-level, not attributable to a field).
func ApplySaveResponse(doc DocumentBuffer, resp SaveResponse, tr i18n.Translator) DocumentBuffer {
	if resp.Success {
		objs := make([]ObjectBuffer, len(doc.objects))
		for i, ob := range doc.objects {
			objs[i] = ob.ApplyServerErrors(nil)
		}
		doc.objects = objs
		return doc
	}
	details := resp.FieldErrors()
	if len(details) == 0 {
		return doc
	}
	return ApplyToDocument(doc, GroupByField(details, tr))
}
