package annobuf

import (
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	json "github.com/goccy/go-json"
	"github.com/wI2L/jsondiff"
)

// ValidationStatus is the per-object validity snapshot inside an export.
type ValidationStatus struct {
	IsValid bool                `json:"is_valid"`
	Errors  map[string][]string `json:"errors"`
}

// ObjectStatus serializes one ObjectBuffer's review state.
type ObjectStatus struct {
	Index                int              `json:"index"`
	CompletionPercentage float64          `json:"completion_percentage"`
	ModifiedFields       []string         `json:"modified_fields"`
	ValidationStatus     ValidationStatus `json:"validation_status"`
}

// ExportArtifact is the on-demand audit serialization of a DocumentBuffer:
// the submission payload plus per-object status, and an RFC 6902 patch from
// the original document to the annotated one so reviewers can replay the
// exact changes.
type ExportArtifact struct {
	DocumentID       string          `json:"document_id"`
	DocumentFilename string          `json:"document_filename"`
	ExportTime       string          `json:"export_time"`
	ObjectsCount     int             `json:"objects_count"`
	AnnotationData   any             `json:"annotation_data"`
	ObjectsStatus    []ObjectStatus  `json:"objects_status"`
	Changes          json.RawMessage `json:"changes,omitempty"`
}

// Export captures doc's state at now. It is read-only over the buffer.
func Export(doc DocumentBuffer, filename string, now time.Time) (ExportArtifact, error) {
	payload := doc.ToSubmissionPayload()
	statuses := make([]ObjectStatus, 0, doc.Len())
	for _, ob := range doc.Objects() {
		statuses = append(statuses, ObjectStatus{
			Index:                ob.Index(),
			CompletionPercentage: ob.CompletionPercentage(),
			ModifiedFields:       ob.ModifiedPaths(),
			ValidationStatus: ValidationStatus{
				IsValid: ob.IsValid(),
				Errors:  ob.ErrorsByPath(),
			},
		})
	}
	art := ExportArtifact{
		DocumentID:       doc.DocumentID(),
		DocumentFilename: filename,
		ExportTime:       now.UTC().Format(time.RFC3339),
		ObjectsCount:     doc.Len(),
		AnnotationData:   payload,
		ObjectsStatus:    statuses,
	}
	patch, err := jsondiff.Compare(doc.originalContent(), payload)
	if err != nil {
		return ExportArtifact{}, Issues{{Code: CodeInvalidPayload, Message: "diffing original against annotated content failed", Cause: err}}
	}
	if len(patch) > 0 {
		raw, err := json.Marshal(patch)
		if err != nil {
			return ExportArtifact{}, Issues{{Code: CodeInvalidPayload, Message: "encoding change patch failed", Cause: err}}
		}
		art.Changes = raw
	}
	return art, nil
}

// Encode renders the artifact as indented JSON.
func (a ExportArtifact) Encode() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// ApplyExportPatch replays an exported Changes patch onto the original
// document's JSON, yielding the annotated document. Lets an auditor verify
// that an artifact's patch and payload agree.
func ApplyExportPatch(originalJSON, patchJSON []byte) ([]byte, error) {
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, Issues{{Code: CodeInvalidPayload, Message: "malformed change patch", Cause: err}}
	}
	out, err := patch.Apply(originalJSON)
	if err != nil {
		return nil, Issues{{Code: CodeInvalidPayload, Message: "change patch does not apply to original", Cause: err}}
	}
	return out, nil
}
