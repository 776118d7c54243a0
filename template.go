package annobuf

import (
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/nkmrtty/annobuf/codec"
)

// fieldDescriptor mirrors the external template record shape. The wire
// field_type vocabulary comes from the template service and differs from
// codec.Kind; kindByWireType translates.
type fieldDescriptor struct {
	Path        string         `json:"path" yaml:"path"`
	FieldType   string         `json:"field_type" yaml:"field_type"`
	Required    bool           `json:"required" yaml:"required"`
	Description string         `json:"description" yaml:"description"`
	Constraints map[string]any `json:"constraints" yaml:"constraints"`
	Default     any            `json:"default_value" yaml:"default_value"`
}

var kindByWireType = map[string]codec.Kind{
	"str":      codec.KindString,
	"string":   codec.KindString,
	"int":      codec.KindInt,
	"float":    codec.KindFloat,
	"bool":     codec.KindBool,
	"date":     codec.KindDate,
	"datetime": codec.KindDateTime,
	"time":     codec.KindTime,
	"enum":     codec.KindEnum,
	"List":     codec.KindArray,
	"list":     codec.KindArray,
	"dict":     codec.KindObject,
}

// LoadTemplateJSON parses an annotation template from JSON: an ordered list
// of field descriptors. Every declared path is parsed up front so malformed
// external input surfaces here, not in the middle of an editing session.
func LoadTemplateJSON(data []byte) ([]Field, error) {
	var descs []fieldDescriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, Issues{{Code: CodeInvalidTemplate, Message: "template is not a JSON field list", Cause: err}}
	}
	return buildFields(descs)
}

// LoadTemplateYAML parses the same template shape from YAML.
func LoadTemplateYAML(data []byte) ([]Field, error) {
	var descs []fieldDescriptor
	if err := yaml.Unmarshal(data, &descs); err != nil {
		return nil, Issues{{Code: CodeInvalidTemplate, Message: "template is not a YAML field list", Cause: err}}
	}
	return buildFields(descs)
}

func buildFields(descs []fieldDescriptor) ([]Field, error) {
	fields := make([]Field, 0, len(descs))
	var iss Issues
	for _, d := range descs {
		if _, err := ParsePath(d.Path); err != nil {
			if sub, ok := AsIssues(err); ok {
				iss = AppendIssues(iss, sub...)
			}
			continue
		}
		kind, ok := kindByWireType[d.FieldType]
		if !ok {
			iss = AppendIssues(iss, Issue{
				Code:    CodeInvalidTemplate,
				Path:    d.Path,
				Message: "unknown field_type " + d.FieldType,
			})
			continue
		}
		fields = append(fields, Field{
			Path:        d.Path,
			Kind:        kind,
			Required:    d.Required,
			Description: d.Description,
			Constraints: parseConstraints(d.Constraints),
			Default:     d.Default,
		})
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return fields, nil
}

func parseConstraints(raw map[string]any) Constraints {
	var c Constraints
	if raw == nil {
		return c
	}
	if n, ok := numericValue(raw["max_length"]); ok {
		v := int(n)
		c.MaxLength = &v
	}
	if n, ok := numericValue(raw["min_length"]); ok {
		v := int(n)
		c.MinLength = &v
	}
	if n, ok := numericValue(raw["ge"]); ok {
		v := n
		c.GE = &v
	}
	if n, ok := numericValue(raw["le"]); ok {
		v := n
		c.LE = &v
	}
	if e, ok := raw["enum"].([]any); ok {
		c.Enum = e
	}
	if p, ok := raw["pattern"].(string); ok {
		c.Pattern = p
	}
	return c
}
