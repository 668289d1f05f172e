package gemini

import (
	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
)

// recordSchema converts a record spec into a Vertex response schema.
func recordSchema(spec llm.RecordSpec) *genai.Schema {
	s := objectSchema(spec.Fields)
	s.Description = spec.Description
	s.Properties["document_type"] = &genai.Schema{
		Type: genai.TypeString,
		Enum: []string{string(spec.Type)},
	}
	s.Required = append(s.Required, "document_type")
	return s
}

func objectSchema(fields []llm.FieldSpec) *genai.Schema {
	s := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(fields)+1),
		Required:   make([]string, 0, len(fields)+1),
	}
	for _, f := range fields {
		s.Properties[f.Name] = fieldSchema(f)
		s.Required = append(s.Required, f.Name)
	}
	return s
}

func fieldSchema(f llm.FieldSpec) *genai.Schema {
	switch f.Kind {
	case llm.KindNumber:
		return &genai.Schema{Type: genai.TypeNumber, Description: f.Description, Nullable: true}
	case llm.KindArray:
		items := &genai.Schema{Type: genai.TypeString}
		if len(f.Items) > 0 {
			items = objectSchema(f.Items)
		}
		return &genai.Schema{Type: genai.TypeArray, Description: f.Description, Items: items}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description, Nullable: true}
	}
}

func classificationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"document_type": {
				Type: genai.TypeString,
				Enum: constants.AsStringSlice(),
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Confidence score between 0 and 1",
			},
		},
		Required: []string{"document_type", "confidence"},
	}
}
