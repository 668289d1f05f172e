package gemini

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/document-pipeline/internal/llm"
)

func TestRecordSchema_Invoice(t *testing.T) {
	s := recordSchema(llm.InvoiceSpec)
	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v", s.Type)
	}
	dt, ok := s.Properties["document_type"]
	if !ok || len(dt.Enum) != 1 || dt.Enum[0] != "invoice" {
		t.Fatalf("document_type not pinned: %+v", dt)
	}
	items := s.Properties["items"]
	if items == nil || items.Type != genai.TypeArray || items.Items == nil {
		t.Fatalf("items schema = %+v", items)
	}
	if items.Items.Properties["unit_value"].Type != genai.TypeNumber {
		t.Errorf("unit_value should be a number")
	}
	if len(s.Required) != len(llm.InvoiceSpec.Fields)+1 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestClassificationSchema_EnumCoversLabels(t *testing.T) {
	s := classificationSchema()
	got := s.Properties["document_type"].Enum
	want := map[string]bool{"invoice": true, "contract": true, "maintenance_report": true, "unknown": true}
	if len(got) != len(want) {
		t.Fatalf("enum = %v", got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected label %q", v)
		}
	}
}

func TestResponseText_StripsFences(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("```json\n{\"a\":1}\n```")}},
		}},
	}
	if got := responseText(resp); got != `{"a":1}` {
		t.Errorf("responseText = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("nil response = %q", got)
	}
}
