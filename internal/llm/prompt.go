package llm

import (
	"strings"

	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// ClassificationSystemPrompt instructs the model to pick one of the four labels.
const ClassificationSystemPrompt = `You are an expert document classifier.
Analyze the provided document (text or image) and categorize it into one of the following types:

1. invoice: supplier information, CNPJ, list of items, values and a total (Nota Fiscal).
2. contract: parties (contractor and hired), object, validity and monthly value (Contrato de Prestacao de Servicos).
3. maintenance_report: date, technician, equipment, problem and solution (Relatorio de Manutencao).
4. unknown: the document does not fit any of the above or is illegible or corrupted.

Return the classification and a confidence score between 0 and 1.`

// ExtractionSystemPrompt prefixes every extraction request.
const ExtractionSystemPrompt = "Extract the following information from the document."

// BuildExtractionPrompt names the fields the model must return for spec.
func BuildExtractionPrompt(spec RecordSpec) string {
	var b strings.Builder
	b.WriteString(ExtractionSystemPrompt)
	b.WriteString("\nDocument type: ")
	b.WriteString(string(spec.Type))
	b.WriteString(" (")
	b.WriteString(spec.Description)
	b.WriteString(").\nFields:\n")
	writeFields(&b, spec.Fields, "- ")
	b.WriteString("Set document_type to \"")
	b.WriteString(string(spec.Type))
	b.WriteString("\". Numbers must be plain JSON numbers using '.' as decimal separator.")
	return b.String()
}

func writeFields(b *strings.Builder, fields []FieldSpec, indent string) {
	for _, f := range fields {
		b.WriteString(indent)
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(f.Kind)
		b.WriteString("): ")
		b.WriteString(f.Description)
		b.WriteString("\n")
		if len(f.Items) > 0 {
			writeFields(b, f.Items, "  "+indent)
		}
	}
}

// DocumentTextBlock is the text part sent alongside images; empty when there is no text.
func DocumentTextBlock(c entity.Content, label string) string {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return ""
	}
	return label + ":\n" + text
}
