package llm

import (
	"github.com/joseph-ayodele/document-pipeline/constants"
)

// Field kinds used in record specs.
const (
	KindString = "string"
	KindNumber = "number"
	KindArray  = "array"
)

// FieldSpec describes one extracted field. Items is set for arrays of objects.
type FieldSpec struct {
	Name        string
	Kind        string
	Description string
	Items       []FieldSpec
}

// RecordSpec is the extraction contract of one document type.
type RecordSpec struct {
	Type        constants.DocumentType
	Description string
	Fields      []FieldSpec
}

var InvoiceSpec = RecordSpec{
	Type:        constants.Invoice,
	Description: "Invoice (Nota Fiscal) issued by a supplier",
	Fields: []FieldSpec{
		{Name: "supplier_name", Kind: KindString, Description: "Name of the supplier or issuer"},
		{Name: "cnpj", Kind: KindString, Description: "CNPJ of the supplier"},
		{Name: "date", Kind: KindString, Description: "Date of emission or document validity"},
		{Name: "items", Kind: KindArray, Description: "List of items in the invoice", Items: []FieldSpec{
			{Name: "description", Kind: KindString, Description: "Description of the item or service"},
			{Name: "quantity", Kind: KindNumber, Description: "Quantity of the item"},
			{Name: "unit_value", Kind: KindNumber, Description: "Unit value of the item"},
			{Name: "total_value", Kind: KindNumber, Description: "Total value of the item"},
		}},
		{Name: "total_amount", Kind: KindNumber, Description: "Total amount of the invoice"},
	},
}

var ContractSpec = RecordSpec{
	Type:        constants.Contract,
	Description: "Service contract (Contrato de Prestacao de Servicos)",
	Fields: []FieldSpec{
		{Name: "contractor_name", Kind: KindString, Description: "Name of the contractor (party requesting the service)"},
		{Name: "hired_name", Kind: KindString, Description: "Name of the hired party (service provider)"},
		{Name: "object_description", Kind: KindString, Description: "Description of the object of the contract"},
		{Name: "validity_date", Kind: KindString, Description: "Validity date or duration of the contract"},
		{Name: "monthly_value", Kind: KindNumber, Description: "Monthly value of the contract"},
	},
}

var MaintenanceReportSpec = RecordSpec{
	Type:        constants.MaintenanceReport,
	Description: "Maintenance report (Relatorio de Manutencao)",
	Fields: []FieldSpec{
		{Name: "date", Kind: KindString, Description: "Date of the maintenance report"},
		{Name: "technician_name", Kind: KindString, Description: "Name of the technician responsible"},
		{Name: "equipment_name", Kind: KindString, Description: "Name or ID of the equipment maintained"},
		{Name: "problem_description", Kind: KindString, Description: "Description of the problem reported"},
		{Name: "solution_description", Kind: KindString, Description: "Description of the solution applied"},
	},
}

// SpecFor returns the record spec of an extractable type.
func SpecFor(dt constants.DocumentType) (RecordSpec, bool) {
	switch dt {
	case constants.Invoice:
		return InvoiceSpec, true
	case constants.Contract:
		return ContractSpec, true
	case constants.MaintenanceReport:
		return MaintenanceReportSpec, true
	default:
		return RecordSpec{}, false
	}
}

// JSONSchema renders the spec as a draft JSON Schema object. Every field is required
// and document_type is pinned to the spec's type.
func (s RecordSpec) JSONSchema() map[string]any {
	props, required := fieldsSchema(s.Fields)
	props["document_type"] = map[string]any{
		"type": "string",
		"enum": []any{string(s.Type)},
	}
	required = append(required, "document_type")
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// FieldNames lists the top-level field names, in spec order.
func (s RecordSpec) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

func fieldsSchema(fields []FieldSpec) (map[string]any, []any) {
	props := make(map[string]any, len(fields))
	required := make([]any, 0, len(fields))
	for _, f := range fields {
		required = append(required, f.Name)
		switch f.Kind {
		case KindArray:
			itemProps, itemReq := fieldsSchema(f.Items)
			props[f.Name] = map[string]any{
				"type":        "array",
				"description": f.Description,
				"items": map[string]any{
					"type":                 "object",
					"properties":           itemProps,
					"required":             itemReq,
					"additionalProperties": false,
				},
			}
		default:
			props[f.Name] = map[string]any{"type": f.Kind, "description": f.Description}
		}
	}
	return props, required
}

// BuildClassificationJSONSchema is the schema of a classifier answer.
func BuildClassificationJSONSchema() map[string]any {
	enum := make([]any, 0, 4)
	for _, s := range constants.AsStringSlice() {
		enum = append(enum, s)
	}
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"document_type": map[string]any{
				"type":        "string",
				"enum":        enum,
				"description": "The type of the document",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Confidence score between 0 and 1",
			},
		},
		"required":             []any{"document_type", "confidence"},
		"additionalProperties": false,
	}
}
