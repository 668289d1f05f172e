package constants

import (
	"strings"
)

// DocumentType is the classification label produced by the classification gateway.
type DocumentType string

const (
	Invoice           DocumentType = "invoice"
	Contract          DocumentType = "contract"
	MaintenanceReport DocumentType = "maintenance_report"
	Unknown           DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	Invoice,
	Contract,
	MaintenanceReport,
	Unknown,
}

// ExtractableTypes are the document types that have a field extractor.
var ExtractableTypes = []DocumentType{Invoice, Contract, MaintenanceReport}

func AsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// Canonicalize maps a provider label onto a DocumentType.
// Anything it cannot place is Unknown with ok=false.
func Canonicalize(input string) (DocumentType, bool) {
	if input == "" {
		return Unknown, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	synonyms := map[string]DocumentType{
		"nota_fiscal":          Invoice,
		"nf":                   Invoice,
		"nfe":                  Invoice,
		"bill":                 Invoice,
		"contrato":             Contract,
		"service_contract":     Contract,
		"relatorio":            MaintenanceReport,
		"maintenance":          MaintenanceReport,
		"report":               MaintenanceReport,
		"relatorio_manutencao": MaintenanceReport,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return Unknown, false
}
