package entity

import (
	"time"

	"github.com/joseph-ayodele/document-pipeline/constants"
)

// ClassificationOutcome is the classification gateway's verdict for one document.
type ClassificationOutcome struct {
	DocumentType constants.DocumentType `json:"document_type"`
	Confidence   float64                `json:"confidence"`
}

// Classification is the persisted form of a ClassificationOutcome.
type Classification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ResultMetadata is the metadata block of a result file.
type ResultMetadata struct {
	Filename       string          `json:"filename"`
	ProcessedAt    string          `json:"processed_at"`
	Classification *Classification `json:"classification,omitempty"`
	Status         string          `json:"status,omitempty"`
}

// ProcessingResult is the durable per-document result. Data is nil for documents
// classified as unknown and is then written as JSON null.
type ProcessingResult struct {
	Metadata ResultMetadata `json:"metadata"`
	Data     map[string]any `json:"data"`
}

// NewProcessingResult stamps a result for filename at now.
func NewProcessingResult(filename string, outcome ClassificationOutcome, data map[string]any, now time.Time) ProcessingResult {
	return ProcessingResult{
		Metadata: ResultMetadata{
			Filename:    filename,
			ProcessedAt: now.Format(constants.ProcessedAtLayout),
			Classification: &Classification{
				Type:       string(outcome.DocumentType),
				Confidence: outcome.Confidence,
			},
		},
		Data: data,
	}
}
