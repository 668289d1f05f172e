package llm

import (
	"context"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// Classifier labels a document. A nil outcome with a nil error means the
// provider produced no usable answer.
type Classifier interface {
	Classify(ctx context.Context, content entity.Content) (*entity.ClassificationOutcome, error)
}

// ExtractRequest asks a provider to fill the record described by Spec.
type ExtractRequest struct {
	Spec    RecordSpec
	Content entity.Content
}

// FieldExtractor is the provider capability behind every typed extractor.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (map[string]any, error)
}

// Provider is a model backend able to both classify and extract.
type Provider interface {
	Classifier
	FieldExtractor
	Name() string
	Close() error
}

// Extractor produces the record for exactly one document type.
type Extractor interface {
	DocumentType() constants.DocumentType
	Extract(ctx context.Context, content entity.Content) (map[string]any, error)
}
