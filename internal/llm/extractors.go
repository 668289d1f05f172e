package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// ErrNoExtractor is matched by errors.Is for every NoExtractorError.
var ErrNoExtractor = errors.New("no extractor for document type")

// NoExtractorError reports a resolved type without a registered extractor.
type NoExtractorError struct {
	DocumentType constants.DocumentType
}

func (e *NoExtractorError) Error() string {
	return fmt.Sprintf("no extractor found for document type: %q", e.DocumentType)
}

func (e *NoExtractorError) Is(target error) bool { return target == ErrNoExtractor }

// specExtractor extracts one document type through a provider, then normalizes
// and validates the answer against the type's schema.
type specExtractor struct {
	spec     RecordSpec
	provider FieldExtractor
	logger   *slog.Logger
}

func (e *specExtractor) DocumentType() constants.DocumentType { return e.spec.Type }

func (e *specExtractor) Extract(ctx context.Context, content entity.Content) (map[string]any, error) {
	raw, err := e.provider.ExtractFields(ctx, ExtractRequest{Spec: e.spec, Content: content})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%s extractor: empty answer", e.spec.Type)
	}
	record, _ := NormalizeRecord(e.spec, raw, e.logger)
	if err := ValidateRecord(e.spec, record); err != nil {
		return nil, fmt.Errorf("%s extractor: %w", e.spec.Type, err)
	}
	if e.spec.Type == constants.Invoice {
		WarnOnInvoiceMath(record, e.logger)
	}
	return record, nil
}

// NewInvoiceExtractor, NewContractExtractor and NewMaintenanceReportExtractor make up
// the closed set of extractors.
func NewInvoiceExtractor(p FieldExtractor, logger *slog.Logger) Extractor {
	return newSpecExtractor(InvoiceSpec, p, logger)
}

func NewContractExtractor(p FieldExtractor, logger *slog.Logger) Extractor {
	return newSpecExtractor(ContractSpec, p, logger)
}

func NewMaintenanceReportExtractor(p FieldExtractor, logger *slog.Logger) Extractor {
	return newSpecExtractor(MaintenanceReportSpec, p, logger)
}

func newSpecExtractor(spec RecordSpec, p FieldExtractor, logger *slog.Logger) Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &specExtractor{spec: spec, provider: p, logger: logger.With("extractor", string(spec.Type))}
}

// DefaultExtractors builds the full extractor set on one provider.
func DefaultExtractors(p FieldExtractor, logger *slog.Logger) []Extractor {
	return []Extractor{
		NewInvoiceExtractor(p, logger),
		NewContractExtractor(p, logger),
		NewMaintenanceReportExtractor(p, logger),
	}
}
