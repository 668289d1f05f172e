package llm

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/common"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/retry"
)

// ClassificationGateway wraps a Classifier with the classify retry policy and
// normalizes its answer.
type ClassificationGateway struct {
	classifier Classifier
	policy     retry.Policy
	logger     *slog.Logger
}

func NewClassificationGateway(c Classifier, policy retry.Policy, logger *slog.Logger) *ClassificationGateway {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &ClassificationGateway{classifier: c, policy: policy, logger: logger}
}

// Classify returns nil, nil when the provider gave no answer.
func (g *ClassificationGateway) Classify(ctx context.Context, content entity.Content) (*entity.ClassificationOutcome, error) {
	log := common.LoggerFrom(ctx, g.logger)
	start := time.Now()

	out, err := retry.Do(ctx, g.policy, func(ctx context.Context) (*entity.ClassificationOutcome, error) {
		return g.classifier.Classify(ctx, content)
	})
	if err != nil {
		log.Error("llm.classify.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAppError(common.CodeGateway, "classification failed", err)
	}
	if out == nil {
		log.Warn("llm.classify.empty", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil
	}

	norm := normalizeOutcome(*out)
	if norm.DocumentType != out.DocumentType {
		log.Warn("llm.classify.label_unrecognized", "label", out.DocumentType)
	}
	log.Info("llm.classify.ok",
		"document_type", norm.DocumentType,
		"confidence", norm.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &norm, nil
}

func normalizeOutcome(o entity.ClassificationOutcome) entity.ClassificationOutcome {
	dt, _ := constants.Canonicalize(string(o.DocumentType))
	conf := o.Confidence
	if math.IsNaN(conf) || conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return entity.ClassificationOutcome{DocumentType: dt, Confidence: conf}
}

// ExtractionGateway dispatches to the extractor registered for a document type
// under the extract retry policy.
type ExtractionGateway struct {
	extractors map[constants.DocumentType]Extractor
	policy     retry.Policy
	logger     *slog.Logger
}

func NewExtractionGateway(extractors []Extractor, policy retry.Policy, logger *slog.Logger) *ExtractionGateway {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	m := make(map[constants.DocumentType]Extractor, len(extractors))
	for _, e := range extractors {
		m[e.DocumentType()] = e
	}
	return &ExtractionGateway{extractors: m, policy: policy, logger: logger}
}

// Extract returns a *NoExtractorError (matching ErrNoExtractor) when no extractor
// is registered for dt.
func (g *ExtractionGateway) Extract(ctx context.Context, content entity.Content, dt constants.DocumentType) (map[string]any, error) {
	log := common.LoggerFrom(ctx, g.logger)
	ex, ok := g.extractors[dt]
	if !ok {
		err := &NoExtractorError{DocumentType: dt}
		log.Error("llm.extract.no_extractor", "document_type", dt)
		return nil, err
	}

	start := time.Now()
	record, err := retry.Do(ctx, g.policy, func(ctx context.Context) (map[string]any, error) {
		return ex.Extract(ctx, content)
	})
	if err != nil {
		log.Error("llm.extract.failed", "document_type", dt, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAppError(common.CodeGateway, "extraction failed", err)
	}
	log.Info("llm.extract.ok", "document_type", dt, "fields", len(record), "elapsed_ms", time.Since(start).Milliseconds())
	return record, nil
}
