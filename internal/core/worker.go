package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/common"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/quarantine"
	"github.com/joseph-ayodele/document-pipeline/internal/repository"
)

// Classifier is the classification gateway as seen by the worker.
type Classifier interface {
	Classify(ctx context.Context, content entity.Content) (*entity.ClassificationOutcome, error)
}

// Extractor is the extraction gateway as seen by the worker.
type Extractor interface {
	Extract(ctx context.Context, content entity.Content, dt constants.DocumentType) (map[string]any, error)
}

// HashRegistry is the shared set of processed content hashes. Claim reserves a
// hash for the calling worker until Register or Release.
type HashRegistry interface {
	Claim(hash string) bool
	Release(hash string)
	Register(hash string)
}

// ResultStore persists per-document results keyed by filename stem.
type ResultStore interface {
	Exists(stem string) bool
	Save(stem string, res entity.ProcessingResult) (string, error)
}

// Quarantiner decides on and performs quarantine moves.
type Quarantiner interface {
	CheckContent(c entity.Content) quarantine.Decision
	CheckConfidence(o entity.ClassificationOutcome) quarantine.Decision
	Move(src string) (string, error)
}

// Worker runs the per-document state machine. One Worker is shared by every
// pool goroutine; all per-document state lives on the stack of Process.
type Worker struct {
	logger     *slog.Logger
	registry   HashRegistry
	results    ResultStore
	quarantine Quarantiner
	classifier Classifier
	extractor  Extractor
	journal    repository.JournalRepository
	now        func() time.Time
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithJournal records every terminal outcome in j.
func WithJournal(j repository.JournalRepository) WorkerOption {
	return func(w *Worker) { w.journal = j }
}

// WithClock overrides the clock used for processed_at stamps.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWorker(
	logger *slog.Logger,
	registry HashRegistry,
	results ResultStore,
	q Quarantiner,
	classifier Classifier,
	extractor Extractor,
	opts ...WorkerOption,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		logger:     logger,
		registry:   registry,
		results:    results,
		quarantine: q,
		classifier: classifier,
		extractor:  extractor,
		now:        time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// run is the bookkeeping of one Process call.
type run struct {
	hash    string
	outcome entity.ClassificationOutcome
	err     error
}

// Process drives doc to a terminal outcome. It never panics and never returns
// an error: every failure is folded into constants.OutcomeError.
func (w *Worker) Process(ctx context.Context, doc *entity.Document) (out constants.Outcome) {
	ctx = common.WithFilename(ctx, doc.Filename)
	log := common.LoggerFrom(ctx, w.logger)
	start := time.Now()
	r := &run{}

	defer func() {
		if rec := recover(); rec != nil {
			r.err = fmt.Errorf("panic: %v", rec)
			log.Error("worker.panic", "panic", rec, "stack", string(debug.Stack()))
			out = constants.OutcomeError
		}
		w.finish(ctx, log, doc, r, out, time.Since(start))
	}()

	return w.process(ctx, log, doc, r)
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, doc *entity.Document, r *run) constants.Outcome {
	// HashCheck
	hash, err := doc.ContentHash()
	if err != nil {
		r.err = fmt.Errorf("content hash: %w", err)
		log.Error("worker.hash.failed", "error", err)
		return constants.OutcomeError
	}
	r.hash = hash

	// DuplicateCheck
	if !w.registry.Claim(hash) {
		log.Info("worker.skip.duplicate", "hash", hash)
		return constants.OutcomeSkippedDuplicate
	}
	defer w.registry.Release(hash)

	// IdempotencyCheck
	if w.results.Exists(doc.Stem()) {
		log.Info("worker.skip.already_processed", "stem", doc.Stem())
		return constants.OutcomeSkipped
	}

	content := doc.Content()

	// EmptinessCheck
	if d := w.quarantine.CheckContent(content); d.Quarantine {
		return w.moveToQuarantine(log, doc, r, d)
	}

	// Classify
	cls, err := w.classifier.Classify(ctx, content)
	if err != nil {
		r.err = err
		return constants.OutcomeError
	}
	if cls == nil {
		r.err = errors.New("classification returned no result")
		log.Error("worker.classify.empty")
		return constants.OutcomeError
	}
	r.outcome = *cls
	log.Info("worker.classified", "document_type", cls.DocumentType, "confidence", cls.Confidence)

	// ConfidenceGate
	if d := w.quarantine.CheckConfidence(*cls); d.Quarantine {
		return w.moveToQuarantine(log, doc, r, d)
	}

	// UnknownGate
	if cls.DocumentType == constants.Unknown {
		res := entity.NewProcessingResult(doc.Filename, *cls, nil, w.now())
		res.Metadata.Status = constants.StatusSkippedUnknown
		if _, err := w.results.Save(doc.Stem(), res); err != nil {
			r.err = err
			log.Error("worker.persist.failed", "error", err)
			return constants.OutcomeError
		}
		w.registry.Register(hash)
		return constants.OutcomeUnknown
	}

	// Extract
	data, err := w.extractor.Extract(ctx, content, cls.DocumentType)
	if err != nil {
		r.err = err
		return constants.OutcomeError
	}

	// Persist & Register
	res := entity.NewProcessingResult(doc.Filename, *cls, data, w.now())
	if _, err := w.results.Save(doc.Stem(), res); err != nil {
		r.err = err
		log.Error("worker.persist.failed", "error", err)
		return constants.OutcomeError
	}
	w.registry.Register(hash)
	return constants.Outcome(cls.DocumentType)
}

func (w *Worker) moveToQuarantine(log *slog.Logger, doc *entity.Document, r *run, d quarantine.Decision) constants.Outcome {
	dst, err := w.quarantine.Move(doc.SourcePath)
	if err != nil {
		r.err = fmt.Errorf("quarantine move: %w", err)
		log.Error("worker.quarantine.move_failed", "reason", d.Reason, "error", err)
		return constants.OutcomeError
	}
	log.Warn("worker.quarantined", "reason", d.Reason, "dest", dst, "confidence", r.outcome.Confidence)
	return d.Outcome()
}

func (w *Worker) finish(ctx context.Context, log *slog.Logger, doc *entity.Document, r *run, out constants.Outcome, elapsed time.Duration) {
	attrs := []any{"outcome", out, "elapsed_ms", elapsed.Milliseconds()}
	if r.err != nil {
		log.Error("worker.done", append(attrs, "error", r.err)...)
	} else {
		log.Info("worker.done", attrs...)
	}

	if w.journal == nil {
		return
	}
	entry := repository.JournalEntry{
		ID:           uuid.New(),
		RunID:        common.RunIDFromContext(ctx),
		Filename:     doc.Filename,
		ContentHash:  r.hash,
		Outcome:      string(out),
		DocumentType: string(r.outcome.DocumentType),
		Confidence:   r.outcome.Confidence,
		ElapsedMS:    elapsed.Milliseconds(),
		RecordedAt:   w.now().UTC(),
	}
	if r.err != nil {
		entry.ErrorMessage = r.err.Error()
	}
	if err := w.journal.Record(ctx, entry); err != nil {
		log.Warn("worker.journal.failed", "error", err)
	}
}
