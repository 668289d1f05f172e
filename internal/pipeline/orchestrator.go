// Package pipeline runs every discovered document through the worker pool and
// consolidates the results.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/common"
	"github.com/joseph-ayodele/document-pipeline/internal/core/async"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/ingest"
)

// DocumentSource is the ingestion collaborator.
type DocumentSource interface {
	LoadDocuments(ctx context.Context, dir string) ([]*entity.Document, error)
}

// DocumentProcessor drives one document to a terminal outcome.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *entity.Document) constants.Outcome
}

// Consolidator writes the tabular report.
type Consolidator interface {
	Consolidate(ctx context.Context, outputPath string) (int, error)
}

type Config struct {
	RawDir     string
	OutputPath string
	Workers    int
	QueueSize  int
}

type Orchestrator struct {
	cfg          Config
	source       DocumentSource
	worker       DocumentProcessor
	consolidator Consolidator
	logger       *slog.Logger
}

func NewOrchestrator(cfg Config, source DocumentSource, worker DocumentProcessor, consolidator Consolidator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = constants.DefaultCSVPath
	}
	return &Orchestrator{cfg: cfg, source: source, worker: worker, consolidator: consolidator, logger: logger}
}

// Run processes every document in the raw directory once. The only error
// returned is an ingestion failure.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)
	log := common.LoggerFrom(ctx, o.logger)
	start := time.Now()

	log.Info("pipeline.start", "raw_dir", o.cfg.RawDir)
	docs, err := o.source.LoadDocuments(ctx, o.cfg.RawDir)
	if err != nil {
		log.Error("pipeline.ingest.failed", "error", err)
		return nil, err
	}
	if len(docs) == 0 {
		log.Warn("pipeline.no_documents", "raw_dir", o.cfg.RawDir)
		return NewStats(), nil
	}

	pool := async.NewPool(ctx, func(ctx context.Context, d *entity.Document) (constants.Outcome, error) {
		return o.worker.Process(ctx, d), nil
	}, log, async.WithWorkers(o.cfg.Workers), async.WithQueueSize(o.cfg.QueueSize))
	log.Info("pipeline.schedule", "documents", len(docs), "workers", pool.Workers())

	unsubmitted := make(chan int, 1)
	go func() {
		missed := 0
		for i, d := range docs {
			if err := pool.Submit(ctx, d); err != nil {
				log.Error("pipeline.submit.failed", "filename", d.Filename, "error", err)
				missed = len(docs) - i
				break
			}
		}
		pool.Close()
		unsubmitted <- missed
	}()

	stats := NewStats()
	for res := range pool.Results() {
		if res.Err != nil {
			log.Error("pipeline.worker.failed", "filename", res.Item.Filename, "error", res.Err)
			stats.Add(constants.OutcomeError)
			continue
		}
		if !constants.IsKnownOutcome(res.Value) {
			log.Warn("pipeline.outcome.unrecognized", "filename", res.Item.Filename, "outcome", res.Value)
		}
		stats.Add(res.Value)
	}
	for n := <-unsubmitted; n > 0; n-- {
		stats.Add(constants.OutcomeError)
	}

	stats.log(log.With("elapsed_ms", time.Since(start).Milliseconds()))

	rows, err := o.consolidator.Consolidate(ctx, o.cfg.OutputPath)
	if err != nil {
		log.Error("pipeline.consolidate.failed", "path", o.cfg.OutputPath, "error", err)
	} else {
		log.Info("pipeline.done", "rows", rows, "path", o.cfg.OutputPath)
	}
	return stats, nil
}

// Watch runs the pipeline for every debounced batch of new PDFs in the raw
// directory until ctx is cancelled.
func (o *Orchestrator) Watch(ctx context.Context, debounce time.Duration) error {
	batches, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Dir:         o.cfg.RawDir,
		InitialScan: true,
		Debounce:    debounce,
	}, o.logger)
	if err != nil {
		return err
	}

	o.logger.Info("pipeline.watch.start", "raw_dir", o.cfg.RawDir)
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline.watch.stop")
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			o.logger.Error("pipeline.watch.error", "error", err)
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			o.logger.Info("pipeline.watch.batch", "files", len(batch))
			if _, err := o.Run(ctx); err != nil {
				o.logger.Error("pipeline.watch.run_failed", "error", err)
			}
		}
	}
}
