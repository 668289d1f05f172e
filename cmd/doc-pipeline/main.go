package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/common"
	"github.com/joseph-ayodele/document-pipeline/internal/core"
	"github.com/joseph-ayodele/document-pipeline/internal/export"
	"github.com/joseph-ayodele/document-pipeline/internal/ingest"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
	"github.com/joseph-ayodele/document-pipeline/internal/llm/providers"
	"github.com/joseph-ayodele/document-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/document-pipeline/internal/quarantine"
	"github.com/joseph-ayodele/document-pipeline/internal/registry"
	repo "github.com/joseph-ayodele/document-pipeline/internal/repository"
	"github.com/joseph-ayodele/document-pipeline/internal/retry"
	"github.com/joseph-ayodele/document-pipeline/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		rawDir        = flag.String("raw", "", "directory of PDFs to process (overrides DATA_RAW_DIR)")
		processedDir  = flag.String("processed", "", "results directory (overrides DATA_PROCESSED_DIR)")
		quarantineDir = flag.String("quarantine", "", "quarantine directory (overrides DATA_QUARANTINE_DIR)")
		out           = flag.String("out", "", "consolidated CSV path (overrides EXPORT_CSV_PATH)")
		xlsx          = flag.String("xlsx", "", "also write the report as XLSX to this path")
		configPath    = flag.String("config", "", "optional YAML config file")
		workers       = flag.Int("workers", 0, "worker pool size (overrides PIPELINE_WORKERS)")
		watch         = flag.Bool("watch", false, "keep running and process new PDFs as they arrive")
		healthAddr    = flag.String("health", "", "gRPC health listen address in watch mode (overrides HEALTH_ADDR)")
	)
	flag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		printError("Warning: could not read .env: %v\n", err)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("PIPELINE_CONFIG")
	}
	cfg, err := common.LoadConfigFile(path)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	applyFlags(cfg, *rawDir, *processedDir, *quarantineDir, *out, *xlsx, *workers, *healthAddr)

	logger, closer, err := common.NewLogger(cfg.Log)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := providers.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build llm provider", "error", err)
		os.Exit(2)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("failed to close llm provider", "error", err)
		}
	}()

	db, journal, err := server.ConnectJournal(ctx, cfg.Journal, logger)
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)

	orch := build(cfg, provider, journal, logger)

	if !*watch {
		stats, err := orch.Run(ctx)
		if err != nil {
			logger.Error("pipeline failed", "error", err)
			os.Exit(1)
		}
		printSummary(stats, cfg.Export.CSVPath)
		return
	}

	var health *server.HealthServer
	if cfg.Watch.HealthAddr != "" {
		health, err = server.StartHealth(cfg.Watch.HealthAddr, logger)
		if err != nil {
			logger.Error("failed to start health server", "addr", cfg.Watch.HealthAddr, "error", err)
			os.Exit(1)
		}
		health.SetServing(true)
	}
	err = orch.Watch(ctx, cfg.Watch.Debounce)
	if health != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		health.Stop(stopCtx)
		cancel()
	}
	if err != nil {
		logger.Error("watch failed", "error", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *common.Config, raw, processed, quarantineDir, out, xlsx string, workers int, healthAddr string) {
	if raw != "" {
		cfg.Paths.RawDir = raw
	}
	if processed != "" {
		cfg.Paths.ProcessedDir = processed
		if os.Getenv("DATA_HASHES_FILE") == "" {
			cfg.Paths.HashesFile = filepath.Join(processed, constants.HashesFileName)
		}
	}
	if quarantineDir != "" {
		cfg.Paths.QuarantineDir = quarantineDir
	}
	if out != "" {
		cfg.Export.CSVPath = out
	}
	if xlsx != "" {
		cfg.Export.XLSXPath = xlsx
	}
	if workers > 0 {
		cfg.Pipeline.Workers = workers
	}
	if healthAddr != "" {
		cfg.Watch.HealthAddr = healthAddr
	}
}

func build(cfg *common.Config, provider llm.Provider, journal repo.JournalRepository, logger *slog.Logger) *pipeline.Orchestrator {
	hashes := registry.Load(cfg.Paths.HashesFile, logger)
	results := repo.NewResultStore(cfg.Paths.ProcessedDir, logger, cfg.Paths.HashesFile)
	router := quarantine.NewRouter(cfg.Paths.QuarantineDir, cfg.Pipeline.ConfidenceThreshold, logger)

	classifier := llm.NewClassificationGateway(provider, retry.ClassifyPolicy(), logger)
	extractor := llm.NewExtractionGateway(llm.DefaultExtractors(provider, logger), retry.ExtractPolicy(), logger)

	var opts []core.WorkerOption
	if journal != nil {
		opts = append(opts, core.WithJournal(journal))
	}
	worker := core.NewWorker(logger, hashes, results, router, classifier, extractor, opts...)

	loader := ingest.NewLoader(ingest.NewPDFExtractor(logger), cfg.Pipeline.IngestConcurrency, logger)

	var exportOpts []export.Option
	if cfg.Export.XLSXPath != "" {
		exportOpts = append(exportOpts, export.WithXLSX(cfg.Export.XLSXPath))
	}
	consolidator := export.NewConsolidator(results, logger, exportOpts...)

	return pipeline.NewOrchestrator(pipeline.Config{
		RawDir:     cfg.Paths.RawDir,
		OutputPath: cfg.Export.CSVPath,
		Workers:    cfg.Pipeline.Workers,
		QueueSize:  cfg.Pipeline.QueueSize,
	}, loader, worker, consolidator, logger)
}

func printSummary(stats pipeline.Stats, out string) {
	fmt.Printf("Pipeline complete!\n")
	for _, o := range constants.AllOutcomes {
		fmt.Printf("- %-24s %d\n", string(o)+":", stats[o])
	}
	fmt.Printf("- %-24s %d\n", "total:", stats.Total())
	if stats.Total() > 0 {
		fmt.Printf("- Output: %s\n", out)
	}
}
