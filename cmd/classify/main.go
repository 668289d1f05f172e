package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/common"
	"github.com/joseph-ayodele/document-pipeline/internal/ingest"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
	"github.com/joseph-ayodele/document-pipeline/internal/llm/providers"
	"github.com/joseph-ayodele/document-pipeline/internal/retry"
)

func main() {
	var (
		extract    = flag.Bool("extract", false, "also run field extraction for the resolved type")
		configPath = flag.String("config", "", "optional YAML config file")
		times      = flag.Int("times", 1, "repeat the call N times on the same file")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage: classify [-extract] [-times N] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	_ = godotenv.Load()
	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	provider, err := providers.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("build provider", "error", err)
		os.Exit(2)
	}
	defer provider.Close()

	doc, err := ingest.NewLoader(ingest.NewPDFExtractor(logger), 1, logger).LoadFile(ctx, path)
	if err != nil {
		logger.Error("load pdf", "path", path, "error", err)
		os.Exit(1)
	}
	content := doc.Content()
	if content.IsEmpty() {
		logger.Error("document has neither text nor images", "path", path)
		os.Exit(1)
	}

	classifier := llm.NewClassificationGateway(provider, retry.ClassifyPolicy(), logger)
	extractor := llm.NewExtractionGateway(llm.DefaultExtractors(provider, logger), retry.ExtractPolicy(), logger)

	for i := 1; i <= *times; i++ {
		start := time.Now()
		outcome, err := classifier.Classify(ctx, content)
		if err != nil {
			logger.Error("classify.run.error", "iter", i, "error", err)
			continue
		}
		if outcome == nil {
			logger.Warn("classify.run.empty", "iter", i)
			continue
		}
		logger.Info("classify.run.ok",
			"iter", i,
			"document_type", outcome.DocumentType,
			"confidence", outcome.Confidence,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if !*extract || outcome.DocumentType == constants.Unknown {
			continue
		}
		record, err := extractor.Extract(ctx, content, outcome.DocumentType)
		if err != nil {
			logger.Error("extract.run.error", "iter", i, "error", err)
			continue
		}
		b, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(b))
	}
}
