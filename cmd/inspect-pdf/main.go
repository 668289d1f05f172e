package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/ingest"
)

const previewChars = 500

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "inspect-pdf <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	if !ingest.AllowedExt(filepath.Ext(path)) {
		logger.Error("not a PDF", "path", path)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	doc, err := ingest.NewLoader(ingest.NewPDFExtractor(logger), 1, logger).LoadFile(ctx, path)
	if err != nil {
		logger.Error("pdf extraction failed", "path", path, "error", err)
		os.Exit(1)
	}
	hash, err := entity.HashFile(path)
	if err != nil {
		logger.Error("hash failed", "path", path, "error", err)
		os.Exit(1)
	}

	fmt.Printf("File:        %s\n", doc.Filename)
	fmt.Printf("SHA-256:     %s\n", hash)
	fmt.Printf("Pages:       %d\n", doc.PageCount)
	fmt.Printf("Text length: %d\n", len(doc.Text))
	fmt.Printf("Images:      %d\n", len(doc.Images))
	fmt.Printf("Empty:       %t\n", doc.Content().IsEmpty())
	fmt.Printf("Elapsed:     %dms\n", time.Since(start).Milliseconds())

	preview := []rune(doc.Text)
	if len(preview) > previewChars {
		preview = preview[:previewChars]
	}
	fmt.Printf("\n--- text preview ---\n%s\n", string(preview))
}
