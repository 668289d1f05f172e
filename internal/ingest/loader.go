package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Readable   uint32
	Unreadable uint32
}

// Loader builds Documents from the PDFs in a directory.
type Loader struct {
	extractor   ContentExtractor
	concurrency int
	logger      *slog.Logger
}

// NewLoader parses up to concurrency files at a time.
func NewLoader(extractor ContentExtractor, concurrency int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Loader{extractor: extractor, concurrency: concurrency, logger: logger}
}

// ListPDFs returns the non-hidden PDF files directly inside dir, sorted by name.
func ListPDFs(dir string) ([]string, uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var scanned uint32
	var out []string
	for _, e := range entries {
		scanned++
		if e.IsDir() || IsHidden(e.Name()) || !AllowedExt(filepath.Ext(e.Name())) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, scanned, nil
}

// LoadDocuments returns one Document per PDF in dir, in name order. A file the
// extractor cannot parse still yields a Document, with empty content. A missing
// dir holds no documents.
func (l *Loader) LoadDocuments(ctx context.Context, dir string) ([]*entity.Document, error) {
	start := time.Now()
	paths, scanned, err := ListPDFs(dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("ingest.dir.missing", "dir", dir)
		return nil, nil
	}
	if err != nil {
		l.logger.Error("ingest.list.failed", "dir", dir, "error", err)
		return nil, err
	}
	stats := DirStats{Scanned: scanned, Matched: uint32(len(paths))}

	docs := make([]*entity.Document, len(paths))
	readable := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			doc := &entity.Document{Filename: filepath.Base(path), SourcePath: path}
			content, err := l.extractor.Extract(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.logger.Error("ingest.extract.failed", "filename", doc.Filename, "error", err)
			} else {
				doc.Text = content.Text
				doc.Images = content.Images
				doc.PageCount = content.PageCount
				readable[i] = true
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ok := range readable {
		if ok {
			stats.Readable++
		} else {
			stats.Unreadable++
		}
	}
	l.logger.Info("ingest.load.ok",
		"dir", dir,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"readable", stats.Readable,
		"unreadable", stats.Unreadable,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return docs, nil
}

// LoadFile builds a single Document for path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*entity.Document, error) {
	content, err := l.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return &entity.Document{
		Filename:   filepath.Base(path),
		SourcePath: path,
		Text:       content.Text,
		Images:     content.Images,
		PageCount:  content.PageCount,
	}, nil
}
