// Package export consolidates per-document results into tabular reports.
package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ResultLister lists persisted result files.
type ResultLister interface {
	List() ([]string, error)
}

// Table is the consolidated report.
type Table struct {
	Columns []string
	Rows    []Row
}

type Consolidator struct {
	results  ResultLister
	logger   *slog.Logger
	xlsxPath string
}

type Option func(*Consolidator)

// WithXLSX also writes the report as a workbook at path.
func WithXLSX(path string) Option {
	return func(c *Consolidator) { c.xlsxPath = path }
}

func NewConsolidator(results ResultLister, logger *slog.Logger, opts ...Option) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consolidator{results: results, logger: logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Build reads every result file. Unreadable or corrupt files are logged and skipped.
func (c *Consolidator) Build(ctx context.Context) (*Table, error) {
	paths, err := c.results.List()
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	t := &Table{}
	seen := make(map[string]struct{})
	var extra []string
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			c.logger.Error("consolidate.read_failed", "path", p, "error", err)
			continue
		}
		row, err := FlattenResult(raw)
		if err != nil {
			c.logger.Error("consolidate.corrupt_result", "path", p, "error", err)
			continue
		}
		for _, k := range row.Keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				extra = append(extra, k)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	fixed := make(map[string]struct{}, len(FixedColumns))
	for _, k := range FixedColumns {
		fixed[k] = struct{}{}
		if _, ok := seen[k]; ok {
			t.Columns = append(t.Columns, k)
		}
	}
	for _, k := range extra {
		if _, ok := fixed[k]; !ok {
			t.Columns = append(t.Columns, k)
		}
	}
	return t, nil
}

// Consolidate writes the report to outputPath and returns the row count.
// With no results it logs a warning and writes nothing.
func (c *Consolidator) Consolidate(ctx context.Context, outputPath string) (int, error) {
	start := time.Now()
	t, err := c.Build(ctx)
	if err != nil {
		return 0, err
	}
	if len(t.Rows) == 0 {
		c.logger.Warn("consolidate.no_results")
		return 0, nil
	}

	if err := WriteCSV(outputPath, t); err != nil {
		return 0, err
	}
	c.logger.Info("consolidate.csv.ok",
		"path", outputPath, "rows", len(t.Rows), "columns", len(t.Columns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if c.xlsxPath != "" {
		if err := WriteXLSX(c.xlsxPath, t); err != nil {
			c.logger.Error("consolidate.xlsx.failed", "path", c.xlsxPath, "error", err)
		} else {
			c.logger.Info("consolidate.xlsx.ok", "path", c.xlsxPath, "rows", len(t.Rows))
		}
	}
	return len(t.Rows), nil
}

// WriteCSV writes t as UTF-8 CSV with a byte-order mark, replacing path atomically.
func WriteCSV(path string, t *Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".consolidated-*.csv")
	if err != nil {
		return fmt.Errorf("csv temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if _, err := bw.WriteString("\ufeff"); err != nil {
		tmp.Close()
		return err
	}
	w := csv.NewWriter(bw)
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = r.Values[col]
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("csv write: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csv rename: %w", err)
	}
	return nil
}
