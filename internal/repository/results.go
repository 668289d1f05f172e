package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// ResultStore persists one JSON result file per document stem.
type ResultStore struct {
	dir     string
	exclude map[string]struct{}
	log     *slog.Logger
}

// NewResultStore stores results under dir. Files named in exclude (for example the
// hash registry when it lives in the same directory) are never listed as results.
func NewResultStore(dir string, log *slog.Logger, exclude ...string) *ResultStore {
	if log == nil {
		log = slog.Default()
	}
	ex := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			ex[abs] = struct{}{}
		}
	}
	return &ResultStore{dir: dir, exclude: ex, log: log}
}

// Dir is the results directory.
func (s *ResultStore) Dir() string { return s.dir }

// PathFor returns the result file path for stem.
func (s *ResultStore) PathFor(stem string) string {
	return filepath.Join(s.dir, stem+constants.ResultExt)
}

// Exists reports whether a result for stem is already on disk.
func (s *ResultStore) Exists(stem string) bool {
	_, err := os.Stat(s.PathFor(stem))
	return err == nil
}

// Save writes the result for stem. Existing results are never overwritten.
func (s *ResultStore) Save(stem string, res entity.ProcessingResult) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("results mkdir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(res); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	path := s.PathFor(stem)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create result %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write result %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close result %s: %w", path, err)
	}
	s.log.Info("result saved", "path", path)
	return path, nil
}

// List returns every result file path, sorted by name.
func (s *ResultStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), constants.ResultExt) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if abs, err := filepath.Abs(path); err == nil {
			if _, skip := s.exclude[abs]; skip {
				continue
			}
		}
		out = append(out, path)
	}
	slices.Sort(out)
	return out, nil
}
