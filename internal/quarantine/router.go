// Package quarantine decides which documents are held for human review and
// relocates their source files.
package quarantine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// Reason explains why a document was quarantined.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonUnreadable    Reason = "unreadable"
	ReasonLowConfidence Reason = "low_confidence"
)

// Decision is the router verdict for one document.
type Decision struct {
	Quarantine bool
	Reason     Reason
}

// Outcome maps a quarantine decision to the worker's terminal label.
func (d Decision) Outcome() constants.Outcome {
	if d.Reason == ReasonUnreadable {
		return constants.OutcomeQuarantinedUnreadable
	}
	return constants.OutcomeQuarantined
}

// Router routes documents into the quarantine directory.
type Router struct {
	dir       string
	threshold float64
	logger    *slog.Logger
}

// NewRouter quarantines into dir; classifications strictly below threshold are held back.
// A non-positive threshold falls back to the default of 0.80.
func NewRouter(dir string, threshold float64, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = constants.ConfidenceThreshold
	}
	return &Router{dir: dir, threshold: threshold, logger: logger}
}

// Dir is the quarantine directory.
func (r *Router) Dir() string { return r.dir }

// Threshold is the minimum confidence that passes the gate.
func (r *Router) Threshold() float64 { return r.threshold }

// CheckContent quarantines documents with neither text nor images.
func (r *Router) CheckContent(c entity.Content) Decision {
	if c.IsEmpty() {
		return Decision{Quarantine: true, Reason: ReasonUnreadable}
	}
	return Decision{}
}

// CheckConfidence quarantines classifications below the threshold. The boundary
// value itself passes.
func (r *Router) CheckConfidence(o entity.ClassificationOutcome) Decision {
	if o.Confidence < r.threshold {
		return Decision{Quarantine: true, Reason: ReasonLowConfidence}
	}
	return Decision{}
}

// Move relocates src into the quarantine directory keeping its base name and
// returns the new path. A file already at the destination is replaced.
func (r *Router) Move(src string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("quarantine mkdir: %w", err)
	}
	dst := filepath.Join(r.dir, filepath.Base(src))

	err := os.Rename(src, dst)
	if errors.Is(err, syscall.EXDEV) {
		err = copyThenRemove(src, dst)
	}
	if err != nil {
		return "", fmt.Errorf("quarantine move %s: %w", src, err)
	}
	r.logger.Warn("quarantine.moved", "src", src, "dst", dst)
	return dst, nil
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
