package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/quarantine"
	"github.com/joseph-ayodele/document-pipeline/internal/registry"
	"github.com/joseph-ayodele/document-pipeline/internal/repository"
)

type stubClassifier struct {
	mu      sync.Mutex
	calls   int
	outcome *entity.ClassificationOutcome
	err     error
	panic   bool
}

func (s *stubClassifier) Classify(ctx context.Context, _ entity.Content) (*entity.ClassificationOutcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panic {
		panic("classifier exploded")
	}
	return s.outcome, s.err
}

type stubExtractor struct {
	data map[string]any
	err  error
}

func (s *stubExtractor) Extract(ctx context.Context, _ entity.Content, _ constants.DocumentType) (map[string]any, error) {
	return s.data, s.err
}

type failingMover struct{ *quarantine.Router }

func (failingMover) Move(src string) (string, error) { return "", errors.New("disk full") }

type memJournal struct {
	mu      sync.Mutex
	entries []repository.JournalEntry
}

func (m *memJournal) Record(_ context.Context, e repository.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) LatestRun(context.Context) (string, map[string]int, error) {
	return "", nil, nil
}

type harness struct {
	raw, processed, quarantined string
	registry                    *registry.Registry
	results                     *repository.ResultStore
	router                      *quarantine.Router
	classifier                  *stubClassifier
	extractor                   *stubExtractor
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		raw:         filepath.Join(root, "raw"),
		processed:   filepath.Join(root, "processed"),
		quarantined: filepath.Join(root, "quarantine"),
		classifier:  &stubClassifier{outcome: &entity.ClassificationOutcome{DocumentType: constants.Invoice, Confidence: 0.95}},
		extractor:   &stubExtractor{data: map[string]any{"supplier_name": "ACME", "total_amount": 10.0}},
	}
	if err := os.MkdirAll(h.raw, 0o755); err != nil {
		t.Fatal(err)
	}
	hashes := filepath.Join(h.processed, constants.HashesFileName)
	h.registry = registry.Load(hashes, discard())
	h.results = repository.NewResultStore(h.processed, discard(), hashes)
	h.router = quarantine.NewRouter(h.quarantined, constants.ConfidenceThreshold, discard())
	return h
}

func (h *harness) worker(opts ...WorkerOption) *Worker {
	opts = append([]WorkerOption{WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	})}, opts...)
	return NewWorker(discard(), h.registry, h.results, h.router, h.classifier, h.extractor, opts...)
}

func (h *harness) doc(t *testing.T, name, body, text string) *entity.Document {
	t.Helper()
	p := filepath.Join(h.raw, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return &entity.Document{Filename: name, SourcePath: p, Text: text}
}

func readResult(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return m
}

func TestWorker_Success(t *testing.T) {
	h := newHarness(t)
	d := h.doc(t, "nf-001.pdf", "pdf-bytes-1", "Nota Fiscal")

	if got := h.worker().Process(context.Background(), d); got != constants.OutcomeInvoice {
		t.Fatalf("outcome = %q, want invoice", got)
	}
	res := readResult(t, h.results.PathFor("nf-001"))
	meta := res["metadata"].(map[string]any)
	if meta["filename"] != "nf-001.pdf" || meta["processed_at"] != "2024-05-01 10:30:00" {
		t.Errorf("metadata = %v", meta)
	}
	cls := meta["classification"].(map[string]any)
	if cls["type"] != "invoice" || cls["confidence"] != 0.95 {
		t.Errorf("classification = %v", cls)
	}
	if _, ok := meta["status"]; ok {
		t.Error("status should be omitted on success")
	}
	hash, _ := d.ContentHash()
	if !h.registry.Contains(hash) {
		t.Error("hash not registered")
	}
}

func TestWorker_DuplicateContent(t *testing.T) {
	h := newHarness(t)
	w := h.worker()
	a := h.doc(t, "a.pdf", "same-bytes", "text")
	b := h.doc(t, "b.pdf", "same-bytes", "text")

	if got := w.Process(context.Background(), a); got != constants.OutcomeInvoice {
		t.Fatalf("first = %q", got)
	}
	if got := w.Process(context.Background(), b); got != constants.OutcomeSkippedDuplicate {
		t.Fatalf("second = %q, want skipped_duplicate", got)
	}
	if h.results.Exists("b") {
		t.Error("duplicate must not produce a result")
	}
	if h.registry.Len() != 1 {
		t.Errorf("registry len = %d, want 1", h.registry.Len())
	}
}

func TestWorker_ExistingResultIsSkipped(t *testing.T) {
	h := newHarness(t)
	d := h.doc(t, "c.pdf", "bytes", "text")
	if _, err := h.results.Save("c", entity.ProcessingResult{}); err != nil {
		t.Fatal(err)
	}
	if got := h.worker().Process(context.Background(), d); got != constants.OutcomeSkipped {
		t.Fatalf("outcome = %q, want skipped", got)
	}
	if h.classifier.calls != 0 {
		t.Error("classifier should not be called")
	}
}

func TestWorker_EmptyContentIsQuarantined(t *testing.T) {
	h := newHarness(t)
	d := h.doc(t, "scan.pdf", "bytes", "   ")

	if got := h.worker().Process(context.Background(), d); got != constants.OutcomeQuarantinedUnreadable {
		t.Fatalf("outcome = %q", got)
	}
	if h.classifier.calls != 0 {
		t.Error("classifier reached for empty document")
	}
	if _, err := os.Stat(filepath.Join(h.quarantined, "scan.pdf")); err != nil {
		t.Errorf("not moved to quarantine: %v", err)
	}
	if _, err := os.Stat(d.SourcePath); !os.IsNotExist(err) {
		t.Error("source should be relocated, not copied")
	}
}

func TestWorker_ImagesOnlyIsNotEmpty(t *testing.T) {
	h := newHarness(t)
	d := h.doc(t, "img.pdf", "bytes", "")
	d.Images = []entity.Image{{MIMEType: "image/png", Base64Data: "AAAA"}}
	if got := h.worker().Process(context.Background(), d); got != constants.OutcomeInvoice {
		t.Fatalf("outcome = %q", got)
	}
}

func TestWorker_QuarantineMoveFailure(t *testing.T) {
	h := newHarness(t)
	d := h.doc(t, "scan.pdf", "bytes", "")
	w := NewWorker(discard(), h.registry, h.results, failingMover{h.router}, h.classifier, h.extractor)
	if got := w.Process(context.Background(), d); got != constants.OutcomeError {
		t.Fatalf("outcome = %q, want error", got)
	}
}

func TestWorker_ConfidenceBoundary(t *testing.T) {
	tests := []struct {
		confidence float64
		want       constants.Outcome
	}{
		{0.80, constants.OutcomeInvoice},
		{0.7999, constants.OutcomeQuarantined},
		{0.0, constants.OutcomeQuarantined},
	}
	for _, tt := range tests {
		h := newHarness(t)
		h.classifier.outcome = &entity.ClassificationOutcome{DocumentType: constants.Invoice, Confidence: tt.confidence}
		d := h.doc(t, "x.pdf", "bytes", "text")

		got := h.worker().Process(context.Background(), d)
		if got != tt.want {
			t.Errorf("confidence %v: outcome = %q, want %q", tt.confidence, got, tt.want)
		}
		if tt.want == constants.OutcomeQuarantined {
			if h.registry.Len() != 0 {
				t.Errorf("confidence %v: quarantined hash must not be registered", tt.confidence)
			}
			if h.results.Exists("x") {
				t.Errorf("confidence %v: quarantined doc must not have a result", tt.confidence)
			}
		}
	}
}

func TestWorker_UnknownIsPersistedAndRegistered(t *testing.T) {
	h := newHarness(t)
	h.classifier.outcome = &entity.ClassificationOutcome{DocumentType: constants.Unknown, Confidence: 0.9}
	d := h.doc(t, "memo.pdf", "bytes", "hello")

	if got := h.worker().Process(context.Background(), d); got != constants.OutcomeUnknown {
		t.Fatalf("outcome = %q", got)
	}
	res := readResult(t, h.results.PathFor("memo"))
	if v, ok := res["data"]; !ok || v != nil {
		t.Errorf("data = %v, want explicit null", v)
	}
	meta := res["metadata"].(map[string]any)
	if meta["status"] != constants.StatusSkippedUnknown {
		t.Errorf("status = %v", meta["status"])
	}
	if h.registry.Len() != 1 {
		t.Error("unknown document should be registered")
	}
}

func TestWorker_ErrorPaths(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"classifier error", func(h *harness) { h.classifier.err = errors.New("quota"); h.classifier.outcome = nil }},
		{"classifier empty", func(h *harness) { h.classifier.outcome = nil }},
		{"extractor error", func(h *harness) { h.extractor.err = errors.New("no extractor") }},
		{"panic", func(h *harness) { h.classifier.panic = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)
			d := h.doc(t, "e.pdf", "bytes", "text")
			if got := h.worker().Process(context.Background(), d); got != constants.OutcomeError {
				t.Fatalf("outcome = %q, want error", got)
			}
			if h.registry.Len() != 0 {
				t.Error("failed document must not be registered")
			}
			if h.results.Exists("e") {
				t.Error("failed document must not have a result")
			}
		})
	}
}

func TestWorker_HashFailureIsError(t *testing.T) {
	h := newHarness(t)
	d := &entity.Document{Filename: "ghost.pdf", SourcePath: filepath.Join(h.raw, "ghost.pdf"), Text: "text"}
	if got := h.worker().Process(context.Background(), d); got != constants.OutcomeError {
		t.Fatalf("outcome = %q, want error", got)
	}
	if h.classifier.calls != 0 {
		t.Error("classifier should not be reached")
	}
}

func TestWorker_JournalsOutcome(t *testing.T) {
	h := newHarness(t)
	j := &memJournal{}
	d := h.doc(t, "j.pdf", "bytes", "text")
	h.worker(WithJournal(j)).Process(context.Background(), d)

	if len(j.entries) != 1 {
		t.Fatalf("entries = %d", len(j.entries))
	}
	e := j.entries[0]
	if e.Outcome != "invoice" || e.Filename != "j.pdf" || e.ContentHash == "" || e.DocumentType != "invoice" {
		t.Errorf("entry = %+v", e)
	}
}

// gateClassifier signals entered and then waits for release before answering.
type gateClassifier struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateClassifier) Classify(ctx context.Context, _ entity.Content) (*entity.ClassificationOutcome, error) {
	g.entered <- struct{}{}
	<-g.release
	return &entity.ClassificationOutcome{DocumentType: constants.Invoice, Confidence: 0.95}, nil
}

func TestWorker_InFlightDuplicateIsSkipped(t *testing.T) {
	h := newHarness(t)
	gate := &gateClassifier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	w := NewWorker(discard(), h.registry, h.results, h.router, gate, h.extractor)
	a := h.doc(t, "a.pdf", "same-bytes", "text")
	b := h.doc(t, "b.pdf", "same-bytes", "text")

	first := make(chan constants.Outcome, 1)
	go func() { first <- w.Process(context.Background(), a) }()
	<-gate.entered

	if got := w.Process(context.Background(), b); got != constants.OutcomeSkippedDuplicate {
		t.Fatalf("in-flight duplicate = %q, want skipped_duplicate", got)
	}
	close(gate.release)
	if got := <-first; got != constants.OutcomeInvoice {
		t.Fatalf("first = %q, want invoice", got)
	}
	if h.results.Exists("b") {
		t.Error("in-flight duplicate produced a result")
	}
}

func TestWorker_FailureReleasesClaim(t *testing.T) {
	h := newHarness(t)
	w := h.worker()
	a := h.doc(t, "a.pdf", "same-bytes", "text")
	b := h.doc(t, "b.pdf", "same-bytes", "text")

	h.classifier.err = errors.New("quota exhausted")
	if got := w.Process(context.Background(), a); got != constants.OutcomeError {
		t.Fatalf("first = %q, want error", got)
	}
	h.classifier.err = nil
	if got := w.Process(context.Background(), b); got != constants.OutcomeInvoice {
		t.Fatalf("after failure = %q, want invoice", got)
	}
}

func TestWorker_LegacyMD5Registry(t *testing.T) {
	h := newHarness(t)
	done := h.doc(t, "done.pdf", "bytes-done", "text")
	fresh := h.doc(t, "fresh.pdf", "bytes-fresh", "text")

	var legacy []string
	for _, body := range []string{"bytes-done", "bytes-fresh"} {
		sum := md5.Sum([]byte(body))
		legacy = append(legacy, hex.EncodeToString(sum[:]))
	}
	data, _ := json.Marshal(legacy)
	hashes := filepath.Join(h.processed, constants.HashesFileName)
	if err := os.MkdirAll(h.processed, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(hashes, data, 0o644); err != nil {
		t.Fatal(err)
	}
	h.registry = registry.Load(hashes, discard())
	if _, err := h.results.Save("done", entity.NewProcessingResult("done.pdf",
		entity.ClassificationOutcome{DocumentType: constants.Invoice, Confidence: 0.9}, nil, time.Now())); err != nil {
		t.Fatal(err)
	}

	w := h.worker()
	if got := w.Process(context.Background(), done); got != constants.OutcomeSkipped {
		t.Errorf("done = %q, want skipped", got)
	}
	if got := w.Process(context.Background(), fresh); got != constants.OutcomeInvoice {
		t.Errorf("fresh = %q, want invoice", got)
	}
	if h.registry.Len() != 3 {
		t.Errorf("registry len = %d, want 2 legacy + 1 new", h.registry.Len())
	}
}
