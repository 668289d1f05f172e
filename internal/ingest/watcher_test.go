package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "existing.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, _, err := StartWatcher(ctx, WatchConfig{Dir: dir, InitialScan: true, Debounce: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case b := <-batches:
		if len(b) != 1 || filepath.Base(b[0]) != "existing.pdf" {
			t.Fatalf("initial batch = %v", b)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no initial batch")
	}

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, "new.pdf")

	select {
	case b := <-batches:
		if len(b) != 1 || filepath.Base(b[0]) != "new.pdf" {
			t.Fatalf("batch = %v", b)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch for new file")
	}

	cancel()
	for range batches {
	}
}

func TestStartWatcher_NoDir(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
