package ingest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Dir         string
	InitialScan bool          // emit a batch for files already present
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// StartWatcher watches cfg.Dir for new or rewritten PDFs and emits them in
// debounced batches. Channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan []string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		logger.Error("watcher start failed: no directory provided")
		return nil, nil, errors.New("no directory provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("failed to watch directory", "dir", cfg.Dir, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	batchCh := make(chan []string, 16)
	errCh := make(chan error, 1)

	var initial []string
	if cfg.InitialScan {
		paths, _, err := ListPDFs(cfg.Dir)
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		initial = paths
	}

	go func() {
		defer close(batchCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher close error", "error", err)
			}
		}()

		if len(initial) > 0 {
			batchCh <- initial
		}

		timer := time.NewTimer(cfg.Debounce)
		timer.Stop()
		pending := map[string]struct{}{}

		flush := func() {
			if len(pending) == 0 {
				return
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
				delete(pending, p)
			}
			select {
			case batchCh <- batch:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if IsHidden(e.Name) || !AllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				timer.Reset(cfg.Debounce)
			case <-timer.C:
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return batchCh, errCh, nil
}
