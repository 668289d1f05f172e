// Package registry keeps the durable set of content hashes of documents that
// reached a registering terminal state.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Registry is a write-through set of content hashes backed by a JSON list file.
// Hashes are only ever added.
type Registry struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	hashes   map[string]struct{}
	inflight map[string]struct{}
}

// Load reads the registry at path. A missing file is an empty registry; an
// unreadable or corrupt file is logged and also yields an empty registry.
func Load(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		path:     path,
		logger:   logger,
		hashes:   make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("registry.load.empty", "path", path)
		return r
	case err != nil:
		logger.Error("registry.load.read_failed", "path", path, "error", err)
		return r
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		logger.Error("registry.load.decode_failed", "path", path, "error", err)
		return r
	}
	for _, h := range list {
		if h != "" {
			r.hashes[h] = struct{}{}
		}
	}
	logger.Info("registry.load.ok", "path", path, "hashes", len(r.hashes))
	return r
}

// Contains reports whether hash has been registered.
func (r *Registry) Contains(hash string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hashes[hash]
	return ok
}

// Claim marks hash as being processed. It returns false when hash is already
// registered or claimed by another caller. A successful claim is ended by
// Register or Release.
func (r *Registry) Claim(hash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hashes[hash]; ok {
		return false
	}
	if _, ok := r.inflight[hash]; ok {
		return false
	}
	r.inflight[hash] = struct{}{}
	return true
}

// Release drops an unregistered claim so a later document with the same
// content can be processed.
func (r *Registry) Release(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, hash)
}

// Register adds hash and rewrites the full set to disk while holding the lock.
// A write failure is logged and swallowed; the in-memory entry stays.
func (r *Registry) Register(hash string) {
	if hash == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inflight, hash)
	if _, ok := r.hashes[hash]; ok {
		return
	}
	r.hashes[hash] = struct{}{}

	if err := r.persistLocked(); err != nil {
		r.logger.Error("registry.persist.failed", "path", r.path, "hash", hash, "error", err)
		return
	}
	r.logger.Debug("registry.register.ok", "hash", hash, "hashes", len(r.hashes))
}

// Len returns the number of registered hashes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hashes)
}

// Snapshot returns the registered hashes sorted.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// Path is the backing file location.
func (r *Registry) Path() string { return r.path }

func (r *Registry) sortedLocked() []string {
	out := make([]string, 0, len(r.hashes))
	for h := range r.hashes {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.sortedLocked(), "", "    ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".hashes-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
