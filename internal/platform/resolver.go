// Package platform holds file and process backed adapters for the OS
// facing collaborators of the blocking engine.
package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sadopc/earntime/internal/blocker"
)

// usageEntry is one "<package> <last used>" line of the foreground file.
type usageEntry struct {
	pkg      string
	lastUsed time.Time
}

// FileResolver resolves the foreground package from a file an OS agent
// keeps up to date. Each line holds a package id and, optionally, the
// RFC3339 instant it was last in the foreground; lines without an instant
// use the file's modification time. The file is re-read when it changes.
type FileResolver struct {
	path string
	now  func() time.Time
	log  *zap.Logger

	mu      sync.RWMutex
	entries []usageEntry
	loaded  bool
	loadErr error
}

func NewFileResolver(path string, logger *zap.Logger) *FileResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileResolver{path: path, now: time.Now, log: logger}
}

// ForegroundPackage returns the most recently used package within short,
// falling back to long. A missing file means the agent is not running and
// is reported as blocker.ErrNoUsageAccess.
func (r *FileResolver) ForegroundPackage(_ context.Context, short, long time.Duration) (string, bool, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		r.reload()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loadErr != nil {
		return "", false, r.loadErr
	}

	now := r.now()
	for _, window := range []time.Duration{short, long} {
		if pkg, ok := mostRecent(r.entries, now.Add(-window)); ok {
			return pkg, true, nil
		}
	}
	return "", false, nil
}

func mostRecent(entries []usageEntry, since time.Time) (string, bool) {
	var best usageEntry
	found := false
	for _, e := range entries {
		if e.lastUsed.Before(since) {
			continue
		}
		if !found || e.lastUsed.After(best.lastUsed) {
			best, found = e, true
		}
	}
	return best.pkg, found
}

func (r *FileResolver) reload() {
	entries, err := readForeground(r.path)
	r.mu.Lock()
	r.entries, r.loadErr, r.loaded = entries, err, true
	r.mu.Unlock()
	if err != nil {
		r.log.Debug("foreground file unavailable", zap.String("path", r.path), zap.Error(err))
	}
}

func readForeground(path string) ([]usageEntry, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, blocker.ErrNoUsageAccess)
	}
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []usageEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		e := usageEntry{pkg: fields[0], lastUsed: info.ModTime()}
		if len(fields) > 1 {
			t, err := time.Parse(time.RFC3339, fields[1])
			if err != nil {
				// Skip the record, not the file.
				continue
			}
			e.lastUsed = t
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Watch re-reads the file whenever it changes until ctx is done. The parent
// directory is watched so atomic rename-over writes are seen.
func (r *FileResolver) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.log.Warn("create foreground dir failed", zap.String("dir", dir), zap.Error(err))
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.log.Info("watching foreground file", zap.String("path", r.path))
	r.reload()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				r.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("foreground watcher error", zap.Error(err))
		}
	}
}
