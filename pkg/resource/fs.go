package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// FSLoader serves resources from an fs.FS, optionally caching contents.
type FSLoader struct {
	fsys  fs.FS
	cache bool

	mu      sync.RWMutex
	entries map[string]string
}

// FSOption configures an FSLoader.
type FSOption func(*FSLoader)

// WithCache enables or disables content caching. Disable it in
// development so template edits show up without a restart.
func WithCache(enabled bool) FSOption {
	return func(l *FSLoader) { l.cache = enabled }
}

// NewFSLoader creates a loader over fsys. Caching is on by default.
func NewFSLoader(fsys fs.FS, opts ...FSOption) *FSLoader {
	l := &FSLoader{fsys: fsys, cache: true, entries: make(map[string]string)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir creates a loader over a directory on disk.
func Dir(dir string, opts ...FSOption) *FSLoader {
	return NewFSLoader(os.DirFS(dir), opts...)
}

// Exists reports whether name is a regular file.
func (l *FSLoader) Exists(_ context.Context, name string) bool {
	clean, err := cleanName(name)
	if err != nil {
		return false
	}
	if l.cached(clean) {
		return true
	}
	info, err := fs.Stat(l.fsys, clean)
	return err == nil && !info.IsDir()
}

// Content returns the file contents.
func (l *FSLoader) Content(_ context.Context, name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}

	if l.cache {
		l.mu.RLock()
		content, ok := l.entries[clean]
		l.mu.RUnlock()
		if ok {
			return content, nil
		}
	}

	data, err := fs.ReadFile(l.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotExist, clean)
		}
		return "", fmt.Errorf("resource: read %s: %w", clean, err)
	}

	content := string(data)
	if l.cache {
		l.mu.Lock()
		l.entries[clean] = content
		l.mu.Unlock()
	}
	return content, nil
}

// Invalidate drops all cached contents.
func (l *FSLoader) Invalidate() {
	l.mu.Lock()
	l.entries = make(map[string]string)
	l.mu.Unlock()
}

func (l *FSLoader) cached(name string) bool {
	if !l.cache {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[name]
	return ok
}
