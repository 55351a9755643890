// Package assets resolves static asset names to their fingerprinted
// file names.
//
// A fingerprinted file carries a content hash before its extension
// ("app.a1b2c3d4.css"). Templates refer to the stable source name and
// resolve it at render time:
//
//	manifest, _ := assets.Scan(os.DirFS("public"))
//	resolver := assets.NewResolver(manifest, "/static/")
//	engine := view.NewHTMLEngine(view.WithFuncs(resolver.FuncMap()))
//
//	// <link rel="stylesheet" href="{{asset "app.css"}}">
//	// renders href="/static/app.a1b2c3d4.css"
//
// A manifest can also be read from a JSON file mapping source names to
// fingerprinted names with Load.
package assets

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Manifest maps source asset names to fingerprinted names.
// It is safe for concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewManifest creates a manifest holding a copy of entries.
func NewManifest(entries map[string]string) *Manifest {
	m := &Manifest{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// Load reads a JSON manifest ({"app.css": "app.a1b2c3d4.css"}) from fsys.
func Load(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("assets: read manifest: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("assets: parse manifest %s: %w", name, err)
	}
	return NewManifest(entries), nil
}

// Scan builds a manifest from the fingerprinted files in fsys. When
// several fingerprints exist for one source name, the last one in lexical
// order wins.
func Scan(fsys fs.FS) (*Manifest, error) {
	m := NewManifest(nil)
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if source, ok := Source(name); ok {
			m.entries[source] = name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assets: scan: %w", err)
	}
	return m, nil
}

// Lookup returns the fingerprinted name of source.
func (m *Manifest) Lookup(source string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resolved, ok := m.entries[source]
	return resolved, ok
}

// Set adds or replaces an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[source] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IsFingerprinted reports whether the name carries a content hash of at
// least eight hex digits before its extension.
func IsFingerprinted(name string) bool {
	_, ok := Source(name)
	return ok
}

// Source strips the fingerprint from name: "css/app.a1b2c3d4.css" becomes
// "css/app.css". It reports false for names without a fingerprint.
func Source(name string) (string, bool) {
	dir, base := path.Split(name)
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return "", false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return "", false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return "", false
		}
	}
	stem := strings.Join(parts[:len(parts)-2], ".")
	return dir + stem + "." + parts[len(parts)-1], true
}
