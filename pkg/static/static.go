// Package static serves files from a public directory ahead of dynamic
// dispatch.
package static

import (
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/vango-dev/appcore/pkg/assets"
)

// CacheStrategy determines the Cache-Control header of served files.
type CacheStrategy int

const (
	// CacheNone disables client caching. Useful in development.
	CacheNone CacheStrategy = iota

	// CacheProduction caches fingerprinted files ("app.3f2a9c1d.css")
	// for a year and everything else for an hour with revalidation.
	CacheProduction
)

// Config configures a file server.
type Config struct {
	// FS is the file tree to serve. Dir is used when FS is nil.
	FS fs.FS

	// Dir is a directory on disk to serve.
	Dir string

	// Prefix is the URL prefix under which files are served.
	// Default: "/".
	Prefix string

	// Cache selects the caching strategy.
	Cache CacheStrategy

	// Headers are added to every served file.
	Headers map[string]string
}

// Server serves static files. A nil *Server serves nothing.
type Server struct {
	fsys    fs.FS
	prefix  string
	cache   CacheStrategy
	headers map[string]string
}

// New creates a file server. It returns nil when cfg names no files.
func New(cfg Config) *Server {
	fsys := cfg.FS
	if fsys == nil {
		if cfg.Dir == "" {
			return nil
		}
		fsys = os.DirFS(cfg.Dir)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Server{
		fsys:    fsys,
		prefix:  prefix,
		cache:   cfg.Cache,
		headers: cfg.Headers,
	}
}

// TryServe serves the file matching a GET or HEAD request and reports
// whether it did. It writes nothing when no regular file matches.
func (s *Server) TryServe(w http.ResponseWriter, r *http.Request) bool {
	if s == nil {
		return false
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	rel, ok := s.relPath(r.URL.Path)
	if !ok {
		return false
	}

	f, err := s.fsys.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	s.applyCacheHeaders(w, rel)
	for key, value := range s.headers {
		w.Header().Set(key, value)
	}

	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, rel, info.ModTime(), rs)
		return true
	}

	// fs.File implementations without Seek are copied directly.
	data, err := io.ReadAll(f)
	if err != nil {
		return false
	}
	http.ServeContent(w, r, rel, modTime(info), strings.NewReader(string(data)))
	return true
}

// Exists reports whether urlPath names a regular file.
func (s *Server) Exists(urlPath string) bool {
	if s == nil {
		return false
	}
	rel, ok := s.relPath(urlPath)
	if !ok {
		return false
	}
	info, err := fs.Stat(s.fsys, rel)
	return err == nil && !info.IsDir()
}

// relPath maps a URL path to a path inside the file tree. Traversal,
// absolute paths, NUL bytes and backslashes are rejected outright rather
// than cleaned.
func (s *Server) relPath(urlPath string) (string, bool) {
	var rel string
	if s.prefix == "/" {
		rel = strings.TrimPrefix(urlPath, "/")
	} else {
		if !strings.HasPrefix(urlPath, s.prefix) {
			return "", false
		}
		rel = strings.TrimPrefix(urlPath, s.prefix)
	}

	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", false
	}
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if !fs.ValidPath(clean) || clean == "." {
		return "", false
	}
	return clean, true
}

func (s *Server) applyCacheHeaders(w http.ResponseWriter, rel string) {
	switch s.cache {
	case CacheNone:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case CacheProduction:
		if assets.IsFingerprinted(rel) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

func modTime(info fs.FileInfo) time.Time {
	if info == nil {
		return time.Time{}
	}
	return info.ModTime()
}
