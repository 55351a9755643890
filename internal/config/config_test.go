package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/appcore/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected coded error, got %T: %v", err, err)
	}
	return e.Code
}

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Templates.Dir != DefaultTemplatesDir {
		t.Errorf("Templates.Dir = %q", cfg.Templates.Dir)
	}
	if cfg.State.Backend != BackendSigned {
		t.Errorf("State.Backend = %q", cfg.State.Backend)
	}
	if cfg.Live.Path != DefaultLivePath || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("paths = %q, %q", cfg.Live.Path, cfg.Metrics.Path)
	}
	if cfg.StateTTL() != 30*time.Minute {
		t.Errorf("StateTTL() = %v", cfg.StateTTL())
	}
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("LogLevel() = %v", cfg.LogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("SHOP_SECRET", "s3cr3t")
	dir := t.TempDir()
	writeFile(t, dir, "appcore.yaml", `
name: my-shop
devMode: true
server:
  port: 9090
templates:
  dir: views
  s3:
    bucket: shop-templates
    region: eu-west-1
state:
  backend: redis
  secret: ${SHOP_SECRET}
  ttl: 5m
  redis:
    addr: redis:6379
    db: 2
live:
  enabled: true
log:
  level: debug
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Name != "my-shop" || !cfg.DevMode {
		t.Errorf("Name/DevMode = %q/%v", cfg.Name, cfg.DevMode)
	}
	if cfg.Address() != "localhost:9090" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.TemplatesPath() != filepath.Join(dir, "views") {
		t.Errorf("TemplatesPath() = %q", cfg.TemplatesPath())
	}
	if cfg.StaticPath() != filepath.Join(dir, DefaultStaticDir) {
		t.Errorf("StaticPath() = %q", cfg.StaticPath())
	}
	if !cfg.Templates.S3.Enabled() {
		t.Error("S3 should be enabled")
	}
	if cfg.State.Secret != "s3cr3t" {
		t.Errorf("State.Secret = %q", cfg.State.Secret)
	}
	if cfg.State.Redis.Addr != "redis:6379" || cfg.State.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.State.Redis)
	}
	if cfg.StateTTL() != 5*time.Minute {
		t.Errorf("StateTTL() = %v", cfg.StateTTL())
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v", cfg.LogLevel())
	}
	if cfg.Metrics.Namespace != "my_shop" {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
	if cfg.Path() != filepath.Join(dir, "appcore.yaml") {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "appcore.json", `{"name":"api","server":{"host":"0.0.0.0","port":3000}}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address() != "0.0.0.0:3000" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
}

func TestLoadPrefersYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "appcore.json", `{"name":"from-json"}`)
	writeFile(t, dir, "appcore.yaml", "name: from-yaml\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-yaml" {
		t.Errorf("Name = %q, want from-yaml", cfg.Name)
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "appcore.yaml", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
	}{
		{"missing", "", "", "E141"},
		{"invalid yaml", "appcore.yaml", "server:\n  port: [1\n", "E120"},
		{"unknown yaml key", "appcore.yaml", "name: x\nbogus: true\n", "E120"},
		{"invalid json", "appcore.json", "{", "E120"},
		{"unknown json key", "appcore.json", `{"bogus":1}`, "E120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, dir, tt.file, tt.content)
			}
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := codeOf(t, err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestLoadYAMLErrorLocation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "appcore.yaml", "name: x\nserver:\n  port: eighty\n")

	_, err := LoadFile(path)
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected coded error, got %v", err)
	}
	if e.Location == nil || e.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", e.Location)
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "appcore.toml", "name = 'x'")
	_, err := LoadFile(path)
	if got := codeOf(t, err); got != "E121" {
		t.Errorf("code = %s, want E121", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad ttl", func(c *Config) { c.State.TTL = "forever" }},
		{"bad shutdown", func(c *Config) { c.Server.ShutdownTimeout = "soon" }},
		{"bad backend", func(c *Config) { c.State.Backend = "memcached" }},
		{"negative body", func(c *Config) { c.MaxBodyBytes = -1 }},
		{"relative live path", func(c *Config) { c.Live.Path = "_live" }},
		{"s3 without region", func(c *Config) { c.Templates.S3.Bucket = "b" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := codeOf(t, err); got != "E122" {
				t.Errorf("code = %s, want E122", got)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	for _, name := range []string{"appcore.yaml", "appcore.json"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := New()
			cfg.Name = "saved"
			cfg.Server.Port = 4000

			path := filepath.Join(dir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q", cfg.Path())
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.Name != "saved" || loaded.Server.Port != 4000 {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "appcore.yaml", "name: x\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}

	if !Exists(root) || Exists(nested) {
		t.Error("Exists() mismatch")
	}
}
