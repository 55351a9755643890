package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/appcore/internal/errors"
)

// FileNames are the configuration file names looked up in a project
// directory, in order of preference.
var FileNames = []string{"appcore.yaml", "appcore.yml", "appcore.json"}

const (
	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultTemplatesDir is the default template root.
	DefaultTemplatesDir = "templates"

	// DefaultStaticDir is the default static file directory.
	DefaultStaticDir = "public"

	// DefaultLivePath is the default WebSocket endpoint.
	DefaultLivePath = "/_live"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"
)

// State backends.
const (
	BackendSigned = "signed"
	BackendRedis  = "redis"
)

// Config represents a complete project configuration.
type Config struct {
	// Name is the project name. It is used as the metrics namespace and
	// the tracer name when those are not set.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// DevMode disables template and static caching and pretty-prints
	// rendered markup.
	DevMode bool `json:"devMode,omitempty" yaml:"devMode,omitempty"`

	// MaxBodyBytes limits request bodies. Zero keeps the framework default.
	MaxBodyBytes int64 `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`

	Server    ServerConfig    `json:"server,omitempty" yaml:"server,omitempty"`
	Templates TemplatesConfig `json:"templates,omitempty" yaml:"templates,omitempty"`
	Static    StaticConfig    `json:"static,omitempty" yaml:"static,omitempty"`
	State     StateConfig     `json:"state,omitempty" yaml:"state,omitempty"`
	Live      LiveConfig      `json:"live,omitempty" yaml:"live,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing   TracingConfig   `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Log       LogConfig       `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// TemplatesConfig locates page templates.
type TemplatesConfig struct {
	// Dir is the local template root. It contains dynamic/ and page.html.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// S3 optionally serves templates from a bucket. Local templates win
	// when both define the same name.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config names a bucket holding templates.
type S3Config struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the service endpoint (MinIO, localstack).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Prefix is the URL prefix for static files (default: "/").
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Manifest is a JSON file inside Dir mapping asset names to
	// fingerprinted names. Empty scans Dir for fingerprinted files.
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// StateConfig selects where page state is kept between requests.
type StateConfig struct {
	// Backend is "signed" (client-held, HMAC-signed) or "redis".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Secret signs client-held state. Empty generates a per-process
	// secret.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`

	// TTL is how long server-held state stays resumable (e.g., "30m").
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// LiveConfig contains WebSocket transport settings.
type LiveConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`

	// ReadTimeout is the idle timeout of a connection (e.g., "60s").
	ReadTimeout string `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`

	MaxMessageSize int64 `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty"`

	// AllowedOrigins restricts cross-origin upgrades. Empty allows only
	// same-origin requests.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for each of FileNames in turn.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E141").
		WithDetail("No appcore.yaml or appcore.json found in " + dir).
		WithSuggestion("Create appcore.yaml at the project root")
}

// LoadFile reads configuration from the specified file path.
// The format is chosen by file extension.
func LoadFile(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return nil, errors.New("E121").
			WithDetail("Cannot read " + filepath.Base(path)).
			WithSuggestion("Rename the file to appcore.yaml or appcore.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON and uses known keys")
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			e := errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check the indentation and key names")
			if line := yamlLine(err); line > 0 {
				e.WithLocation(path, line, 0)
			}
			return nil, e
		}
	}

	cfg.configPath = path
	cfg.State.Secret = os.ExpandEnv(cfg.State.Secret)
	cfg.State.Redis.Password = os.ExpandEnv(cfg.State.Redis.Password)
	cfg.applyDefaults()

	return cfg, nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlLine extracts the first line number from a yaml.v3 error.
func yamlLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// SaveTo writes the configuration to path, as YAML or JSON by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return errors.New("E121").WithDetail("Cannot write " + filepath.Base(path))
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "appcore"
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	// Paths
	if c.Templates.Dir == "" {
		c.Templates.Dir = DefaultTemplatesDir
	}
	if c.Static.Dir == "" {
		c.Static.Dir = DefaultStaticDir
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/"
	}

	// State
	if c.State.Backend == "" {
		c.State.Backend = BackendSigned
	}
	if c.State.TTL == "" {
		c.State.TTL = "30m"
	}
	if c.State.Redis.Addr == "" {
		c.State.Redis.Addr = "localhost:6379"
	}

	// Live
	if c.Live.Path == "" {
		c.Live.Path = DefaultLivePath
	}
	if c.Live.ReadTimeout == "" {
		c.Live.ReadTimeout = "60s"
	}

	// Metrics and tracing
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = sanitizeName(c.Name)
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = c.Name
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// sanitizeName turns a project name into a Prometheus namespace.
func sanitizeName(name string) string {
	var b strings.Builder
	for i, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	for key, value := range map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"state.ttl":              c.State.TTL,
		"live.readTimeout":       c.Live.ReadTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return invalid("%s is not a duration: %q", key, value).
				WithSuggestion(`Use Go duration syntax such as "30s" or "5m"`)
		}
	}
	switch c.State.Backend {
	case BackendSigned, BackendRedis:
	default:
		return invalid("state.backend must be %q or %q, got %q", BackendSigned, BackendRedis, c.State.Backend)
	}
	if c.MaxBodyBytes < 0 {
		return invalid("maxBodyBytes must not be negative")
	}
	if c.Live.MaxMessageSize < 0 {
		return invalid("live.maxMessageSize must not be negative")
	}
	for key, path := range map[string]string{
		"live.path":     c.Live.Path,
		"metrics.path":  c.Metrics.Path,
		"static.prefix": c.Static.Prefix,
	} {
		if !strings.HasPrefix(path, "/") {
			return invalid("%s must start with /, got %q", key, path)
		}
	}
	if c.Templates.S3.Enabled() && c.Templates.S3.Region == "" {
		return invalid("templates.s3.region is required when templates.s3.bucket is set")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func invalid(format string, args ...any) *errors.Error {
	return errors.New("E122").WithDetail(fmt.Sprintf(format, args...))
}

// Address returns the listen address of the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShutdownTimeout returns the parsed shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// StateTTL returns the parsed state TTL.
func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.State.TTL)
	return d
}

// LiveReadTimeout returns the parsed WebSocket read timeout.
func (c *Config) LiveReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Live.ReadTimeout)
	return d
}

// LogLevel returns the configured slog level, or info when invalid.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// TemplatesPath returns the absolute path to the template directory.
func (c *Config) TemplatesPath() string {
	return c.resolve(c.Templates.Dir)
}

// StaticPath returns the absolute path to the static directory.
func (c *Config) StaticPath() string {
	return c.resolve(c.Static.Dir)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No appcore.yaml or appcore.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create appcore.yaml at the project root or pass --config")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
