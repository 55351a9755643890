package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/appcore"
	"github.com/vango-dev/appcore/internal/config"
	"github.com/vango-dev/appcore/internal/errors"
	"github.com/vango-dev/appcore/pkg/assets"
	"github.com/vango-dev/appcore/pkg/dispatch"
	"github.com/vango-dev/appcore/pkg/live"
	"github.com/vango-dev/appcore/pkg/middleware"
	"github.com/vango-dev/appcore/pkg/resource"
	"github.com/vango-dev/appcore/pkg/state"
	"github.com/vango-dev/appcore/pkg/static"
)

// HealthPath answers liveness probes.
const HealthPath = "/healthz"

// server is a fully wired project: the App, its HTTP mux and the
// resources to release on shutdown.
type server struct {
	app      *appcore.App
	handler  http.Handler
	registry *prometheus.Registry
	closers  []io.Closer
}

// Close releases the server's backends.
func (s *server) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newServer wires every collaborator named by cfg.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	s := &server{}

	resources, err := templateLoader(cfg, logger)
	if err != nil {
		return nil, err
	}

	codec, err := stateCodec(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}

	appCfg := appcore.Config{
		Resources:    resources,
		State:        codec,
		Logger:       logger,
		DevMode:      cfg.DevMode,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	resolver, err := assetResolver(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	appCfg.Assets = resolver

	cache := static.CacheProduction
	if cfg.DevMode {
		cache = static.CacheNone
	}
	if files := static.New(static.Config{Dir: cfg.StaticPath(), Prefix: cfg.Static.Prefix, Cache: cache}); files != nil {
		appCfg.Static = files
	}

	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		appCfg.Observer = middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(s.registry),
		)
	}

	s.app = appcore.New(appCfg)
	s.app.Router().Service(http.MethodGet, HealthPath, func(req *dispatch.Request) (any, error) {
		return map[string]string{"status": "ok", "version": version}, nil
	})

	var app http.Handler = s.app
	if cfg.Tracing.Enabled {
		app = middleware.Tracing(app, middleware.WithTracerName(cfg.Tracing.TracerName))
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Canonical)

	if s.registry != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if cfg.Live.Enabled {
		r.Handle(cfg.Live.Path, live.NewHandler(app, live.Config{
			ReadTimeout:    cfg.LiveReadTimeout(),
			MaxMessageSize: cfg.Live.MaxMessageSize,
			CheckOrigin:    originChecker(cfg.Live.AllowedOrigins),
			Logger:         logger,
		}))
	}
	r.Handle("/*", app)

	s.handler = r
	return s, nil
}

// templateLoader reads templates from the local directory, falling back
// to S3 when a bucket is configured.
func templateLoader(cfg *config.Config, logger *slog.Logger) (resource.Loader, error) {
	dir := cfg.TemplatesPath()
	_, statErr := os.Stat(dir)

	var loaders []resource.Loader
	if statErr == nil {
		loaders = append(loaders, resource.Dir(dir, resource.WithCache(!cfg.DevMode)))
	}

	if cfg.Templates.S3.Enabled() {
		loaders = append(loaders, resource.NewS3Loader(
			newS3Client(cfg.Templates.S3),
			cfg.Templates.S3.Bucket,
			cfg.Templates.S3.Prefix,
		).WithLogger(logger))
	}

	if len(loaders) == 0 {
		return nil, errors.New("E152").
			WithDetail(dir + " does not exist").
			WithSuggestion("Create the directory or set templates.dir in the project config").
			Wrap(statErr)
	}
	return resource.Chain(loaders...), nil
}

// assetResolver maps asset names to fingerprinted files under the static
// prefix. Development serves names unchanged.
func assetResolver(cfg *config.Config, logger *slog.Logger) (*assets.Resolver, error) {
	if cfg.DevMode {
		return assets.NewResolver(nil, cfg.Static.Prefix), nil
	}
	fsys := os.DirFS(cfg.StaticPath())

	if cfg.Static.Manifest != "" {
		m, err := assets.Load(fsys, cfg.Static.Manifest)
		if err != nil {
			return nil, errors.New("E153").
				WithDetail(filepath.Join(cfg.StaticPath(), cfg.Static.Manifest)).
				Wrap(err)
		}
		return assets.NewResolver(m, cfg.Static.Prefix), nil
	}

	m, err := assets.Scan(fsys)
	if err != nil {
		logger.Debug("asset scan skipped", "dir", cfg.StaticPath(), "error", err)
		return assets.NewResolver(nil, cfg.Static.Prefix), nil
	}
	logger.Debug("assets scanned", "fingerprinted", m.Len())
	return assets.NewResolver(m, cfg.Static.Prefix), nil
}

// newS3Client creates a client with static credentials from the standard
// AWS environment variables.
func newS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: aws.NewCredentialsCache(envCredentials()),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		creds := aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvironmentVariables",
		}
		if !creds.HasKeys() {
			return aws.Credentials{}, errors.New("E172").
				WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")
		}
		return creds, nil
	})
}

// stateCodec selects the state backend. Closable backends are registered
// on s.
func stateCodec(ctx context.Context, cfg *config.Config, s *server) (state.Codec, error) {
	if cfg.State.Backend != config.BackendRedis {
		return state.NewSignedCodec([]byte(cfg.State.Secret)), nil
	}

	var opts []state.RedisStoreOption
	if cfg.State.Redis.Prefix != "" {
		opts = append(opts, state.WithRedisPrefix(cfg.State.Redis.Prefix))
	}
	store := state.NewRedisStore(cfg.State.Redis.Addr, cfg.State.Redis.Password, cfg.State.Redis.DB, opts...)
	s.closers = append(s.closers, store)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, errors.New("E171").
			WithDetail("Cannot reach Redis at " + cfg.State.Redis.Addr).
			WithSuggestion("Check state.redis.addr or switch state.backend to signed").
			Wrap(err)
	}
	return state.NewStoreCodec(store, cfg.StateTTL()), nil
}

// originChecker allows the listed origins. An empty list keeps the
// same-origin default.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
