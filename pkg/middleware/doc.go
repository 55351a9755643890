// Package middleware provides observability for appcore applications.
//
// This package includes:
//   - Prometheus metrics fed by the App's request reports
//   - OpenTelemetry tracing of HTTP requests
//   - Path canonicalization with 308 redirects
//
// # Prometheus Metrics
//
// Metrics implements appcore.Observer:
//
//	reg := prometheus.NewRegistry()
//	app := appcore.New(appcore.Config{
//	    Observer: middleware.NewMetrics(middleware.WithRegistry(reg)),
//	})
//	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Metrics collected (with the default "appcore" namespace):
//   - appcore_requests_total: requests by outcome
//   - appcore_dispatch_duration_seconds: request duration by outcome
//   - appcore_failures_total: failed requests by kind
//   - appcore_validation_errors_total: field errors recorded by event handlers
//
// # OpenTelemetry
//
// Tracing starts a server span per request. The App annotates the active
// span with its outcome, so wrap the App rather than the mux around it:
//
//	handler := middleware.Tracing(app, middleware.WithTracerName("shop"))
//
// The tracer comes from the global OpenTelemetry tracer provider unless
// WithTracerProvider is used.
//
// # Canonical Paths
//
// Canonical redirects "/users/" to "/users" and rejects paths that escape
// the root:
//
//	handler := middleware.Canonical(app)
package middleware
