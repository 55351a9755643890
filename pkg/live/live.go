// Package live carries client events over a WebSocket connection.
//
// Each text frame from the client is one event:
//
//	{"path": "/form", "event": "save", "args": [1], "inputs": {"name": "bob"}, "state": "..."}
//
// The frame is replayed through the application handler as a posted event
// request and the JSON answer (errors, redirect or page fragment) is sent
// back as a text frame. Frames are processed in order, one at a time.
// Requests the application rejects are answered with
//
//	{"_status_": 400, "_error_": "Bad Request"}
package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/vango-dev/appcore/pkg/exchange"
	"github.com/vango-dev/appcore/pkg/routepath"
)

// ErrInvalidFrame is reported for frames that are not event objects.
var ErrInvalidFrame = errors.New("live: invalid frame")

// Config configures a Handler.
type Config struct {
	// ReadTimeout is the maximum time to wait for a frame or a pong from
	// the client. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10s.
	WriteTimeout time.Duration

	// PingInterval is the time between pings. Default: half ReadTimeout.
	PingInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming frame.
	// Default: 1 MiB.
	MaxMessageSize int64

	// CheckOrigin validates the Origin header of the upgrade request.
	// Nil uses the gorilla/websocket same-origin check.
	CheckOrigin func(r *http.Request) bool

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// Handler upgrades requests to WebSocket connections and replays their
// frames through an application handler.
type Handler struct {
	app      http.Handler
	config   Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a handler replaying frames through app.
func NewHandler(app http.Handler, cfg Config) *Handler {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = cfg.ReadTimeout / 2
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		app:    app,
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &connection{
		conn:    conn,
		handler: h,
		origin:  r,
		done:    make(chan struct{}),
		logger:  h.logger.With("remote", r.RemoteAddr),
	}
	go c.pingLoop()
	c.readLoop()
}

// =============================================================================
// Connection
// =============================================================================

type connection struct {
	conn    *websocket.Conn
	handler *Handler
	origin  *http.Request
	logger  *slog.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// readLoop reads frames until the connection is closed or fails.
func (c *connection) readLoop() {
	defer c.close()

	cfg := c.handler.config
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			c.logger.Warn("ignoring non-text frame", "type", typ)
			continue
		}

		reply, err := c.handleFrame(msg)
		if err != nil {
			c.logger.Warn("frame rejected", "error", err)
			reply = errorFrame(http.StatusBadRequest, err.Error())
		}
		if err := c.write(websocket.TextMessage, reply); err != nil {
			c.logger.Debug("write error", "error", err)
			return
		}
	}
}

func (c *connection) pingLoop() {
	ticker := time.NewTicker(c.handler.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *connection) write(typ int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.handler.config.WriteTimeout))
	return c.conn.WriteMessage(typ, data)
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// handleFrame replays one event frame through the application.
func (c *connection) handleFrame(msg []byte) ([]byte, error) {
	req, err := buildRequest(c.origin.Context(), c.origin, msg)
	if err != nil {
		return nil, err
	}

	rec := newRecorder()
	c.handler.app.ServeHTTP(rec, req)

	if rec.status == http.StatusOK && strings.HasPrefix(rec.header.Get("Content-Type"), "application/json") {
		return bytes.TrimRight(rec.body.Bytes(), "\n"), nil
	}
	return errorFrame(rec.status, http.StatusText(rec.status)), nil
}

// buildRequest turns a frame into a posted event request. Cookies and
// authorization headers of the upgrade request are carried over so the
// application sees the same client.
func buildRequest(ctx context.Context, origin *http.Request, msg []byte) (*http.Request, error) {
	if !gjson.ValidBytes(msg) {
		return nil, fmt.Errorf("%w: not JSON", ErrInvalidFrame)
	}
	frame := gjson.ParseBytes(msg)
	if !frame.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidFrame)
	}

	path := frame.Get("path").String()
	event := frame.Get("event").String()
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: path %q", ErrInvalidFrame, path)
	}
	if event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidFrame)
	}
	rawPath, query, _ := strings.Cut(path, "?")
	clean, _, err := routepath.Canonicalize(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if query != "" {
		clean += "?" + query
	}

	form := url.Values{exchange.FieldEvent: {event}}
	if args := frame.Get("args"); args.Exists() {
		form.Set(exchange.FieldArgs, args.Raw)
	}
	if inputs := frame.Get("inputs"); inputs.Exists() {
		form.Set(exchange.FieldInputs, inputs.Raw)
	}
	if st := frame.Get("state").String(); st != "" {
		form.Set(exchange.FieldState, st)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, clean, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, key := range []string{"Cookie", "Authorization", "User-Agent"} {
		if v := origin.Header.Get(key); v != "" {
			req.Header.Set(key, v)
		}
	}
	req.RemoteAddr = origin.RemoteAddr
	req.Host = origin.Host
	return req, nil
}

func errorFrame(status int, message string) []byte {
	data, _ := json.Marshal(map[string]any{
		"_status_": status,
		"_error_":  message,
	})
	return data
}

// =============================================================================
// Response recorder
// =============================================================================

// recorder captures the application's response to a replayed frame.
type recorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
}

func (r *recorder) Write(p []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	return r.body.Write(p)
}
