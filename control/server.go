package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/liveview"
)

// Server defaults.
const (
	DefaultMaxMessageSize   = 4096
	DefaultHandshakeTimeout = time.Second
	DefaultShutdownTimeout  = 2 * time.Second
)

var _ Controller = (*liveview.Engine)(nil)

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

// Snapshotter is a render target that can return its last presented frame.
type Snapshotter interface {
	Snapshot() *image.RGBA
}

type serverOptions struct {
	gatherer         prometheus.Gatherer
	device           Device
	snapshots        Snapshotter
	logger           *slog.Logger
	maxMessageSize   int64
	handshakeTimeout time.Duration
}

func defaultServerOptions() serverOptions {
	return serverOptions{
		gatherer:         prometheus.DefaultGatherer,
		maxMessageSize:   DefaultMaxMessageSize,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
}

// WithGatherer sets the registry served on /metrics, usually
// Engine.Metrics().Registry().
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(o *serverOptions) {
		if g != nil {
			o.gatherer = g
		}
	}
}

// Device describes the GPU on /info. It holds plain values only, so the
// server never touches the GPU context or its handles.
type Device struct {
	Adapter       string
	AdapterType   string
	SurfaceFormat string
}

// DeviceOf captures the adapter and surface format of p. Call it once,
// before the render loop starts reconfiguring the surface.
func DeviceOf(p gpucontext.DeviceProvider) Device {
	ai := p.AdapterInfo()
	return Device{
		Adapter:       ai.Name,
		AdapterType:   ai.Type.String(),
		SurfaceFormat: p.SurfaceFormat().String(),
	}
}

// WithDevice sets the GPU described on /info.
func WithDevice(d Device) ServerOption {
	return func(o *serverOptions) { o.device = d }
}

// WithSnapshotter serves the last presented frame on /snapshot.png.
func WithSnapshotter(s Snapshotter) ServerOption {
	return func(o *serverOptions) { o.snapshots = s }
}

// WithLogger sets the server logger. The default is liveview.Logger() at
// construction time.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithMaxMessageSize limits the size of one request message in bytes.
func WithMaxMessageSize(n int64) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxMessageSize = n
		}
	}
}

// Server dispatches websocket commands to a Controller and serves the
// metrics and health endpoints.
type Server struct {
	ctrl     Controller
	opts     serverOptions
	log      *slog.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu     sync.Mutex
	conns  map[*websocket.Conn]string
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a server for ctrl.
func NewServer(ctrl Controller, opts ...ServerOption) *Server {
	o := defaultServerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = liveview.Logger()
	}

	s := &Server{
		ctrl:  ctrl,
		opts:  o,
		log:   o.logger,
		conns: make(map[*websocket.Conn]string),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: o.handshakeTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.Handle("GET /metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", s.serveHealth)
	mux.HandleFunc("GET /info", s.serveInfo)
	if o.snapshots != nil {
		mux.HandleFunc("GET /snapshot.png", s.serveSnapshot)
	}

	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: o.handshakeTimeout,
	}
	return s
}

// Handler returns the HTTP handler with all endpoints.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Serve accepts connections on ln until Shutdown. It returns
// ErrServerClosed after a Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("control: listening", "addr", ln.Addr().String())
	err := s.httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return ErrServerClosed
	}
	return err
}

// ListenAndServe listens on addr and serves until ctx is cancelled, then
// shuts down within DefaultShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", addr, err)
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every websocket and waits
// for their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	err := s.httpSrv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Connections returns the number of open websocket connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

func (s *Server) track(conn *websocket.Conn, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.conns[conn] = id
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("control: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	id := uuid.NewString()
	if !s.track(conn, id) {
		conn.Close()
		return
	}
	defer s.untrack(conn)
	defer conn.Close()

	conn.SetReadLimit(s.opts.maxMessageSize)
	log := s.log.With("conn", id, "remote", r.RemoteAddr)
	log.Info("control: client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("control: read failed", "err", err)
			}
			break
		}
		if err := conn.WriteJSON(s.handle(log, data)); err != nil {
			log.Warn("control: write failed", "err", err)
			break
		}
	}
	log.Info("control: client disconnected")
}

// handle decodes and dispatches one message.
func (s *Server) handle(log *slog.Logger, data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn("control: malformed request", "err", err)
		return Response{Error: fmt.Errorf("%w: %w", ErrBadRequest, err).Error()}
	}

	resp := Dispatch(s.ctrl, req)
	if resp.OK {
		log.Debug("control: command", "id", req.ID, "cmd", req.Cmd)
	} else {
		log.Warn("control: command failed", "id", req.ID, "cmd", req.Cmd, "err", resp.Error)
	}
	return resp
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Info is the /info document.
type Info struct {
	Adapter       string `json:"adapter,omitempty"`
	AdapterType   string `json:"adapterType,omitempty"`
	SurfaceFormat string `json:"surfaceFormat,omitempty"`
	Playing       bool   `json:"playing"`
}

func (s *Server) serveInfo(w http.ResponseWriter, _ *http.Request) {
	d := s.opts.device
	info := Info{
		Adapter:       d.Adapter,
		AdapterType:   d.AdapterType,
		SurfaceFormat: d.SurfaceFormat,
		Playing:       s.ctrl.Playing(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		s.log.Warn("control: write info", "err", err)
	}
}

func (s *Server) serveSnapshot(w http.ResponseWriter, _ *http.Request) {
	img := s.opts.snapshots.Snapshot()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		s.log.Warn("control: write snapshot", "err", err)
	}
}
