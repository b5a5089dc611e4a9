// Package callback runs the loopback HTTP server that receives the OAuth2
// authorization-code redirect.
//
// The server exposes:
//   - GET /callback: verifies state and delivers the authorization code
//   - GET /livez: liveness probe
//   - GET /readyz: readiness probe
package callback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/florianilch/vimeo-client/internal/auth"
	"github.com/florianilch/vimeo-client/internal/observability/middleware"
)

// Path is where the authorization server redirects to.
const Path = "/callback"

// ReadinessChecker reports whether the server should receive traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Result is the outcome of a single redirect.
type Result struct {
	Code string
	Err  error
}

// Server receives exactly one authorization-code redirect.
type Server struct {
	state     string
	readiness ReadinessChecker
	logger    *slog.Logger

	results  chan Result
	listener net.Listener
	server   *http.Server
}

// New creates a server that accepts redirects carrying state.
func New(state string, readiness ReadinessChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		state:     state,
		readiness: readiness,
		logger:    logger,
		results:   make(chan Result, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Path, s.handleCallback)
	mux.HandleFunc("GET /livez", livenessHandler())
	mux.HandleFunc("GET /readyz", readinessHandler(readiness))

	s.server = &http.Server{
		Handler: middleware.Chain(mux,
			middleware.Recovery,
			middleware.RedactQuery,
			middleware.Logging(logger),
			middleware.RequestID,
			middleware.TraceContext,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return s
}

// Start listens on addr and serves in the background. Use port 0 to pick a
// free port. The returned channel reports a serve failure, or is closed once
// the server stops.
func (s *Server) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = listener
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.DebugContext(ctx, "callback server listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Addr returns the bound address. Only valid after Start.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// RedirectURL returns the redirect URL to register with the authorization
// request. Only valid after Start.
func (s *Server) RedirectURL() string {
	return "http://" + s.Addr() + Path
}

// Results delivers the outcome of the first redirect carrying the expected
// state.
func (s *Server) Results() <-chan Result {
	return s.results
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

var page = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><title>Vimeo authorization</title></head>
<body><p>{{.}}</p></body></html>
`))

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := auth.ParseCallback(middleware.QueryFromContext(r), s.state)
	if errors.Is(err, auth.ErrStateMismatch) {
		// Not our redirect; the real one may still arrive.
		s.logger.WarnContext(ctx, "ignoring authorization callback with unknown state")
		s.render(ctx, w, http.StatusBadRequest, "Authorization failed: "+err.Error())
		return
	}

	select {
	case s.results <- Result{Code: code, Err: err}:
	default:
		// A result was already delivered; later redirects are ignored.
		s.logger.WarnContext(ctx, "ignoring repeated authorization callback")
		s.render(ctx, w, http.StatusConflict, "This authorization request was already handled.")
		return
	}

	if err != nil {
		s.logger.WarnContext(ctx, "authorization callback rejected", "error", err)
		s.render(ctx, w, http.StatusBadRequest, "Authorization failed: "+err.Error())
		return
	}

	s.render(ctx, w, http.StatusOK, "Authorization complete. You can close this window.")
}

func (s *Server) render(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := page.Execute(w, message); err != nil {
		s.logger.ErrorContext(ctx, "failed to render callback page", "error", err)
	}
}
