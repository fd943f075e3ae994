package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/thumbsmith/thumbsmith/internal/errors"
	"github.com/thumbsmith/thumbsmith/internal/metrics"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	servermw "github.com/thumbsmith/thumbsmith/internal/server/middleware"
)

// Server is the thumbsmith HTTP server: health, version, metrics, and the
// /api routes once MountAPI is called.
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	active atomic.Int64
}

// New builds the router. Middleware order matters: the request id must
// exist before metrics and recovery read it.
func New(host string, port int) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:       r,
		host:         host,
		port:         port,
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  120 * time.Second,
	}

	s.registerRoutes()
	return s
}

// HandleError writes err as a JSON error document.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// SetTimeouts overrides the HTTP timeouts. Zero values keep the current one.
// Write timeouts must outlast a backend generation call.
func (s *Server) SetTimeouts(read, write, idle time.Duration) {
	if read > 0 {
		s.readTimeout = read
	}
	if write > 0 {
		s.writeTimeout = write
	}
	if idle > 0 {
		s.idleTimeout = idle
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
		ConnState:    s.trackConn,
	}
	metrics.SetServerStartTime(time.Now().Unix())

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
	}
	return s.server.ListenAndServe()
}

// trackConn keeps the active connection gauge current.
func (s *Server) trackConn(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		metrics.SetActiveConnections(s.active.Add(1))
	case http.StateClosed, http.StateHijacked:
		metrics.SetActiveConnections(s.active.Add(-1))
	}
}

// Shutdown drains in-flight requests. It is a no-op before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}
