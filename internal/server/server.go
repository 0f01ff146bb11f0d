// Package server exposes a loaded catalog over a read-only HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kingrea/paper-catalog/internal/catalog"
	"github.com/kingrea/paper-catalog/internal/metrics"
	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/query"
)

// Status reports runtime lifecycle states for the HTTP server.
type Status string

const (
	StatusStarting Status = "starting"
	StatusReady    Status = "ready"
	StatusDraining Status = "draining"
)

// Server wraps the HTTP listener and the catalog routes.
type Server struct {
	settings Settings
	catalog  *catalog.Catalog
	metrics  *metrics.Metrics
	logger   *slog.Logger
	clock    func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    Status
	startTime time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock allows tests to control uptime.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New prepares a server for cat using the provided settings.
func New(settings Settings, cat *catalog.Catalog, opts ...Option) *Server {
	settings.normalize()
	s := &Server{
		settings: settings,
		catalog:  cat,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    func() time.Time { return time.Now().UTC() },
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Router returns the HTTP routes. It is independent of Start so handlers can
// be exercised without a listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/health", s.handleHealth)
	r.Get("/papers", s.handlePapers)
	r.Get("/papers/{id}", s.handlePaper)
	r.Get("/domains", s.handleDomains)
	r.Get("/taxonomy", s.handleTaxonomy)
	r.Get("/report", s.handleReport)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("server: server is nil")
	}
	if s.catalog == nil {
		return errors.New("server: catalog is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server: already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()
	s.logger.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests.
// The lock is released before draining so handlers can still read status.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	server := s.server
	if s.listener == nil || server == nil {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusDraining
	s.mu.Unlock()

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if s.server == server {
		s.listener = nil
		s.server = nil
	}
	s.mu.Unlock()
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	started := s.startTime
	s.mu.RUnlock()
	if started.IsZero() {
		return 0
	}
	return int64(s.clock().Sub(started).Seconds())
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Papers        int    `json:"papers"`
	Invalid       int    `json:"invalid"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type papersResponse struct {
	Count  int           `json:"count"`
	Papers []paper.Paper `json:"papers"`
}

type domainResponse struct {
	Name       string   `json:"name"`
	Subdomains []string `json:"subdomains"`
}

type resultResponse struct {
	Source     string   `json:"source"`
	Identifier string   `json:"identifier,omitempty"`
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

type reportResponse struct {
	Summary string           `json:"summary"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
	Results []resultResponse `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	uptime := s.uptimeSeconds()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Papers:        len(s.catalog.Papers()),
		Invalid:       s.catalog.Report.InvalidCount(),
		UptimeSeconds: uptime,
	})
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.Filter{
		Domain:    q.Get("domain"),
		Subdomain: q.Get("subdomain"),
		Indicator: q.Get("indicator"),
		Text:      q.Get("q"),
	}
	papers := query.Apply(s.catalog.Papers(), filter)
	writeJSON(w, http.StatusOK, papersResponse{Count: len(papers), Papers: papers})
}

func (s *Server) handlePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := query.Find(s.catalog.Papers(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("paper %q not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, query.GroupByDomain(s.catalog.Papers()))
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	entries := s.catalog.Taxonomy.Entries()
	out := make([]domainResponse, len(entries))
	for i, e := range entries {
		out[i] = domainResponse{Name: e.Domain, Subdomains: e.Subdomains}
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": out})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	report := s.catalog.Report
	resp := reportResponse{
		Summary: report.Summary(),
		Valid:   report.ValidCount(),
		Invalid: report.InvalidCount(),
		Results: make([]resultResponse, len(report.Results)),
	}
	for i, res := range report.Results {
		resp.Results[i] = resultResponse{
			Source:     res.Source,
			Identifier: res.Identifier,
			Valid:      res.IsValid(),
			Violations: res.Messages(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
