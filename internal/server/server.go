// Package server exposes a thin HTTP dashboard over the optimizer pipeline.
// It accepts the same inputs as the CLI, surfaces run history and analysis
// results, and serves the optimized resume for download.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/config"
	"github.com/jonathan/ats-optimizer/internal/db"
	"github.com/jonathan/ats-optimizer/internal/llm"
	"github.com/jonathan/ats-optimizer/internal/pipeline"
)

// RunFunc executes one optimization run. The server constructs a fresh
// pipeline per request so that progress callbacks stay request-scoped.
type RunFunc func(ctx context.Context, jobSource, resumePath string, onProgress pipeline.ProgressCallback) (*pipeline.Result, error)

// Server is the dashboard HTTP server.
type Server struct {
	httpServer *http.Server
	db         *db.DB
	log        *zap.Logger
	run        RunFunc
}

// Options configures the server.
type Options struct {
	Port     int
	Config   *config.Config
	Logger   *zap.Logger
	Client   llm.Client
	Database *db.DB // optional, nil disables run history endpoints
}

// New creates a server wired to the real pipeline.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server requires configuration")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	run := func(ctx context.Context, jobSource, resumePath string, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
		p, err := pipeline.New(opts.Config, opts.Logger, opts.Client, pipeline.WithProgress(onProgress))
		if err != nil {
			return nil, err
		}
		return p.Run(ctx, jobSource, resumePath)
	}

	s := newWithRunner(opts.Port, opts.Database, opts.Logger, run)
	return s, nil
}

// newWithRunner builds the server around an arbitrary run function.
// Tests use it to substitute a stub pipeline.
func newWithRunner(port int, database *db.DB, log *zap.Logger, run RunFunc) *Server {
	s := &Server{
		db:  database,
		log: log,
		run: run,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // runs block on LLM calls and scraping
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("POST /run/stream", s.handleRunStream)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/analysis", s.handleRunAnalysis)
	mux.HandleFunc("GET /runs/{id}/resume.tex", s.handleRunResumeTex)
	mux.HandleFunc("GET /runs/{id}/cover-letter", s.handleRunCoverLetter)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Handler returns the full middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and blocks until an interrupt or SIGTERM arrives,
// then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info("dashboard listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// withCORS adds permissive CORS headers for the dashboard frontend.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
