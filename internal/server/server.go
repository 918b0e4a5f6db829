// Package server provides the HTTP API for answering questions over the index.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ragbench/internal/config"
	"github.com/hyperjump/ragbench/internal/models"
	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/internal/pipeline"
	"github.com/hyperjump/ragbench/internal/storage"
	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// Index is the loaded index the server answers from. *indexcache.Index implements it.
type Index interface {
	pipeline.Retriever
	Dir() string
	Size() int
	Info() storage.IndexInfo
	Close() error
}

// Answerer is satisfied by *pipeline.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, index pipeline.Retriever, modelID, templateText, query string) (*models.Answer, error)
	TopK() int
}

// Server is the HTTP server for the answer API.
type Server struct {
	answerer Answerer
	table    *options.Table
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server

	// mu guards index. Requests hold the read lock for their whole lifetime so
	// SwapIndex never closes an index that is still being read.
	mu        sync.RWMutex
	index     Index
	swappedAt time.Time
	closed    bool
}

// ErrClosed is returned by SwapIndex after Close.
var ErrClosed = errors.New("server closed")

// NewServer creates a server answering from index.
func NewServer(
	answerer Answerer,
	table *options.Table,
	index Index,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		answerer:  answerer,
		table:     table,
		index:     index,
		config:    cfg,
		logger:    utils.OrNop(logger),
		swappedAt: time.Now(),
	}
}

// SwapIndex replaces the served index and closes the previous one once no request is
// using it. After Close it closes index instead and returns ErrClosed.
func (s *Server) SwapIndex(index Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if err := index.Close(); err != nil {
			s.logger.Warn("close rejected index failed", zap.Error(err))
		}
		return ErrClosed
	}
	old := s.index
	s.index = index
	s.swappedAt = time.Now()
	if old != nil && old != index {
		if err := old.Close(); err != nil {
			s.logger.Warn("close previous index failed", zap.Error(err))
		}
	}
	s.logger.Info("index swapped", zap.String("dir", index.Dir()), zap.Int("chunks", index.Size()))
	return nil
}

// Close closes the served index.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/options", s.handleOptions)
		r.Post("/answer", s.handleAnswer)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
