package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/config"
	"github.com/JakeFAU/contact-crawler/internal/contact"
	"github.com/JakeFAU/contact-crawler/internal/crawler"
	"github.com/JakeFAU/contact-crawler/internal/dispatcher"
	batchid "github.com/JakeFAU/contact-crawler/internal/id/uuid"
	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// BatchRunner runs a batch window by window. *dispatcher.Scheduler satisfies it.
type BatchRunner interface {
	Process(ctx context.Context, tasks []contact.CrawlTask, mode contact.Mode, onWindow dispatcher.WindowFunc)
}

// URLDiscoverer fetches a page and proposes contact-bearing subpages.
type URLDiscoverer interface {
	DiscoverURL(ctx context.Context, url string) ([]string, error)
}

// Server wires HTTP handlers to the orchestrator, the scheduler and the batch store.
type Server struct {
	router     chi.Router
	scraper    dispatcher.DomainScraper
	batches    BatchRunner
	discoverer URLDiscoverer
	store      crawler.BatchStore
	idGen      crawler.IDGenerator
	clock      crawler.Clock
	cfg        config.Config
	logger     *zap.Logger

	// background batches outlive their submitting request.
	baseCtx context.Context
	running sync.WaitGroup
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scraper dispatcher.DomainScraper,
	batches BatchRunner,
	discoverer URLDiscoverer,
	store crawler.BatchStore,
	idGen crawler.IDGenerator,
	clock crawler.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scraper:    scraper,
		batches:    batches,
		discoverer: discoverer,
		store:      store,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger.Named("api"),
		baseCtx:    context.Background(),
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		if cfg.Server.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.Server.APIKey))
		}
		r.Post("/scrape", s.scrape)
		r.Post("/discover-links", s.discoverLinks)
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", s.submitBatch)
			r.Get("/{batch_id}", s.getBatch)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every background batch has finished.
func (s *Server) Wait() {
	s.running.Wait()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrapeRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "missing URL parameter")
		return
	}
	mode, err := contact.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	task := contact.NewCrawlTask(req.URL, nil)
	if task.Domain == "" {
		writeError(w, http.StatusBadRequest, "invalid URL")
		return
	}

	logger := s.logger.With(zap.String("domain", task.Domain))
	record := s.scraper.ScrapeDomain(r.Context(), task, mode, func(msg string) {
		logger.Debug(msg)
	})
	writeJSON(w, http.StatusOK, record)
}

type discoverRequest struct {
	URL string `json:"url"`
}

func (s *Server) discoverLinks(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	target := strings.TrimSpace(req.URL)
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing URL parameter")
		return
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	links, err := s.discoverer.DiscoverURL(r.Context(), target)
	if err != nil {
		s.logger.Warn("link discovery failed", zap.String("url", target), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "links": []string{}})
		return
	}
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

type batchRequest struct {
	Domains []string `json:"domains"`
	Mode    string   `json:"mode"`
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	mode, err := contact.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tasks := make([]contact.CrawlTask, 0, len(req.Domains))
	domains := make([]string, 0, len(req.Domains))
	valid := 0
	for _, raw := range req.Domains {
		task := contact.NewCrawlTask(raw, nil)
		name := task.Domain
		if name == "" {
			// Kept so the batch reports it as an error record.
			name = strings.TrimSpace(raw)
			task.Input = map[string]string{"submitted": raw}
		} else {
			valid++
		}
		tasks = append(tasks, task)
		domains = append(domains, name)
	}
	if valid == 0 {
		writeError(w, http.StatusBadRequest, "at least one domain required")
		return
	}

	batchID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate batch id: %v", err))
		return
	}
	batch := crawler.Batch{
		ID:        batchID,
		Status:    crawler.BatchStatusQueued,
		Mode:      string(mode),
		Domains:   domains,
		Submitted: s.clock.Now(),
		Progress:  crawler.Progress{Total: len(tasks)},
	}
	if err := s.store.CreateBatch(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("create batch: %v", err))
		return
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.runBatch(s.baseCtx, batchID, tasks, mode)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID})
}

// runBatch drives one batch to a terminal status, persisting each window.
func (s *Server) runBatch(ctx context.Context, batchID string, tasks []contact.CrawlTask, mode contact.Mode) {
	logger := s.logger.With(zap.String("batch_id", batchID))
	total := crawler.Progress{Total: len(tasks)}
	if err := s.store.UpdateBatch(ctx, batchID, crawler.BatchStatusRunning, total, ""); err != nil {
		logger.Error("mark batch running", zap.Error(err))
		return
	}

	var persistErr error
	s.batches.Process(ctx, tasks, mode, func(records []contact.DomainRecord, progress crawler.Progress) {
		if err := s.store.AppendResults(ctx, batchID, records); err != nil {
			persistErr = errors.Join(persistErr, err)
			return
		}
		if err := s.store.UpdateBatch(ctx, batchID, crawler.BatchStatusRunning, progress, ""); err != nil {
			persistErr = errors.Join(persistErr, err)
		}
	})

	status, errText := crawler.BatchStatusSucceeded, ""
	if err := errors.Join(ctx.Err(), persistErr); err != nil {
		status, errText = crawler.BatchStatusFailed, err.Error()
	}
	done := crawler.Progress{Current: len(tasks), Total: len(tasks)}
	if err := s.store.UpdateBatch(context.WithoutCancel(ctx), batchID, status, done, errText); err != nil {
		logger.Error("finish batch", zap.Error(err))
		return
	}
	logger.Info("batch finished", zap.String("status", string(status)), zap.Int("domains", len(tasks)))
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	if err := batchid.Validate(batchID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	batch, err := s.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	results, err := s.store.ListResults(r.Context(), batchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch batch results")
		return
	}
	if results == nil {
		results = []contact.DomainRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch": batch, "results": results})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
