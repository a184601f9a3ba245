package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/obiverse/dojo/internal/tracing"
	"github.com/rs/zerolog"
)

// Defaults
const (
	DefaultPort               = 9565
	DefaultHost               = "0.0.0.0"
	DefaultRateLimitPerMinute = 600
	DefaultMaxBodyBytes       = 1 << 20
	DefaultShutdownTimeout    = 30 * time.Second
)

// Server is the dojo HTTP server
type Server struct {
	options        Options
	coordinator    Coordinator
	server         *http.Server
	handler        http.Handler
	rateLimiter    *RateLimiter
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// New creates a server over coordinator
func New(options Options, coordinator Coordinator, logger zerolog.Logger) (*Server, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	if options.Port == 0 {
		options.Port = DefaultPort
	}
	if options.Host == "" {
		options.Host = DefaultHost
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = DefaultShutdownTimeout
	}
	if options.MetricsPath == "" {
		options.MetricsPath = "/metrics"
	}

	s := &Server{
		options:     options,
		coordinator: coordinator,
		logger:      logger,
		startTime:   time.Now(),
	}
	if options.RateLimitPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(options.RateLimitPerMinute)
	}
	s.handler = s.middleware(s.routes())

	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.options.Host, fmt.Sprintf("%d", s.options.Port))
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", s.get(s.handleStatus))
	mux.HandleFunc("/ninjas", s.get(s.handleNinjas))
	mux.HandleFunc("/jutsu", s.get(s.handleJutsu))
	mux.HandleFunc("/contracts", s.get(s.handleContracts))
	mux.HandleFunc("/healthz", s.get(s.handleHealth))

	mux.HandleFunc("/dispatch", s.post(s.handleDispatch))
	mux.HandleFunc("/shadow-clone-army", s.post(s.handleShadowCloneArmy))
	mux.HandleFunc("/combination", s.post(s.handleCombination))
	mux.HandleFunc("/summon", s.post(s.handleSummon))
	mux.HandleFunc("/raw", s.post(s.handleRaw))

	if s.options.MetricsHandler != nil {
		mux.Handle(s.options.MetricsPath, s.options.MetricsHandler)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	return mux
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting dojo server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start dojo server: %w", err)
	}

	return nil
}

// Stop rejects new requests, waits for in-flight ones and shuts down
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down dojo server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown cancelled, forcing close")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dojo server: %w", err)
	}

	s.logger.Info().Msg("Dojo server stopped")
	return nil
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// middleware applies CORS, request ids, shutdown gating, rate limiting and
// request logging
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")

		requestID, _ := gonanoid.New()
		header.Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}
		s.inFlightReqs.Add(1)
		s.shutdownMu.RUnlock()
		defer s.inFlightReqs.Done()

		if s.rateLimiter != nil {
			ip := clientIP(r, s.options.TrustForwardedHeaders)
			if !s.rateLimiter.Allow(ip) {
				retryAfter := s.rateLimiter.RetryAfter(ip)
				s.logger.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Int("retryAfter", retryAfter).
					Msg("Rate limit exceeded")

				header.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes)
		r = r.WithContext(tracing.NewRequestContext(tracing.WithRequestID(r.Context(), requestID)))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(startTime)
		if s.options.Observer != nil {
			s.options.Observer.RequestCompleted(r.URL.Path, r.Method, rec.status, duration)
		}

		event := s.logger.Info()
		if rec.status >= http.StatusBadRequest {
			event = s.logger.Warn()
		}
		event.
			Str("requestId", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", duration).
			Msg("Request handled")
	})
}
