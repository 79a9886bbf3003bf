// Package http exposes the savings engines over a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pesso/internal/cache"
	"pesso/internal/challenge"
	"pesso/internal/ledger"
	"pesso/internal/store"
)

const summaryCacheKey = "summary"

type Server struct {
	http.Server
	ledger        *ledger.Engine
	challenges    *challenge.Engine
	notifications store.NotificationStore
	rateLimiter   *rateLimiter

	// Summary payloads are cheap to rebuild but hit on every page load,
	// so they are cached and invalidated on each mutation.
	summaryCache *cache.LRU[summaryBody]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, lg *ledger.Engine, ch *challenge.Engine, ns store.NotificationStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:        lg,
		challenges:    ch,
		notifications: ns,
		rateLimiter:   newRateLimiter(),
		summaryCache:  cache.NewLRU[summaryBody](8, 5*time.Minute),
	}
	s.summaryCache.StartJanitor(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("GET /api/envelopes", s.withMiddleware(s.handleListEnvelopes))
	mux.HandleFunc("POST /api/envelopes/{id}/deposit", s.withMiddleware(s.handleDeposit))
	mux.HandleFunc("POST /api/envelopes/{id}/withdraw", s.withMiddleware(s.handleWithdraw))
	mux.HandleFunc("POST /api/transfers", s.withMiddleware(s.handleTransfer))
	mux.HandleFunc("GET /api/goals", s.withMiddleware(s.handleListGoals))
	mux.HandleFunc("POST /api/goals/{id}/add", s.withMiddleware(s.handleAddToGoal))

	mux.HandleFunc("GET /api/challenges", s.withMiddleware(s.handleListChallenges))
	mux.HandleFunc("GET /api/challenges/{id}", s.withMiddleware(s.handleGetChallenge))
	mux.HandleFunc("POST /api/challenges", s.withMiddleware(s.handleCreateChallenge))
	mux.HandleFunc("POST /api/challenges/{id}/contributions", s.withMiddleware(s.handleContribute))
	mux.HandleFunc("POST /api/challenges/{id}/spin", s.withMiddleware(s.handleSpin))
	mux.HandleFunc("POST /api/challenges/{id}/complete", s.withMiddleware(s.handleCompleteChallenge))

	mux.HandleFunc("GET /api/notifications", s.withMiddleware(s.handleListNotifications))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.withMiddleware(s.handleMarkNotificationRead))

	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.summaryCache.StopJanitor()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request
// logging to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateSummary drops the cached summary after any mutation.
func (s *Server) invalidateSummary() {
	s.summaryCache.Delete(summaryCacheKey)
}
